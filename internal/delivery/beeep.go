package delivery

import (
	"context"

	"github.com/gen2brain/beeep"
)

// Beeep sends through the cross-platform beeep library.
type Beeep struct {
	notify func(title, message, icon string) error
	alert  func(title, message, icon string) error
}

// NewBeeep returns the beeep backend.
func NewBeeep() *Beeep {
	return &Beeep{
		notify: func(title, message, icon string) error { return beeep.Notify(title, message, icon) },
		alert:  func(title, message, icon string) error { return beeep.Alert(title, message, icon) },
	}
}

func (b *Beeep) Name() string { return "beeep" }

// Send uses Alert, which includes a system sound, when n.Sound is set.
func (b *Beeep) Send(_ context.Context, n Notification) error {
	if n.Sound {
		return b.alert(n.Title, n.Message, n.ImagePath)
	}
	return b.notify(n.Title, n.Message, n.ImagePath)
}
