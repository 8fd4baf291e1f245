//go:build windows

package delivery

import (
	"context"

	toast "git.sr.ht/~jackmordaunt/go-toast"
)

// Toast sends native Windows toast notifications.
type Toast struct {
	appID string
}

// NewToast returns the Windows toast backend.
func NewToast(appID string) *Toast {
	return &Toast{appID: appID}
}

func (t *Toast) Name() string { return "toast" }

func (t *Toast) Send(_ context.Context, n Notification) error {
	notification := toast.Notification{
		AppID: t.appID,
		Title: n.Title,
		Body:  n.Message,
		Icon:  n.ImagePath,
		Audio: toastAudio(n.Sound),
	}
	return notification.Push()
}

// toastAudio picks the system default sound, or silence. An empty value makes
// go-toast play the default sound.
func toastAudio(sound bool) string {
	if sound {
		return toast.Default
	}
	return toast.Silent
}
