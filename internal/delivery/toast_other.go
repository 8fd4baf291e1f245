//go:build !windows

package delivery

import "context"

// Toast is only available on Windows.
type Toast struct{}

// NewToast returns a backend that always reports ErrUnsupported.
func NewToast(string) *Toast {
	return &Toast{}
}

func (t *Toast) Name() string { return "toast" }

func (t *Toast) Send(context.Context, Notification) error {
	return ErrUnsupported
}
