//go:build !linux

package delivery

import "context"

// DBus is only available on Linux.
type DBus struct{}

// NewDBus returns a backend that always reports ErrUnsupported.
func NewDBus(string) *DBus {
	return &DBus{}
}

func (d *DBus) Name() string { return "dbus" }

func (d *DBus) Send(context.Context, Notification) error {
	return ErrUnsupported
}
