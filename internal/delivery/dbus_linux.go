//go:build linux

package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/esiqveland/notify"
	"github.com/godbus/dbus/v5"
)

const dbusExpireTimeout = 10 * time.Second

// DBus talks to the freedesktop notification daemon on the session bus.
type DBus struct {
	appName string
}

// NewDBus returns the D-Bus backend.
func NewDBus(appName string) *DBus {
	return &DBus{appName: appName}
}

func (d *DBus) Name() string { return "dbus" }

func (d *DBus) Send(_ context.Context, n Notification) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("%w: session bus: %v", ErrUnsupported, err)
	}
	defer conn.Close()

	hints := map[string]dbus.Variant{}
	if n.Sound {
		hints["sound-name"] = dbus.MakeVariant("message-new-instant")
	}

	note := notify.Notification{
		AppName:       d.appName,
		ReplacesID:    uint32(0),
		AppIcon:       n.ImagePath,
		Summary:       n.Title,
		Body:          n.Message,
		Hints:         hints,
		ExpireTimeout: dbusExpireTimeout,
	}

	if _, err := notify.SendNotification(conn, note); err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	return nil
}
