package actionstate

import (
	"time"

	"github.com/upb/fraudshield/models"
	"go.uber.org/zap"
)

// NotificationKind is the severity of a transient notification
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is a one-shot message surfaced to the user (a toast).
// It is delivered once and never stored by the tracker.
type Notification struct {
	Session string           `json:"session,omitempty"`
	Key     models.ActionKey `json:"key"`
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	At      time.Time        `json:"at"`
}

// Notifier receives transient notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(n Notification)

// Notify calls f(n)
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

// LogNotifier writes notifications to a zap logger
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification. Errors are logged at warn level.
func (n *LogNotifier) Notify(notification Notification) {
	fields := []zap.Field{
		zap.String("session", notification.Session),
		zap.String("action", string(notification.Key)),
		zap.String("message", notification.Message),
	}
	if notification.Kind == NotificationError {
		n.logger.Warn("action failed", fields...)
		return
	}
	n.logger.Info("action succeeded", fields...)
}

// MultiNotifier fans a notification out to several notifiers in order
type MultiNotifier []Notifier

// Notify delivers n to every notifier
func (m MultiNotifier) Notify(n Notification) {
	for _, notifier := range m {
		notifier.Notify(n)
	}
}
