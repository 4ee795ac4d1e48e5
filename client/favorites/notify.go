package favorites

import (
	"sync"
	"time"
)

// DefaultDismissAfter is how long a notification stays visible.
const DefaultDismissAfter = 4000 * time.Millisecond

type NotificationLevel int

const (
	LevelSuccess NotificationLevel = iota
	LevelWarning
	LevelError
)

func (l NotificationLevel) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	default:
		return "error"
	}
}

type Notification struct {
	Level   NotificationLevel
	Message string
}

// Notifier surfaces user-facing notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Center is a Notifier that keeps at most one notification visible at a
// time; a new one replaces the current and restarts the dismiss timer.
type Center struct {
	// DismissAfter overrides DefaultDismissAfter when positive.
	DismissAfter time.Duration
	// OnChange, when set, is called with the visible notification, or nil
	// after a dismiss.
	OnChange func(n *Notification)

	mu      sync.Mutex
	current *Notification
	timer   *time.Timer
}

func (c *Center) Notify(n Notification) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.current = &n
	c.timer = time.AfterFunc(c.dismissAfter(), c.dismiss)
	onChange := c.OnChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(&n)
	}
}

// Current returns the visible notification, or nil.
func (c *Center) Current() *Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Dismiss hides the visible notification, if any.
func (c *Center) Dismiss() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.dismiss()
}

func (c *Center) dismiss() {
	c.mu.Lock()
	changed := c.current != nil
	c.current = nil
	onChange := c.OnChange
	c.mu.Unlock()

	if changed && onChange != nil {
		onChange(nil)
	}
}

func (c *Center) dismissAfter() time.Duration {
	if c.DismissAfter > 0 {
		return c.DismissAfter
	}
	return DefaultDismissAfter
}
