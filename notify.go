package penmarket

import (
	"sync"
	"time"
)

// DefaultNotificationTTL matches the reference behavior of showing a toast
// for three seconds.
const DefaultNotificationTTL = 3 * time.Second

// Notifier manages the single ephemeral user-facing notification. A new
// Notify replaces the active notification and cancels its outstanding expiry
// timer before arming a new one, so a superseded timer can never clear a
// newer message.
type Notifier struct {
	mu      sync.Mutex
	ttl     time.Duration
	current *Notification
	timer   *time.Timer
	gen     uint64
}

// NewNotifier creates a notifier whose notifications expire after ttl.
// A non-positive ttl selects DefaultNotificationTTL.
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return &Notifier{ttl: ttl}
}

// Notify installs a new notification, replacing any pending one.
func (n *Notifier) Notify(message string, severity Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.gen++
	gen := n.gen

	n.current = &Notification{
		Message:   message,
		Severity:  severity,
		ExpiresAt: time.Now().Add(n.ttl),
	}
	n.timer = time.AfterFunc(n.ttl, func() {
		n.expire(gen)
	})
}

// Clear removes the active notification immediately.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.gen++
	n.current = nil
}

// Current returns the active notification, or nil if none is visible.
func (n *Notifier) Current() *Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// expire clears the notification installed at generation gen. A timer that
// fires after being superseded finds a newer generation and does nothing.
func (n *Notifier) expire(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.gen != gen {
		return
	}
	n.current = nil
	n.timer = nil
}
