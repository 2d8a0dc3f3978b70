package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultNotifyTimeout is how long a notification stays up.
const DefaultNotifyTimeout = 3 * time.Second

// Kind is the kind of an outcome notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notification is a transient outcome message.
type Notification struct {
	ID      string
	Kind    Kind
	Message string
}

// Notifier holds at most one notification. Showing a new one replaces the
// current one; each dismisses itself after the timeout.
type Notifier struct {
	mu       sync.Mutex
	timeout  time.Duration
	current  *Notification
	timer    *time.Timer
	onChange func()
}

// NewNotifier creates a notifier. onChange, if set, is called after every
// show or dismiss, outside the notifier's lock.
func NewNotifier(timeout time.Duration, onChange func()) *Notifier {
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	return &Notifier{timeout: timeout, onChange: onChange}
}

// Show displays a notification, replacing whatever is shown.
func (n *Notifier) Show(kind Kind, message string) Notification {
	note := Notification{ID: uuid.NewString(), Kind: kind, Message: message}

	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.current = &note
	id := note.ID
	n.timer = time.AfterFunc(n.timeout, func() { n.dismiss(id) })
	n.mu.Unlock()

	n.changed()
	return note
}

// Current returns the displayed notification.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}

// Stop cancels the auto-dismiss timer without changing what is shown.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

// Dismiss removes the displayed notification, if any.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	if n.current == nil {
		n.mu.Unlock()
		return
	}
	id := n.current.ID
	n.mu.Unlock()

	n.dismiss(id)
}

// dismiss removes the notification with the given ID; a newer one is left alone.
func (n *Notifier) dismiss(id string) {
	n.mu.Lock()
	if n.current == nil || n.current.ID != id {
		n.mu.Unlock()
		return
	}
	n.current = nil
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.mu.Unlock()

	n.changed()
}

func (n *Notifier) changed() {
	if n.onChange != nil {
		n.onChange()
	}
}
