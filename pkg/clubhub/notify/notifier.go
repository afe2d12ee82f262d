package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
)

// Kind identifies the notification template
type Kind string

const (
	KindVerification     Kind = "verification"
	KindMembershipJoined Kind = "membership-joined"
	KindMembershipLeft   Kind = "membership-left"
	KindNewEvent         Kind = "new-event"
)

// Notification is a single message addressed to one recipient
type Notification struct {
	ID        string
	Kind      Kind
	Recipient string
	Data      map[string]any
}

// New builds a Notification with a fresh ID
func New(kind Kind, recipient string, data map[string]any) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Recipient: recipient,
		Data:      data,
	}
}

// Notifier delivers notifications. Callers treat the result as advisory.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Send hands n to the notifier and logs a failure instead of returning it.
func Send(ctx context.Context, notifier Notifier, log logger.Logger, n Notification) {
	if notifier == nil {
		return
	}
	if n.Recipient == "" {
		log.Debugf("Dropping %s notification %s without recipient", n.Kind, n.ID)
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		log.Warnf("Cannot send %s notification %s to %s: %v", n.Kind, n.ID, n.Recipient, err)
	}
}

// LogNotifier only logs what would have been sent
type LogNotifier struct {
	log logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.log.Infof("notification %s kind=%s to=%s data=%v", n.ID, n.Kind, n.Recipient, n.Data)
	return nil
}

// Recorder keeps every notification in memory
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
	Err  error
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.Err
}

// Sent returns a copy of what was recorded so far
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// OfKind returns the recorded notifications of one kind
func (r *Recorder) OfKind(kind Kind) []Notification {
	var out []Notification
	for _, n := range r.Sent() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}
