package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mikepea/clubhub/pkg/clubhub/config"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

// blockingNotifier holds every delivery until release is closed
type blockingNotifier struct {
	release chan struct{}
	Recorder
}

func (b *blockingNotifier) Notify(ctx context.Context, n Notification) error {
	<-b.release
	return b.Recorder.Notify(ctx, n)
}

func TestSendSkipsMissingRecipientAndNilNotifier(t *testing.T) {
	rec := &Recorder{}

	Send(context.Background(), rec, logger.Nop(), New(KindNewEvent, "", nil))
	require.Empty(t, rec.Sent())

	Send(context.Background(), nil, logger.Nop(), New(KindNewEvent, "a@example.com", nil))

	rec.Err = errors.New("smtp down")
	Send(context.Background(), rec, logger.Nop(), New(KindNewEvent, "a@example.com", nil))
	require.Len(t, rec.Sent(), 1)
}

func TestNewAssignsUniqueIDs(t *testing.T) {
	a := New(KindVerification, "a@example.com", nil)
	b := New(KindVerification, "a@example.com", nil)
	require.NotEmpty(t, a.ID)
	require.NotEqual(t, a.ID, b.ID)
}

func TestRender(t *testing.T) {
	subject, body, err := Render(New(KindMembershipJoined, "owner@example.com", map[string]any{
		"RecipientName": "Olive",
		"MemberName":    "<Bob>",
		"ClubName":      "Chess & Go",
	}))
	require.NoError(t, err)
	require.Equal(t, "A member joined Chess & Go", subject)
	require.Contains(t, body, "Hello Olive")
	require.Contains(t, body, "&lt;Bob&gt;")

	_, _, err = Render(New(Kind("unknown"), "x@example.com", nil))
	require.Error(t, err)
}

func TestRenderEveryKind(t *testing.T) {
	for _, kind := range []Kind{KindVerification, KindMembershipJoined, KindMembershipLeft, KindNewEvent} {
		_, _, err := Render(New(kind, "x@example.com", map[string]any{}))
		require.NoError(t, err, kind)
	}
}

// capture replaces the SMTP connection and keeps the rendered message
type capture struct {
	mu       sync.Mutex
	raw      string
	to       []string
	deadline bool
}

func (c *capture) send(ctx context.Context, msg *mail.Msg) error {
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return err
	}
	to, err := msg.GetRecipients()
	if err != nil {
		return err
	}
	_, hasDeadline := ctx.Deadline()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw, c.to, c.deadline = buf.String(), to, hasDeadline
	return nil
}

// headers returns the header block of the captured message
func (c *capture) headers() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := strings.Index(c.raw, "\r\n\r\n"); i >= 0 {
		return c.raw[:i]
	}
	return c.raw
}

func newTestSMTPNotifier() (*SMTPNotifier, *capture) {
	s := NewSMTPNotifier(config.SMTPConfig{
		Host:     "mail.test",
		Port:     2525,
		Username: "user",
		Password: "secret",
		From:     "Clubs <no-reply@clubs.test>",
	})
	c := &capture{}
	s.send = c.send
	return s, c
}

func TestSMTPNotifier(t *testing.T) {
	s, c := newTestSMTPNotifier()

	err := s.Notify(context.Background(), New(KindVerification, "new@example.com", map[string]any{
		"VerificationURL": "http://clubs.test/api/auth/verify/abc",
	}))
	require.NoError(t, err)
	require.Equal(t, []string{"new@example.com"}, c.to)

	headers := c.headers()
	require.Contains(t, headers, "no-reply@clubs.test")
	require.Contains(t, headers, "Subject: Verify your email")
	require.Contains(t, c.raw, "verify/abc")
}

func TestSMTPNotifierKeepsSubjectOnOneLine(t *testing.T) {
	s, c := newTestSMTPNotifier()

	err := s.Notify(context.Background(), New(KindNewEvent, "member@example.com", map[string]any{
		"RecipientName": "Mia",
		"EventTitle":    "Picnic\r\nBcc: everyone@example.com",
		"ClubName":      "Hiking",
	}))
	require.NoError(t, err)
	require.Equal(t, []string{"member@example.com"}, c.to)

	headers := c.headers()
	require.NotContains(t, headers, "\r\nBcc:")
	require.NotContains(t, headers, "\nBcc:")
	require.Contains(t, headers, "Picnic Bcc: everyone@example.com")
}

func TestSMTPNotifierEncodesNonASCIISubject(t *testing.T) {
	s, c := newTestSMTPNotifier()

	err := s.Notify(context.Background(), New(KindMembershipJoined, "owner@example.com", map[string]any{
		"RecipientName": "Olive",
		"MemberName":    "Bob",
		"ClubName":      "Café",
	}))
	require.NoError(t, err)

	headers := c.headers()
	require.NotContains(t, headers, "Café")
	require.Contains(t, headers, "=?UTF-8?")
}

func TestSMTPNotifierRejectsBadRecipient(t *testing.T) {
	s, c := newTestSMTPNotifier()

	err := s.Notify(context.Background(), New(KindVerification, "not an address", map[string]any{}))
	require.Error(t, err)
	require.Empty(t, c.raw)
}

func TestSMTPNotifierHonorsCancelledContext(t *testing.T) {
	s, c := newTestSMTPNotifier()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Notify(ctx, New(KindNewEvent, "x@example.com", nil)), context.Canceled)
	require.Empty(t, c.raw)
}

func TestSMTPNotifierExpiredDeadline(t *testing.T) {
	s := NewSMTPNotifier(config.SMTPConfig{Host: "mail.test", Port: 25, From: "a@b.c"})
	msg, err := s.message(New(KindVerification, "x@example.com", map[string]any{}))
	require.NoError(t, err)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	require.ErrorIs(t, s.dialAndSend(ctx, msg), context.DeadlineExceeded)
}

func TestDispatcherBoundsEachDelivery(t *testing.T) {
	s, c := newTestSMTPNotifier()
	d := NewDispatcher(s, 4, logger.Nop())
	require.NoError(t, d.Notify(context.Background(), New(KindVerification, "x@example.com", map[string]any{})))
	d.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	require.True(t, c.deadline)
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	rec := &Recorder{}
	d := NewDispatcher(rec, 16, logger.Nop())

	for i := 0; i < 10; i++ {
		require.NoError(t, d.Notify(context.Background(), New(KindNewEvent, "x@example.com", nil)))
	}
	d.Close()

	require.Len(t, rec.Sent(), 10)
	require.ErrorIs(t, d.Notify(context.Background(), New(KindNewEvent, "x@example.com", nil)), ErrClosed)

	// second Close is a no-op
	d.Close()
}

func TestDispatcherNeverBlocks(t *testing.T) {
	slow := &blockingNotifier{release: make(chan struct{})}
	d := NewDispatcher(slow, 1, logger.Nop())

	// the worker takes the first one and blocks; the second fills the queue
	require.NoError(t, d.Notify(context.Background(), New(KindNewEvent, "x@example.com", nil)))
	require.Eventually(t, func() bool {
		return d.Notify(context.Background(), New(KindNewEvent, "x@example.com", nil)) == nil
	}, time.Second, time.Millisecond)

	start := time.Now()
	err := d.Notify(context.Background(), New(KindNewEvent, "x@example.com", nil))
	require.ErrorIs(t, err, ErrQueueFull)
	require.Less(t, time.Since(start), 100*time.Millisecond)

	close(slow.release)
	d.Close()
	require.Len(t, slow.Sent(), 2)
}

func TestDispatcherConcurrentNotify(t *testing.T) {
	rec := &Recorder{}
	d := NewDispatcher(rec, 1000, logger.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Notify(context.Background(), New(KindNewEvent, "x@example.com", nil))
		}()
	}
	wg.Wait()
	d.Close()
	require.Len(t, rec.Sent(), 50)
}
