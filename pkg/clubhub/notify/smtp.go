package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/mikepea/clubhub/pkg/clubhub/config"
	"github.com/wneessen/go-mail"
)

type mailTemplate struct {
	subject *texttemplate.Template
	body    *template.Template
}

func mustTemplate(subject, body string) mailTemplate {
	return mailTemplate{
		subject: texttemplate.Must(texttemplate.New("subject").Parse(subject)),
		body:    template.Must(template.New("body").Parse(body)),
	}
}

var templates = map[Kind]mailTemplate{
	KindVerification: mustTemplate(
		"Verify your email",
		`<h2>Email verification</h2>
<p>Confirm your address by opening the link below:</p>
<p><a href="{{.VerificationURL}}">Verify email</a></p>
<p>If you did not sign up, you can ignore this message.</p>`,
	),
	KindMembershipJoined: mustTemplate(
		"A member joined {{.ClubName}}",
		`<h2>Club membership update</h2>
<p>Hello {{.RecipientName}},</p>
<p>{{.MemberName}} has joined your club "{{.ClubName}}".</p>`,
	),
	KindMembershipLeft: mustTemplate(
		"A member left {{.ClubName}}",
		`<h2>Club membership update</h2>
<p>Hello {{.RecipientName}},</p>
<p>{{.MemberName}} has left your club "{{.ClubName}}".</p>`,
	),
	KindNewEvent: mustTemplate(
		"New event: {{.EventTitle}}",
		`<h2>New event</h2>
<p>Hello {{.RecipientName}},</p>
<p>"{{.EventTitle}}" was just scheduled by {{.ClubName}}.</p>
<p>Log in to see the details.</p>`,
	),
}

// Render produces the subject and HTML body for n
func Render(n Notification) (subject, body string, err error) {
	tmpl, ok := templates[n.Kind]
	if !ok {
		return "", "", fmt.Errorf("no template for notification kind %q", n.Kind)
	}
	var buf bytes.Buffer
	if err := tmpl.subject.Execute(&buf, n.Data); err != nil {
		return "", "", err
	}
	subject = buf.String()
	buf.Reset()
	if err := tmpl.body.Execute(&buf, n.Data); err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}

// sendFunc delivers one prepared message
type sendFunc func(ctx context.Context, msg *mail.Msg) error

// SMTPNotifier delivers notifications as HTML email
type SMTPNotifier struct {
	cfg  config.SMTPConfig
	send sendFunc
}

func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	s := &SMTPNotifier{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

func (s *SMTPNotifier) Notify(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := s.message(n)
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

// message renders n into a mail message. Header values go through go-mail,
// which encodes them; line breaks in the subject are folded to spaces first.
func (s *SMTPNotifier) message(n Notification) (*mail.Msg, error) {
	subject, body, err := Render(n)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", s.cfg.From, err)
	}
	if err := msg.To(n.Recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", n.Recipient, err)
	}
	msg.Subject(singleLine(subject))
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

func (s *SMTPNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	timeout := sendTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if timeout = time.Until(deadline); timeout <= 0 {
			return context.DeadlineExceeded
		}
	}
	opts := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(timeout),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
