// Package mail delivers outbound email for the account service.
package mail

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// Sender delivers a single HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, bodyHTML string) error
}

const ResetSubject = "Reset your password"

var resetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hello {{.Name}},</p>
<p>Someone asked to reset the password of your account. If it was you, follow the link below within {{.Validity}}:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>If you did not ask for this, ignore this message; your password stays the same.</p>
</body>
</html>
`))

// ResetMessage is the content of a password reset email.
type ResetMessage struct {
	Name     string
	Link     string
	Validity string
}

// ResetLink appends the secret as the last path segment of base.
func ResetLink(base, secret string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(secret)
}

// RenderReset renders the HTML body of a reset email.
func RenderReset(m ResetMessage) (string, error) {
	var buf bytes.Buffer
	if err := resetTmpl.Execute(&buf, m); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LogSender records that a message would have been sent. Bodies are never
// logged since they carry reset secrets.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "mail")}
}

func (s *LogSender) Send(ctx context.Context, to, subject, bodyHTML string) error {
	s.logger.Info(ctx, "mail not delivered (log driver)", "to", to, "subject", subject, "body_bytes", len(bodyHTML))
	return nil
}
