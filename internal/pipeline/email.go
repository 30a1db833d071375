// =============================================================================
// email.go - SMTP run notifications
// =============================================================================
//
// Two messages, both plain text over SMTP with PLAIN auth (Gmail on 587 by
// default, which needs an app password):
//
//   - failure report: sent when a run has failed sources and on_failure is set
//   - newsletter:     the Markdown digest, when newsletter is set
//
// Delivery is retried with exponential backoff (2s, 4s). Mail problems are
// logged by the caller and never fail a run.
//
// Environment: EMAIL_FROM, EMAIL_PASSWORD, EMAIL_TO (comma separated).
//
// =============================================================================
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"ai-relay/internal/logger"
)

const emailAttempts = 3

// ErrEmailDisabled is returned by NewMailer when EMAIL_* are incomplete.
var ErrEmailDisabled = errors.New("email not configured (EMAIL_FROM, EMAIL_PASSWORD, EMAIL_TO)")

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends run notifications.
type Mailer struct {
	cfg      EmailConfig
	log      logger.Logger
	sendMail sendMailFunc
	backoff  time.Duration
}

// NewMailer returns ErrEmailDisabled unless cfg.Enabled().
func NewMailer(cfg EmailConfig, log logger.Logger) (*Mailer, error) {
	if !cfg.Enabled() {
		return nil, ErrEmailDisabled
	}
	return &Mailer{cfg: cfg, log: log, sendMail: smtp.SendMail, backoff: 2 * time.Second}, nil
}

// SendFailureReport mails the failed sources of a run. It does nothing when
// every source succeeded.
func (m *Mailer) SendFailureReport(ctx context.Context, runID string, report StatusReport, now time.Time) error {
	failed := report.FailedSources()
	if len(failed) == 0 {
		return nil
	}
	subject := fmt.Sprintf("[ai-relay] %d source(s) failed - %s", len(failed), now.Format("2006-01-02 15:04"))
	return m.send(ctx, subject, failureBody(runID, report, failed, now))
}

// SendNewsletter mails a rendered digest.
func (m *Mailer) SendNewsletter(ctx context.Context, digest string, articles int, now time.Time) error {
	if articles == 0 {
		return fmt.Errorf("no articles to send")
	}
	subject := fmt.Sprintf("AI Newsletter - %s (%d articles)", now.Format("2006-01-02"), articles)
	return m.send(ctx, subject, digest)
}

func failureBody(runID string, report StatusReport, failed []string, now time.Time) string {
	var b strings.Builder
	b.WriteString("ai-relay run report\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Run: %s\n\n", runID)
	b.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&b, "Sources: %d ok, %d failed, %d total\n", report.Successful, report.Failed, report.TotalSources)
	fmt.Fprintf(&b, "Articles: %d\n", report.TotalArticles)
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	for _, name := range failed {
		fmt.Fprintf(&b, "- %s\n", name)
		if e := report.Sources[name].Error; e != nil {
			fmt.Fprintf(&b, "    %s\n", *e)
		}
	}
	return b.String()
}

// buildMessage renders an RFC 5322 message. The subject is Q-encoded so
// non-ASCII titles survive.
func (m *Mailer) buildMessage(subject, body string) []byte {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(m.cfg.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(msg.String())
}

func (m *Mailer) send(ctx context.Context, subject, body string) error {
	msg := m.buildMessage(subject, body)
	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.SMTPHost)
	addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort

	var lastErr error
	wait := m.backoff
	for attempt := 1; attempt <= emailAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
		if lastErr = m.sendMail(addr, auth, m.cfg.From, m.cfg.To, msg); lastErr == nil {
			return nil
		}
		m.log.Warn("email send failed",
			logger.Int("attempt", attempt), logger.Int("of", emailAttempts), logger.Err(lastErr))
	}
	return fmt.Errorf("send email after %d attempts: %w", emailAttempts, lastErr)
}

// notifyRun sends the configured notifications for a finished batch.
func notifyRun(ctx context.Context, cfg Config, out BatchResult, log logger.Logger) {
	if !cfg.Email.OnFailure && !cfg.Email.Newsletter {
		return
	}
	m, err := NewMailer(cfg.Email, log)
	if err != nil {
		log.Debug("notifications skipped", logger.Err(err))
		return
	}

	if cfg.Email.OnFailure {
		if err := m.SendFailureReport(ctx, out.Run.RunID, out.Report, out.Run.FinishedAt); err != nil {
			log.Warn("failure report not sent", logger.Err(err))
		}
	}
	if cfg.Email.Newsletter && len(out.Run.Articles) > 0 {
		digest := RenderNewsletter(out.Run.Articles, out.Run.FinishedAt)
		if err := m.SendNewsletter(ctx, digest, len(out.Run.Articles), out.Run.FinishedAt); err != nil {
			log.Warn("newsletter not sent", logger.Err(err))
		}
	}
}
