package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"brokerdesk/internal/domain"
)

const (
	smtpMaxAttempts = 3
	smtpBaseBackoff = 2 * time.Second
	smtpMaxBackoff  = 10 * time.Second
)

// SMTPConn is one live connection to the mail relay. The wire protocol
// behind it is a collaborator, not part of this package.
type SMTPConn interface {
	Send(from string, to []string, msg []byte) error
	Close() error
}

// Dialer opens SMTP connections.
type Dialer interface {
	Dial(ctx context.Context) (SMTPConn, error)
}

// SMTPProvider is the fallback delivery path. It retries up to three times
// with exponential backoff (2s base, doubled, capped at 10s) and recreates
// the connection after connection-class errors.
type SMTPProvider struct {
	dialer Dialer
	from   string
	logger *slog.Logger

	// sleep is swappable in tests
	sleep func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	conn SMTPConn
}

// NewSMTPProvider creates a new SMTPProvider
func NewSMTPProvider(dialer Dialer, from string, logger *slog.Logger) *SMTPProvider {
	return &SMTPProvider{
		dialer: dialer,
		from:   from,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Name identifies the provider in receipts and logs
func (p *SMTPProvider) Name() string {
	return "smtp"
}

// Send delivers the message over SMTP, retrying per the provider policy.
// Exhausting all attempts is terminal for this provider.
func (p *SMTPProvider) Send(ctx context.Context, msg domain.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	messageID := uuid.NewString()
	body := renderMessage(p.from, messageID, msg)

	backoff := smtpBaseBackoff
	var lastErr error

	for attempt := 1; attempt <= smtpMaxAttempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, backoff); err != nil {
				return "", err
			}
			backoff *= 2
			if backoff > smtpMaxBackoff {
				backoff = smtpMaxBackoff
			}
		}

		if p.conn == nil {
			conn, err := p.dialer.Dial(ctx)
			if err != nil {
				lastErr = err
				p.logger.Warn("smtp dial failed", "attempt", attempt, "error", err)
				continue
			}
			p.conn = conn
		}

		err := p.conn.Send(p.from, msg.Recipients, body)
		if err == nil {
			return messageID, nil
		}
		lastErr = err
		p.logger.Warn("smtp send failed", "attempt", attempt, "error", err)

		if isConnectionError(err) {
			// A dead connection is useless for the next attempt.
			p.conn.Close()
			p.conn = nil
		}
	}

	return "", fmt.Errorf("smtp delivery failed after %d attempts: %w", smtpMaxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// isConnectionError reports whether err is in the connection class: timeout,
// reset, refused, broken pipe or a torn-down stream.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) {
		return true
	}
	return false
}

func renderMessage(from, messageID string, msg domain.Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: <%s@brokerdesk>\r\n", messageID)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
