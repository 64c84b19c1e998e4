package mailer

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"brokerdesk/internal/domain"
)

type fakeConn struct {
	sendErrs []error // consumed per Send call; nil means success
	sends    int
	closed   bool
}

func (c *fakeConn) Send(from string, to []string, msg []byte) error {
	var err error
	if c.sends < len(c.sendErrs) {
		err = c.sendErrs[c.sends]
	}
	c.sends++
	return err
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeDialer struct {
	conns []*fakeConn
	dials int
}

func (d *fakeDialer) Dial(ctx context.Context) (SMTPConn, error) {
	if d.dials >= len(d.conns) {
		return nil, errors.New("relay unreachable")
	}
	conn := d.conns[d.dials]
	d.dials++
	return conn, nil
}

func newTestSMTPProvider(d Dialer) (*SMTPProvider, *[]time.Duration) {
	p := NewSMTPProvider(d, "no-reply@brokerdesk.local", testLogger())
	var sleeps []time.Duration
	p.sleep = func(ctx context.Context, dur time.Duration) error {
		sleeps = append(sleeps, dur)
		return nil
	}
	return p, &sleeps
}

var testMsg = domain.Message{
	Recipients: []string{"user@example.com"},
	Subject:    "hello",
	Body:       "body",
}

func TestSMTPProviderSucceedsFirstAttempt(t *testing.T) {
	conn := &fakeConn{}
	p, sleeps := newTestSMTPProvider(&fakeDialer{conns: []*fakeConn{conn}})

	id, err := p.Send(context.Background(), testMsg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id == "" {
		t.Fatal("expected a message id")
	}
	if len(*sleeps) != 0 {
		t.Fatalf("no backoff expected on first-attempt success, got %v", *sleeps)
	}
}

func TestSMTPProviderRetriesWithBackoff(t *testing.T) {
	// Non-connection errors keep the connection and retry.
	conn := &fakeConn{sendErrs: []error{
		errors.New("451 try again later"),
		errors.New("451 try again later"),
		nil,
	}}
	p, sleeps := newTestSMTPProvider(&fakeDialer{conns: []*fakeConn{conn}})

	if _, err := p.Send(context.Background(), testMsg); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if conn.sends != 3 {
		t.Fatalf("expected 3 attempts, got %d", conn.sends)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("expected backoffs %v, got %v", want, *sleeps)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Fatalf("backoff %d: expected %v, got %v", i, d, (*sleeps)[i])
		}
	}
	if conn.closed {
		t.Fatal("connection must be kept across non-connection errors")
	}
}

func TestSMTPProviderRecreatesConnectionOnConnectionError(t *testing.T) {
	first := &fakeConn{sendErrs: []error{syscall.ECONNRESET}}
	second := &fakeConn{}
	dialer := &fakeDialer{conns: []*fakeConn{first, second}}
	p, _ := newTestSMTPProvider(dialer)

	if _, err := p.Send(context.Background(), testMsg); err != nil {
		t.Fatalf("expected success on fresh connection, got %v", err)
	}
	if !first.closed {
		t.Fatal("dead connection should have been discarded")
	}
	if dialer.dials != 2 {
		t.Fatalf("expected a redial, got %d dials", dialer.dials)
	}
	if second.sends != 1 {
		t.Fatalf("expected one send on fresh connection, got %d", second.sends)
	}
}

func TestSMTPProviderExhaustsAttempts(t *testing.T) {
	conn := &fakeConn{sendErrs: []error{
		errors.New("451 busy"),
		errors.New("451 busy"),
		errors.New("451 busy"),
	}}
	p, sleeps := newTestSMTPProvider(&fakeDialer{conns: []*fakeConn{conn}})

	_, err := p.Send(context.Background(), testMsg)
	if err == nil {
		t.Fatal("expected terminal failure after exhausting retries")
	}
	if conn.sends != smtpMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", smtpMaxAttempts, conn.sends)
	}
	if len(*sleeps) != smtpMaxAttempts-1 {
		t.Fatalf("expected %d backoffs, got %d", smtpMaxAttempts-1, len(*sleeps))
	}
}

func TestIsConnectionError(t *testing.T) {
	if !isConnectionError(syscall.ECONNREFUSED) {
		t.Fatal("refused should be connection-class")
	}
	if !isConnectionError(syscall.EPIPE) {
		t.Fatal("broken pipe should be connection-class")
	}
	if isConnectionError(errors.New("550 mailbox unavailable")) {
		t.Fatal("protocol errors are not connection-class")
	}
	if isConnectionError(nil) {
		t.Fatal("nil is not an error")
	}
}
