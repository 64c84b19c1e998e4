package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"
)

// NetDialer opens SMTP connections over the network. Plain-auth when
// credentials are configured, STARTTLS when the relay offers it.
type NetDialer struct {
	host string
	port string
	user string
	pass string
}

// NewNetDialer creates a new NetDialer
func NewNetDialer(host, port, user, pass string) *NetDialer {
	return &NetDialer{host: host, port: port, user: user, pass: pass}
}

// Dial opens and authenticates a connection to the relay
func (d *NetDialer) Dial(ctx context.Context) (SMTPConn, error) {
	addr := net.JoinHostPort(d.host, d.port)

	var nd net.Dialer
	nd.Timeout = 10 * time.Second
	raw, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial smtp relay: %w", err)
	}

	client, err := smtp.NewClient(raw, d.host)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("failed to open smtp session: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: d.host}); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to start tls: %w", err)
		}
	}

	if d.user != "" {
		auth := smtp.PlainAuth("", d.user, d.pass, d.host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	return &netConn{client: client}, nil
}

type netConn struct {
	client *smtp.Client
}

func (c *netConn) Send(from string, to []string, msg []byte) error {
	if err := c.client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (c *netConn) Close() error {
	return c.client.Close()
}
