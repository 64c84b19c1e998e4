package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"brokerdesk/internal/domain"
)

// Provider delivers one message and returns a provider-side message ID.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg domain.Message) (string, error)
}

// Gateway implements domain.Notifier over an ordered list of providers.
// The first provider that delivers wins; a provider failure falls through to
// the next one with the same payload. Retry policy lives inside the
// providers that need it.
type Gateway struct {
	providers []Provider
	logger    *slog.Logger
}

// NewGateway creates a new Gateway trying providers in the given order
func NewGateway(logger *slog.Logger, providers ...Provider) *Gateway {
	return &Gateway{
		providers: providers,
		logger:    logger,
	}
}

// Send delivers msg via the first provider that accepts it
func (g *Gateway) Send(ctx context.Context, msg domain.Message) (domain.Receipt, error) {
	msg.Recipients = normalizeRecipients(msg.Recipients)
	if len(msg.Recipients) == 0 {
		return domain.Receipt{}, domain.ErrInvalidRecipient
	}

	var lastErr error
	for _, p := range g.providers {
		id, err := p.Send(ctx, msg)
		if err == nil {
			return domain.Receipt{Provider: p.Name(), MessageID: id}, nil
		}
		g.logger.Warn("mail provider failed, falling through",
			"provider", p.Name(), "error", err)
		lastErr = err
	}

	if lastErr == nil {
		return domain.Receipt{}, fmt.Errorf("no mail providers configured")
	}
	return domain.Receipt{}, fmt.Errorf("all mail providers failed: %w", lastErr)
}

// normalizeRecipients trims, lowercases and de-duplicates addresses,
// dropping empties.
func normalizeRecipients(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, r := range in {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
