package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength    = 80
	MaxMessageLength = 2000
)

var (
	ErrMissingFields = errors.New("missing name or message")
	ErrTooLong       = errors.New("input too long")
	ErrProvider      = errors.New("email provider error")
)

type Message struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Normalize trims both fields and checks them against the length limits.
func (m Message) Normalize() (Message, error) {
	normalized := Message{
		Name:    strings.TrimSpace(m.Name),
		Message: strings.TrimSpace(m.Message),
	}

	if normalized.Name == "" || normalized.Message == "" {
		return Message{}, ErrMissingFields
	}
	if utf8.RuneCountInString(normalized.Name) > MaxNameLength ||
		utf8.RuneCountInString(normalized.Message) > MaxMessageLength {
		return Message{}, ErrTooLong
	}

	return normalized, nil
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// Relay accepts contact form submissions and hands them to a Mailer.
type Relay struct {
	limiter        *Limiter
	mailer         Mailer
	successMessage string
}

func NewRelay(limiter *Limiter, mailer Mailer, successMessage string) *Relay {
	return &Relay{
		limiter:        limiter,
		mailer:         mailer,
		successMessage: successMessage,
	}
}

// Submit rate-limits before validating, so malformed submissions count
// against the client's quota too.
func (r *Relay) Submit(ctx context.Context, clientID string, msg Message) (string, error) {
	if err := r.limiter.Allow(clientID); err != nil {
		return "", err
	}

	normalized, err := msg.Normalize()
	if err != nil {
		return "", err
	}

	if err := r.mailer.Send(ctx, normalized); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}

	return r.successMessage, nil
}
