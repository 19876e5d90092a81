package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"
)

const ResendEndpoint = "https://api.resend.com/emails"

const logPreviewLength = 200

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type ResendMailer struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	from       string
	to         string
}

func NewResendMailer(httpClient *http.Client, endpoint, apiKey, from, to string) *ResendMailer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = ResendEndpoint
	}
	return &ResendMailer{
		httpClient: httpClient,
		endpoint:   endpoint,
		apiKey:     apiKey,
		from:       from,
		to:         to,
	}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(resendPayload{
		From:    m.from,
		To:      []string{m.to},
		Subject: fmt.Sprintf("New Question from %s", msg.Name),
		Text:    fmt.Sprintf("From: %s\n\n%s", msg.Name, msg.Message),
	})
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		slog.Error("Resend error", "status", resp.StatusCode, "body", strings.TrimSpace(string(detail)))
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	return nil
}

func (m *ResendMailer) Name() string {
	return "resend"
}

// LogMailer accepts every message and only logs it, so the form keeps
// working without a mail provider.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	slog.Info("New contact message", "name", msg.Name, "message", preview(msg.Message))
	return nil
}

func (LogMailer) Name() string {
	return "log"
}

// NewMailer picks Resend when it is selected and fully configured.
func NewMailer(provider, apiKey, from, to string) Mailer {
	if strings.EqualFold(provider, "resend") && apiKey != "" && to != "" {
		return NewResendMailer(nil, "", apiKey, from, to)
	}
	if strings.EqualFold(provider, "resend") {
		slog.Warn("Resend selected but RESEND_API_KEY or CONTACT_TO is missing, logging messages instead")
	}
	return LogMailer{}
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= logPreviewLength {
		return text
	}
	return string([]rune(text)[:logPreviewLength]) + "…"
}
