package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultSendGridBaseURL = "https://api.sendgrid.com/v3"

// SendGrid posts to the v3 mail/send endpoint.
type SendGrid struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type SendGridOption func(*SendGrid)

func WithAPIKey(key string) SendGridOption {
	return func(s *SendGrid) { s.apiKey = key }
}

func WithBaseURL(url string) SendGridOption {
	return func(s *SendGrid) {
		if strings.TrimSpace(url) != "" {
			s.baseURL = strings.TrimRight(url, "/")
		}
	}
}

func WithHTTPClient(c *http.Client) SendGridOption {
	return func(s *SendGrid) {
		if c != nil {
			s.client = c
		}
	}
}

func NewSendGrid(opts ...SendGridOption) *SendGrid {
	s := &SendGrid{baseURL: defaultSendGridBaseURL}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 10 * time.Second}
	}
	return s
}

type sendGridAddress struct {
	Email string `json:"email"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

func (s *SendGrid) Send(ctx context.Context, from, to, subject, body string) error {
	if strings.TrimSpace(s.apiKey) == "" {
		return fmt.Errorf("sendgrid: api key required")
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("sendgrid: destination required")
	}
	if strings.TrimSpace(from) == "" {
		return fmt.Errorf("sendgrid: from required")
	}
	payload, err := json.Marshal(sendGridRequest{
		Personalizations: []sendGridPersonalization{{To: []sendGridAddress{{Email: to}}}},
		From:             sendGridAddress{Email: from},
		Subject:          subject,
		Content:          []sendGridContent{{Type: "text/plain", Value: firstNonEmpty(body, subject)}},
	})
	if err != nil {
		return fmt.Errorf("sendgrid: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/mail/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sendgrid: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid: request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: unexpected status %d", resp.StatusCode)
	}
	return nil
}
