package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultSendTimeout = 10 * time.Second

// APISender delivers mail through an HTTP mail-API endpoint (Mailgun,
// SendGrid and friends all accept a JSON body with a bearer key). The call
// is bounded by the client timeout so a stalled provider surfaces as a
// transport error rather than hanging the request.
type APISender struct {
	url    string
	apiKey string
	client *http.Client
}

var _ Sender = (*APISender)(nil)

// NewAPISender creates a sender POSTing to url with the given bearer key.
func NewAPISender(url, apiKey string) *APISender {
	return &APISender{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: defaultSendTimeout},
	}
}

func (s *APISender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding mail payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail provider returned status %d", resp.StatusCode)
	}
	return nil
}
