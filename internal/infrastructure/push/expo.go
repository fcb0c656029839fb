package push

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"fmbq-backend/internal/domain"
	"fmbq-backend/pkg/logger"

	"github.com/goccy/go-json"
)

// ExpoClient sends push notifications through the Expo push service.
// Implements domain.PushSender.
type ExpoClient struct {
	url        string
	httpClient *http.Client
}

func NewExpoClient(url string, timeout time.Duration) *ExpoClient {
	return &ExpoClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type expoMessage struct {
	To       string            `json:"to"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound"`
	Priority string            `json:"priority"`
}

type expoResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Message string `json:"message"`
		Details struct {
			Error string `json:"error"`
		} `json:"details"`
	} `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// SendPush delivers one message with simple retry. 4xx responses other than
// 429 are not retried.
func (c *ExpoClient) SendPush(ctx context.Context, token, title, body string, data map[string]string) (*domain.PushTicket, error) {
	msg := expoMessage{
		To:       token,
		Title:    title,
		Body:     body,
		Data:     data,
		Sound:    "default",
		Priority: "high",
	}

	payload, err := json.Marshal([]expoMessage{msg})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push message: %w", err)
	}

	var lastErr error
	for i := 0; i < 3; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("push request failed: %w", err)
			if ctx.Err() != nil {
				break
			}
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}

		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			var parsed expoResponse
			if err := json.Unmarshal(raw, &parsed); err != nil {
				return nil, fmt.Errorf("failed to decode push response: %w", err)
			}
			if len(parsed.Errors) > 0 {
				return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamFailure, parsed.Errors[0].Message)
			}
			if len(parsed.Data) == 0 {
				return nil, fmt.Errorf("%w: empty push receipt", domain.ErrUpstreamFailure)
			}
			t := parsed.Data[0]
			ticket := &domain.PushTicket{ID: t.ID, Status: t.Status, Detail: t.Details.Error}
			if t.Status != "ok" {
				logger.Get().Warn().
					Str("status", t.Status).
					Str("detail", t.Details.Error).
					Msg("push rejected by provider")
			}
			return ticket, nil
		}

		lastErr = fmt.Errorf("%w: push status %d: %s", domain.ErrUpstreamFailure, resp.StatusCode, string(raw))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		time.Sleep(time.Duration(i+1) * time.Second)
	}

	return nil, lastErr
}
