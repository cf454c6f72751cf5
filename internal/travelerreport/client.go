package travelerreport

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// StatusError is returned for non-2xx responses. Only 5xx responses are retried.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("traveler report endpoint returned %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500
}

type Config struct {
	Endpoint  string
	Username  string
	Password  string
	Attempts  uint
	BaseDelay time.Duration
	Timeout   time.Duration
}

type Receipt struct {
	StatusCode int
	Reference  string
	Attempts   int
}

// SubmitError carries the number of attempts made before giving up.
type SubmitError struct {
	Attempts int
	Err      error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit traveler report after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type response struct {
	XMLName     xml.Name `xml:"respuesta"`
	Codigo      int      `xml:"codigo"`
	Descripcion string   `xml:"descripcion"`
	Lote        string   `xml:"lote"`
}

// Submit posts the XML payload. Transport errors and 5xx responses are retried with
// exponential backoff; a 4xx response ends the loop immediately.
func (c *Client) Submit(ctx context.Context, payload []byte) (*Receipt, error) {
	var receipt *Receipt
	attempts := 0

	err := retry.Do(
		func() error {
			attempts++
			r, err := c.post(ctx, payload)
			if err != nil {
				return err
			}
			receipt = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.cfg.Attempts),
		retry.Delay(c.cfg.BaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if !retry.IsRecoverable(err) {
				return false
			}
			var se *StatusError
			if errors.As(err, &se) {
				return se.Temporary()
			}
			return true
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("traveler report submission failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, &SubmitError{Attempts: attempts, Err: err}
	}

	receipt.Attempts = attempts
	return receipt, nil
}

func (c *Client) post(ctx context.Context, payload []byte) (*Receipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	req.Header.Set("Accept", "application/xml")
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post traveler report: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	receipt := &Receipt{StatusCode: resp.StatusCode}
	var parsed response
	if xml.Unmarshal(body, &parsed) == nil {
		receipt.Reference = parsed.Lote
	}
	return receipt, nil
}
