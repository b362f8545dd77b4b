// Package verify sends and checks the WhatsApp verification codes used at
// registration. The code itself is generated and delivered by an external
// service; this package only calls it.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable is returned when the verification service cannot be reached
// or answers with a non-2xx status.
var ErrUnavailable = errors.New("verify: service unavailable")

// Request identifies who the code is for.
type Request struct {
	Phone  string `json:"phone"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// Result is the service answer.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Verifier sends and checks verification codes.
type Verifier interface {
	SendCode(ctx context.Context, req Request) (Result, error)
	VerifyCode(ctx context.Context, req Request, code string) (Result, error)
	Enabled() bool
}

// Disabled is used when no verification service is configured.
type Disabled struct{}

// SendCode reports success without sending anything.
func (Disabled) SendCode(context.Context, Request) (Result, error) {
	return Result{Success: true}, nil
}

// VerifyCode accepts any code.
func (Disabled) VerifyCode(context.Context, Request, string) (Result, error) {
	return Result{Success: true}, nil
}

// Enabled always reports false.
func (Disabled) Enabled() bool { return false }

const (
	actionSendCode   = "send_code"
	actionVerifyCode = "verify_code"
)

// Webhook calls a single HTTP endpoint with an action field.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook returns a webhook verifier posting to url. A nil client uses a
// client with a 15 second timeout.
func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Webhook{url: url, client: client}
}

// Enabled reports whether a URL is configured.
func (w *Webhook) Enabled() bool { return w.url != "" }

// SendCode asks the service to send a code to req.Phone.
func (w *Webhook) SendCode(ctx context.Context, req Request) (Result, error) {
	return w.call(ctx, webhookBody{Action: actionSendCode, Request: req})
}

// VerifyCode asks the service to check code for req.Phone.
func (w *Webhook) VerifyCode(ctx context.Context, req Request, code string) (Result, error) {
	return w.call(ctx, webhookBody{Action: actionVerifyCode, Request: req, Code: strings.TrimSpace(code)})
}

type webhookBody struct {
	Action string `json:"action"`
	Request
	Code string `json:"code,omitempty"`
}

func (w *Webhook) call(ctx context.Context, body webhookBody) (Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("encode %s: %w", body.Action, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build %s request: %w", body.Action, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := w.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrUnavailable, body.Action, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read %s response: %w", body.Action, err)
	}
	if res.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%w: %s returned %d", ErrUnavailable, body.Action, res.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, fmt.Errorf("decode %s response: %w", body.Action, err)
	}
	return result, nil
}
