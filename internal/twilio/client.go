package twilio

import (
	"context"
	"fmt"
	"strings"

	"github.com/pathakanu/claudia/internal/verify"
	twilio "github.com/twilio/twilio-go"
	verifyapi "github.com/twilio/twilio-go/rest/verify/v2"
)

const (
	channelWhatsApp = "whatsapp"
	statusApproved  = "approved"
)

// verificationAPI is the subset of the Twilio Verify v2 API the client uses.
type verificationAPI interface {
	CreateVerification(serviceSid string, params *verifyapi.CreateVerificationParams) (*verifyapi.VerifyV2Verification, error)
	CreateVerificationCheck(serviceSid string, params *verifyapi.CreateVerificationCheckParams) (*verifyapi.VerifyV2VerificationCheck, error)
}

// Client sends WhatsApp verification codes through Twilio Verify.
type Client struct {
	api        verificationAPI
	serviceSID string
}

// New creates a Twilio Verify client bound to a Verify service.
func New(accountSID, authToken, serviceSID string) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken})
	return &Client{
		api:        rest.VerifyV2,
		serviceSID: serviceSID,
	}
}

// Enabled reports whether a Verify service is configured.
func (c *Client) Enabled() bool {
	return c.api != nil && c.serviceSID != ""
}

// SendCode starts a WhatsApp verification for req.Phone.
func (c *Client) SendCode(_ context.Context, req verify.Request) (verify.Result, error) {
	if !c.Enabled() {
		return verify.Result{}, fmt.Errorf("twilio verify service is not configured")
	}
	to := e164(req.Phone)
	if to == "" {
		return verify.Result{}, fmt.Errorf("recipient number missing or invalid")
	}

	params := &verifyapi.CreateVerificationParams{}
	params.SetTo(to)
	params.SetChannel(channelWhatsApp)

	resp, err := c.api.CreateVerification(c.serviceSID, params)
	if err != nil {
		return verify.Result{}, fmt.Errorf("%w: twilio create verification: %v", verify.ErrUnavailable, err)
	}
	status := ""
	if resp.Status != nil {
		status = *resp.Status
	}
	return verify.Result{Success: status == "pending", Message: status}, nil
}

// VerifyCode checks code against the verification started for req.Phone.
func (c *Client) VerifyCode(_ context.Context, req verify.Request, code string) (verify.Result, error) {
	if !c.Enabled() {
		return verify.Result{}, fmt.Errorf("twilio verify service is not configured")
	}

	params := &verifyapi.CreateVerificationCheckParams{}
	params.SetTo(e164(req.Phone))
	params.SetCode(strings.TrimSpace(code))

	resp, err := c.api.CreateVerificationCheck(c.serviceSID, params)
	if err != nil {
		return verify.Result{}, fmt.Errorf("%w: twilio verification check: %v", verify.ErrUnavailable, err)
	}
	status := ""
	if resp.Status != nil {
		status = *resp.Status
	}
	return verify.Result{Success: status == statusApproved, Message: status}, nil
}

// e164 turns stored digits into +<digits>.
func e164(number string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(number), "whatsapp:")
	trimmed = strings.TrimPrefix(trimmed, "+")
	if trimmed == "" {
		return ""
	}
	return "+" + trimmed
}
