package twilio

import (
	"context"
	"errors"
	"testing"

	"github.com/pathakanu/claudia/internal/verify"
	verifyapi "github.com/twilio/twilio-go/rest/verify/v2"
)

type fakeVerifyAPI struct {
	to, channel, code string
	status            string
	err               error
}

func (f *fakeVerifyAPI) CreateVerification(_ string, p *verifyapi.CreateVerificationParams) (*verifyapi.VerifyV2Verification, error) {
	f.to, f.channel = *p.To, *p.Channel
	if f.err != nil {
		return nil, f.err
	}
	status := "pending"
	return &verifyapi.VerifyV2Verification{Status: &status}, nil
}

func (f *fakeVerifyAPI) CreateVerificationCheck(_ string, p *verifyapi.CreateVerificationCheckParams) (*verifyapi.VerifyV2VerificationCheck, error) {
	f.to, f.code = *p.To, *p.Code
	if f.err != nil {
		return nil, f.err
	}
	return &verifyapi.VerifyV2VerificationCheck{Status: &f.status}, nil
}

func TestSendAndVerifyCode(t *testing.T) {
	t.Parallel()
	api := &fakeVerifyAPI{status: "approved"}
	c := &Client{api: api, serviceSID: "VA123"}
	ctx := context.Background()

	res, err := c.SendCode(ctx, verify.Request{Phone: "573128310805"})
	if err != nil || !res.Success {
		t.Fatalf("SendCode = %+v, %v", res, err)
	}
	if api.to != "+573128310805" || api.channel != "whatsapp" {
		t.Fatalf("unexpected params to=%q channel=%q", api.to, api.channel)
	}

	res, err = c.VerifyCode(ctx, verify.Request{Phone: "573128310805"}, " 4321 ")
	if err != nil || !res.Success || api.code != "4321" {
		t.Fatalf("VerifyCode = %+v, %v (code %q)", res, err, api.code)
	}

	api.status = "pending"
	res, err = c.VerifyCode(ctx, verify.Request{Phone: "573128310805"}, "0000")
	if err != nil || res.Success {
		t.Fatalf("expected rejected code, got %+v, %v", res, err)
	}
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	c := &Client{api: &fakeVerifyAPI{err: errors.New("401")}, serviceSID: "VA123"}
	if _, err := c.SendCode(context.Background(), verify.Request{Phone: "1"}); !errors.Is(err, verify.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := c.SendCode(context.Background(), verify.Request{}); err == nil {
		t.Fatalf("expected error for missing number")
	}

	unconfigured := &Client{api: &fakeVerifyAPI{}}
	if unconfigured.Enabled() {
		t.Fatalf("client without service SID should be disabled")
	}
}

func TestE164(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"573128310805":           "+573128310805",
		"+573128310805":          "+573128310805",
		"whatsapp:+573128310805": "+573128310805",
		" ":                      "",
	}
	for in, want := range cases {
		if got := e164(in); got != want {
			t.Fatalf("e164(%q) = %q, want %q", in, got, want)
		}
	}
}
