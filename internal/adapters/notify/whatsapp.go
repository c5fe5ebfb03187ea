package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const twilioAPI = "https://api.twilio.com"

// TwilioConfig configures the WhatsApp channel. The channel is disabled
// unless AccountSID looks like a real account ("AC...").
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string // whatsapp:+14155238886
	BaseURL    string
}

// WhatsAppSender posts messages through the Twilio REST API.
type WhatsAppSender struct {
	cfg    TwilioConfig
	client *fasthttp.Client
}

// NewWhatsAppSender returns a sender, or nil when cfg is incomplete.
func NewWhatsAppSender(cfg TwilioConfig) *WhatsAppSender {
	if !strings.HasPrefix(cfg.AccountSID, "AC") || cfg.AuthToken == "" || cfg.From == "" {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = twilioAPI
	}
	return &WhatsAppSender{
		cfg: cfg,
		client: &fasthttp.Client{
			Name:         "seatpass-notify",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

type twilioResponse struct {
	SID     string `json:"sid"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send delivers body to phone and returns the Twilio message SID.
func (w *WhatsAppSender) Send(ctx context.Context, phone, body string) (string, error) {
	if w == nil {
		return "", ErrNotConfigured
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", w.cfg.BaseURL, w.cfg.AccountSID))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(w.cfg.AccountSID+":"+w.cfg.AuthToken)))

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("From", w.cfg.From)
	args.Set("To", "whatsapp:"+FormatPhone(phone))
	args.Set("Body", body)
	req.SetBody(args.QueryString())

	timeout := 15 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if err := w.client.DoTimeout(req, resp, timeout); err != nil {
		return "", fmt.Errorf("twilio request: %w", err)
	}

	var out twilioResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("twilio response (status %d): %w", resp.StatusCode(), err)
	}
	if resp.StatusCode() >= 300 {
		return "", fmt.Errorf("twilio %d: %s", out.Code, out.Message)
	}
	return out.SID, nil
}
