package notify

import (
	"context"
	"time"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/spec-kit/support-agent/internal/config"
	apperrors "github.com/spec-kit/support-agent/pkg/util"
)

// SMSSender delivers one SMS through the Twilio API and returns the
// provider message SID.
type SMSSender struct {
	cfg  config.TwilioConfig
	rest *twilio.RestClient
}

// NewSMSSender builds a sender. The underlying client is only created when
// credentials are present; Send fails fast otherwise.
func NewSMSSender(cfg config.TwilioConfig) *SMSSender {
	s := &SMSSender{cfg: cfg}
	if cfg.SID != "" && cfg.Token != "" {
		httpClient := &twclient.Client{Credentials: twclient.NewCredentials(cfg.SID, cfg.Token)}
		httpClient.SetTimeout(30 * time.Second)
		s.rest = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.SID,
			Password: cfg.Token,
			Client:   httpClient,
		})
	}
	return s
}

// Send delegates to the provider API and returns its message identifier.
func (s *SMSSender) Send(ctx context.Context, to, body string) (string, error) {
	_ = ctx // twilio-go does not thread contexts; the client timeout bounds the call
	if s.rest == nil {
		return "", apperrors.NewConfigurationError("Twilio not configured")
	}

	params := &twapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.cfg.From)
	params.SetBody(body)

	resp, err := s.rest.Api.CreateMessage(params)
	if err != nil {
		return "", apperrors.NewDeliveryError("sms delivery failed", err)
	}
	if resp.Sid == nil {
		return "", apperrors.NewDeliveryError("sms provider returned no message id", nil)
	}
	return *resp.Sid, nil
}
