package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const twilioAPIBaseURL = "https://api.twilio.com"

// TwilioSender implements Sender using the Twilio Messages REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	client     *http.Client
	logger     *zap.Logger
}

// NewTwilioSender creates a TwilioSender. Credentials come from configuration
// at startup; nothing here reads the environment.
func NewTwilioSender(accountSID, authToken, fromNumber string, logger *zap.Logger) *TwilioSender {
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    twilioAPIBaseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.Named("TwilioSender"),
	}
}

// Send posts a message to the Twilio Messages endpoint.
func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	s.logger.Info("Attempting to send SMS", zap.String("to", to))

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.Error("Failed to create Twilio HTTP request", zap.Error(err))
		return fmt.Errorf("%w: create request: %v", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("Failed to send request to Twilio", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		s.logger.Error("Twilio API request failed",
			zap.Int("statusCode", resp.StatusCode),
			zap.ByteString("response", detail))
		return fmt.Errorf("%w: twilio responded with status %d", ErrDelivery, resp.StatusCode)
	}

	s.logger.Info("SMS sent successfully via Twilio", zap.String("to", to))
	return nil
}
