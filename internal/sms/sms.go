package sms

import (
	"context"
	"errors"
)

// ErrDelivery marks failures of the downstream SMS provider.
var ErrDelivery = errors.New("sms delivery failed")

// Sender dispatches a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}
