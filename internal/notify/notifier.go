// Package notify delivers one-time verification codes to account holders.
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrDeliveryDisabled is returned by notifiers that never attempt delivery.
var ErrDeliveryDisabled = errors.New("email delivery is disabled")

// Notifier delivers a verification code to an address. A non-nil error means the code
// was not confirmed delivered; callers must not treat it as a failure of the flow.
type Notifier interface {
	SendVerificationCode(ctx context.Context, to, code string, expiresAt time.Time) error
}

// Disabled is the notifier used when no mail transport is configured.
type Disabled struct{}

var _ Notifier = Disabled{}

func (Disabled) SendVerificationCode(context.Context, string, string, time.Time) error {
	return ErrDeliveryDisabled
}
