// Package notify implements the waitlist and wake-me-up request forms. Both
// are fire-and-forget against the transit service and work with or without
// the booking wizard.
package notify

import (
	"errors"
	"time"

	"github.com/goroute-booking/internal/booking"
	"github.com/goroute-booking/internal/common/logger"
)

// DefaultCloseDelay is how long the waitlist confirmation stays visible
const DefaultCloseDelay = 1500 * time.Millisecond

// ErrClosed is returned when submitting a form that is no longer open
var ErrClosed = errors.New("form closed")

// Options wires a form to its surroundings. OnClose fires only when the
// form closes itself after a successful submit, never from Close.
type Options struct {
	Notifier   booking.Notifier
	Logger     logger.Logger
	CloseDelay time.Duration
	OnClose    func()
}

func (o Options) withDefaults() Options {
	if o.Notifier == nil {
		o.Notifier = booking.Discard
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	if o.CloseDelay <= 0 {
		o.CloseDelay = DefaultCloseDelay
	}
	if o.OnClose == nil {
		o.OnClose = func() {}
	}
	return o
}
