package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goroute-booking/internal/booking"
	"github.com/goroute-booking/internal/transit"
	"github.com/goroute-booking/pkg/transit/models"
)

const (
	MinMinutesBefore     = 2
	MaxMinutesBefore     = 15
	DefaultMinutesBefore = 5
)

// Target is the stop a wake-me-up alert fires for
type Target struct {
	BusNumber   string
	Destination string
	ArrivalTime string
}

func TargetFromBus(b models.BusOffering) Target {
	return Target{BusNumber: strings.TrimSpace(b.Number), Destination: b.To, ArrivalTime: b.Arrival}
}

func TargetFromCityBus(b models.CityBus) Target {
	return Target{BusNumber: strings.TrimSpace(b.RouteNumber), Destination: b.ToLocation}
}

// WakeMeUp is the alert form. It closes as soon as the backend accepts the
// request.
type WakeMeUp struct {
	mu     sync.Mutex
	target Target
	svc    transit.WakeMeUpSubmitter
	opts   Options

	minutesBefore         int
	notifyNearDestination bool
	notifyOnArrival       bool
	submitting            bool
	closed                bool
}

func NewWakeMeUp(target Target, svc transit.WakeMeUpSubmitter, opts Options) *WakeMeUp {
	opts = opts.withDefaults()
	opts.Logger = opts.Logger.With("form", "wake_me_up", "bus_number", target.BusNumber)
	return &WakeMeUp{
		target:                target,
		svc:                   svc,
		opts:                  opts,
		minutesBefore:         DefaultMinutesBefore,
		notifyNearDestination: true,
		notifyOnArrival:       true,
	}
}

func (w *WakeMeUp) Target() Target {
	return w.target
}

// SetMinutesBefore rejects values outside [MinMinutesBefore, MaxMinutesBefore]
// and keeps the previous value.
func (w *WakeMeUp) SetMinutesBefore(n int) error {
	if err := validateMinutes(n); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.minutesBefore = n
	return nil
}

func (w *WakeMeUp) SetNotifyNearDestination(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notifyNearDestination = on
}

func (w *WakeMeUp) SetNotifyOnArrival(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notifyOnArrival = on
}

func (w *WakeMeUp) MinutesBefore() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.minutesBefore
}

func (w *WakeMeUp) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

func (w *WakeMeUp) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Request is the payload Submit would send right now
func (w *WakeMeUp) Request() models.WakeMeUpRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.request()
}

func (w *WakeMeUp) request() models.WakeMeUpRequest {
	return models.WakeMeUpRequest{
		BusNumber:             w.target.BusNumber,
		Destination:           w.target.Destination,
		ArrivalTime:           w.target.ArrivalTime,
		MinutesBefore:         w.minutesBefore,
		NotifyNearDestination: w.notifyNearDestination,
		NotifyOnArrival:       w.notifyOnArrival,
	}
}

func (w *WakeMeUp) Submit(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return ErrClosed
	case w.submitting:
		w.mu.Unlock()
		return booking.ErrSubmitting
	}

	req := w.request()
	if vErr, _, ok := check(req); !ok {
		w.mu.Unlock()
		w.opts.Notifier.Notify(booking.Notice{
			Level:       booking.NoticeError,
			Title:       "Cannot set Wake Me Up alert",
			Description: vErr.Error(),
		})
		return vErr
	}
	w.submitting = true
	w.mu.Unlock()

	_, err := w.svc.SubmitWakeMeUp(ctx, req)

	w.mu.Lock()
	w.submitting = false
	if w.closed {
		// Closed by the rider while the request was in flight.
		w.mu.Unlock()
		if err != nil {
			w.opts.Logger.Warn("Wake Me Up request failed after form was closed", "error", err)
			return err
		}
		w.opts.Logger.Info("Wake Me Up alert set after form was closed", "destination", req.Destination)
		return nil
	}
	if err != nil {
		w.mu.Unlock()
		w.opts.Logger.Error("Error setting Wake Me Up", "error", err)
		w.opts.Notifier.Notify(booking.Notice{Level: booking.NoticeError, Title: "Failed to set Wake Me Up alert. Please try again."})
		return err
	}
	w.closed = true
	w.mu.Unlock()

	w.opts.Logger.Info("Wake Me Up alert set", "minutes_before", req.MinutesBefore, "destination", req.Destination)
	w.opts.Notifier.Notify(booking.Notice{
		Level:       booking.NoticeSuccess,
		Title:       "Wake Me Up alert set successfully!",
		Description: fmt.Sprintf("You'll be notified %d minutes before reaching %s.", req.MinutesBefore, req.Destination),
	})
	w.opts.OnClose()
	return nil
}

// Close dismisses the form without notifying OnClose
func (w *WakeMeUp) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

func validateMinutes(n int) error {
	if n < MinMinutesBefore || n > MaxMinutesBefore {
		return booking.ValidationError{
			Field: "minutes_before",
			Msg:   fmt.Sprintf("must be between %d and %d", MinMinutesBefore, MaxMinutesBefore),
		}
	}
	return nil
}
