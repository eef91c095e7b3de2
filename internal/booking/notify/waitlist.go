package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goroute-booking/internal/booking"
	"github.com/goroute-booking/internal/transit"
	"github.com/goroute-booking/pkg/transit/models"
)

// Waitlist is the "join the waitlist" form for a full bus
type Waitlist struct {
	mu   sync.Mutex
	bus  models.BusOffering
	svc  transit.WaitlistSubmitter
	opts Options

	email      string
	phone      string
	submitting bool
	success    bool
	closed     bool
	timer      *time.Timer
}

func NewWaitlist(bus models.BusOffering, svc transit.WaitlistSubmitter, opts Options) *Waitlist {
	opts = opts.withDefaults()
	opts.Logger = opts.Logger.With("form", "waitlist", "bus_number", bus.Number)
	return &Waitlist{bus: bus, svc: svc, opts: opts}
}

func (w *Waitlist) Bus() models.BusOffering {
	return w.bus
}

func (w *Waitlist) SetEmail(email string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.email = email
}

func (w *Waitlist) SetPhone(phone string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.phone = phone
}

func (w *Waitlist) Email() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.email
}

func (w *Waitlist) Phone() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phone
}

// Success reports whether the confirmation state is showing
func (w *Waitlist) Success() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.success
}

func (w *Waitlist) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

func (w *Waitlist) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Submit validates and sends the request. On success the form shows its
// confirmation and closes itself after the configured delay; on failure it
// stays open for the rider to try again.
func (w *Waitlist) Submit(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return ErrClosed
	case w.submitting || w.success:
		w.mu.Unlock()
		return booking.ErrSubmitting
	}

	req := models.WaitlistRequest{
		Email:     strings.TrimSpace(w.email),
		Phone:     strings.TrimSpace(w.phone),
		BusNumber: w.bus.Number,
		From:      w.bus.From,
		To:        w.bus.To,
	}
	if vErr, rule, ok := check(req); !ok {
		w.mu.Unlock()
		title := "Please fill in all fields"
		if rule == "email" {
			title = "Please enter a valid email address"
		}
		w.opts.Notifier.Notify(booking.Notice{Level: booking.NoticeError, Title: title})
		return vErr
	}
	w.submitting = true
	w.mu.Unlock()

	_, err := w.svc.SubmitWaitlist(ctx, req)

	w.mu.Lock()
	w.submitting = false
	if w.closed {
		// Closed by the rider while the request was in flight.
		w.mu.Unlock()
		if err != nil {
			w.opts.Logger.Warn("Waitlist request failed after form was closed", "error", err)
			return err
		}
		w.opts.Logger.Info("Waitlist request accepted after form was closed")
		return nil
	}
	if err != nil {
		w.mu.Unlock()
		w.opts.Logger.Error("Error joining waitlist", "error", err)
		w.opts.Notifier.Notify(booking.Notice{Level: booking.NoticeError, Title: "Failed to join the waitlist. Please try again."})
		return err
	}
	w.success = true
	w.timer = time.AfterFunc(w.opts.CloseDelay, w.autoClose)
	w.mu.Unlock()

	w.opts.Logger.Info("Joined waitlist")
	w.opts.Notifier.Notify(booking.Notice{Level: booking.NoticeSuccess, Title: "You've been added to the waitlist!"})
	return nil
}

func (w *Waitlist) autoClose() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.success = false
	w.email = ""
	w.phone = ""
	w.timer = nil
	w.mu.Unlock()

	w.opts.OnClose()
}

// Close dismisses the form without notifying OnClose
func (w *Waitlist) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.closed = true
	w.success = false
}
