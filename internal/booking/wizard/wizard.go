// Package wizard drives the booking flow: search, gender preference and
// the bus list, plus the one dialog that may be open over the list.
package wizard

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goroute-booking/internal/booking"
	"github.com/goroute-booking/internal/booking/notify"
	"github.com/goroute-booking/internal/booking/seats"
	"github.com/goroute-booking/internal/common/logger"
	"github.com/goroute-booking/internal/transit"
	"github.com/goroute-booking/pkg/transit/models"
)

type Step int

const (
	StepSearch Step = iota
	StepGenderPreference
	StepBusList
)

func (s Step) String() string {
	switch s {
	case StepSearch:
		return "search"
	case StepGenderPreference:
		return "gender_preference"
	case StepBusList:
		return "bus_list"
	default:
		return "unknown"
	}
}

// View is one of the bus list tabs
type View int

const (
	ViewAll View = iota
	ViewAC
	ViewSleeper
)

var (
	ErrWrongStep     = errors.New("operation not available at this step")
	ErrOverlayActive = errors.New("another dialog is already open")
	ErrNoOverlay     = errors.New("no matching dialog is open")
	// ErrStale means a bus list arrived after the rider navigated away
	ErrStale = errors.New("stale bus list discarded")
)

type Config struct {
	Service            transit.Service
	Notifier           booking.Notifier
	Logger             logger.Logger
	WaitlistCloseDelay time.Duration
}

// Wizard owns the route query and gender preference for one booking
// attempt. It is safe for concurrent use; network calls run without the
// lock held.
type Wizard struct {
	mu       sync.Mutex
	svc      transit.Service
	notifier booking.Notifier
	logger   logger.Logger
	delay    time.Duration

	step       Step
	query      booking.RouteQuery
	preference models.GenderPreference
	buses      []models.BusOffering
	overlay    Overlay
	fetching   bool
	generation uint64
}

func New(cfg Config) *Wizard {
	if cfg.Notifier == nil {
		cfg.Notifier = booking.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Wizard{
		svc:      cfg.Service,
		notifier: cfg.Notifier,
		logger:   cfg.Logger.With("component", "wizard"),
		delay:    cfg.WaitlistCloseDelay,
		step:     StepSearch,
	}
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Query() booking.RouteQuery {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.query
}

func (w *Wizard) Preference() models.GenderPreference {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.preference
}

func (w *Wizard) Overlay() Overlay {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.overlay
}

// SetQuery edits the search form. The query is frozen once submitted and
// becomes editable again after navigating back to the search step.
func (w *Wizard) SetQuery(q booking.RouteQuery) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepSearch {
		return ErrWrongStep
	}
	w.query = q
	return nil
}

// Search moves on to the preference step. An incomplete query blocks
// silently: no notice is shown.
func (w *Wizard) Search() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepSearch {
		return ErrWrongStep
	}
	if !w.query.Complete() {
		return booking.ValidationError{Field: "route", Msg: "from, to and date are required"}
	}
	w.setStep(StepGenderPreference)
	return nil
}

func (w *Wizard) SetPreference(p models.GenderPreference) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepGenderPreference {
		return ErrWrongStep
	}
	if !p.Valid() {
		return booking.ValidationError{Field: "gender_preference", Msg: "unknown preference " + string(p)}
	}
	w.preference = p
	return nil
}

// SubmitPreference fetches the buses for the query and preference and
// moves to the bus list. A failed fetch leaves the wizard where it is.
func (w *Wizard) SubmitPreference(ctx context.Context) error {
	w.mu.Lock()
	if w.step != StepGenderPreference {
		w.mu.Unlock()
		return ErrWrongStep
	}
	if w.preference == "" {
		w.mu.Unlock()
		w.notifier.Notify(booking.Notice{
			Level: booking.NoticeWarning,
			Title: "Gender preference is required for your safety and comfort.",
		})
		return booking.ValidationError{Field: "gender_preference", Msg: "preference required"}
	}
	if w.fetching {
		w.mu.Unlock()
		return booking.ErrSubmitting
	}
	w.fetching = true
	q, pref, gen := w.query, w.preference, w.generation
	w.mu.Unlock()

	buses, err := w.svc.SearchBuses(ctx, q.FromCity, q.ToCity, q.TravelDate, pref)

	w.mu.Lock()
	w.fetching = false
	if gen != w.generation {
		w.mu.Unlock()
		w.logger.Debug("Discarding bus list for abandoned search", "from", q.FromCity, "to", q.ToCity)
		return ErrStale
	}
	if err != nil {
		w.mu.Unlock()
		w.logger.Error("Error fetching buses", "from", q.FromCity, "to", q.ToCity, "date", q.TravelDate, "error", err)
		w.notifier.Notify(booking.Notice{Level: booking.NoticeError, Title: "Failed to fetch available buses."})
		return err
	}
	w.buses = buses
	w.setStep(StepBusList)
	w.mu.Unlock()

	w.logger.Info("Buses fetched", "from", q.FromCity, "to", q.ToCity, "preference", pref, "count", len(buses))
	w.notifier.Notify(booking.Notice{Level: booking.NoticeSuccess, Title: "Buses fetched successfully!"})
	return nil
}

// Buses returns one tab of the bus list. Filtering never refetches. When
// the rider typed a bus number, that bus is listed first.
func (w *Wizard) Buses(view View) []models.BusOffering {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepBusList {
		return nil
	}

	out := make([]models.BusOffering, 0, len(w.buses))
	for _, b := range w.buses {
		switch {
		case view == ViewAC && !b.IsAC():
			continue
		case view == ViewSleeper && !b.IsSleeper():
			continue
		}
		out = append(out, b)
	}

	if hint := strings.TrimSpace(w.query.BusNumber); hint != "" {
		sort.SliceStable(out, func(i, j int) bool {
			return strings.EqualFold(out[i].Number, hint) && !strings.EqualFold(out[j].Number, hint)
		})
	}
	return out
}

// Empty reports the "no results" state of the fetched list. It is distinct
// from a failed fetch, which never reaches the bus list.
func (w *Wizard) Empty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step == StepBusList && len(w.buses) == 0
}

// Back goes back exactly one stage, dropping what was collected there. With
// a dialog open, closing the dialog is the stage.
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.overlay != nil {
		w.closeOverlay()
		return
	}

	switch w.step {
	case StepGenderPreference:
		w.preference = ""
		w.setStep(StepSearch)
	case StepBusList:
		w.buses = nil
		w.setStep(StepGenderPreference)
	}
}

func (w *Wizard) setStep(s Step) {
	if w.step != s {
		w.logger.Debug("Step change", "from", w.step.String(), "to", s.String())
	}
	w.step = s
	w.generation++
}

func (w *Wizard) openOverlay(o Overlay) error {
	if w.step != StepBusList {
		return ErrWrongStep
	}
	if w.overlay != nil {
		return ErrOverlayActive
	}
	w.overlay = o
	return nil
}

// CloseOverlay returns to the bus list. Query and preference are untouched.
func (w *Wizard) CloseOverlay() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeOverlay()
}

func (w *Wizard) closeOverlay() {
	switch o := w.overlay.(type) {
	case nil:
		return
	case *SeatSelection:
		o.Selector.Close()
	case *Waitlist:
		o.Form.Close()
	case *WakeMeUp:
		o.Form.Close()
		if o.ReturnTo != nil {
			w.overlay = o.ReturnTo
			return
		}
	}
	w.logger.Debug("Dialog closed", "overlay", OverlayName(w.overlay))
	w.overlay = nil
}

// closedItself runs when a form closes on its own after a successful
// submit. Anything else opened since then is left alone.
func (w *Wizard) closedItself(o Overlay) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.overlay != o {
		return
	}
	if wm, ok := o.(*WakeMeUp); ok && wm.ReturnTo != nil {
		w.overlay = wm.ReturnTo
		return
	}
	w.overlay = nil
}

func (w *Wizard) formOptions(onClose func()) notify.Options {
	return notify.Options{
		Notifier:   w.notifier,
		Logger:     w.logger,
		CloseDelay: w.delay,
		OnClose:    onClose,
	}
}

// OpenSeatSelection opens the seat dialog for bus and loads its seat map.
// A load failure leaves the dialog open with no seats.
func (w *Wizard) OpenSeatSelection(ctx context.Context, bus models.BusOffering) (*seats.Selector, error) {
	sel := seats.New(bus, w.logger)

	w.mu.Lock()
	if err := w.openOverlay(&SeatSelection{Selector: sel}); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	w.mu.Unlock()

	return sel, sel.Load(ctx, w.svc)
}

func (w *Wizard) seatSelection() (*SeatSelection, bool) {
	o, ok := w.overlay.(*SeatSelection)
	return o, ok
}

// ToggleSeat forwards to the open seat dialog
func (w *Wizard) ToggleSeat(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.seatSelection()
	if !ok {
		return false
	}
	return o.Selector.Toggle(id)
}

// ConfirmSeats turns the seat selection into a booked ticket and shows the
// success dialog. Without a selection nothing happens.
func (w *Wizard) ConfirmSeats() (booking.BookedTicket, bool) {
	w.mu.Lock()
	o, ok := w.seatSelection()
	if !ok {
		w.mu.Unlock()
		return booking.BookedTicket{}, false
	}
	sel, ok := o.Selector.Confirm()
	if !ok {
		w.mu.Unlock()
		return booking.BookedTicket{}, false
	}
	ticket := booking.BookedTicket{
		Bus:        sel.Bus,
		Seats:      sel.Seats,
		Amount:     sel.Amount,
		TravelDate: w.query.TravelDate,
	}
	w.overlay = &BookingSuccess{Ticket: ticket}
	w.mu.Unlock()

	w.logger.Info("Booking confirmed", "bus_number", ticket.Bus.Number, "seats", ticket.Seats, "amount", ticket.Amount)
	w.notifier.Notify(booking.Notice{Level: booking.NoticeSuccess, Title: "Booking confirmed!"})
	return ticket, true
}

// ViewTicket moves from the success dialog to the ticket
func (w *Wizard) ViewTicket() (booking.BookedTicket, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.overlay.(*BookingSuccess)
	if !ok {
		return booking.BookedTicket{}, ErrNoOverlay
	}
	w.overlay = &TicketView{Ticket: o.Ticket}
	return o.Ticket, nil
}

// Ticket returns the booked ticket while its success or ticket dialog is
// open
func (w *Wizard) Ticket() (booking.BookedTicket, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch o := w.overlay.(type) {
	case *BookingSuccess:
		return o.Ticket, true
	case *TicketView:
		return o.Ticket, true
	case *WakeMeUp:
		if o.ReturnTo != nil {
			return o.ReturnTo.Ticket, true
		}
	}
	return booking.BookedTicket{}, false
}

func (w *Wizard) OpenWaitlist(bus models.BusOffering) (*notify.Waitlist, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	o := &Waitlist{}
	o.Form = notify.NewWaitlist(bus, w.svc, w.formOptions(func() { w.closedItself(o) }))
	if err := w.openOverlay(o); err != nil {
		return nil, err
	}
	return o.Form, nil
}

// OpenWakeMeUp opens the alert dialog for a bus on the list
func (w *Wizard) OpenWakeMeUp(bus models.BusOffering) (*notify.WakeMeUp, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	o := &WakeMeUp{}
	o.Form = notify.NewWakeMeUp(notify.TargetFromBus(bus), w.svc, w.formOptions(func() { w.closedItself(o) }))
	if err := w.openOverlay(o); err != nil {
		return nil, err
	}
	return o.Form, nil
}

// WakeMeUpFromTicket opens the alert dialog for the booked bus. The ticket
// comes back when the dialog closes.
func (w *Wizard) WakeMeUpFromTicket() (*notify.WakeMeUp, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tv, ok := w.overlay.(*TicketView)
	if !ok {
		return nil, ErrNoOverlay
	}
	o := &WakeMeUp{ReturnTo: tv}
	o.Form = notify.NewWakeMeUp(notify.TargetFromBus(tv.Ticket.Bus), w.svc, w.formOptions(func() { w.closedItself(o) }))
	w.overlay = o
	return o.Form, nil
}

// SubmitWaitlist submits the open waitlist dialog
func (w *Wizard) SubmitWaitlist(ctx context.Context) error {
	w.mu.Lock()
	o, ok := w.overlay.(*Waitlist)
	w.mu.Unlock()
	if !ok {
		return ErrNoOverlay
	}
	return o.Form.Submit(ctx)
}

// SubmitWakeMeUp submits the open wake-me-up dialog
func (w *Wizard) SubmitWakeMeUp(ctx context.Context) error {
	w.mu.Lock()
	o, ok := w.overlay.(*WakeMeUp)
	w.mu.Unlock()
	if !ok {
		return ErrNoOverlay
	}
	return o.Form.Submit(ctx)
}
