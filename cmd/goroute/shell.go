package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/goroute-booking/internal/booking"
	"github.com/goroute-booking/internal/booking/notify"
	"github.com/goroute-booking/internal/booking/seats"
	"github.com/goroute-booking/internal/booking/wizard"
	"github.com/goroute-booking/internal/common/logger"
	"github.com/goroute-booking/internal/preferences"
	"github.com/goroute-booking/internal/transit"
	"github.com/goroute-booking/pkg/transit/models"
)

const helpText = `Booking:
  search <from>, <to>, <date>[, <bus number>]
  prefer women|general
  list [all|ac|sleeper]
  seats <n>             open the seat map of bus n
  seat <id>             select or release a seat
  confirm               book the selected seats
  ticket                show the booked ticket
  waitlist <n>[, <email>, <phone>]
  wake <n>|ticket[, <minutes>]
  close                 close the open dialog
  back                  go back one step
  new                   start over
  status
City buses:
  citybus <from>, <to>
  citywake <n>[, <minutes>]
Account:
  profile [<field>, <value>]
  theme dark|light|system
  language en|hi|mr
  settings
  quit
`

// shell is the line-oriented front end over the booking wizard
type shell struct {
	ctx   context.Context
	svc   transit.Service
	prefs *preferences.Context
	log   logger.Logger
	delay time.Duration

	// notices arrive from timer goroutines too
	mu  sync.Mutex
	out io.Writer

	wizard    *wizard.Wizard
	listed    []models.BusOffering
	cityBuses []models.CityBus
}

func newShell(ctx context.Context, svc transit.Service, prefs *preferences.Context, out io.Writer, log logger.Logger, delay time.Duration) *shell {
	s := &shell{
		ctx:   ctx,
		svc:   svc,
		prefs: prefs,
		log:   log,
		delay: delay,
		out:   out,
	}
	s.reset()
	return s
}

func (s *shell) reset() {
	if s.wizard != nil {
		s.wizard.CloseOverlay()
	}
	s.wizard = wizard.New(wizard.Config{
		Service:            s.svc,
		Notifier:           booking.NotifierFunc(s.notice),
		Logger:             s.log,
		WaitlistCloseDelay: s.delay,
	})
	s.listed = nil
}

func (s *shell) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func (s *shell) notice(n booking.Notice) {
	if n.Description != "" {
		s.printf("[%s] %s %s\n", n.Level, n.Title, n.Description)
		return
	}
	s.printf("[%s] %s\n", n.Level, n.Title)
}

func (s *shell) run(in io.Reader) error {
	s.printf("GoRoute booking. Type \"help\" for commands.\n")
	scanner := bufio.NewScanner(in)
	for {
		s.printf("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" || line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}
		if err := s.exec(line); err != nil {
			s.printf("error: %v\n", err)
		}
	}
}

func (s *shell) exec(line string) error {
	name, rest, _ := strings.Cut(line, " ")
	args := splitArgs(rest)

	switch strings.ToLower(name) {
	case "help":
		s.printf("%s", helpText)
	case "new":
		s.reset()
		s.status()
	case "status":
		s.status()
	case "search":
		return s.search(args)
	case "prefer":
		return s.prefer(args)
	case "list":
		return s.list(args)
	case "back":
		s.wizard.Back()
		s.status()
	case "seats":
		return s.openSeats(args)
	case "seat":
		return s.toggleSeat(args)
	case "confirm":
		return s.confirm()
	case "ticket":
		return s.ticket()
	case "close":
		s.wizard.CloseOverlay()
		s.status()
	case "waitlist":
		return s.waitlist(args)
	case "wake":
		return s.wake(args)
	case "citybus":
		return s.cityBus(args)
	case "citywake":
		return s.cityWake(args)
	case "profile":
		return s.profile(args)
	case "theme":
		return s.theme(args)
	case "language":
		return s.language(args)
	case "settings":
		st := s.prefs.Settings()
		s.printf("Theme: %s, language: %s\n", st.Theme, st.Language)
	default:
		return fmt.Errorf("unknown command %q, try help", name)
	}
	return nil
}

// splitArgs splits on commas so city names may contain spaces
func splitArgs(rest string) []string {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}
	parts := strings.Split(rest, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func (s *shell) status() {
	q := s.wizard.Query()
	s.printf("Step: %s, dialog: %s", s.wizard.Step(), wizard.OverlayName(s.wizard.Overlay()))
	if q.FromCity != "" || q.ToCity != "" {
		s.printf(", route: %s to %s on %s", q.FromCity, q.ToCity, q.TravelDate)
	}
	if p := s.wizard.Preference(); p != "" {
		s.printf(", preference: %s", p)
	}
	s.printf("\n")
}

func (s *shell) search(args []string) error {
	q := booking.RouteQuery{
		FromCity:   arg(args, 0),
		ToCity:     arg(args, 1),
		TravelDate: arg(args, 2),
		BusNumber:  arg(args, 3),
	}
	if err := s.wizard.SetQuery(q); err != nil {
		return fmt.Errorf("%w: use back or new first", err)
	}
	if err := s.wizard.Search(); err != nil {
		if booking.IsValidation(err) {
			// incomplete route: stay on search without complaint
			return nil
		}
		return err
	}
	s.printf("Choose a gender preference: prefer women|general\n")
	return nil
}

func (s *shell) prefer(args []string) error {
	if raw := arg(args, 0); raw != "" {
		p, ok := models.ParseGenderPreference(raw)
		if !ok {
			return fmt.Errorf("unknown preference %q", raw)
		}
		if err := s.wizard.SetPreference(p); err != nil {
			return err
		}
	}
	if err := s.wizard.SubmitPreference(s.ctx); err != nil {
		if booking.Classify(err) != booking.FailureOther {
			// already reported by a notice
			return nil
		}
		return err
	}
	return s.list(nil)
}

func parseView(raw string) (wizard.View, error) {
	switch strings.ToLower(raw) {
	case "", "all":
		return wizard.ViewAll, nil
	case "ac":
		return wizard.ViewAC, nil
	case "sleeper":
		return wizard.ViewSleeper, nil
	}
	return wizard.ViewAll, fmt.Errorf("unknown view %q", raw)
}

func (s *shell) list(args []string) error {
	view, err := parseView(arg(args, 0))
	if err != nil {
		return err
	}
	if s.wizard.Step() != wizard.StepBusList {
		return fmt.Errorf("no bus list yet")
	}
	s.listed = s.wizard.Buses(view)
	if len(s.listed) == 0 {
		s.printf("No buses found for this route.\n")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tBUS\tTYPE\tDEPARTS\tARRIVES\tDURATION\tFARE\tSEATS\tRATING\t")
	for i, b := range s.listed {
		women := ""
		if b.WomensOnly {
			women = " (women only)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s%s\t%s\t%s\t%s\t%.0f\t%d\t%.1f\t\n",
			i+1, b.Number, b.Type, women, b.Departure, b.Arrival, b.Duration, b.Price, b.AvailableSeats, b.Rating)
	}
	return tw.Flush()
}

func (s *shell) listedBus(raw string) (models.BusOffering, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > len(s.listed) {
		return models.BusOffering{}, fmt.Errorf("pick a bus number from the list (1-%d)", len(s.listed))
	}
	return s.listed[n-1], nil
}

func (s *shell) openSeats(args []string) error {
	bus, err := s.listedBus(arg(args, 0))
	if err != nil {
		return err
	}
	sel, err := s.wizard.OpenSeatSelection(s.ctx, bus)
	if sel == nil {
		return err
	}
	if err != nil {
		s.printf("Could not load seats for %s.\n", bus.Number)
		return nil
	}
	s.printSeats(sel)
	return nil
}

func (s *shell) printSeats(sel *seats.Selector) {
	entries := sel.Entries()
	s.mu.Lock()
	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	for i, e := range entries {
		fmt.Fprintf(tw, "%s %s %.0f\t", e.ID, e.Status, e.Price)
		if i%4 == 3 {
			fmt.Fprintln(tw)
		}
	}
	if len(entries)%4 != 0 {
		fmt.Fprintln(tw)
	}
	tw.Flush()
	s.mu.Unlock()

	counts := sel.Counts()
	s.printf("available %d, occupied %d, reserved %d, ladies %d\n",
		counts[models.SeatAvailable], counts[models.SeatOccupied], counts[models.SeatReserved], counts[models.SeatLadies])
}

func (s *shell) toggleSeat(args []string) error {
	o, ok := s.wizard.Overlay().(*wizard.SeatSelection)
	if !ok {
		return fmt.Errorf("open a seat map first")
	}
	id := seatID(o.Selector, arg(args, 0))
	if !s.wizard.ToggleSeat(id) {
		return fmt.Errorf("seat %q cannot be selected", id)
	}
	s.printf("Selected: %s, total %.0f\n", strings.Join(o.Selector.Selected(), " "), o.Selector.Total())
	return nil
}

// seatID resolves a typed seat id against the loaded seat map. An exact
// match wins; otherwise case is ignored.
func seatID(sel *seats.Selector, typed string) string {
	entries := sel.Entries()
	for _, e := range entries {
		if e.ID == typed {
			return typed
		}
	}
	for _, e := range entries {
		if strings.EqualFold(e.ID, typed) {
			return e.ID
		}
	}
	return typed
}

func (s *shell) confirm() error {
	ticket, ok := s.wizard.ConfirmSeats()
	if !ok {
		return fmt.Errorf("select at least one seat first")
	}
	s.printf("%d seat(s) on %s, total %.0f. Type ticket to view it.\n", len(ticket.Seats), ticket.Bus.Number, ticket.Amount)
	return nil
}

func (s *shell) ticket() error {
	t, ok := s.wizard.Ticket()
	if !ok {
		return fmt.Errorf("no booking to show")
	}
	if _, isSuccess := s.wizard.Overlay().(*wizard.BookingSuccess); isSuccess {
		if _, err := s.wizard.ViewTicket(); err != nil {
			return err
		}
	}
	s.printf("Ticket\n  Bus:   %s (%s)\n  Route: %s to %s\n  Date:  %s, departs %s\n  Seats: %s\n  Total: %.0f\n",
		t.Bus.Number, t.Bus.Type, t.Bus.From, t.Bus.To, t.TravelDate, t.Bus.Departure,
		strings.Join(t.Seats, " "), t.Amount)
	return nil
}

func (s *shell) waitlist(args []string) error {
	var form *notify.Waitlist
	if o, ok := s.wizard.Overlay().(*wizard.Waitlist); ok {
		form = o.Form
	} else {
		bus, err := s.listedBus(arg(args, 0))
		if err != nil {
			return err
		}
		if form, err = s.wizard.OpenWaitlist(bus); err != nil {
			return err
		}
	}

	if len(args) < 3 {
		s.printf("Waitlist for %s: run waitlist <n>, <email>, <phone>\n", form.Bus().Number)
		return nil
	}
	form.SetEmail(args[1])
	form.SetPhone(args[2])
	if err := s.wizard.SubmitWaitlist(s.ctx); err != nil && booking.Classify(err) == booking.FailureOther {
		return err
	}
	return nil
}

func (s *shell) wake(args []string) error {
	var form *notify.WakeMeUp
	switch o := s.wizard.Overlay().(type) {
	case *wizard.WakeMeUp:
		form = o.Form
	case *wizard.TicketView, *wizard.BookingSuccess:
		if strings.ToLower(arg(args, 0)) != "ticket" {
			return fmt.Errorf("use wake ticket from the ticket view")
		}
		if _, ok := o.(*wizard.BookingSuccess); ok {
			if _, err := s.wizard.ViewTicket(); err != nil {
				return err
			}
		}
		f, err := s.wizard.WakeMeUpFromTicket()
		if err != nil {
			return err
		}
		form = f
	default:
		bus, err := s.listedBus(arg(args, 0))
		if err != nil {
			return err
		}
		if form, err = s.wizard.OpenWakeMeUp(bus); err != nil {
			return err
		}
	}

	if m := arg(args, 1); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil {
			return fmt.Errorf("minutes must be a number")
		}
		if err := form.SetMinutesBefore(n); err != nil {
			return err
		}
	}
	if err := s.wizard.SubmitWakeMeUp(s.ctx); err != nil && booking.Classify(err) == booking.FailureOther {
		return err
	}
	return nil
}

func (s *shell) cityBus(args []string) error {
	from, to := arg(args, 0), arg(args, 1)
	if from == "" || to == "" {
		return fmt.Errorf("usage: citybus <from>, <to>")
	}
	buses, err := s.svc.SearchCityBuses(s.ctx, from, to)
	if err != nil {
		s.log.Error("Error fetching city buses", "from", from, "to", to, "error", err)
		s.notice(booking.Notice{Level: booking.NoticeError, Title: "Failed to fetch buses. Please try again."})
		return nil
	}
	s.cityBuses = buses
	if len(buses) == 0 {
		s.printf("No city buses found for this route.\n")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tROUTE\tNAME\tFARE\tKM\tMIN\tNEXT\tCROWD\t")
	for i, b := range buses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%d\t%d min\t%s\t\n",
			i+1, b.RouteNumber, b.RouteName, b.Cost, b.DistanceKM, b.TimeMinutes, b.NextBusInMin, b.CrowdLevel)
	}
	return tw.Flush()
}

func (s *shell) cityWake(args []string) error {
	n, err := strconv.Atoi(arg(args, 0))
	if err != nil || n < 1 || n > len(s.cityBuses) {
		return fmt.Errorf("pick a city bus from the list (1-%d)", len(s.cityBuses))
	}
	form := notify.NewWakeMeUp(notify.TargetFromCityBus(s.cityBuses[n-1]), s.svc, notify.Options{
		Notifier: booking.NotifierFunc(s.notice),
		Logger:   s.log,
	})
	if m := arg(args, 1); m != "" {
		minutes, err := strconv.Atoi(m)
		if err != nil {
			return fmt.Errorf("minutes must be a number")
		}
		if err := form.SetMinutesBefore(minutes); err != nil {
			return err
		}
	}
	if err := form.Submit(s.ctx); err != nil && booking.Classify(err) == booking.FailureOther {
		return err
	}
	return nil
}

func (s *shell) profile(args []string) error {
	p, err := s.svc.GetProfile(s.ctx)
	if err != nil {
		s.notice(booking.Notice{Level: booking.NoticeError, Title: "Failed to load profile"})
		return nil
	}

	if field := strings.ToLower(arg(args, 0)); field != "" {
		value := arg(args, 1)
		switch field {
		case "name":
			p.Name = value
		case "email":
			p.Email = value
		case "phone":
			p.Phone = value
		case "guardian":
			p.GuardianName = value
		case "relation":
			p.GuardianRelation = value
		case "emergency":
			p.EmergencyContact = value
		default:
			return fmt.Errorf("unknown profile field %q", field)
		}
		if _, err := s.svc.UpdateProfile(s.ctx, p); err != nil {
			s.notice(booking.Notice{Level: booking.NoticeError, Title: "Failed to update profile"})
			return nil
		}
		s.notice(booking.Notice{Level: booking.NoticeSuccess, Title: "Profile updated successfully"})
	}

	s.printf("Name: %s\nEmail: %s\nPhone: %s\nGuardian: %s (%s)\nEmergency contact: %s\n",
		p.Name, p.Email, p.Phone, p.GuardianName, p.GuardianRelation, p.EmergencyContact)
	return nil
}

func (s *shell) theme(args []string) error {
	t, err := preferences.ParseTheme(arg(args, 0))
	if err != nil {
		return err
	}
	if err := s.prefs.SetTheme(s.ctx, t); err != nil {
		return err
	}
	s.printf("Theme set to %s\n", t)
	return nil
}

func (s *shell) language(args []string) error {
	l, err := preferences.ParseLanguage(arg(args, 0))
	if err != nil {
		return err
	}
	if err := s.prefs.SetLanguage(s.ctx, l); err != nil {
		return err
	}
	s.printf("Language set to %s\n", l)
	return nil
}
