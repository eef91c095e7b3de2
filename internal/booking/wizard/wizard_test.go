package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goroute-booking/internal/booking"
	"github.com/goroute-booking/internal/booking/seats"
	"github.com/goroute-booking/pkg/transit/models"
)

type searchCall struct {
	from, to, date string
	preference     models.GenderPreference
}

type fakeService struct {
	mu        sync.Mutex
	buses     []models.BusOffering
	searchErr error
	searches  []searchCall
	seatMap   func(ctx context.Context, busID int64) ([]models.SeatMapEntry, error)
	wake      []models.WakeMeUpRequest
	waitlist  []models.WaitlistRequest
}

func (f *fakeService) SearchBuses(ctx context.Context, from, to, date string, preference models.GenderPreference) ([]models.BusOffering, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, searchCall{from, to, date, preference})
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.buses, nil
}

func (f *fakeService) GetSeatMap(ctx context.Context, busID int64) ([]models.SeatMapEntry, error) {
	if f.seatMap != nil {
		return f.seatMap(ctx, busID)
	}
	return []models.SeatMapEntry{
		{ID: "A1", Status: models.SeatAvailable, Price: 450},
		{ID: "A2", Status: models.SeatAvailable, Price: 450},
		{ID: "B1", Status: models.SeatOccupied, Price: 450},
	}, nil
}

func (f *fakeService) SubmitWaitlist(ctx context.Context, req models.WaitlistRequest) (models.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waitlist = append(f.waitlist, req)
	return models.Ack{}, nil
}

func (f *fakeService) SubmitWakeMeUp(ctx context.Context, req models.WakeMeUpRequest) (models.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wake = append(f.wake, req)
	return models.Ack{}, nil
}

func (f *fakeService) GetProfile(ctx context.Context) (models.Profile, error) {
	return models.Profile{}, nil
}

func (f *fakeService) UpdateProfile(ctx context.Context, profile models.Profile) (models.Ack, error) {
	return models.Ack{}, nil
}

func (f *fakeService) SearchCityBuses(ctx context.Context, from, to string) ([]models.CityBus, error) {
	return nil, nil
}

func (f *fakeService) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

var (
	acSleeper = models.BusOffering{ID: 1, Number: "MH-12-AB-1234", Type: "AC Sleeper", From: "Pune", To: "Mumbai", Arrival: "06:30"}
	acSeater  = models.BusOffering{ID: 2, Number: "MH-14-CD-5678", Type: "AC Seater", From: "Pune", To: "Mumbai"}
	plain     = models.BusOffering{ID: 3, Number: "MH-04-EF-9012", Type: "Seater", From: "Pune", To: "Mumbai"}
	sleeper   = models.BusOffering{ID: 4, Number: "MH-43-GH-3456", Type: "Sleeper", From: "Pune", To: "Mumbai"}
)

var route = booking.RouteQuery{FromCity: "Pune", ToCity: "Mumbai", TravelDate: "2024-05-01"}

func newWizard(svc *fakeService) (*Wizard, *booking.Recorder) {
	rec := &booking.Recorder{}
	return New(Config{Service: svc, Notifier: rec, WaitlistCloseDelay: 10 * time.Millisecond}), rec
}

// atBusList drives a wizard to the bus list with the given buses
func atBusList(t *testing.T, buses ...models.BusOffering) (*Wizard, *fakeService, *booking.Recorder) {
	t.Helper()
	svc := &fakeService{buses: buses}
	w, rec := newWizard(svc)
	if err := w.SetQuery(route); err != nil {
		t.Fatalf("SetQuery: %v", err)
	}
	if err := w.Search(); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if err := w.SetPreference(models.PreferenceGeneral); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}
	if err := w.SubmitPreference(context.Background()); err != nil {
		t.Fatalf("SubmitPreference: %v", err)
	}
	return w, svc, rec
}

func TestSearchBlockedOnIncompleteQuery(t *testing.T) {
	svc := &fakeService{}
	w, rec := newWizard(svc)

	if err := w.SetQuery(booking.RouteQuery{FromCity: "Pune", ToCity: "  ", TravelDate: "2024-05-01"}); err != nil {
		t.Fatalf("SetQuery: %v", err)
	}
	if err := w.Search(); !booking.IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if w.Step() != StepSearch {
		t.Errorf("Expected to stay at search, got %s", w.Step())
	}
	if len(rec.Notices()) != 0 {
		t.Errorf("Expected no notice, got %v", rec.Notices())
	}
	if svc.searchCount() != 0 {
		t.Error("Expected no network call")
	}
}

func TestEmptyResultReachesBusList(t *testing.T) {
	w, svc, rec := atBusList(t)

	if w.Step() != StepBusList {
		t.Fatalf("Expected bus list, got %s", w.Step())
	}
	if !w.Empty() {
		t.Error("Expected empty result state")
	}
	if got := w.Buses(ViewAll); len(got) != 0 {
		t.Errorf("Expected no buses, got %d", len(got))
	}
	want := searchCall{"Pune", "Mumbai", "2024-05-01", models.PreferenceGeneral}
	if len(svc.searches) != 1 || svc.searches[0] != want {
		t.Errorf("Expected search %+v, got %+v", want, svc.searches)
	}
	if n, _ := rec.Last(); n.Level != booking.NoticeSuccess || n.Title != "Buses fetched successfully!" {
		t.Errorf("Unexpected notice %+v", n)
	}
}

func TestPreferenceRequired(t *testing.T) {
	svc := &fakeService{}
	w, rec := newWizard(svc)
	_ = w.SetQuery(route)
	_ = w.Search()

	if err := w.SubmitPreference(context.Background()); !booking.IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if w.Step() != StepGenderPreference {
		t.Errorf("Expected to stay at preference, got %s", w.Step())
	}
	n, _ := rec.Last()
	if n.Level != booking.NoticeWarning || n.Title != "Gender preference is required for your safety and comfort." {
		t.Errorf("Unexpected notice %+v", n)
	}
	if svc.searchCount() != 0 {
		t.Error("Expected no network call")
	}
	if err := w.SetPreference("other"); !booking.IsValidation(err) {
		t.Errorf("Expected unknown preference to be rejected, got %v", err)
	}
}

func TestFetchFailureStaysAtPreference(t *testing.T) {
	svc := &fakeService{searchErr: errors.New("connection refused")}
	w, rec := newWizard(svc)
	_ = w.SetQuery(route)
	_ = w.Search()
	_ = w.SetPreference(models.PreferenceWomen)

	if err := w.SubmitPreference(context.Background()); err == nil {
		t.Fatal("Expected error")
	}
	if w.Step() != StepGenderPreference {
		t.Errorf("Expected to stay at preference, got %s", w.Step())
	}
	if w.Empty() {
		t.Error("A failed fetch is not an empty result")
	}
	if n, _ := rec.Last(); n.Level != booking.NoticeError || n.Title != "Failed to fetch available buses." {
		t.Errorf("Unexpected notice %+v", n)
	}
	if w.Preference() != models.PreferenceWomen {
		t.Error("Expected preference to survive the failure")
	}
}

func TestViewsFilterWithoutRefetch(t *testing.T) {
	w, svc, _ := atBusList(t, acSleeper, acSeater, plain, sleeper)

	tests := []struct {
		view View
		want []int64
	}{
		{ViewAll, []int64{1, 2, 3, 4}},
		{ViewAC, []int64{1, 2}},
		{ViewSleeper, []int64{1, 4}},
	}
	for _, tt := range tests {
		got := w.Buses(tt.view)
		if len(got) != len(tt.want) {
			t.Errorf("View %d: expected %d buses, got %d", tt.view, len(tt.want), len(got))
			continue
		}
		for i, b := range got {
			if b.ID != tt.want[i] {
				t.Errorf("View %d: expected bus %d at %d, got %d", tt.view, tt.want[i], i, b.ID)
			}
		}
	}
	if svc.searchCount() != 1 {
		t.Errorf("Expected a single fetch, got %d", svc.searchCount())
	}
}

func TestBusNumberHintListedFirst(t *testing.T) {
	svc := &fakeService{buses: []models.BusOffering{acSleeper, acSeater, plain}}
	w, _ := newWizard(svc)
	q := route
	q.BusNumber = "mh-04-ef-9012"
	_ = w.SetQuery(q)
	_ = w.Search()
	_ = w.SetPreference(models.PreferenceGeneral)
	if err := w.SubmitPreference(context.Background()); err != nil {
		t.Fatalf("SubmitPreference: %v", err)
	}

	got := w.Buses(ViewAll)
	if got[0].ID != plain.ID || got[1].ID != acSleeper.ID || got[2].ID != acSeater.ID {
		t.Errorf("Unexpected order %v", got)
	}
}

func TestBackDiscardsEachStage(t *testing.T) {
	w, _, _ := atBusList(t, acSleeper)

	w.Back()
	if w.Step() != StepGenderPreference {
		t.Fatalf("Expected preference step, got %s", w.Step())
	}
	if w.Buses(ViewAll) != nil {
		t.Error("Expected bus list discarded")
	}
	if w.Preference() != models.PreferenceGeneral {
		t.Error("Preference belongs to the preference step and must survive")
	}

	w.Back()
	if w.Step() != StepSearch {
		t.Fatalf("Expected search step, got %s", w.Step())
	}
	if w.Preference() != "" {
		t.Error("Expected preference cleared")
	}
	if w.Query() != route {
		t.Error("Expected query kept for editing")
	}

	w.Back()
	if w.Step() != StepSearch {
		t.Error("Back at search must be a no-op")
	}
}

func TestQueryFrozenAfterSearch(t *testing.T) {
	w, _, _ := atBusList(t)
	if err := w.SetQuery(booking.RouteQuery{FromCity: "Nashik"}); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Expected ErrWrongStep, got %v", err)
	}
}

func TestSingleOverlay(t *testing.T) {
	w, _, _ := atBusList(t, acSleeper, plain)

	if _, err := w.OpenWaitlist(plain); err != nil {
		t.Fatalf("OpenWaitlist: %v", err)
	}
	if _, err := w.OpenWakeMeUp(acSleeper); !errors.Is(err, ErrOverlayActive) {
		t.Errorf("Expected ErrOverlayActive, got %v", err)
	}
	if _, err := w.OpenSeatSelection(context.Background(), acSleeper); !errors.Is(err, ErrOverlayActive) {
		t.Errorf("Expected ErrOverlayActive, got %v", err)
	}
	if _, ok := w.Overlay().(*Waitlist); !ok {
		t.Errorf("Expected waitlist overlay, got %s", OverlayName(w.Overlay()))
	}

	w.CloseOverlay()
	if w.Overlay() != nil {
		t.Error("Expected no overlay")
	}
	if w.Step() != StepBusList || w.Query() != route || w.Preference() != models.PreferenceGeneral {
		t.Error("Closing a dialog must not touch the wizard state")
	}
}

func TestOverlayRequiresBusList(t *testing.T) {
	w, _ := newWizard(&fakeService{})
	if _, err := w.OpenWaitlist(plain); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Expected ErrWrongStep, got %v", err)
	}
}

func TestConfirmFlow(t *testing.T) {
	w, _, rec := atBusList(t, acSleeper)

	sel, err := w.OpenSeatSelection(context.Background(), acSleeper)
	if err != nil {
		t.Fatalf("OpenSeatSelection: %v", err)
	}
	if _, ok := w.ConfirmSeats(); ok {
		t.Error("Confirm with nothing selected must be refused")
	}
	if w.ToggleSeat("B1") {
		t.Error("Occupied seat must not toggle")
	}
	w.ToggleSeat("A2")
	w.ToggleSeat("A1")
	if sel.Total() != 900 {
		t.Errorf("Expected total 900, got %v", sel.Total())
	}

	ticket, ok := w.ConfirmSeats()
	if !ok {
		t.Fatal("Expected confirm to succeed")
	}
	if ticket.Amount != 900 || len(ticket.Seats) != 2 || ticket.Seats[0] != "A2" || ticket.TravelDate != "2024-05-01" {
		t.Errorf("Unexpected ticket %+v", ticket)
	}
	if _, ok := w.Overlay().(*BookingSuccess); !ok {
		t.Errorf("Expected booking success, got %s", OverlayName(w.Overlay()))
	}
	if !sel.Closed() {
		t.Error("Expected seat dialog closed")
	}
	if n, _ := rec.Last(); n.Title != "Booking confirmed!" {
		t.Errorf("Unexpected notice %+v", n)
	}

	if _, err := w.ViewTicket(); err != nil {
		t.Fatalf("ViewTicket: %v", err)
	}
	if _, ok := w.Overlay().(*TicketView); !ok {
		t.Errorf("Expected ticket view, got %s", OverlayName(w.Overlay()))
	}

	w.CloseOverlay()
	if _, ok := w.Ticket(); ok {
		t.Error("Expected ticket destroyed on close")
	}
}

func TestWakeMeUpFromTicketReturnsToTicket(t *testing.T) {
	w, svc, _ := atBusList(t, acSleeper)
	_, _ = w.OpenSeatSelection(context.Background(), acSleeper)
	w.ToggleSeat("A1")
	w.ConfirmSeats()
	_, _ = w.ViewTicket()

	form, err := w.WakeMeUpFromTicket()
	if err != nil {
		t.Fatalf("WakeMeUpFromTicket: %v", err)
	}
	if form.Target().Destination != "Mumbai" {
		t.Errorf("Expected destination Mumbai, got %s", form.Target().Destination)
	}
	if err := w.SubmitWakeMeUp(context.Background()); err != nil {
		t.Fatalf("SubmitWakeMeUp: %v", err)
	}
	if _, ok := w.Overlay().(*TicketView); !ok {
		t.Errorf("Expected ticket view after alert, got %s", OverlayName(w.Overlay()))
	}
	if len(svc.wake) != 1 || svc.wake[0].ArrivalTime != "06:30" {
		t.Errorf("Unexpected requests %+v", svc.wake)
	}
}

func TestWaitlistSelfCloseClearsOverlay(t *testing.T) {
	w, _, _ := atBusList(t, plain)
	form, err := w.OpenWaitlist(plain)
	if err != nil {
		t.Fatalf("OpenWaitlist: %v", err)
	}
	form.SetEmail("rider@example.com")
	form.SetPhone("9876543210")
	if err := w.SubmitWaitlist(context.Background()); err != nil {
		t.Fatalf("SubmitWaitlist: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for w.Overlay() != nil {
		if time.Now().After(deadline) {
			t.Fatal("Expected waitlist to close itself")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStaleSeatMapDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	svc := &fakeService{
		buses: []models.BusOffering{acSleeper},
		seatMap: func(ctx context.Context, busID int64) ([]models.SeatMapEntry, error) {
			close(started)
			<-release
			return []models.SeatMapEntry{{ID: "A1", Status: models.SeatAvailable, Price: 100}}, nil
		},
	}
	w, _ := newWizard(svc)
	_ = w.SetQuery(route)
	_ = w.Search()
	_ = w.SetPreference(models.PreferenceGeneral)
	_ = w.SubmitPreference(context.Background())

	errc := make(chan error, 1)
	var sel *seats.Selector
	go func() {
		var err error
		sel, err = w.OpenSeatSelection(context.Background(), acSleeper)
		errc <- err
	}()
	<-started
	w.CloseOverlay()
	close(release)

	if err := <-errc; !errors.Is(err, seats.ErrStale) {
		t.Errorf("Expected ErrStale, got %v", err)
	}
	if len(sel.Entries()) != 0 {
		t.Error("Late seat map must not populate a closed dialog")
	}
	if w.Overlay() != nil {
		t.Error("Expected no overlay")
	}
}

func TestStaleBusListDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	svc := &blockingSearch{fakeService: &fakeService{}, started: started, release: release}
	w := New(Config{Service: svc})
	_ = w.SetQuery(route)
	_ = w.Search()
	_ = w.SetPreference(models.PreferenceGeneral)

	errc := make(chan error, 1)
	go func() { errc <- w.SubmitPreference(context.Background()) }()
	<-started
	w.Back()
	close(release)

	if err := <-errc; !errors.Is(err, ErrStale) {
		t.Errorf("Expected ErrStale, got %v", err)
	}
	if w.Step() != StepSearch {
		t.Errorf("Expected search step, got %s", w.Step())
	}
}

type blockingSearch struct {
	*fakeService
	started chan struct{}
	release chan struct{}
}

func (b *blockingSearch) SearchBuses(ctx context.Context, from, to, date string, preference models.GenderPreference) ([]models.BusOffering, error) {
	close(b.started)
	<-b.release
	return []models.BusOffering{acSleeper}, nil
}
