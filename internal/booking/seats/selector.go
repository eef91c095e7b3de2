// Package seats holds the seat map of one open seat-selection dialog and
// the rules for picking seats from it.
package seats

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goroute-booking/internal/booking"
	"github.com/goroute-booking/internal/common/logger"
	"github.com/goroute-booking/internal/transit"
	"github.com/goroute-booking/pkg/transit/models"
)

var (
	// ErrClosed is returned by Load on a dialog that was already closed
	ErrClosed = errors.New("seat selection closed")
	// ErrStale means the seat map arrived after the dialog moved on and
	// was thrown away
	ErrStale = errors.New("stale seat map discarded")
)

// Selector is the state of one seat-selection dialog instance. The seat map
// is fetched at most once per instance and dropped when the instance is
// closed or confirmed. A new dialog needs a new Selector.
type Selector struct {
	mu     sync.Mutex
	bus    models.BusOffering
	logger logger.Logger

	entries  []models.SeatMapEntry
	index    map[string]int
	selected []string // selection order, always the ids whose status is selected

	generation uint64
	loading    bool
	loaded     bool
	closed     bool
}

func New(bus models.BusOffering, log logger.Logger) *Selector {
	return &Selector{
		bus:    bus,
		logger: log.With("bus_id", bus.ID, "bus_number", bus.Number),
		index:  make(map[string]int),
	}
}

func (s *Selector) Bus() models.BusOffering {
	return s.bus
}

// Load fetches the seat map. Only the first call per instance hits the
// network; a failed fetch leaves the map empty and is not retried.
func (s *Selector) Load(ctx context.Context, fetcher transit.SeatMapFetcher) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.loading || s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	gen := s.generation
	s.mu.Unlock()

	entries, err := fetcher.GetSeatMap(ctx, s.bus.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation {
		s.logger.Debug("Discarding seat map for closed dialog", "generation", gen)
		return ErrStale
	}
	s.loading = false
	s.loaded = true

	if err != nil {
		s.logger.Error("Error fetching seats", "error", err)
		return fmt.Errorf("loading seat map for bus %d: %w", s.bus.ID, err)
	}

	s.apply(entries)
	s.logger.Debug("Seat map loaded", "seats", len(s.entries))
	return nil
}

func (s *Selector) apply(entries []models.SeatMapEntry) {
	s.entries = make([]models.SeatMapEntry, 0, len(entries))
	s.index = make(map[string]int, len(entries))
	s.selected = nil

	for _, e := range entries {
		if _, dup := s.index[e.ID]; dup {
			s.logger.Warn("Duplicate seat in seat map", "seat", e.ID)
			continue
		}
		// A fresh map carries no client selection.
		if e.Status == models.SeatSelected {
			e.Status = models.SeatAvailable
		}
		s.index[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
}

// Toggle flips an available seat to selected or back. Seats in any other
// status, and unknown ids, are left alone and report false.
func (s *Selector) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	i, ok := s.index[id]
	if !ok {
		return false
	}

	if !s.entries[i].Status.Togglable() {
		return false
	}
	if s.entries[i].Status == models.SeatAvailable {
		s.entries[i].Status = models.SeatSelected
		s.selected = append(s.selected, id)
		return true
	}
	s.entries[i].Status = models.SeatAvailable
	for j, sid := range s.selected {
		if sid == id {
			s.selected = append(s.selected[:j], s.selected[j+1:]...)
			break
		}
	}
	return true
}

// Total is the price of the current selection
func (s *Selector) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total()
}

func (s *Selector) total() float64 {
	var sum float64
	for _, id := range s.selected {
		sum += s.entries[s.index[id]].Price
	}
	return sum
}

// Selected returns the selected seat ids in the order they were picked
func (s *Selector) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selected...)
}

// Entries returns a snapshot of the seat map
func (s *Selector) Entries() []models.SeatMapEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SeatMapEntry(nil), s.entries...)
}

// Counts tallies seats per status for the legend
func (s *Selector) Counts() map[models.SeatStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[models.SeatStatus]int)
	for _, e := range s.entries {
		counts[e.Status]++
	}
	return counts
}

func (s *Selector) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Selector) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Confirm hands the selection to the caller and closes the dialog. With
// nothing selected it refuses and the dialog stays open.
func (s *Selector) Confirm() (booking.SeatSelection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(s.selected) == 0 {
		return booking.SeatSelection{}, false
	}

	sel := booking.SeatSelection{
		Bus:    s.bus,
		Seats:  append([]string(nil), s.selected...),
		Amount: s.total(),
	}
	s.logger.Info("Seats confirmed", "seats", sel.Seats, "amount", sel.Amount)
	s.close()
	return sel, true
}

// Close discards the seat map. A fetch still in flight is dropped when it
// returns.
func (s *Selector) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.close()
}

func (s *Selector) close() {
	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	s.loading = false
	s.entries = nil
	s.index = nil
	s.selected = nil
}
