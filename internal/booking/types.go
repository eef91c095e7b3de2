package booking

import (
	"strings"

	"github.com/goroute-booking/pkg/transit/models"
)

// RouteQuery is what the rider typed on the search step
type RouteQuery struct {
	FromCity   string
	ToCity     string
	TravelDate string
	BusNumber  string // optional
}

// Complete reports whether the three required fields are filled in
func (q RouteQuery) Complete() bool {
	return strings.TrimSpace(q.FromCity) != "" &&
		strings.TrimSpace(q.ToCity) != "" &&
		strings.TrimSpace(q.TravelDate) != ""
}

// SeatSelection is what a confirmed seat dialog hands back to its caller
type SeatSelection struct {
	Bus    models.BusOffering
	Seats  []string
	Amount float64
}

// BookedTicket lives from seat confirmation until the ticket is dismissed
type BookedTicket struct {
	Bus        models.BusOffering
	Seats      []string
	Amount     float64
	TravelDate string
}
