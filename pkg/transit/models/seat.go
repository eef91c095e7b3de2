package models

// SeatStatus is the bookable state of a single seat
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatSelected  SeatStatus = "selected"
	SeatOccupied  SeatStatus = "occupied"
	SeatReserved  SeatStatus = "reserved"
	SeatLadies    SeatStatus = "ladies"
)

// Togglable reports whether the client may flip the seat between
// available and selected. Every other status belongs to the server.
func (s SeatStatus) Togglable() bool {
	return s == SeatAvailable || s == SeatSelected
}

// SeatMapEntry is one seat of a bus seat map
type SeatMapEntry struct {
	ID     string     `json:"seat_number"`
	Status SeatStatus `json:"status"`
	Price  float64    `json:"price"`
}
