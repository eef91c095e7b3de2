package wizard

import (
	"github.com/goroute-booking/internal/booking"
	"github.com/goroute-booking/internal/booking/notify"
	"github.com/goroute-booking/internal/booking/seats"
)

// Overlay is the dialog currently shown over the bus list. A nil Overlay
// means no dialog; at most one is ever active.
type Overlay interface {
	overlay()
}

type SeatSelection struct {
	Selector *seats.Selector
}

type Waitlist struct {
	Form *notify.Waitlist
}

// WakeMeUp opened from the ticket view goes back there when it closes
type WakeMeUp struct {
	Form     *notify.WakeMeUp
	ReturnTo *TicketView
}

type BookingSuccess struct {
	Ticket booking.BookedTicket
}

type TicketView struct {
	Ticket booking.BookedTicket
}

func (*SeatSelection) overlay() {}
func (*Waitlist) overlay() {}
func (*WakeMeUp) overlay() {}
func (*BookingSuccess) overlay() {}
func (*TicketView) overlay() {}

// OverlayName is used in logs and by the terminal front end
func OverlayName(o Overlay) string {
	switch o.(type) {
	case nil:
		return "none"
	case *SeatSelection:
		return "seat_selection"
	case *Waitlist:
		return "waitlist"
	case *WakeMeUp:
		return "wake_me_up"
	case *BookingSuccess:
		return "booking_success"
	case *TicketView:
		return "ticket_view"
	default:
		return "unknown"
	}
}
