package transit

import (
	"context"

	"github.com/goroute-booking/pkg/transit/models"
)

// BusSearcher lists long-distance buses for a route and date
type BusSearcher interface {
	SearchBuses(ctx context.Context, from, to, date string, preference models.GenderPreference) ([]models.BusOffering, error)
}

// SeatMapFetcher returns the current seat map of one bus
type SeatMapFetcher interface {
	GetSeatMap(ctx context.Context, busID int64) ([]models.SeatMapEntry, error)
}

type WaitlistSubmitter interface {
	SubmitWaitlist(ctx context.Context, req models.WaitlistRequest) (models.Ack, error)
}

type WakeMeUpSubmitter interface {
	SubmitWakeMeUp(ctx context.Context, req models.WakeMeUpRequest) (models.Ack, error)
}

type ProfileService interface {
	GetProfile(ctx context.Context) (models.Profile, error)
	UpdateProfile(ctx context.Context, profile models.Profile) (models.Ack, error)
}

type CityBusSearcher interface {
	SearchCityBuses(ctx context.Context, from, to string) ([]models.CityBus, error)
}

// Service is the whole remote transit API as the booking flow sees it
type Service interface {
	BusSearcher
	SeatMapFetcher
	WaitlistSubmitter
	WakeMeUpSubmitter
	ProfileService
	CityBusSearcher
}
