package models

import "strings"

// GenderPreference selects which seating sections the bus listing prioritizes.
// The zero value means no preference has been chosen yet.
type GenderPreference string

const (
	PreferenceWomen   GenderPreference = "women"
	PreferenceGeneral GenderPreference = "general"
)

// Valid reports whether p is one of the known preferences
func (p GenderPreference) Valid() bool {
	return p == PreferenceWomen || p == PreferenceGeneral
}

// ParseGenderPreference accepts the wire values plus the "womens_only" alias
// older screens sent.
func ParseGenderPreference(s string) (GenderPreference, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "women", "womens_only", "woman":
		return PreferenceWomen, true
	case "general", "all":
		return PreferenceGeneral, true
	}
	return "", false
}

// BusOffering is one long-distance bus returned by an availability search
type BusOffering struct {
	ID             int64    `json:"id"`
	Number         string   `json:"number"`
	Type           string   `json:"type"` // "AC Sleeper", "Non-AC Seater", ...
	From           string   `json:"from"`
	To             string   `json:"to"`
	Departure      string   `json:"departure"`
	Arrival        string   `json:"arrival"`
	Duration       string   `json:"duration"`
	Price          float64  `json:"price"`
	AvailableSeats int      `json:"availableSeats"`
	Rating         float64  `json:"rating"`
	Amenities      []string `json:"amenities"`
	WomensOnly     bool     `json:"womensOnly"`
}

// IsAC matches the "AC" tab of the bus list. Substring match, as the listing
// has always done, so "Non-AC" counts too.
func (b BusOffering) IsAC() bool {
	return strings.Contains(b.Type, "AC")
}

// IsSleeper matches the "Sleeper" tab of the bus list
func (b BusOffering) IsSleeper() bool {
	return strings.Contains(b.Type, "Sleeper")
}

// CityBus is an intra-city route returned by the city bus search
type CityBus struct {
	ID           int64   `json:"id"`
	RouteNumber  string  `json:"route_number"`
	RouteName    string  `json:"route_name"`
	FromLocation string  `json:"from_location"`
	ToLocation   string  `json:"to_location"`
	Cost         string  `json:"cost"`
	DistanceKM   float64 `json:"distance_km"`
	TimeMinutes  int     `json:"time_minutes"`
	NextBusInMin int     `json:"next_bus_in_min"`
	CrowdLevel   string  `json:"crowd_level"`
}
