package models

// WaitlistRequest asks to be told when a seat frees up on a bus
type WaitlistRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	BusNumber string `json:"bus_number" validate:"required"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// WakeMeUpRequest schedules a proximity alert ahead of a destination stop
type WakeMeUpRequest struct {
	BusNumber             string `json:"bus_number" validate:"required"`
	Destination           string `json:"destination" validate:"required"`
	ArrivalTime           string `json:"arrival_time"`
	MinutesBefore         int    `json:"minutes_before" validate:"min=2,max=15"`
	NotifyNearDestination bool   `json:"notify_near_destination"`
	NotifyOnArrival       bool   `json:"notify_on_arrival"`
}

// Ack is the acknowledgement body returned by write endpoints
type Ack struct {
	Message string `json:"message"`
}

// Profile is the rider profile shown on the profile screen
type Profile struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	GuardianName     string `json:"guardianName"`
	GuardianRelation string `json:"guardianRelation"`
	EmergencyContact string `json:"emergencyContact"`
}
