package model

import "time"

// ValidationResult merges the flight-authority lookup and the passenger registry checks.
// Confidence is on a 0-100 scale.
type ValidationResult struct {
	FlightNumber string                  `json:"flight_number"`
	IsValid      bool                    `json:"is_valid"`
	Confidence   float64                 `json:"confidence"`
	External     *FlightAuthorityResult  `json:"external,omitempty"`
	Internal     *InternalRegistryResult `json:"internal,omitempty"`
	ValidatedAt  time.Time               `json:"validated_at"`
}

// FlightAuthorityResult is the external flight-status sub-result. Confidence is 0-1.
type FlightAuthorityResult struct {
	IsValid            bool       `json:"is_valid"`
	FlightNumber       string     `json:"flight_number"`
	Airline            string     `json:"airline,omitempty"`
	Origin             string     `json:"origin,omitempty"`
	Destination        string     `json:"destination,omitempty"`
	ScheduledDeparture *time.Time `json:"scheduled_departure,omitempty"`
	ActualDeparture    *time.Time `json:"actual_departure,omitempty"`
	Status             string     `json:"status,omitempty"`
	DelayMinutes       *int       `json:"delay_minutes,omitempty"`
	Confidence         float64    `json:"confidence"`
	Error              string     `json:"error,omitempty"`
}

// InternalRegistryResult aggregates the two passenger registry checks.
type InternalRegistryResult struct {
	IsValid       bool          `json:"is_valid"`
	PassengerName string        `json:"passenger_name"`
	FlightNumber  string        `json:"flight_number"`
	Primary       RegistryCheck `json:"primary"`
	Secondary     RegistryCheck `json:"secondary"`
	ValidatedAt   time.Time     `json:"validated_at"`
	Error         string        `json:"error,omitempty"`
}

// RegistryCheck is one registry system's answer.
type RegistryCheck struct {
	System         string    `json:"system"`
	IsValid        bool      `json:"is_valid"`
	PassengerFound bool      `json:"passenger_found"`
	CheckedAt      time.Time `json:"checked_at"`
	Error          string    `json:"error,omitempty"`
}
