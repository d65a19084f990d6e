package model

import "time"

// FlightData is the structured guess produced from a document's OCR text.
// Confidence is a 0-100 presence score, not a probability.
type FlightData struct {
	FlightNumber        string     `json:"flight_number,omitempty"`
	PassengerName       string     `json:"passenger_name,omitempty"`
	FlightDate          *time.Time `json:"flight_date,omitempty"`
	ScheduledDeparture  string     `json:"scheduled_departure,omitempty"` // HH:MM
	Origin              string     `json:"origin,omitempty"`
	Destination         string     `json:"destination,omitempty"`
	TicketPrice         *float64   `json:"ticket_price,omitempty"`
	ExtractionTimestamp time.Time  `json:"extraction_timestamp"`
	Confidence          float64    `json:"confidence"`
	OCRConfidence       float64    `json:"ocr_confidence,omitempty"`
	RawText             string     `json:"raw_text,omitempty"`
}
