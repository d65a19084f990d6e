package rules

import (
	"fmt"
	"strings"

	"claimflow/internal/model"
)

const (
	// MinDelayHours is the delay a claim must reach to be eligible.
	MinDelayHours = 4.0
	// MaxTicketPrice is compared against the extracted price regardless of currency.
	MaxTicketPrice = 10000.0

	reasonNotImplemented = "not implemented — assume approved"
)

// Input is the evidence a rule is evaluated against. Either field may be nil.
type Input struct {
	FlightData *model.FlightData
	Validation *model.ValidationResult
}

// Outcome is what an evaluator decides.
type Outcome struct {
	Passed bool
	Reason string
}

type evaluator func(in Input) (Outcome, error)

var builtins = map[Kind]evaluator{
	KindDelayThreshold:      evalDelayThreshold,
	KindPassengerValidation: evalPassengerValidation,
	KindFlightStatus:        evalFlightStatus,
	KindTicketPriceLimit:    evalTicketPriceLimit,
}

// DelayHours returns the delay reported by the flight authority, if any.
func DelayHours(v *model.ValidationResult) (float64, bool) {
	if v == nil || v.External == nil || v.External.DelayMinutes == nil {
		return 0, false
	}
	return float64(*v.External.DelayMinutes) / 60.0, true
}

func evalDelayThreshold(in Input) (Outcome, error) {
	hours, ok := DelayHours(in.Validation)
	if !ok {
		return Outcome{Reason: "delay information not available"}, nil
	}
	if hours >= MinDelayHours {
		return Outcome{Passed: true, Reason: fmt.Sprintf("delay of %.2f hours meets the minimum of %.0f hours", hours, MinDelayHours)}, nil
	}
	return Outcome{Reason: fmt.Sprintf("delay of %.2f hours does not meet the minimum of %.0f hours", hours, MinDelayHours)}, nil
}

func evalPassengerValidation(in Input) (Outcome, error) {
	if in.FlightData == nil || strings.TrimSpace(in.FlightData.PassengerName) == "" {
		return Outcome{Reason: "passenger name not available"}, nil
	}
	if in.Validation != nil && in.Validation.Internal != nil && in.Validation.Internal.IsValid {
		return Outcome{Passed: true, Reason: "passenger confirmed by internal registries"}, nil
	}
	return Outcome{Reason: "passenger not found in internal registries"}, nil
}

func evalFlightStatus(in Input) (Outcome, error) {
	if in.Validation != nil && in.Validation.External != nil && in.Validation.External.IsValid {
		return Outcome{Passed: true, Reason: "flight confirmed by the flight authority"}, nil
	}
	return Outcome{Reason: "flight not found or invalid at the flight authority"}, nil
}

func evalTicketPriceLimit(in Input) (Outcome, error) {
	if in.FlightData == nil || in.FlightData.TicketPrice == nil {
		return Outcome{Passed: true, Reason: "no ticket price extracted, limit not applicable"}, nil
	}
	price := *in.FlightData.TicketPrice
	if price <= MaxTicketPrice {
		return Outcome{Passed: true, Reason: fmt.Sprintf("ticket price %.2f within the limit", price)}, nil
	}
	return Outcome{Reason: fmt.Sprintf("ticket price %.2f exceeds the limit of %.2f", price, MaxTicketPrice)}, nil
}
