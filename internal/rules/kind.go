package rules

import "strings"

// Kind identifies a built-in evaluator. Rules are bound to a kind by name.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindDelayThreshold
	KindPassengerValidation
	KindFlightStatus
	KindTicketPriceLimit
)

var kindNames = map[Kind]string{
	KindDelayThreshold:      "delay_threshold",
	KindPassengerValidation: "passenger_validation",
	KindFlightStatus:        "flight_status",
	KindTicketPriceLimit:    "ticket_price_limit",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// ResolveKind maps a rule name to its kind, ignoring case and surrounding space.
func ResolveKind(name string) Kind {
	return kindsByName[strings.ToLower(strings.TrimSpace(name))]
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unrecognized"
}
