package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"claimflow/internal/model"
)

// Presence weights summed into FlightData.Confidence.
const (
	weightFlightNumber  = 25
	weightPassengerName = 25
	weightFlightDate    = 20
	weightDeparture     = 15
	weightRoute         = 15
	maxConfidence       = 100
)

var (
	flightNumberRe  = regexp.MustCompile(`\b([A-Z]{2,3})(\d{3,4})\b`)
	passengerNameRe = regexp.MustCompile(`(?i)\b(?:PASSENGER|PASSAGEIRO|NOME|NAME)(?:[ \t]+(?:NAME|NOME))?[ \t:]*([A-Z][A-Z \t]*)`)
	flightDateRe    = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})`)
	departureRe     = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	airportRe       = regexp.MustCompile(`\b[A-Z]{3}\b`)
	ticketPriceRe   = regexp.MustCompile(`(?i)(?:R\$|USD|EUR)\s*([\d,.]+)`)
)

var knownAirports = map[string]struct{}{
	"GRU": {}, "CGH": {}, "BSB": {}, "SDU": {}, "GIG": {}, "CNF": {}, "REC": {},
	"SSA": {}, "FOR": {}, "BEL": {}, "MIA": {}, "JFK": {}, "LAX": {}, "ORD": {},
	"DFW": {}, "ATL": {}, "LHR": {}, "CDG": {}, "FRA": {}, "MAD": {}, "EZE": {},
	"SCL": {}, "LIM": {}, "BOG": {}, "PTY": {}, "MEX": {}, "YYZ": {}, "YVR": {},
}

// ParseFlightData pulls flight fields out of OCR text. Each field is matched
// independently and the first match wins; fields that do not match stay empty.
func ParseFlightData(text string, now time.Time) *model.FlightData {
	fd := &model.FlightData{ExtractionTimestamp: now.UTC()}

	if m := flightNumberRe.FindStringSubmatch(text); m != nil {
		fd.FlightNumber = m[1] + m[2]
	}
	if m := passengerNameRe.FindStringSubmatch(text); m != nil {
		fd.PassengerName = strings.TrimSpace(m[1])
	}
	fd.FlightDate = parseFlightDate(text)
	fd.ScheduledDeparture = parseDeparture(text)
	fd.Origin, fd.Destination = parseRoute(text)
	fd.TicketPrice = parseTicketPrice(text)
	fd.Confidence = Confidence(fd)
	return fd
}

func parseFlightDate(text string) *time.Time {
	m := flightDateRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow, so a changed component means the date was invalid.
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return nil
	}
	return &d
}

func parseDeparture(text string) string {
	for _, m := range departureRe.FindAllStringSubmatch(text, -1) {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			continue
		}
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}
	return ""
}

func parseRoute(text string) (origin, destination string) {
	var codes []string
	seen := make(map[string]bool)
	for _, code := range airportRe.FindAllString(text, -1) {
		if _, ok := knownAirports[code]; !ok || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
		if len(codes) == 2 {
			return codes[0], codes[1]
		}
	}
	return "", ""
}

func parseTicketPrice(text string) *float64 {
	m := ticketPriceRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return nil
	}
	return &price
}

// Confidence scores fd by which fields were found. Origin and destination count only together.
func Confidence(fd *model.FlightData) float64 {
	score := 0
	if fd.FlightNumber != "" {
		score += weightFlightNumber
	}
	if fd.PassengerName != "" {
		score += weightPassengerName
	}
	if fd.FlightDate != nil {
		score += weightFlightDate
	}
	if fd.ScheduledDeparture != "" {
		score += weightDeparture
	}
	if fd.Origin != "" && fd.Destination != "" {
		score += weightRoute
	}
	return float64(min(score, maxConfidence))
}
