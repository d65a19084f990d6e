package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"claimflow/internal/resilience"
)

// ErrFlightNotFound is returned by a FlightAuthority that has no record of the flight.
var ErrFlightNotFound = eris.New("flight not found")

// FlightInfo is what the flight authority knows about one flight.
type FlightInfo struct {
	Airline            string     `json:"airline"`
	Origin             string     `json:"origin"`
	Destination        string     `json:"destination"`
	ScheduledDeparture *time.Time `json:"scheduled_departure"`
	ActualDeparture    *time.Time `json:"actual_departure"`
	Status             string     `json:"status"`
	DelayMinutes       *int       `json:"delay_minutes"`
}

// FlightAuthority looks up flight status. date may be nil.
type FlightAuthority interface {
	LookupFlight(ctx context.Context, flightNumber string, date *time.Time) (*FlightInfo, error)
}

// FlightAPIOptions configures FlightAPIClient.
type FlightAPIOptions struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	Breaker    *resilience.Breaker
}

// FlightAPIClient queries GET {base}/flights/{ident}?date=YYYY-MM-DD.
type FlightAPIClient struct {
	base    string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

func NewFlightAPIClient(opts FlightAPIOptions) *FlightAPIClient {
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.BreakerConfig{Name: "flight-api"})
	}
	return &FlightAPIClient{
		base:   strings.TrimRight(opts.BaseURL, "/"),
		apiKey: opts.APIKey,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
	}
}

var _ FlightAuthority = (*FlightAPIClient)(nil)

type flightsResponse struct {
	Flights []FlightInfo `json:"flights"`
}

func (c *FlightAPIClient) LookupFlight(ctx context.Context, flightNumber string, date *time.Time) (*FlightInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "flight api rate limit")
	}
	return resilience.Do(ctx, c.breaker, func(ctx context.Context) (*FlightInfo, error) {
		return c.lookup(ctx, flightNumber, date)
	})
}

func (c *FlightAPIClient) lookup(ctx context.Context, flightNumber string, date *time.Time) (*FlightInfo, error) {
	u := c.base + "/flights/" + url.PathEscape(flightNumber)
	if date != nil {
		u += "?" + url.Values{"date": {date.Format("2006-01-02")}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build flight request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "lookup flight %s", flightNumber)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrFlightNotFound
	case resp.StatusCode != http.StatusOK:
		err := fmt.Errorf("flight api returned %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var body flightsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "decode flight response")
	}
	if len(body.Flights) == 0 {
		return nil, ErrFlightNotFound
	}
	return &body.Flights[0], nil
}
