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

	"claimflow/internal/resilience"
)

// PassengerRegistry answers whether a passenger was booked on a flight.
type PassengerRegistry interface {
	System() string
	PassengerExists(ctx context.Context, passengerName, flightNumber string) (bool, error)
}

// NameRegistry accepts any non-blank passenger name. It stands in until a
// registry integration is configured.
type NameRegistry struct {
	Name string
}

func (r NameRegistry) System() string { return r.Name }

func (r NameRegistry) PassengerExists(_ context.Context, passengerName, _ string) (bool, error) {
	return strings.TrimSpace(passengerName) != "", nil
}

// HTTPRegistry queries GET {base}/passengers?name=&flight= and reads {"found": bool}.
type HTTPRegistry struct {
	name    string
	base    string
	http    *http.Client
	breaker *resilience.Breaker
}

func NewHTTPRegistry(name, baseURL string, timeout time.Duration) *HTTPRegistry {
	return &HTTPRegistry{
		name: name,
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: resilience.NewBreaker(resilience.BreakerConfig{Name: name}),
	}
}

func (r *HTTPRegistry) System() string { return r.name }

func (r *HTTPRegistry) PassengerExists(ctx context.Context, passengerName, flightNumber string) (bool, error) {
	return resilience.Do(ctx, r.breaker, func(ctx context.Context) (bool, error) {
		q := url.Values{"name": {passengerName}, "flight": {flightNumber}}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/passengers?"+q.Encode(), nil)
		if err != nil {
			return false, eris.Wrap(err, "build registry request")
		}
		resp, err := r.http.Do(req)
		if err != nil {
			return false, eris.Wrapf(err, "%s lookup", r.name)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("%s returned %d", r.name, resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return false, resilience.NewTransientError(err, resp.StatusCode)
			}
			return false, err
		}
		var body struct {
			Found bool `json:"found"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false, eris.Wrapf(err, "decode %s response", r.name)
		}
		return body.Found, nil
	})
}
