package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"claimflow/internal/apperr"
	"claimflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFlights struct {
	info *FlightInfo
	err  error
	wait time.Duration
}

func (s stubFlights) LookupFlight(ctx context.Context, _ string, _ *time.Time) (*FlightInfo, error) {
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.info, s.err
}

type stubRegistry struct {
	name  string
	found bool
	err   error
}

func (s stubRegistry) System() string { return s.name }

func (s stubRegistry) PassengerExists(context.Context, string, string) (bool, error) {
	return s.found, s.err
}

func newTestAggregator(flights FlightAuthority, primary, secondary PassengerRegistry) *Aggregator {
	a := NewAggregator(flights, primary, secondary, time.Second, nil)
	a.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestAggregator_Validate(t *testing.T) {
	delay := 240
	found := stubFlights{info: &FlightInfo{Airline: "LATAM", Origin: "GRU", Destination: "GIG", Status: "Delayed", DelayMinutes: &delay}}
	req := Request{FlightNumber: "LA3456", PassengerName: "JOHN DOE"}

	tests := []struct {
		name       string
		flights    FlightAuthority
		primary    PassengerRegistry
		secondary  PassengerRegistry
		valid      bool
		confidence float64
		extConf    float64
		wantErr    bool
	}{
		{
			name:       "everything checks out",
			flights:    found,
			primary:    NameRegistry{Name: "primary"},
			secondary:  NameRegistry{Name: "secondary"},
			valid:      true,
			confidence: 100,
			extConf:    0.9,
		},
		{
			name:       "flight unknown",
			flights:    stubFlights{err: ErrFlightNotFound},
			primary:    NameRegistry{Name: "primary"},
			secondary:  NameRegistry{Name: "secondary"},
			confidence: 40,
			extConf:    0.1,
		},
		{
			name:       "one registry misses the passenger",
			flights:    found,
			primary:    NameRegistry{Name: "primary"},
			secondary:  stubRegistry{name: "secondary", found: false},
			confidence: 60,
			extConf:    0.9,
		},
		{
			name:       "flight provider down",
			flights:    stubFlights{err: errors.New("connection refused")},
			primary:    NameRegistry{Name: "primary"},
			secondary:  NameRegistry{Name: "secondary"},
			confidence: 40,
			extConf:    0,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAggregator(tt.flights, tt.primary, tt.secondary)

			res, err := a.Validate(context.Background(), req)

			require.NotNil(t, res)
			if tt.wantErr {
				assert.True(t, apperr.Is(err, apperr.KindProvider))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.valid, res.IsValid)
			assert.Equal(t, tt.confidence, res.Confidence)
			assert.Equal(t, tt.extConf, res.External.Confidence)
			assert.Equal(t, "LA3456", res.FlightNumber)
		})
	}
}

func TestAggregator_Validate_CopiesFlightDetails(t *testing.T) {
	delay := 300
	a := newTestAggregator(
		stubFlights{info: &FlightInfo{Airline: "LATAM", Origin: "GRU", Destination: "GIG", Status: "Delayed", DelayMinutes: &delay}},
		NameRegistry{Name: "primary"}, NameRegistry{Name: "secondary"},
	)

	res, err := a.Validate(context.Background(), Request{FlightNumber: "LA3456", PassengerName: "JOHN DOE"})

	require.NoError(t, err)
	assert.Equal(t, "LATAM", res.External.Airline)
	assert.Equal(t, "GRU", res.External.Origin)
	assert.Equal(t, 300, *res.External.DelayMinutes)
	assert.Empty(t, res.External.Error)
	assert.Equal(t, "primary", res.Internal.Primary.System)
	assert.True(t, res.Internal.Secondary.PassengerFound)
}

func TestAggregator_Validate_BlankPassengerFailsRegistries(t *testing.T) {
	a := newTestAggregator(stubFlights{info: &FlightInfo{}}, NameRegistry{Name: "primary"}, NameRegistry{Name: "secondary"})

	res, err := a.Validate(context.Background(), Request{FlightNumber: "LA3456", PassengerName: "   "})

	require.NoError(t, err)
	assert.False(t, res.Internal.IsValid)
	assert.False(t, res.Internal.Primary.PassengerFound)
	assert.False(t, res.IsValid)
	assert.Equal(t, 60.0, res.Confidence)
}

func TestAggregator_Validate_RegistryErrorIsRecorded(t *testing.T) {
	a := newTestAggregator(
		stubFlights{info: &FlightInfo{}},
		NameRegistry{Name: "primary"},
		stubRegistry{name: "secondary", err: errors.New("registry timeout")},
	)

	res, err := a.Validate(context.Background(), Request{FlightNumber: "LA3456", PassengerName: "JOHN DOE"})

	assert.True(t, apperr.Is(err, apperr.KindProvider))
	require.NotNil(t, res)
	assert.False(t, res.Internal.IsValid)
	assert.Equal(t, "registry timeout", res.Internal.Secondary.Error)
	assert.Equal(t, "registry timeout", res.Internal.Error)
}

func TestAggregator_Validate_LookupTimeout(t *testing.T) {
	a := newTestAggregator(stubFlights{wait: time.Second}, NameRegistry{Name: "primary"}, NameRegistry{Name: "secondary"})
	a.timeout = 10 * time.Millisecond

	res, err := a.Validate(context.Background(), Request{FlightNumber: "LA3456", PassengerName: "JOHN DOE"})

	assert.True(t, apperr.Is(err, apperr.KindProvider))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, res.External.IsValid)
	assert.Zero(t, res.External.Confidence)
}

func TestAggregator_Validate_RequiresFlightNumber(t *testing.T) {
	a := newTestAggregator(stubFlights{}, NameRegistry{}, NameRegistry{})

	res, err := a.Validate(context.Background(), Request{PassengerName: "JOHN DOE"})

	assert.Nil(t, res)
	assert.True(t, apperr.Is(err, apperr.KindValidationInput))
}

func TestRequestFrom(t *testing.T) {
	date := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)

	t.Run("prefers extracted values", func(t *testing.T) {
		req := RequestFrom(&model.FlightData{FlightNumber: "LA3456", PassengerName: "JOHN DOE", FlightDate: &date}, "G31234", "JANE")
		assert.Equal(t, Request{FlightNumber: "LA3456", PassengerName: "JOHN DOE", FlightDate: &date}, req)
	})

	t.Run("falls back to upload metadata", func(t *testing.T) {
		req := RequestFrom(&model.FlightData{}, "G31234", "JANE")
		assert.Equal(t, "G31234", req.FlightNumber)
		assert.Equal(t, "JANE", req.PassengerName)
	})

	t.Run("nil data", func(t *testing.T) {
		req := RequestFrom(nil, "G31234", "")
		assert.Equal(t, "G31234", req.FlightNumber)
	})
}
