// Package validation cross-checks extracted flight data against the flight
// authority and the passenger registries.
package validation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"claimflow/internal/apperr"
	"claimflow/internal/model"
)

const (
	foundConfidence    = 0.9
	notFoundConfidence = 0.1

	externalWeight = 60.0
	internalWeight = 40.0
)

// Request is what the aggregator needs from the extracted data.
type Request struct {
	FlightNumber  string
	PassengerName string
	FlightDate    *time.Time
}

// RequestFrom builds a Request from extracted data, falling back to the
// values captured at upload when OCR missed them.
func RequestFrom(fd *model.FlightData, flightNumber, passengerName string) Request {
	req := Request{FlightNumber: flightNumber, PassengerName: passengerName}
	if fd == nil {
		return req
	}
	if fd.FlightNumber != "" {
		req.FlightNumber = fd.FlightNumber
	}
	if fd.PassengerName != "" {
		req.PassengerName = fd.PassengerName
	}
	req.FlightDate = fd.FlightDate
	return req
}

type Aggregator struct {
	flights   FlightAuthority
	primary   PassengerRegistry
	secondary PassengerRegistry
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewAggregator wires the three lookups. timeout bounds each lookup; zero means no bound.
func NewAggregator(flights FlightAuthority, primary, secondary PassengerRegistry, timeout time.Duration, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		flights:   flights,
		primary:   primary,
		secondary: secondary,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
	}
}

// Validate runs the lookups concurrently and blends their verdicts. The result is
// always returned; when a provider failed the error is a ProviderError as well.
func (a *Aggregator) Validate(ctx context.Context, req Request) (*model.ValidationResult, error) {
	req.FlightNumber = strings.TrimSpace(req.FlightNumber)
	if req.FlightNumber == "" {
		return nil, apperr.InvalidInput("flight number is required for validation")
	}

	var (
		external  *model.FlightAuthorityResult
		primary   model.RegistryCheck
		secondary model.RegistryCheck
		g         errgroup.Group
	)
	g.Go(func() error {
		var err error
		external, err = a.checkFlight(ctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		primary, err = a.checkRegistry(ctx, a.primary, req)
		return err
	})
	g.Go(func() error {
		var err error
		secondary, err = a.checkRegistry(ctx, a.secondary, req)
		return err
	})
	providerErr := g.Wait()

	now := a.now().UTC()
	internal := &model.InternalRegistryResult{
		IsValid:       primary.IsValid && secondary.IsValid,
		PassengerName: req.PassengerName,
		FlightNumber:  req.FlightNumber,
		Primary:       primary,
		Secondary:     secondary,
		ValidatedAt:   now,
		Error:         joinNonEmpty(primary.Error, secondary.Error),
	}

	result := &model.ValidationResult{
		FlightNumber: req.FlightNumber,
		IsValid:      external.IsValid && internal.IsValid,
		External:     external,
		Internal:     internal,
		ValidatedAt:  now,
	}
	if external.IsValid {
		result.Confidence += externalWeight
	}
	if internal.IsValid {
		result.Confidence += internalWeight
	}

	if providerErr != nil {
		a.logger.Warn("validation provider failure",
			zap.String("flight_number", req.FlightNumber), zap.Error(providerErr))
		return result, apperr.Provider(providerErr, "validation")
	}
	return result, nil
}

func (a *Aggregator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *Aggregator) checkFlight(ctx context.Context, req Request) (*model.FlightAuthorityResult, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res := &model.FlightAuthorityResult{FlightNumber: req.FlightNumber}
	info, err := a.flights.LookupFlight(ctx, req.FlightNumber, req.FlightDate)
	switch {
	case errors.Is(err, ErrFlightNotFound):
		res.Confidence = notFoundConfidence
		res.Error = ErrFlightNotFound.Error()
		return res, nil
	case err != nil:
		res.Error = err.Error()
		return res, err
	}

	res.IsValid = true
	res.Confidence = foundConfidence
	res.Airline = info.Airline
	res.Origin = info.Origin
	res.Destination = info.Destination
	res.ScheduledDeparture = info.ScheduledDeparture
	res.ActualDeparture = info.ActualDeparture
	res.Status = info.Status
	res.DelayMinutes = info.DelayMinutes
	return res, nil
}

func (a *Aggregator) checkRegistry(ctx context.Context, reg PassengerRegistry, req Request) (model.RegistryCheck, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	check := model.RegistryCheck{System: reg.System()}
	found, err := reg.PassengerExists(ctx, req.PassengerName, req.FlightNumber)
	check.CheckedAt = a.now().UTC()
	if err != nil {
		check.Error = err.Error()
		return check, err
	}
	check.IsValid = found
	check.PassengerFound = found
	return check, nil
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "; ")
}
