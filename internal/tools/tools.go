// Package tools answers queries that are calculations or unit conversions.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/kvaesitso/kvs/internal/bus"
	"github.com/kvaesitso/kvs/internal/search"
	"go.uber.org/zap"
)

// RateSource supplies currency rates per euro.
type RateSource interface {
	Rates(ctx context.Context) (map[string]float64, time.Time, error)
}

// Calculator returns the calculator repository.
func Calculator() search.Repository[search.Calculator] {
	return search.RepositoryFunc[search.Calculator](func(ctx context.Context, q string, _ bool, emit func([]search.Calculator)) error {
		emit(calculate(q))
		return nil
	})
}

func calculate(q string) []search.Calculator {
	e, err := Eval(q)
	if err != nil || (e.trivial && !e.based) {
		return nil
	}
	c := search.Calculator{
		Expression: e.src,
		Value:      e.value,
		Formatted:  FormatNumber(e.value),
	}
	if e.based {
		c.Alternates = alternates(e.value)
	}
	return []search.Calculator{c}
}

// Converter serves unit and currency conversions.
type Converter struct {
	rates  RateSource
	bus    *bus.Bus
	logger *zap.Logger
}

// NewConverter creates a Converter. rates and b may be nil; without rates
// only physical units convert, without a bus currency results are not
// refreshed when rates change.
func NewConverter(rates RateSource, b *bus.Bus, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{rates: rates, bus: b, logger: logger}
}

// Search implements search.Repository.
func (c *Converter) Search(ctx context.Context, q string, _ bool, emit func([]search.UnitConverter)) error {
	conv, ok := ParseConversion(q)
	if !ok {
		emit(nil)
		return nil
	}
	if res, ok := Convert(conv); ok {
		emit([]search.UnitConverter{res})
		return nil
	}
	if c.rates == nil {
		emit(nil)
		return nil
	}

	var changed <-chan struct{}
	if c.bus != nil {
		sig, stop := c.bus.Watch(bus.KindStoreRates)
		defer stop()
		changed = sig
	}

	for {
		res, err := c.currency(ctx, conv)
		if err != nil {
			return err
		}
		emit(res)
		if changed == nil {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Converter) currency(ctx context.Context, conv Conversion) ([]search.UnitConverter, error) {
	rates, updated, err := c.rates.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}
	if len(rates) < 2 {
		return nil, nil
	}
	res, ok := ConvertCurrency(conv, rates)
	if !ok {
		return nil, nil
	}
	c.logger.Debug("currency conversion", zap.Stringer("request", conv), zap.Time("rates_updated", updated))
	return []search.UnitConverter{res}, nil
}
