package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/vessel-energy-etl/internal/position"
	"github.com/couchcryptid/vessel-energy-etl/internal/routes"
	"github.com/couchcryptid/vessel-energy-etl/internal/selection"
	"github.com/couchcryptid/vessel-energy-etl/internal/series"
)

// Source gives report builders the series of one scope: the whole voyage, or
// a single route window.
type Source struct {
	inv     *selection.Inventory
	loader  SeriesLoader
	route   *routes.Route
	catalog routes.Catalog
	track   *position.Track
}

// Route returns the route the source is restricted to, or nil for the whole
// voyage.
func (s *Source) Route() *routes.Route { return s.route }

// Catalog returns every configured route.
func (s *Source) Catalog() routes.Catalog { return s.catalog }

// Track returns the AIS track, or nil when none is configured.
func (s *Source) Track() *position.Track { return s.track }

// Engines loads the signals of kind for every engine in service, by engine index.
func (s *Source) Engines(ctx context.Context, kind selection.Kind) ([]*series.TimeSeries, error) {
	return s.loadAll(ctx, s.inv.Engines(kind))
}

// EnginesByIndex is Engines keyed by engine index.
func (s *Source) EnginesByIndex(ctx context.Context, kind selection.Kind) (map[int]*series.TimeSeries, error) {
	sigs := s.inv.Engines(kind)
	out := make(map[int]*series.TimeSeries, len(sigs))
	for _, sig := range sigs {
		ts, err := s.load(ctx, sig)
		if err != nil {
			return nil, err
		}
		out[sig.Engine] = ts
	}
	return out, nil
}

// Thrusters loads the signals of kind for both thrusters, port first.
func (s *Source) Thrusters(ctx context.Context, kind selection.Kind) ([]*series.TimeSeries, error) {
	return s.loadAll(ctx, s.inv.Thrusters(kind))
}

// Vessel loads the vessel level signals of kind.
func (s *Source) Vessel(ctx context.Context, kind selection.Kind) ([]*series.TimeSeries, error) {
	return s.loadAll(ctx, s.inv.Vessel(kind))
}

func (s *Source) loadAll(ctx context.Context, sigs []selection.Signal) ([]*series.TimeSeries, error) {
	out := make([]*series.TimeSeries, 0, len(sigs))
	for _, sig := range sigs {
		ts, err := s.load(ctx, sig)
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, nil
}

func (s *Source) load(ctx context.Context, sig selection.Signal) (*series.TimeSeries, error) {
	ts, err := s.loader.Load(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", sig.Label, err)
	}
	if s.route != nil {
		ts = s.route.Apply(ts)
	}
	return ts, nil
}
