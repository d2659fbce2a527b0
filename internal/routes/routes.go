// Package routes holds the named time windows of a voyage that reports are
// sliced by.
package routes

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/vessel-energy-etl/internal/series"
)

// ErrInvalidCatalog is returned when a catalog fails validation.
var ErrInvalidCatalog = errors.New("invalid route catalog")

// Route is a named window. A nil End leaves the window open towards the end
// of the data.
type Route struct {
	Name  string
	Start time.Time
	End   *time.Time
}

// Catalog is an ordered list of routes.
type Catalog []Route

// Default returns the windows of the 2024-09-10 sea trial.
func Default() Catalog {
	day := func(h, m, s int) time.Time { return time.Date(2024, time.September, 10, h, m, s, 0, time.UTC) }
	end := func(h, m, s int) *time.Time { t := day(h, m, s); return &t }

	return Catalog{
		{Name: "complete route", Start: day(6, 30, 0), End: end(7, 44, 0)},
		{Name: "RPM control", Start: day(6, 40, 0), End: end(6, 57, 0)},
		{Name: "load control", Start: day(6, 57, 35), End: end(7, 5, 45)},
		{Name: "idle", Start: day(7, 22, 0), End: end(7, 36, 0)},
	}
}

type fileRoute struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type fileCatalog struct {
	Routes []fileRoute `yaml:"routes"`
}

// Load reads a YAML route catalog:
//
//	routes:
//	  - name: idle
//	    start: 2024-09-10T07:22:00Z
//	    end: 2024-09-10T07:36:00Z
//
// Timestamps are RFC 3339. An omitted end leaves the route open.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route catalog: %w", err)
	}
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse route catalog: %w", err)
	}

	cat := make(Catalog, 0, len(fc.Routes))
	for i, fr := range fc.Routes {
		start, err := time.Parse(time.RFC3339, fr.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: route %d start: %w", ErrInvalidCatalog, i+1, err)
		}
		r := Route{Name: fr.Name, Start: start.UTC()}
		if fr.End != "" {
			end, err := time.Parse(time.RFC3339, fr.End)
			if err != nil {
				return nil, fmt.Errorf("%w: route %d end: %w", ErrInvalidCatalog, i+1, err)
			}
			end = end.UTC()
			r.End = &end
		}
		cat = append(cat, r)
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Validate checks that names are non-empty and unique and every window
// starts before it ends.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no routes", ErrInvalidCatalog)
	}
	seen := make(map[string]bool, len(c))
	for i, r := range c {
		if r.Name == "" {
			return fmt.Errorf("%w: route %d has no name", ErrInvalidCatalog, i+1)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate route %q", ErrInvalidCatalog, r.Name)
		}
		seen[r.Name] = true
		if r.End != nil && !r.Start.Before(*r.End) {
			return fmt.Errorf("%w: route %q ends before it starts", ErrInvalidCatalog, r.Name)
		}
	}
	return nil
}

// Apply returns the samples of s inside the route window, bounds inclusive.
func (r Route) Apply(s *series.TimeSeries) *series.TimeSeries {
	end := s.End()
	if r.End != nil {
		end = *r.End
	}
	return series.FilterDate(s, r.Start, end)
}

// Contains reports whether t falls inside the route window.
func (r Route) Contains(t time.Time) bool {
	if t.Before(r.Start) {
		return false
	}
	return r.End == nil || !t.After(*r.End)
}

// Dir is the output subdirectory for the route's reports.
func (r Route) Dir() string {
	return slug.Make(r.Name)
}

func (r Route) String() string {
	if r.End == nil {
		return fmt.Sprintf("%s [%s, open)", r.Name, r.Start.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s [%s, %s]", r.Name, r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}
