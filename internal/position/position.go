// Package position reads the AIS position log of the vessel and derives the
// track shown on the route maps.
package position

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"time"

	"github.com/couchcryptid/vessel-energy-etl/internal/routes"
	"github.com/couchcryptid/vessel-energy-etl/internal/series"
)

// ErrEmptyTrack is returned when an operation needs at least one position.
var ErrEmptyTrack = errors.New("empty track")

// latitudePad extends the southern map bound so landmark labels stay inside
// the frame.
const latitudePad = 0.002

// Point is one AIS fix.
type Point struct {
	Time time.Time
	Lat  float64
	Lon  float64
}

// Track is a time ordered list of fixes.
type Track struct {
	Points []Point
}

// Landmark is a fixed reference position drawn on track charts.
type Landmark struct {
	Lat  float64
	Lon  float64
	Name string
}

// Landmarks around the Trondheim fjord trial area.
var Landmarks = []Landmark{
	{63.4575, 10.3723, "SINTEF DataBuoy"},
	{63.4511, 10.3833, "Munkholmen"},
	{63.4371, 10.3972, "NTNU/SINTEF SeaLab"},
	{63.4464, 10.4167, "Lighthouse"},
}

// Bounds is the lon/lat frame of a track.
type Bounds struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

type aisRecord struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Time      string  `json:"date_time_utc"`
}

// Load reads an AIS export: a JSON array of
// {"latitude", "longitude", "date_time_utc"} objects.
func Load(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open position log: %w", err)
	}
	defer f.Close()

	tr, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return tr, nil
}

// Decode parses an AIS export and orders it by time.
func Decode(r io.Reader) (*Track, error) {
	var recs []aisRecord
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode position log: %w", err)
	}

	tr := &Track{Points: make([]Point, 0, len(recs))}
	for i, rec := range recs {
		ts, err := series.ParseTimestamp(rec.Time)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i+1, err)
		}
		tr.Points = append(tr.Points, Point{Time: ts, Lat: rec.Latitude, Lon: rec.Longitude})
	}
	slices.SortStableFunc(tr.Points, func(a, b Point) int { return a.Time.Compare(b.Time) })
	return tr, nil
}

func (t *Track) Len() int { return len(t.Points) }

// Window returns the fixes that fall inside the route.
func (t *Track) Window(r routes.Route) *Track {
	out := &Track{}
	for _, p := range t.Points {
		if r.Contains(p.Time) {
			out.Points = append(out.Points, p)
		}
	}
	return out
}

// Bounds returns the frame enclosing every fix, with the southern edge padded.
func (t *Track) Bounds() (Bounds, error) {
	if len(t.Points) == 0 {
		return Bounds{}, ErrEmptyTrack
	}
	b := Bounds{
		MinLon: math.Inf(1), MaxLon: math.Inf(-1),
		MinLat: math.Inf(1), MaxLat: math.Inf(-1),
	}
	for _, p := range t.Points {
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
	}
	b.MinLat -= latitudePad
	return b, nil
}

// DistanceNM is the sailed distance along the track in nautical miles.
func (t *Track) DistanceNM() float64 {
	var d float64
	for i := 1; i < len(t.Points); i++ {
		a, b := t.Points[i-1], t.Points[i]
		d += DistanceNM(a.Lat, a.Lon, b.Lat, b.Lon)
	}
	return d
}

// Coordinates returns the longitudes and latitudes of the track as parallel
// slices, ready to plot with longitude on the x axis.
func (t *Track) Coordinates() (lons, lats []float64) {
	lons = make([]float64, len(t.Points))
	lats = make([]float64, len(t.Points))
	for i, p := range t.Points {
		lons[i], lats[i] = p.Lon, p.Lat
	}
	return lons, lats
}

// DistanceNM is the great circle distance between two positions in nautical
// miles (haversine).
func DistanceNM(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 3440.065 // Earth's radius in nautical miles
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}
