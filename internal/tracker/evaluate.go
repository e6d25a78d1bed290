// Package tracker decides which zones a location sample falls in and
// derives entry/exit edges against a per-user baseline.
package tracker

import (
	"sort"
	"time"

	"github.com/bwise1/geoplaylists/internal/geo"
	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/google/uuid"
)

// Sample is a single location reading.
type Sample struct {
	Coordinate geo.Coordinate
	At         time.Time
}

// IDSet is a set of zone ids. A nil IDSet behaves as the empty set.
type IDSet map[uuid.UUID]struct{}

func NewIDSet(ids ...uuid.UUID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// Minus returns the ids in s that are not in other.
func (s IDSet) Minus(other IDSet) IDSet {
	out := IDSet{}
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Slice returns the ids in a stable order.
func (s IDSet) Slice() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Result is the outcome of evaluating one sample.
type Result struct {
	Active    IDSet
	Entered   IDSet
	Exited    IDSet
	Distances map[uuid.UUID]float64
}

// InRange reports whether c lies inside zone z. The boundary is inclusive.
// Disabled and unanchored zones are never in range.
func InRange(z model.Zone, c geo.Coordinate) (bool, float64) {
	if !z.IsActive || z.Location == nil {
		return false, 0
	}
	d := geo.DistanceMeters(c, *z.Location)
	return d <= z.Radius, d
}

// Evaluate computes the active set for sample and diffs it against previous.
// There is no hysteresis: a sample oscillating on a boundary produces an edge every time.
func Evaluate(sample Sample, zones []model.Zone, previous IDSet) Result {
	res := Result{
		Active:    IDSet{},
		Distances: make(map[uuid.UUID]float64, len(zones)),
	}

	for _, z := range zones {
		if !z.IsActive || z.Location == nil {
			continue
		}
		in, d := InRange(z, sample.Coordinate)
		res.Distances[z.ID] = d
		if in {
			res.Active[z.ID] = struct{}{}
		}
	}

	res.Entered = res.Active.Minus(previous)
	res.Exited = previous.Minus(res.Active)
	return res
}
