package criteria

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/arnavshah/team-builder-go/pkg/errors"
	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// Kind selects how two values of a feature compare
type Kind int

const (
	// Categorical scores 1 for equal values
	Categorical Kind = iota
	// Numeric scores by normalized distance
	Numeric
	// Reversed scores 1 for different values
	Reversed
	// Proportional is categorical divided by the team capacity
	Proportional
	// Proximity scores the distance of two room locations
	Proximity
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "integer feature"
	case Reversed:
		return "reversed feature"
	case Proportional:
		return "proportional feature"
	case Proximity:
		return "room proximity"
	default:
		return "text feature"
	}
}

var roomPattern = regexp.MustCompile(`^([A-Za-z]+)[- ]?([0-9]+)[a-zA-Z]?$`)

// Feature is a similarity criterion over one attribute with fallbacks.
// The criterion is minimized, so a categorical feature spreads equal values
// across teams while a reversed one keeps them together.
type Feature struct {
	Kind  Kind
	Chain []string
	W     float64

	spread  int
	numbers []int
}

func NewFeature(kind Kind, weight float64, chain ...string) *Feature {
	return &Feature{Kind: kind, Chain: chain, W: weight}
}

// Key is the primary attribute name
func (f *Feature) Key() string { return f.Chain[0] }

func (f *Feature) Name() string { return f.Key() }

func (f *Feature) Weight() float64 { return f.W }

// Property resolves the attribute through the fallback chain
func (f *Feature) Property(p *models.Person) (string, bool) {
	return p.Attributes.Lookup(f.Chain...)
}

// Init parses numeric values and records the largest difference in the population
func (f *Feature) Init(m *scheduler.Model) error {
	if f.Kind != Numeric {
		return nil
	}
	f.spread = 0
	f.numbers = make([]int, len(m.People))
	lo, hi := 0, 0
	for i, p := range m.People {
		n, err := f.parse(p)
		if err != nil {
			return err
		}
		f.numbers[p.Index] = n
		if i == 0 || n < lo {
			lo = n
		}
		if i == 0 || n > hi {
			hi = n
		}
	}
	f.spread = hi - lo
	return nil
}

func (f *Feature) parse(p *models.Person) (int, error) {
	v, ok := f.Property(p)
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, errors.NewValidationError(f.Key(), fmt.Sprintf("person %s: %q is not an integer", p.ID, v))
	}
	return n, nil
}

func (f *Feature) number(p *models.Person) int {
	if f.numbers != nil && p.Index < len(f.numbers) {
		return f.numbers[p.Index]
	}
	n, _ := f.parse(p)
	return n
}

// Similar compares two persons
func (f *Feature) Similar(a, b *models.Person) float64 {
	switch f.Kind {
	case Numeric:
		if f.spread == 0 {
			return 1.0
		}
		diff := math.Abs(float64(f.number(a) - f.number(b)))
		return math.Max(0, float64(f.spread)-diff) / float64(f.spread)
	case Proximity:
		va, _ := f.Property(a)
		vb, _ := f.Property(b)
		return RoomDistance(va, vb)
	}
	va, oka := f.Property(a)
	vb, okb := f.Property(b)
	if !oka || !okb {
		return 0.0
	}
	if f.Kind == Reversed {
		if va == vb {
			return 0.0
		}
		return 1.0
	}
	if va == vb {
		return 1.0
	}
	return 0.0
}

func (f *Feature) Value(a *scheduler.Assignment, p models.Placement) float64 {
	var similar float64
	for _, other := range a.Context(p.Team).Members() {
		if other == p.Person {
			continue
		}
		similar += f.Similar(other, p.Person)
	}
	if f.Kind == Proportional && p.Team.Capacity > 0 {
		return similar / float64(p.Team.Capacity)
	}
	return similar
}

// TeamTotal counts every pair of the team once
func (f *Feature) TeamTotal(a *scheduler.Assignment, t *models.Team) float64 {
	var total float64
	for _, p := range a.Context(t).Members() {
		total += f.Value(a, models.Placement{Person: p, Team: t})
	}
	return total / 2.0
}

// Total counts every pair once
func (f *Feature) Total(a *scheduler.Assignment) float64 {
	var total float64
	for _, p := range a.Placements() {
		total += f.Value(a, p)
	}
	return total / 2.0
}

// RoomDistance compares two room locations such as CARYE110b. Rooms of
// different buildings are 1 apart, rooms on the same floor are much closer
// than rooms on different floors. Unparsable values fall back to the length
// of the common prefix; an empty value is distance 0.
func RoomDistance(va, vb string) float64 {
	l1, l2 := len(va), len(vb)
	if l1 == 0 || l2 == 0 {
		return 0.0
	}
	m1, m2 := roomPattern.FindStringSubmatch(va), roomPattern.FindStringSubmatch(vb)
	if m1 != nil && m2 != nil {
		if m1[1] != m2[1] {
			return 1.0
		}
		n1, _ := strconv.Atoi(m1[2])
		n2, _ := strconv.Atoi(m2[2])
		diff := math.Abs(float64(n1 - n2))
		if n1/100 == n2/100 {
			return diff / 10000.0
		}
		return diff / 500.0
	}
	longest := math.Max(float64(l1), float64(l2))
	for i := 0; i < l1 && i < l2; i++ {
		if va[i] != vb[i] {
			return 1.0 - float64(i)/longest
		}
	}
	return 1.0 - math.Min(float64(l1), float64(l2))/longest
}

// sameFloor tells whether two rooms share building and hundred block
func sameFloor(va, vb string) bool {
	if va == "" || vb == "" {
		return va == vb
	}
	m1, m2 := roomPattern.FindStringSubmatch(va), roomPattern.FindStringSubmatch(vb)
	if m1 == nil || m2 == nil || m1[1] != m2[1] {
		return false
	}
	n1, _ := strconv.Atoi(m1[2])
	n2, _ := strconv.Atoi(m2[2])
	return n1/100 == n2/100
}
