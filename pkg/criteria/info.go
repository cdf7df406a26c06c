package criteria

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// Dispersion describes how the holders of one value spread over the teams
type Dispersion struct {
	Value   string
	Total   int
	Mean    float64
	StdDev  float64
	Min     int
	Max     int
	Penalty int
	// Histogram maps a per-team count to the number of teams with that count
	Histogram map[int]int
}

// Dispersions computes the per-value statistics of a feature
func (f *Feature) Dispersions(a *scheduler.Assignment) []Dispersion {
	m := a.Model()
	totals := make(map[string]int)
	for _, p := range m.People {
		if v, ok := f.Property(p); ok {
			totals[v]++
		}
	}
	values := make([]string, 0, len(totals))
	for v := range totals {
		values = append(values, v)
	}
	sort.Strings(values)

	teams := len(m.Teams)
	out := make([]Dispersion, 0, len(values))
	for _, v := range values {
		d := Dispersion{Value: v, Total: totals[v], Min: math.MaxInt, Max: math.MinInt, Histogram: make(map[int]int)}
		d.Mean = float64(d.Total) / float64(teams)
		var rms float64
		for _, t := range m.Teams {
			cnt := 0
			for _, s := range a.Context(t).Members() {
				if sv, ok := f.Property(s); ok && sv == v {
					cnt++
				}
			}
			d.Min = min(d.Min, cnt)
			d.Max = max(d.Max, cnt)
			rms += math.Pow(float64(cnt)-d.Mean, 2)
			d.Penalty += cnt * (cnt - 1) / 2
			d.Histogram[cnt]++
		}
		d.StdDev = math.Sqrt(rms / float64(teams))
		out = append(out, d)
	}
	return out
}

func formatHistogram(h map[int]int) string {
	keys := make([]int, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d=%d", k, h[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Info adds the total and the dispersion of every value that occurs more than once in a team
func (f *Feature) Info(a *scheduler.Assignment, info map[string]string) {
	key := f.Key()
	info[key] = formatFloat(f.Total(a))
	switch f.Kind {
	case Numeric:
		f.numericInfo(a, info)
		return
	case Proximity:
		f.proximityInfo(a, info)
		return
	}
	for _, d := range f.Dispersions(a) {
		if d.Max > 1 {
			info[fmt.Sprintf("%s [%s]", key, d.Value)] = fmt.Sprintf("%.2f (%d: %d..%d) p=%d", d.StdDev, d.Total, d.Min, d.Max, d.Penalty)
		}
		info[fmt.Sprintf("%s H[%s]", key, d.Value)] = formatHistogram(d.Histogram)
	}
}

func (f *Feature) numericInfo(a *scheduler.Assignment, info map[string]string) {
	m := a.Model()
	lo, hi, total := math.MaxFloat64, -math.MaxFloat64, 0.0
	averages := make([]float64, 0, len(m.Teams))
	for _, t := range m.Teams {
		members := a.Context(t).Members()
		if len(members) == 0 {
			continue
		}
		sum, mi, mx := 0, math.MaxInt, math.MinInt
		for _, s := range members {
			n := f.number(s)
			sum += n
			mi = min(mi, n)
			mx = max(mx, n)
		}
		avg := float64(sum) / float64(len(members))
		averages = append(averages, avg)
		lo, hi, total = math.Min(lo, avg), math.Max(hi, avg), total+avg
		info[fmt.Sprintf("%s [%s]", f.Key(), t.Name)] = fmt.Sprintf("%.2f (%d..%d)", avg, mi, mx)
	}
	if len(averages) == 0 {
		return
	}
	mean := total / float64(len(averages))
	var rms float64
	for _, avg := range averages {
		rms += math.Pow(avg-mean, 2)
	}
	info[f.Key()+" [Average]"] = fmt.Sprintf("%.2f +/- %.2f (%.2f..%.2f)", mean, math.Sqrt(rms/float64(len(averages))), lo, hi)
}

func (f *Feature) proximityInfo(a *scheduler.Assignment, info map[string]string) {
	pairs, same := 0, 0
	for _, t := range a.Model().Teams {
		members := a.Context(t).SortedMembers()
		for i := range members {
			vi, _ := f.Property(members[i])
			for j := i + 1; j < len(members); j++ {
				vj, _ := f.Property(members[j])
				pairs++
				if sameFloor(vi, vj) {
					same++
				}
			}
		}
	}
	if pairs > 0 {
		info[f.Key()+" [Same Floor]"] = fmt.Sprintf("%.2f%%", 100.0*float64(same)/float64(pairs))
	}
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// memberCount is the size of a team, or of its international subset
func memberCount(cx *scheduler.TeamContext, international bool) int {
	if international {
		return cx.InternationalSize()
	}
	return cx.Size()
}

func containsMember(cx *scheduler.TeamContext, p *models.Person, international bool) bool {
	if international {
		return cx.ContainsInternational(p)
	}
	return cx.Contains(p)
}
