package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/arnavshah/team-builder-go/pkg/loader"
	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// Writer renders a solved build
type Writer struct {
	build *loader.Build
	a     *scheduler.Assignment
}

func New(build *loader.Build, a *scheduler.Assignment) *Writer {
	return &Writer{build: build, a: a}
}

// personFields are the person columns, with the group column appended when the input lacked it
func (w *Writer) personFields() []string {
	fields := append([]string(nil), w.build.PersonFields...)
	if g := w.build.GroupAttribute; g != "" && !contains(fields, g) {
		fields = append(fields, g)
	}
	return fields
}

func (w *Writer) leadFields() []string {
	fields := append([]string(nil), w.build.LeadFields...)
	if g := w.build.GroupAttribute; g != "" && !contains(fields, g) {
		fields = append(fields, g)
	}
	return fields
}

// leadValue reads an attribute of the lead; a missing group is taken from the first member
func (w *Writer) leadValue(t *models.Team, key string) string {
	if v, ok := t.Lead.Attributes.Get(key); ok {
		return v
	}
	if key == w.build.GroupAttribute {
		if members := w.a.Context(t).SortedMembers(); len(members) > 0 {
			return members[0].Attributes[key]
		}
	}
	return ""
}

func values(p *models.Person, fields []string) []string {
	row := make([]string, len(fields))
	for i, f := range fields {
		row[i] = p.Attributes[f]
	}
	return row
}

// Assignments writes one row per placed person. Teams with a lead start with
// "TL <column>" columns that carry the lead only on the first row of the
// team; a team without members still gets a row for its lead.
func (w *Writer) Assignments(out io.Writer) error {
	cw := csv.NewWriter(out)
	fields := w.personFields()
	var lead []string
	if w.build.Variant == "leads" {
		lead = w.leadFields()
	}

	header := []string{"Team"}
	for _, f := range lead {
		header = append(header, "TL "+f)
	}
	header = append(header, fields...)
	if err := cw.Write(header); err != nil {
		return err
	}

	empty := make([]string, len(fields))
	for _, t := range w.build.Model.Teams {
		members := w.a.Context(t).SortedMembers()
		if len(members) == 0 && t.Lead == nil {
			continue
		}
		first := true
		row := func(p *models.Person) []string {
			r := []string{t.Name}
			for _, f := range lead {
				if first {
					r = append(r, w.leadValue(t, f))
				} else {
					r = append(r, "")
				}
			}
			first = false
			if p == nil {
				return append(r, empty...)
			}
			return append(r, values(p, fields)...)
		}
		if len(members) == 0 {
			if err := cw.Write(row(nil)); err != nil {
				return err
			}
			continue
		}
		for _, p := range members {
			if err := cw.Write(row(p)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Leads writes the lead table with the derived group column
func (w *Writer) Leads(out io.Writer) error {
	cw := csv.NewWriter(out)
	fields := w.leadFields()
	if err := cw.Write(append([]string{"Team"}, fields...)); err != nil {
		return err
	}
	for _, t := range w.build.Model.Teams {
		if t.Lead == nil {
			continue
		}
		r := []string{t.Name}
		for _, f := range fields {
			r = append(r, w.leadValue(t, f))
		}
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Info is the criteria statistics of the model extended by the team size
// distribution
func (w *Writer) Info() map[string]string {
	info := w.build.Model.Info(w.a)
	w.sizes(info, false)
	if w.build.InternationalSize > 0 {
		w.sizes(info, true)
	}
	return info
}

func (w *Writer) sizes(info map[string]string, international bool) {
	kind, label := "", "Average Team Size"
	if international {
		kind, label = "international ", "Average International Team Size"
	}
	byCount := make(map[int]map[string]int)
	var counts []float64
	for _, t := range w.build.Model.Teams {
		if international && !t.InternationalLead() {
			continue
		}
		cx := w.a.Context(t)
		n := cx.Size()
		if international {
			n = cx.InternationalSize()
		}
		counts = append(counts, float64(n))
		if byCount[n] == nil {
			byCount[n] = make(map[string]int)
		}
		group := ""
		if t.Lead != nil {
			group = w.leadValue(t, w.build.GroupAttribute)
		}
		byCount[n][group]++
	}
	if len(counts) == 0 {
		return
	}
	for n, groups := range byCount {
		total := 0
		for _, c := range groups {
			total += c
		}
		value := fmt.Sprint(total)
		if h := histogram(groups); h != "" {
			value += " " + h
		}
		info[fmt.Sprintf("Team of %s%02d students", kind, n)] = value
	}

	mean, lo, hi := 0.0, math.Inf(1), math.Inf(-1)
	for _, c := range counts {
		mean += c
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	mean /= float64(len(counts))
	var rms float64
	for _, c := range counts {
		rms += (c - mean) * (c - mean)
	}
	rms = math.Sqrt(rms / float64(len(counts)))
	info[label] = fmt.Sprintf("%.2f +/- %.2f [%d..%d]", mean, rms, int(lo), int(hi))
}

func histogram(groups map[string]int) string {
	keys := make([]string, 0, len(groups))
	for g := range groups {
		if g != "" {
			keys = append(keys, g)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, g := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", g, groups[g]))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Report writes the free text summary: sizing lines, the statistics and
// every team with its lead and members
func (w *Writer) Report(out io.Writer, unassigned []models.UnassignedReason) error {
	bw := bufio.NewWriter(out)
	for _, line := range w.build.Summary {
		fmt.Fprintln(bw, line)
	}

	info := w.Info()
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(bw, "Info:")
	for _, k := range keys {
		fmt.Fprintf(bw, "  %s: %s\n", k, info[k])
	}
	fmt.Fprintln(bw)

	header := []string{w.idColumn(), "International"}
	if w.build.GroupAttribute != "" {
		header = append(header, w.build.GroupAttribute)
	}
	for _, f := range w.build.Features {
		header = append(header, f.Key())
	}
	fmt.Fprintln(bw, strings.Join(header, ","))

	for _, t := range w.build.Model.Teams {
		members := w.a.Context(t).SortedMembers()
		if t.Lead != nil {
			fmt.Fprintf(bw, "%s: %s\n", t.Name, w.line(t.Lead, w.leadValue(t, w.build.GroupAttribute)))
		} else {
			fmt.Fprintf(bw, "%s:\n", t.Name)
		}
		for i, p := range members {
			fmt.Fprintf(bw, "  [%02d]  %s\n", i+1, w.line(p, p.Attributes[w.build.GroupAttribute]))
		}
	}

	if len(unassigned) > 0 {
		fmt.Fprintln(bw)
		fmt.Fprintf(bw, "Unassigned (%d):\n", len(unassigned))
		for _, u := range unassigned {
			fmt.Fprintf(bw, "  %s: %s\n", u.PersonID, strings.Join(u.Reasons, ", "))
		}
	}
	return bw.Flush()
}

func (w *Writer) idColumn() string {
	if w.build.IDAttribute != "" {
		return w.build.IDAttribute
	}
	return "ID"
}

func (w *Writer) line(p *models.Person, group string) string {
	intl := "No"
	if p.International {
		intl = "Yes"
	}
	parts := []string{p.ID, intl}
	if w.build.GroupAttribute != "" {
		parts = append(parts, group)
	}
	for _, f := range w.build.Features {
		v, _ := f.Property(p)
		parts = append(parts, v)
	}
	return strings.Join(parts, ",")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
