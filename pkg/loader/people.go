package loader

import (
	"fmt"
	"strings"

	"github.com/arnavshah/team-builder-go/pkg/config"
	"github.com/arnavshah/team-builder-go/pkg/logger"
	"github.com/arnavshah/team-builder-go/pkg/models"
)

// Other is the group of a residence hall missing from the hall map
const Other = "OTHER"

// DefaultHallGroups maps residence halls to their groups when the
// configuration does not provide a map
var DefaultHallGroups = map[string]string{
	"Harrison Hall":             "McHarrison",
	"Hawkins Hall":              "McHarrison",
	"McCutcheon Hall":           "McHarrison",
	"Cary Quadrangle":           "OOC",
	"Off Campus":                "OOC",
	"Owen Hall":                 "OOC",
	"Shreve Hall":               "Shrevehart",
	"Earhart Hall":              "Shrevehart",
	"First Street Towers":       "TWHop",
	"Hilltop Apartments":        "TWHop",
	"Purdue Village":            "TWHop",
	"Tarkington Hall":           "TWHop",
	"Wiley Hall":                "TWHop",
	"Honors College Residences": "WHoMT",
	"Hillenbrand Hall":          "WHoMT",
	"Meredith Hall":             "WHoMT",
	"Third Street Suites":       "WHoMT",
	"Windsor Halls":             "WHoMT",
}

// Reader turns table rows into persons
type Reader struct {
	IDAttribute    string
	International  map[string]string
	GroupAttribute string
	HallAttributes []string
	// HallGroups is matched case-insensitively
	HallGroups map[string]string

	log *logger.Logger
}

// NewReader configures a Reader from the teams section of the configuration
func NewReader(t config.Teams, log *logger.Logger) *Reader {
	halls := t.HallGroups
	if len(halls) == 0 {
		halls = DefaultHallGroups
	}
	groups := make(map[string]string, len(halls))
	for hall, group := range halls {
		groups[strings.ToLower(hall)] = group
	}
	return &Reader{
		IDAttribute:    t.IDAttribute,
		International:  t.InternationalFlags(),
		GroupAttribute: t.GroupAttribute,
		HallAttributes: t.HallAttributes,
		HallGroups:     groups,
		log:            log,
	}
}

// IsInternational checks the configured flag columns, ignoring case
func (r *Reader) IsInternational(attrs models.Attributes) bool {
	for key, want := range r.International {
		if v, ok := attrs.Get(key); ok && strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// FillGroup derives the group attribute from the residence hall when the row has none
func (r *Reader) FillGroup(p *models.Person) {
	if r.GroupAttribute == "" || len(r.HallAttributes) == 0 {
		return
	}
	if _, ok := p.Attributes.Get(r.GroupAttribute); ok {
		return
	}
	hall, ok := p.Attributes.Lookup(r.HallAttributes...)
	if !ok {
		return
	}
	group, ok := r.HallGroups[strings.ToLower(hall)]
	if !ok {
		r.log.WithFields(map[string]interface{}{
			"person": p.ID,
			"hall":   hall,
		}).Error("unknown residence hall")
		group = Other
	}
	p.Attributes.Set(r.GroupAttribute, group)
}

// Persons converts every row; rows without an identifier are numbered by
// prefix and position
func (r *Reader) Persons(t *Table, prefix string) []*models.Person {
	people := make([]*models.Person, 0, len(t.Rows))
	for i, row := range t.Rows {
		id, ok := row.Get(r.IDAttribute)
		if !ok {
			id = fmt.Sprintf("%s%d", prefix, i+1)
		}
		p := models.NewPerson(id, row.Clone())
		p.International = r.IsInternational(p.Attributes)
		r.FillGroup(p)
		people = append(people, p)
	}
	return people
}
