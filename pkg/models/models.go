package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Attributes is the open property bag of a person, keyed by column name
type Attributes map[string]string

// Get returns the value stored under key
func (a Attributes) Get(key string) (string, bool) {
	v, ok := a[key]
	return v, ok
}

// Set stores a value; an empty value removes the key
func (a Attributes) Set(key, value string) {
	if value == "" {
		delete(a, key)
		return
	}
	a[key] = value
}

// Lookup walks the fallback chain and returns the first value present
func (a Attributes) Lookup(chain ...string) (string, bool) {
	for _, key := range chain {
		if v, ok := a[key]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Clone copies the attributes
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Int parses the value stored under key; a missing value yields def
func (a Attributes) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("attribute %q: %q is not an integer", key, v)
	}
	return n, nil
}

// Person is a student (or a team lead) to be placed into a team
type Person struct {
	Index         int        `json:"-"`
	ID            string     `json:"id"`
	Attributes    Attributes `json:"attributes"`
	Weight        int        `json:"weight"`
	Leader        bool       `json:"leader,omitempty"`
	International bool       `json:"international,omitempty"`
}

// NewPerson creates a person with the default capacity weight of one
func NewPerson(id string, attrs Attributes) *Person {
	if attrs == nil {
		attrs = Attributes{}
	}
	return &Person{ID: id, Attributes: attrs, Weight: 1}
}

func (p *Person) String() string {
	return p.ID
}

// Team is a fixed capacity container, optionally with a designated lead
type Team struct {
	Index    int     `json:"-"`
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Capacity int     `json:"capacity"`
	Lead     *Person `json:"lead,omitempty"`

	eligible map[*Person]struct{}
}

// Admit restricts the team to the given persons (in addition to those admitted before)
func (t *Team) Admit(people ...*Person) {
	if t.eligible == nil {
		t.eligible = make(map[*Person]struct{}, len(people))
	}
	for _, p := range people {
		t.eligible[p] = struct{}{}
	}
}

// Admits tells whether the person may be placed into the team
func (t *Team) Admits(p *Person) bool {
	if t.eligible == nil {
		return true
	}
	_, ok := t.eligible[p]
	return ok
}

// Restricted is true when the team only admits an explicit list of persons
func (t *Team) Restricted() bool {
	return t.eligible != nil
}

// InternationalLead is true when the team is led by an international lead
func (t *Team) InternationalLead() bool {
	return t.Lead != nil && t.Lead.International
}

func (t *Team) String() string {
	return t.Name
}

// Placement is a person assigned to a team; it is a value, two placements
// naming the same pair are equal
type Placement struct {
	Person *Person
	Team   *Team
}

// Valid reports whether both sides of the placement are set
func (p Placement) Valid() bool {
	return p.Person != nil && p.Team != nil
}

func (p Placement) String() string {
	if !p.Valid() {
		return "<none>"
	}
	return p.Person.ID + "->" + p.Team.Name
}

// UnassignedReason records why a person could not be placed
type UnassignedReason struct {
	PersonID string   `json:"person_id"`
	Group    string   `json:"group,omitempty"`
	Reasons  []string `json:"reasons"`
}
