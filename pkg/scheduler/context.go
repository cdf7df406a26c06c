package scheduler

import (
	"fmt"
	"sort"

	"github.com/arnavshah/team-builder-go/pkg/models"
)

// memberSet is an insertion ordered set with O(1) add and remove
type memberSet struct {
	items []*models.Person
	pos   map[*models.Person]int
}

func newMemberSet() memberSet {
	return memberSet{pos: make(map[*models.Person]int)}
}

func (s *memberSet) add(p *models.Person) {
	s.pos[p] = len(s.items)
	s.items = append(s.items, p)
}

func (s *memberSet) remove(p *models.Person) {
	i, ok := s.pos[p]
	if !ok {
		return
	}
	last := len(s.items) - 1
	if i != last {
		moved := s.items[last]
		s.items[i] = moved
		s.pos[moved] = i
	}
	s.items[last] = nil
	s.items = s.items[:last]
	delete(s.pos, p)
}

func (s *memberSet) contains(p *models.Person) bool {
	_, ok := s.pos[p]
	return ok
}

// TeamContext is the aggregate state of one team within one assignment.
// It is updated synchronously by the placed/unplaced hooks and never
// recomputed while a search is running.
type TeamContext struct {
	team           *models.Team
	members        memberSet
	internationals memberSet
	occupancy      int
}

func newTeamContext(team *models.Team) *TeamContext {
	return &TeamContext{
		team:           team,
		members:        newMemberSet(),
		internationals: newMemberSet(),
	}
}

func (c *TeamContext) placed(p *models.Person) {
	c.members.add(p)
	if p.International {
		c.internationals.add(p)
	}
	c.occupancy += p.Weight
}

func (c *TeamContext) unplaced(p *models.Person) {
	c.members.remove(p)
	if p.International {
		c.internationals.remove(p)
	}
	c.occupancy -= p.Weight
}

// Team returns the team this context belongs to
func (c *TeamContext) Team() *models.Team { return c.team }

// Members returns the current members. The slice is owned by the context:
// it must not be modified and is only valid until the next mutation.
func (c *TeamContext) Members() []*models.Person { return c.members.items }

// InternationalMembers returns the current international members, same ownership rules as Members
func (c *TeamContext) InternationalMembers() []*models.Person { return c.internationals.items }

// Contains tells whether the person is currently a member
func (c *TeamContext) Contains(p *models.Person) bool { return c.members.contains(p) }

// ContainsInternational tells whether the person is a current international member
func (c *TeamContext) ContainsInternational(p *models.Person) bool {
	return c.internationals.contains(p)
}

// Size is the number of members
func (c *TeamContext) Size() int { return len(c.members.items) }

// InternationalSize is the number of international members
func (c *TeamContext) InternationalSize() int { return len(c.internationals.items) }

// Occupancy is the weighted number of members
func (c *TeamContext) Occupancy() int { return c.occupancy }

// OccupancyIfAdded is the occupancy the team would have with p
func (c *TeamContext) OccupancyIfAdded(p *models.Person) int {
	if c.members.contains(p) {
		return c.occupancy
	}
	return c.occupancy + p.Weight
}

// SortedMembers returns a copy of the members ordered by identifier
func (c *TeamContext) SortedMembers() []*models.Person {
	out := make([]*models.Person, len(c.members.items))
	copy(out, c.members.items)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// diff compares two contexts of the same team and describes every difference
func (c *TeamContext) diff(other *TeamContext) []string {
	var details []string
	if c.Size() != other.Size() {
		details = append(details, fmt.Sprintf("size %d != %d", c.Size(), other.Size()))
	}
	if c.InternationalSize() != other.InternationalSize() {
		details = append(details, fmt.Sprintf("international size %d != %d", c.InternationalSize(), other.InternationalSize()))
	}
	if c.occupancy != other.occupancy {
		details = append(details, fmt.Sprintf("occupancy %d != %d", c.occupancy, other.occupancy))
	}
	for _, p := range c.members.items {
		if !other.members.contains(p) {
			details = append(details, fmt.Sprintf("%s is not a member", p.ID))
		}
	}
	for _, p := range other.members.items {
		if !c.members.contains(p) {
			details = append(details, fmt.Sprintf("%s is missing", p.ID))
		}
	}
	return details
}
