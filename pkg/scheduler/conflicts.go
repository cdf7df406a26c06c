package scheduler

import "github.com/arnavshah/team-builder-go/pkg/models"

// Conflicts is an insertion ordered set of placements
type Conflicts struct {
	items []models.Placement
	index map[models.Placement]struct{}
}

func NewConflicts() *Conflicts {
	return &Conflicts{index: make(map[models.Placement]struct{})}
}

// Add inserts a placement; invalid placements are ignored
func (c *Conflicts) Add(p models.Placement) {
	if !p.Valid() {
		return
	}
	if _, ok := c.index[p]; ok {
		return
	}
	c.index[p] = struct{}{}
	c.items = append(c.items, p)
}

func (c *Conflicts) Contains(p models.Placement) bool {
	_, ok := c.index[p]
	return ok
}

// ContainsPerson tells whether any placement of the person is in the set
func (c *Conflicts) ContainsPerson(person *models.Person) bool {
	for _, p := range c.items {
		if p.Person == person {
			return true
		}
	}
	return false
}

func (c *Conflicts) Len() int { return len(c.items) }

// Items returns the placements in insertion order
func (c *Conflicts) Items() []models.Placement { return c.items }

// Remove deletes a placement, keeping the order of the rest
func (c *Conflicts) Remove(p models.Placement) {
	if _, ok := c.index[p]; !ok {
		return
	}
	delete(c.index, p)
	for i, item := range c.items {
		if item == p {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}
