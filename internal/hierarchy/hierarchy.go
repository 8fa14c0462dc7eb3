package hierarchy

import (
	"errors"
	"fmt"
	"sort"

	"evaluations/models"
)

// DefaultMaxDepth bounds manager-chain walks.
const DefaultMaxDepth = 128

var (
	ErrCycle   = errors.New("manager chain contains a cycle")
	ErrTooDeep = errors.New("manager chain exceeds maximum depth")
)

// Directory is an in-memory index of the personnel hierarchy.
type Directory struct {
	people   map[int64]models.Person
	reports  map[int64][]int64
	order    []int64
	maxDepth int
}

// NewDirectory indexes people by id. Duplicate ids keep the last entry.
// maxDepth <= 0 selects DefaultMaxDepth.
func NewDirectory(people []models.Person, maxDepth int) *Directory {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	d := &Directory{
		people:   make(map[int64]models.Person, len(people)),
		reports:  make(map[int64][]int64),
		maxDepth: maxDepth,
	}
	for _, p := range people {
		if _, seen := d.people[p.ID]; !seen {
			d.order = append(d.order, p.ID)
		}
		d.people[p.ID] = p
	}
	sort.Slice(d.order, func(i, j int) bool { return d.order[i] < d.order[j] })
	for _, id := range d.order {
		p := d.people[id]
		if p.DirectManagerID != nil {
			d.reports[*p.DirectManagerID] = append(d.reports[*p.DirectManagerID], id)
		}
	}
	return d
}

// People returns every person ordered by id.
func (d *Directory) People() []models.Person {
	out := make([]models.Person, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.people[id])
	}
	return out
}

func (d *Directory) Person(id int64) (models.Person, bool) {
	p, ok := d.people[id]
	return p, ok
}

// Manager resolves the direct manager of id. It fails when the person has no
// manager reference or the reference points outside the directory.
func (d *Directory) Manager(id int64) (models.Person, error) {
	p, ok := d.people[id]
	if !ok {
		return models.Person{}, fmt.Errorf("person %d: %w", id, models.ErrNotFound)
	}
	if p.DirectManagerID == nil {
		return models.Person{}, fmt.Errorf("person %d has no manager: %w", id, models.ErrNotFound)
	}
	m, ok := d.people[*p.DirectManagerID]
	if !ok {
		return models.Person{}, fmt.Errorf("manager %d of person %d: %w", *p.DirectManagerID, id, models.ErrNotFound)
	}
	return m, nil
}

// Reports returns the direct reports of id ordered by id.
func (d *Directory) Reports(id int64) []models.Person {
	ids := d.reports[id]
	out := make([]models.Person, 0, len(ids))
	for _, rid := range ids {
		out = append(out, d.people[rid])
	}
	return out
}

// Chain walks the manager references upward from id and returns the ids of
// every manager above it, nearest first. A reference to an unknown person
// ends the chain.
func (d *Directory) Chain(id int64) ([]int64, error) {
	if _, ok := d.people[id]; !ok {
		return nil, fmt.Errorf("person %d: %w", id, models.ErrNotFound)
	}

	visited := map[int64]struct{}{id: {}}
	var chain []int64
	current := id
	for i := 0; i < d.maxDepth; i++ {
		p := d.people[current]
		if p.DirectManagerID == nil {
			return chain, nil
		}
		next := *p.DirectManagerID
		if _, ok := d.people[next]; !ok {
			return chain, nil
		}
		if _, ok := visited[next]; ok {
			return chain, fmt.Errorf("person %d via %d: %w", id, next, ErrCycle)
		}
		visited[next] = struct{}{}
		chain = append(chain, next)
		current = next
	}
	return chain, fmt.Errorf("person %d: %w", id, ErrTooDeep)
}

// InCycle reports whether id itself is part of a manager loop.
func (d *Directory) InCycle(id int64) bool {
	current := id
	for i := 0; i < d.maxDepth; i++ {
		p, ok := d.people[current]
		if !ok || p.DirectManagerID == nil {
			return false
		}
		current = *p.DirectManagerID
		if current == id {
			return true
		}
	}
	return false
}
