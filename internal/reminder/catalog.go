package reminder

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Catalog keeps the ordered set of records shared by the UI and the scheduler.
// Order is insertion order. All methods are safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*Record
}

// NewCatalog creates a catalog with no records.
func NewCatalog() *Catalog {
	return &Catalog{
		records: make(map[string]*Record),
	}
}

// ExportState returns a copy of the records in display order for persistence.
func (c *Catalog) ExportState() []Record {
	return c.Records()
}

// ImportState replaces the catalog contents. Records without an ID get one,
// and duplicate IDs are reassigned so every entry stays addressable.
func (c *Catalog) ImportState(records []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = make(map[string]*Record, len(records))
	c.order = make([]string, 0, len(records))
	for _, r := range records {
		if _, dup := c.records[r.ID]; r.ID == "" || dup {
			r.ID = uuid.New().String()
		}
		entry := r
		c.records[entry.ID] = &entry
		c.order = append(c.order, entry.ID)
	}
}

// Add appends a record, assigning an ID when it has none, and returns the
// stored copy.
func (c *Catalog) Add(r Record) Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.records[r.ID]; r.ID == "" || dup {
		r.ID = uuid.New().String()
	}
	entry := r
	c.records[entry.ID] = &entry
	c.order = append(c.order, entry.ID)
	return entry
}

// Update replaces the record with the given ID in place, keeping its position.
func (c *Catalog) Update(id string, r Record) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.records[id]
	if !ok {
		return Record{}, false
	}
	r.ID = id
	*existing = r
	return r, true
}

// Delete removes the record with the given ID.
func (c *Catalog) Delete(id string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.deleteLocked(id)
}

// DeleteAt removes the record at display position index. The position is
// resolved under the same lock as the removal.
func (c *Catalog) DeleteAt(index int) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.order) {
		return Record{}, false
	}
	return c.deleteLocked(c.order[index])
}

// Get returns a copy of the record with the given ID.
func (c *Catalog) Get(id string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.records[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// At returns a copy of the record at display position index.
func (c *Catalog) At(index int) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index < 0 || index >= len(c.order) {
		return Record{}, false
	}
	return *c.records[c.order[index]], true
}

// Records returns a snapshot of every record in display order. The snapshot
// does not change when the catalog is mutated afterwards.
func (c *Catalog) Records() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return collectRecords(c.order, c.records)
}

// IDs returns the IDs in display order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.order)
}

// Len exposes the current record count.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.order)
}

func (c *Catalog) deleteLocked(id string) (Record, bool) {
	r, ok := c.records[id]
	if !ok {
		return Record{}, false
	}
	delete(c.records, id)
	c.order = removeID(c.order, id)
	return *r, true
}

func collectRecords(order []string, lookup map[string]*Record) []Record {
	items := make([]Record, 0, len(order))
	for _, id := range order {
		if r, ok := lookup[id]; ok {
			items = append(items, *r)
		}
	}
	return items
}

func removeID(items []string, id string) []string {
	out := items[:0]
	for _, existing := range items {
		if existing == id {
			continue
		}
		out = append(out, existing)
	}
	return out
}
