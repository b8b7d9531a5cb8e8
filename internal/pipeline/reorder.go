package pipeline

import (
	"sort"
	"sync"

	"github.com/rpgvault/ingest/internal/model"
)

// reorderBuffer collects sections completed out of order by parallel
// per-page workers and yields them sorted by (page, ordinal). Sections
// within a page may themselves be produced out of ordinal order,
// so the final Sorted() pass re-sorts rather than relying on arrival
// order within a page.
type reorderBuffer struct {
	mu       sync.Mutex
	sections []model.Section
}

func newReorderBuffer(capacityHint int) *reorderBuffer {
	return &reorderBuffer{sections: make([]model.Section, 0, capacityHint)}
}

// Add records one or more sections produced for a page, in any order.
func (b *reorderBuffer) Add(secs ...model.Section) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sections = append(b.sections, secs...)
}

// Sorted returns every recorded section ordered by (page, ordinal),
// without mutating further adds.
func (b *reorderBuffer) Sorted() []model.Section {
	b.mu.Lock()
	out := make([]model.Section, len(b.sections))
	copy(out, b.sections)
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	return out
}
