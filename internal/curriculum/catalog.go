package curriculum

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Catalog is the read-only content library, grouped into ordered levels.
// It is built once by Load/New and never mutated afterwards, so it is safe
// for concurrent readers without locking.
type Catalog struct {
	levels  []string
	byLevel map[string][]ContentItem
	byID    map[string]ContentItem
}

// New builds a catalog from level documents. Documents are ordered by their
// Order field; items keep the order they were declared in.
func New(docs []LevelDocument) (*Catalog, error) {
	if err := validateDocuments(docs); err != nil {
		return nil, err
	}

	sorted := slices.Clone(docs)
	slices.SortStableFunc(sorted, func(a, b LevelDocument) int { return a.Order - b.Order })

	c := &Catalog{
		byLevel: make(map[string][]ContentItem, len(sorted)),
		byID:    make(map[string]ContentItem),
	}
	for _, doc := range sorted {
		c.levels = append(c.levels, doc.Level)
		items := make([]ContentItem, 0, len(doc.Items))
		for _, item := range doc.Items {
			item.Level = doc.Level
			if item.Prerequisites == nil {
				item.Prerequisites = []string{}
			}
			items = append(items, item)
			c.byID[item.ID] = item
		}
		c.byLevel[doc.Level] = items
	}
	return c, nil
}

// Levels returns the level names in progression order.
func (c *Catalog) Levels() []string {
	return slices.Clone(c.levels)
}

// FirstLevel returns the entry level every learner starts at.
func (c *Catalog) FirstLevel() string {
	if len(c.levels) == 0 {
		return ""
	}
	return c.levels[0]
}

// NextLevel returns the level after the given one. It reports false at the
// terminal level or for an unknown level.
func (c *Catalog) NextLevel(level string) (string, bool) {
	i := slices.Index(c.levels, level)
	if i < 0 || i+1 >= len(c.levels) {
		return "", false
	}
	return c.levels[i+1], true
}

// HasLevel reports whether the level exists.
func (c *Catalog) HasLevel(level string) bool {
	_, ok := c.byLevel[level]
	return ok
}

// LevelItems returns the items of a level in catalog order.
func (c *Catalog) LevelItems(level string) []ContentItem {
	return slices.Clone(c.byLevel[level])
}

// Item returns a content item by ID, from any level.
func (c *Catalog) Item(id string) (ContentItem, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// Items returns every item, level by level.
func (c *Catalog) Items() []ContentItem {
	all := make([]ContentItem, 0, len(c.byID))
	for _, level := range c.levels {
		all = append(all, c.byLevel[level]...)
	}
	return all
}

// Size returns the total number of items across all levels.
func (c *Catalog) Size() int {
	return len(c.byID)
}

// DisplayName turns a level key such as "foundation" or "data_science" into
// a human-readable label.
func DisplayName(level string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(level, "_", " "))
}
