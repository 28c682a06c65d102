package ops

import (
	"strings"

	"github.com/hpungsan/harp/internal/relativity"
	"github.com/hpungsan/harp/internal/store"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Section    string // required
	Relativity string // optional, default: remembered
	Exact      bool   // use Section verbatim
	Limit      int    // default: 100, max: 1000
	Offset     int    // default: 0
}

// ListItem is one register of a listed section.
type ListItem struct {
	Register string    `json:"register"`
	Entry    EntryData `json:"entry"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Section    string     `json:"section"`
	Items      []ListItem `json:"items"`
	Pagination Pagination `json:"pagination"`
	Sort       string     `json:"sort"`
}

// List returns a section's registers in lexicographic order.
func List(backend store.Backend, scope relativity.Context, input ListInput) (*ListOutput, error) {
	conn, err := open(backend)
	if err != nil {
		return nil, err
	}

	section, err := resolveSection(conn, scope, input.Section, input.Relativity, input.Exact)
	if err != nil {
		return nil, err
	}

	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	sec := conn.Section(section)
	keys := sec.Keys()
	total := len(keys)

	items := []ListItem{}
	for i := offset; i < total && len(items) < limit; i++ {
		items = append(items, ListItem{Register: keys[i], Entry: entryData(sec[keys[i]])})
	}

	return &ListOutput{
		Section: section,
		Items:   items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "register_asc",
	}, nil
}

// SectionsInput contains parameters for the Sections operation.
type SectionsInput struct {
	// Prefix keeps only sections starting with it, typically a logical
	// section name to see all its relativities.
	Prefix             string
	IncludeBookkeeping bool
}

// SectionSummary describes one section.
type SectionSummary struct {
	Name      string `json:"name"`
	Registers int    `json:"registers"`
}

// SectionsOutput contains the result of the Sections operation.
type SectionsOutput struct {
	Items []SectionSummary `json:"items"`
	Total int              `json:"total"`
}

// Sections lists sections in lexicographic order. Relativity bookkeeping
// sections are hidden unless asked for.
func Sections(backend store.Backend, input SectionsInput) (*SectionsOutput, error) {
	conn, err := open(backend)
	if err != nil {
		return nil, err
	}

	items := []SectionSummary{}
	for _, name := range conn.Sections() {
		if !strings.HasPrefix(name, input.Prefix) {
			continue
		}
		if !input.IncludeBookkeeping && IsBookkeeping(name) {
			continue
		}
		items = append(items, SectionSummary{Name: name, Registers: conn.Section(name).Len()})
	}

	return &SectionsOutput{
		Items: items,
		Total: len(items),
	}, nil
}
