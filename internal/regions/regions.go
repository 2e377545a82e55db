// Package regions maps regional bank ids to their portal base URL.
package regions

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var embeddedRegions []byte

// Region is one regional bank of the group.
type Region struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type regionFile struct {
	Regions []Region `yaml:"regions"`
}

// Table is a read-only id → region index.
type Table struct {
	byID map[int]Region
}

// Load parses a regions YAML document.
func Load(data []byte) (*Table, error) {
	var f regionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("Load: decoding regions: %w", err)
	}

	t := &Table{byID: make(map[int]Region, len(f.Regions))}
	for _, r := range f.Regions {
		if r.ID <= 0 || r.URL == "" {
			return nil, fmt.Errorf("Load: invalid region entry %+v", r)
		}
		if _, dup := t.byID[r.ID]; dup {
			return nil, fmt.Errorf("Load: duplicate region id %d", r.ID)
		}
		t.byID[r.ID] = r
	}
	return t, nil
}

// Embedded returns the table compiled into the binary.
func Embedded() *Table {
	t, err := Load(embeddedRegions)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the region for the bank id. Unknown ids are reported as a vendor outage
// since the portal cannot be reached at all.
func (t *Table) Lookup(id int) (Region, error) {
	r, ok := t.byID[id]
	if !ok {
		return Region{}, domain.NewError(domain.KindVendorDown, fmt.Sprintf("unknown bank id %d", id), nil)
	}
	return r, nil
}

// All returns every region ordered by id.
func (t *Table) All() []Region {
	out := make([]Region, 0, len(t.byID))
	for _, r := range t.byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Marshal renders regions as a YAML document readable by Load.
func Marshal(rs []Region) ([]byte, error) {
	out, err := yaml.Marshal(regionFile{Regions: rs})
	if err != nil {
		return nil, fmt.Errorf("Marshal: %w", err)
	}
	return out, nil
}
