package conquest

import "fmt"

// ProvinceDef is the static description of a province on the map.
// BaseProduction is Rules.BaseRates[Resource] * Yield.
type ProvinceDef struct {
	ID       string
	Name     string
	Resource ResourceType
	Yield    float64
	Adjacent []string
	Start    bool // eligible as a starting province
}

// Map is the fixed province graph shared by every game of a registry.
type Map struct {
	defs  []ProvinceDef
	index map[string]int
}

// NewMap validates defs and builds a Map. Adjacency must be symmetric and
// every referenced province must exist.
func NewMap(defs []ProvinceDef) (*Map, error) {
	m := &Map{
		defs:  make([]ProvinceDef, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	copy(m.defs, defs)
	for i, d := range m.defs {
		if d.ID == "" {
			return nil, validationf("province %d has no id", i)
		}
		if _, dup := m.index[d.ID]; dup {
			return nil, validationf("duplicate province %q", d.ID)
		}
		if !validResourceType(d.Resource) {
			return nil, validationf("province %q has unknown resource %q", d.ID, d.Resource)
		}
		m.index[d.ID] = i
	}
	for _, d := range m.defs {
		for _, adj := range d.Adjacent {
			if _, ok := m.index[adj]; !ok {
				return nil, validationf("province %q borders unknown %q", d.ID, adj)
			}
			if !m.Adjacent(adj, d.ID) {
				return nil, validationf("adjacency %s -> %s has no reverse", d.ID, adj)
			}
		}
	}
	return m, nil
}

// MustMap is like NewMap but panics on an invalid definition.
func MustMap(defs []ProvinceDef) *Map {
	m, err := NewMap(defs)
	if err != nil {
		panic(fmt.Sprintf("conquest: invalid map: %v", err))
	}
	return m
}

// Provinces returns the definitions in map order.
func (m *Map) Provinces() []ProvinceDef {
	out := make([]ProvinceDef, len(m.defs))
	copy(out, m.defs)
	return out
}

// Province looks up a definition by id.
func (m *Map) Province(id string) (ProvinceDef, bool) {
	i, ok := m.index[id]
	if !ok {
		return ProvinceDef{}, false
	}
	return m.defs[i], true
}

// Adjacent reports whether a borders b.
func (m *Map) Adjacent(a, b string) bool {
	i, ok := m.index[a]
	if !ok {
		return false
	}
	for _, adj := range m.defs[i].Adjacent {
		if adj == b {
			return true
		}
	}
	return false
}

// Path returns the shortest route from one province to another, excluding
// the start and including the destination. Neighbours are explored in
// definition order so equal-length routes always resolve the same way.
func (m *Map) Path(from, to string) ([]string, bool) {
	if _, ok := m.index[from]; !ok {
		return nil, false
	}
	if _, ok := m.index[to]; !ok {
		return nil, false
	}
	if from == to {
		return nil, false
	}
	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			break
		}
		for _, adj := range m.defs[m.index[cur]].Adjacent {
			if _, seen := prev[adj]; seen {
				continue
			}
			prev[adj] = cur
			queue = append(queue, adj)
		}
	}
	if _, ok := prev[to]; !ok {
		return nil, false
	}
	var path []string
	for at := to; at != from; at = prev[at] {
		path = append(path, at)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}

// DefaultMap is a four by three grid of provinces with a start province in
// each corner.
func DefaultMap() *Map {
	return MustMap([]ProvinceDef{
		{ID: "northmarch", Name: "Northmarch", Resource: Food, Yield: 1, Start: true, Adjacent: []string{"highfold", "greenhollow"}},
		{ID: "highfold", Name: "Highfold", Resource: Materials, Yield: 1, Adjacent: []string{"northmarch", "ashvale", "ironridge"}},
		{ID: "ashvale", Name: "Ashvale", Resource: Energy, Yield: 1, Adjacent: []string{"highfold", "stormwatch", "sunreach"}},
		{ID: "stormwatch", Name: "Stormwatch", Resource: Food, Yield: 1, Start: true, Adjacent: []string{"ashvale", "mistfen"}},
		{ID: "greenhollow", Name: "Greenhollow", Resource: Food, Yield: 1.5, Adjacent: []string{"northmarch", "ironridge", "redcliff"}},
		{ID: "ironridge", Name: "Ironridge", Resource: Materials, Yield: 2, Adjacent: []string{"highfold", "greenhollow", "sunreach", "duskmoor"}},
		{ID: "sunreach", Name: "Sunreach", Resource: Energy, Yield: 2, Adjacent: []string{"ashvale", "ironridge", "mistfen", "saltcoast"}},
		{ID: "mistfen", Name: "Mistfen", Resource: Food, Yield: 1.5, Adjacent: []string{"stormwatch", "sunreach", "emberfield"}},
		{ID: "redcliff", Name: "Redcliff", Resource: Materials, Yield: 1, Start: true, Adjacent: []string{"greenhollow", "duskmoor"}},
		{ID: "duskmoor", Name: "Duskmoor", Resource: Food, Yield: 1, Adjacent: []string{"ironridge", "redcliff", "saltcoast"}},
		{ID: "saltcoast", Name: "Saltcoast", Resource: Energy, Yield: 1, Adjacent: []string{"sunreach", "duskmoor", "emberfield"}},
		{ID: "emberfield", Name: "Emberfield", Resource: Materials, Yield: 1, Start: true, Adjacent: []string{"mistfen", "saltcoast"}},
	})
}
