package domain

// Topology is the district-name vocabulary of the map geometry. Geometry itself
// is only needed by the renderer and is not kept here.
type Topology struct {
	names []string
	index map[string]struct{}
}

// NewTopology builds a vocabulary from district names, dropping duplicates and
// keeping the first occurrence order. Names are compared exactly.
func NewTopology(names []string) Topology {
	t := Topology{index: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if _, ok := t.index[n]; ok {
			continue
		}
		t.index[n] = struct{}{}
		t.names = append(t.names, n)
	}
	return t
}

// Has reports whether name is a map district.
func (t Topology) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Districts returns the district names in topology order.
func (t Topology) Districts() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len is the number of districts.
func (t Topology) Len() int {
	return len(t.names)
}

// Choropleth returns one entry per topology district with its alarm count,
// 0 for districts without alarms, plus the number of alarms whose district is
// not part of the vocabulary.
func (t Topology) Choropleth(g DistrictGrouping) (counts []DistrictCount, unmapped int) {
	counts = make([]DistrictCount, len(t.names))
	for i, name := range t.names {
		counts[i] = DistrictCount{District: name, Count: g.Count(name)}
	}
	for _, d := range g.order {
		if !t.Has(d) {
			unmapped += g.Count(d)
		}
	}
	return counts, unmapped
}
