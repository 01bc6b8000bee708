package domain

// DistrictCount is the number of alarms in one district.
type DistrictCount struct {
	District string `json:"district"`
	Count    int    `json:"count"`
}

// ColorDomain is the [Min, Max] range of the choropleth color scale.
type ColorDomain struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DistrictGrouping partitions alarms by district, keeping first-seen order.
// Districts without alarms are absent; Count reports 0 for them.
type DistrictGrouping struct {
	order   []string
	members map[string][]Alarm
}

// GroupAlarmsByDistrict partitions alarms by their district field.
func GroupAlarmsByDistrict(alarms []Alarm) DistrictGrouping {
	g := DistrictGrouping{members: make(map[string][]Alarm)}
	for _, a := range alarms {
		if _, ok := g.members[a.District]; !ok {
			g.order = append(g.order, a.District)
		}
		g.members[a.District] = append(g.members[a.District], a)
	}
	return g
}

// Len is the number of districts with at least one alarm.
func (g DistrictGrouping) Len() int {
	return len(g.order)
}

// Districts returns the populated districts in first-seen order.
func (g DistrictGrouping) Districts() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Count returns the number of alarms in district, 0 when absent.
func (g DistrictGrouping) Count(district string) int {
	return len(g.members[district])
}

// Alarms returns the members of district, nil when absent.
func (g DistrictGrouping) Alarms(district string) []Alarm {
	return g.members[district]
}

// Counts is the lightweight variant used by the color scale.
func (g DistrictGrouping) Counts() []DistrictCount {
	out := make([]DistrictCount, len(g.order))
	for i, d := range g.order {
		out[i] = DistrictCount{District: d, Count: len(g.members[d])}
	}
	return out
}

// Members is the rich variant used for tooltip detail.
func (g DistrictGrouping) Members() map[string][]Alarm {
	out := make(map[string][]Alarm, len(g.members))
	for d, alarms := range g.members {
		out[d] = alarms
	}
	return out
}

// Restrict keeps only districts contained in the topology vocabulary.
func (g DistrictGrouping) Restrict(topo Topology) DistrictGrouping {
	r := DistrictGrouping{members: make(map[string][]Alarm)}
	for _, d := range g.order {
		if !topo.Has(d) {
			continue
		}
		r.order = append(r.order, d)
		r.members[d] = g.members[d]
	}
	return r
}

// ColorDomain returns the min/max count over populated districts. With fewer
// than two districts the minimum is pinned to 0 so the domain never collapses
// to a single value; an empty grouping yields {0, 0}.
func (g DistrictGrouping) ColorDomain() ColorDomain {
	if len(g.order) == 0 {
		return ColorDomain{}
	}

	lo, hi := -1, 0
	for _, d := range g.order {
		n := len(g.members[d])
		if lo < 0 || n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	if len(g.order) < 2 {
		lo = 0
	}
	return ColorDomain{Min: lo, Max: hi}
}
