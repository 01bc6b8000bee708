package domain

import "fmt"

// AllDistrictsLabel is shown when no district is selected.
const AllDistrictsLabel = "alle"

// Selection is the current view: a month 1-12 and an optional district.
// An empty District means no district filter.
type Selection struct {
	Month    int    `json:"month"`
	District string `json:"district,omitempty"`
}

// HasDistrict reports whether a district filter is set.
func (s Selection) HasDistrict() bool {
	return s.District != ""
}

// ValidMonth reports whether the month is selectable.
func (s Selection) ValidMonth() bool {
	return s.Month >= 1 && s.Month <= 12
}

// Label is the district name, or AllDistrictsLabel when unset.
func (s Selection) Label() string {
	if s.HasDistrict() {
		return s.District
	}
	return AllDistrictsLabel
}

// Key identifies the selection, e.g. "03|Linz-Land".
func (s Selection) Key() string {
	return fmt.Sprintf("%02d|%s", s.Month, s.District)
}
