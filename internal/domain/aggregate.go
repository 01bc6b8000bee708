package domain

import "sort"

// KeyValue is one bar or point of a chart series.
type KeyValue struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// OrderedCounter counts keys and remembers the order in which each distinct
// key was first seen.
type OrderedCounter struct {
	index  map[string]int
	keys   []string
	counts []int
}

// NewOrderedCounter returns an empty counter.
func NewOrderedCounter() *OrderedCounter {
	return &OrderedCounter{index: make(map[string]int)}
}

// Add increments key by one.
func (c *OrderedCounter) Add(key string) {
	i, ok := c.index[key]
	if !ok {
		i = len(c.keys)
		c.index[key] = i
		c.keys = append(c.keys, key)
		c.counts = append(c.counts, 0)
	}
	c.counts[i]++
}

// Count returns the count for key, 0 when never added.
func (c *OrderedCounter) Count(key string) int {
	if i, ok := c.index[key]; ok {
		return c.counts[i]
	}
	return 0
}

// Len is the number of distinct keys.
func (c *OrderedCounter) Len() int {
	return len(c.keys)
}

// Entries returns the counts in first-seen order.
func (c *OrderedCounter) Entries() []KeyValue {
	out := make([]KeyValue, len(c.keys))
	for i, k := range c.keys {
		out[i] = KeyValue{Key: k, Value: float64(c.counts[i])}
	}
	return out
}

// GroupByKey counts key(item) over items and returns at most n entries.
// With sortByValue the entries are ordered by descending count, ties keeping
// first-seen order; without it first-seen order is kept as is, which is what
// the per-day series relies on.
func GroupByKey[T any](items []T, key func(T) string, n int, sortByValue bool) []KeyValue {
	counter := NewOrderedCounter()
	for _, item := range items {
		counter.Add(key(item))
	}

	entries := counter.Entries()
	if sortByValue {
		sortDescending(entries)
	}
	return truncate(entries, n)
}

// TopAlarmTypes is the alarm-type histogram.
func TopAlarmTypes(alarms []Alarm, n int) []KeyValue {
	return GroupByKey(alarms, func(a Alarm) string { return a.AlarmType }, n, true)
}

// MostActiveBrigades ranks brigades by number of deployments.
func MostActiveBrigades(brigades []Brigade, n int) []KeyValue {
	return GroupByKey(brigades, func(b Brigade) string { return b.Name }, n, true)
}

// AlarmsPerDay buckets alarms by the ISO start of day of alarmStart, in
// first-seen (chronological for sorted input) order.
func AlarmsPerDay(alarms []Alarm, n int) []KeyValue {
	return GroupByKey(alarms, func(a Alarm) string { return a.AlarmStart.StartOfDay().ISO() }, n, false)
}

func sortDescending(entries []KeyValue) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
}

func truncate(entries []KeyValue, n int) []KeyValue {
	if n < 0 {
		n = 0
	}
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}
