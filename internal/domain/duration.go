package domain

type durationSum struct {
	count   int
	minutes int64
}

// GroupAverageCallDurationByAlarmType returns, per alarm type, the mean of
// alarmEnd-alarmStart in hours, sorted descending and truncated to n.
// Alarms with an invalid start or end carry no duration and are skipped.
func GroupAverageCallDurationByAlarmType(alarms []Alarm, n int) []KeyValue {
	index := make(map[string]int)
	var keys []string
	var sums []durationSum

	for _, a := range alarms {
		minutes, ok := a.AlarmStart.MinutesUntil(a.AlarmEnd)
		if !ok {
			continue
		}
		i, seen := index[a.AlarmType]
		if !seen {
			i = len(keys)
			index[a.AlarmType] = i
			keys = append(keys, a.AlarmType)
			sums = append(sums, durationSum{})
		}
		sums[i].count++
		sums[i].minutes += minutes
	}

	out := make([]KeyValue, len(keys))
	for i, k := range keys {
		out[i] = KeyValue{Key: k, Value: float64(sums[i].minutes) / float64(sums[i].count) / 60}
	}
	sortDescending(out)
	return truncate(out, n)
}
