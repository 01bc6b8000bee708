package domain

// FilterAlarms keeps alarms whose alarmStart falls in month and, when district
// is non-empty, whose district equals it exactly. Input order is preserved.
func FilterAlarms(alarms []Alarm, month int, district string) []Alarm {
	out := make([]Alarm, 0, len(alarms))
	for _, a := range alarms {
		if a.AlarmStart.Month() != month {
			continue
		}
		if district != "" && a.District != district {
			continue
		}
		out = append(out, a)
	}
	return out
}

// FilterBrigades keeps brigades whose callStart falls in month. When district
// is non-empty it additionally requires the brigade to reference one of
// filteredAlarms, so it must run after FilterAlarms with the same selection.
func FilterBrigades(brigades []Brigade, filteredAlarms []Alarm, month int, district string) []Brigade {
	var linked map[int]struct{}
	if district != "" {
		linked = make(map[int]struct{}, len(filteredAlarms))
		for _, a := range filteredAlarms {
			linked[a.AlarmID] = struct{}{}
		}
	}

	out := make([]Brigade, 0, len(brigades))
	for _, b := range brigades {
		if b.CallStart.Month() != month {
			continue
		}
		if linked != nil {
			if b.AlarmNr == nil {
				continue
			}
			if _, ok := linked[*b.AlarmNr]; !ok {
				continue
			}
		}
		out = append(out, b)
	}
	return out
}
