package domain

import "time"

var testCalendar = DefaultCalendar()

func at(month time.Month, day, hour, minute int) Instant {
	return testCalendar.Date(2020, month, day, hour, minute)
}

func intPtr(v int) *int { return &v }

func alarm(id int, district, alarmType string, start, end Instant) Alarm {
	return Alarm{
		AlarmID:    id,
		District:   district,
		AlarmType:  alarmType,
		AlarmStart: start,
		AlarmEnd:   end,
	}
}
