package schedule

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	datePattern = regexp.MustCompile(`(\d{2})\.(\d{2})\s+(\d{2}):(\d{2})`)
	timePattern = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
)

// weekdayNumbers maps Polish weekday names to Monday-based day numbers.
var weekdayNumbers = map[string]int{
	"poniedziałek": 0,
	"wtorek":       1,
	"środa":        2,
	"czwartek":     3,
	"piątek":       4,
	"sobota":       5,
	"niedziela":    6,
}

// ParsePreferredTime extracts an appointment wish from free text. Two shapes
// are recognized: "DD.MM HH:MM" in the current year, and a Polish weekday name
// with an "HH:MM" time, meaning the next occurrence of that weekday. Returns
// an error when neither shape matches.
func (s *Scheduler) ParsePreferredTime(text string) (time.Time, error) {
	lower := strings.ToLower(text)
	now := s.now().In(s.loc)

	if m := datePattern.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		hour, _ := strconv.Atoi(m[3])
		minute, _ := strconv.Atoi(m[4])
		t := time.Date(now.Year(), time.Month(month), day, hour, minute, 0, 0, s.loc)
		slog.Debug("ParsePreferredTime matched explicit date", "time", t)
		return t, nil
	}

	for name, dayNum := range weekdayNumbers {
		if !strings.Contains(lower, name) {
			continue
		}
		tm := timePattern.FindStringSubmatch(lower)
		if tm == nil {
			continue
		}
		hour, _ := strconv.Atoi(tm[1])
		minute, _ := strconv.Atoi(tm[2])

		// Monday-based weekday of the reference day.
		curDay := (int(now.Weekday()) + 6) % 7
		daysAhead := (dayNum - curDay + 7) % 7
		if daysAhead == 0 && (hour < now.Hour() || (hour == now.Hour() && minute <= now.Minute())) {
			daysAhead = 7
		}
		t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, s.loc).AddDate(0, 0, daysAhead)
		slog.Debug("ParsePreferredTime matched weekday", "weekday", name, "time", t)
		return t, nil
	}

	return time.Time{}, fmt.Errorf("no recognizable date or weekday in %q", text)
}
