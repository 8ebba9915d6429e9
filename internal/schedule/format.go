package schedule

import (
	"fmt"
	"time"
)

var polishDayNames = map[time.Weekday]string{
	time.Monday:    "Poniedziałek",
	time.Tuesday:   "Wtorek",
	time.Wednesday: "Środa",
	time.Thursday:  "Czwartek",
	time.Friday:    "Piątek",
	time.Saturday:  "Sobota",
	time.Sunday:    "Niedziela",
}

// FormatSlot renders a slot as "Poniedziałek, 02.01.2026 09:00".
func FormatSlot(t time.Time) string {
	return fmt.Sprintf("%s, %s", polishDayNames[t.Weekday()], t.Format("02.01.2006 15:04"))
}
