package report

import (
	"fmt"
	"strconv"
	"time"
)

// Period is a reporting period: the calendar month a glamorgan report
// covers. glamorgan data for a month is only complete once the month is
// over, so a run always targets the month before the run date.
type Period struct {
	Year  int
	Month int
}

// TargetPeriod returns the reporting period for a run at now: the previous
// calendar month.
func TargetPeriod(now time.Time) Period {
	y, m := PreviousMonth(now.Year(), int(now.Month()))
	return Period{Year: y, Month: m}
}

// Previous returns the period one month earlier, wrapping over January.
func (p Period) Previous() Period {
	y, m := PreviousMonth(p.Year, p.Month)
	return Period{Year: y, Month: m}
}

// PreviousMonth steps (year, month) back by one month.
func PreviousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// String renders the period as "YYYY-MM".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// YearString is the year as entered into the glamorgan form.
func (p Period) YearString() string { return strconv.Itoa(p.Year) }

// MonthString is the zero-padded month used in directory names and
// metadata; FormMonth is the unpadded value the glamorgan form expects.
func (p Period) MonthString() string { return fmt.Sprintf("%02d", p.Month) }

// FormMonth returns the month without zero padding.
func (p Period) FormMonth() string { return strconv.Itoa(p.Month) }

// ParsePeriod reads a period from persisted metadata year/month strings.
// ok=false when either value does not parse; such snapshots are simply not
// candidates for month queries.
func ParsePeriod(year, month string) (Period, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return Period{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return Period{}, false
	}
	return Period{Year: y, Month: m}, true
}
