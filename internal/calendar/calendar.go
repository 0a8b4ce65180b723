// Package calendar resolves reporting windows in Indian Standard Time.
// IST has no daylight saving, so a fixed +05:30 zone is exact and does not
// depend on the host's tzdata.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/domain"
)

// IST is Asia/Kolkata.
var IST = time.FixedZone("IST", 5*60*60+30*60)

const (
	minYear = 1970
	maxYear = 9999

	dateLayout = "2006-01-02"
)

func checkYear(year int) error {
	if year < minYear || year > maxYear {
		return &domain.ErrValidation{Field: "year", Message: fmt.Sprintf("must be between %d and %d", minYear, maxYear)}
	}
	return nil
}

// Month returns [1st of month, 1st of next month) in IST.
func Month(year, month int) (domain.Period, error) {
	if err := checkYear(year); err != nil {
		return domain.Period{}, err
	}
	if month < 1 || month > 12 {
		return domain.Period{}, &domain.ErrValidation{Field: "month", Message: "must be between 1 and 12"}
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, IST)
	return domain.Period{
		Label: fmt.Sprintf("%s %d", time.Month(month), year),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}, nil
}

// Year returns the IST calendar year.
func Year(year int) (domain.Period, error) {
	if err := checkYear(year); err != nil {
		return domain.Period{}, err
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, IST)
	return domain.Period{
		Label: fmt.Sprintf("%d", year),
		Start: start,
		End:   start.AddDate(1, 0, 0),
	}, nil
}

// FiscalYear returns the Indian fiscal year starting 1 April of startYear.
func FiscalYear(startYear int) (domain.Period, error) {
	if err := checkYear(startYear); err != nil {
		return domain.Period{}, err
	}
	start := time.Date(startYear, time.April, 1, 0, 0, 0, 0, IST)
	return domain.Period{
		Label: fmt.Sprintf("FY %d-%02d", startYear, (startYear+1)%100),
		Start: start,
		End:   start.AddDate(1, 0, 0),
	}, nil
}

// YearContaining returns the IST calendar year that t falls in.
func YearContaining(t time.Time) domain.Period {
	p, _ := Year(t.In(IST).Year())
	return p
}

// Range builds an explicit window from two inclusive IST dates.
func Range(from, to string) (domain.Period, error) {
	start, err := ParseDate(from)
	if err != nil {
		return domain.Period{}, &domain.ErrValidation{Field: "from", Message: err.Error()}
	}
	end, err := ParseDate(to)
	if err != nil {
		return domain.Period{}, &domain.ErrValidation{Field: "to", Message: err.Error()}
	}
	startDay := StartOfDay(start)
	endDay := StartOfDay(end).AddDate(0, 0, 1)
	if !endDay.After(startDay) {
		return domain.Period{}, &domain.ErrValidation{Field: "to", Message: "must not be before from"}
	}
	return domain.Period{
		Label: fmt.Sprintf("%s to %s", startDay.Format(dateLayout), end.In(IST).Format(dateLayout)),
		Start: startDay,
		End:   endDay,
	}, nil
}

// StartOfDay truncates t to IST midnight.
func StartOfDay(t time.Time) time.Time {
	t = t.In(IST)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, IST)
}

// ParseDate accepts YYYY-MM-DD (IST midnight) or RFC3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if t, err := time.ParseInLocation(dateLayout, s, IST); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", s)
}
