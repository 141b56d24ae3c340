// Package businessday implements weekend- and holiday-aware date
// arithmetic for compliance deadlines.
package businessday

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Date is a civil calendar date with no time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the civil date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d falls strictly before o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Calendar is an immutable set of holiday dates.
type Calendar struct {
	holidays map[Date]string
}

// NewCalendar builds a calendar from the given dates.
func NewCalendar(dates ...Date) Calendar {
	holidays := make(map[Date]string, len(dates))
	for _, d := range dates {
		holidays[d] = ""
	}
	return Calendar{holidays: holidays}
}

// IsHoliday reports whether d is in the set.
func (c Calendar) IsHoliday(d Date) bool {
	_, ok := c.holidays[d]
	return ok
}

// Name returns the holiday's label, if one was loaded.
func (c Calendar) Name(d Date) string {
	return c.holidays[d]
}

// Len returns the number of holidays.
func (c Calendar) Len() int {
	return len(c.holidays)
}

// Dates returns the holidays in ascending order.
func (c Calendar) Dates() []Date {
	out := make([]Date, 0, len(c.holidays))
	for d := range c.holidays {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// With returns a calendar holding c's holidays plus dates.
func (c Calendar) With(dates ...Date) Calendar {
	holidays := make(map[Date]string, len(c.holidays)+len(dates))
	for d, name := range c.holidays {
		holidays[d] = name
	}
	for _, d := range dates {
		if _, ok := holidays[d]; !ok {
			holidays[d] = ""
		}
	}
	return Calendar{holidays: holidays}
}

type calendarFile struct {
	Holidays []struct {
		Date string `yaml:"date"`
		Name string `yaml:"name"`
	} `yaml:"holidays"`
}

// LoadCalendar reads a YAML holiday file:
//
//	holidays:
//	  - date: "2026-12-25"
//	    name: Christmas Day
func LoadCalendar(path string) (Calendar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Calendar{}, fmt.Errorf("read holiday file: %w", err)
	}
	return ParseCalendar(raw)
}

// ParseCalendar decodes the YAML holiday format.
func ParseCalendar(raw []byte) (Calendar, error) {
	var f calendarFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Calendar{}, fmt.Errorf("parse holiday file: %w", err)
	}
	holidays := make(map[Date]string, len(f.Holidays))
	for _, h := range f.Holidays {
		d, err := ParseDate(h.Date)
		if err != nil {
			return Calendar{}, err
		}
		holidays[d] = h.Name
	}
	return Calendar{holidays: holidays}, nil
}

// ParseDateList parses a comma separated list of YYYY-MM-DD dates.
func ParseDateList(s string) ([]Date, error) {
	var out []Date
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := ParseDate(part)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
