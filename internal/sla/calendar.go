package sla

import (
	"fmt"
	"time"
)

// One resolution-hour unit equals one hour of an 8-hour business day, so 8
// units advance a deadline one full business day. Whole non-business days
// never consume units: a deadline spanning a weekend or a holiday shifts past
// it entirely instead of pausing mid-day. When a partial day of units spills
// past midnight, the deadline snaps to the opening hour of the next business
// day.
const (
	hoursPerBusinessDay  = 8
	businessDayStartHour = 8
)

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func toCivil(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{year: y, month: m, day: d}
}

// Calendar classifies dates as business or non-business for the operating
// region (Brazilian national holidays, Saturday/Sunday weekends). It is built
// once for an inclusive year range and is immutable afterwards, so it is safe
// to share across goroutines.
type Calendar struct {
	firstYear int
	lastYear  int
	holidays  map[civilDate]bool
}

func NewCalendar(firstYear, lastYear int) (*Calendar, error) {
	if firstYear <= 0 || lastYear < firstYear {
		return nil, fmt.Errorf("invalid calendar year range %d-%d", firstYear, lastYear)
	}

	c := &Calendar{
		firstYear: firstYear,
		lastYear:  lastYear,
		holidays:  make(map[civilDate]bool),
	}
	for year := firstYear; year <= lastYear; year++ {
		c.addHolidays(year)
	}
	return c, nil
}

func (c *Calendar) addHolidays(year int) {
	fixed := []civilDate{
		{year, time.January, 1},    // Confraternizacao Universal
		{year, time.April, 21},     // Tiradentes
		{year, time.May, 1},        // Dia do Trabalho
		{year, time.September, 7},  // Independencia
		{year, time.October, 12},   // Nossa Senhora Aparecida
		{year, time.November, 2},   // Finados
		{year, time.November, 15},  // Proclamacao da Republica
		{year, time.December, 25},  // Natal
	}
	for _, d := range fixed {
		c.holidays[d] = true
	}

	easter := easterSunday(year)
	for _, offset := range []int{-48, -47, -2, 0, 60} {
		// Carnival Monday/Tuesday, Good Friday, Easter Sunday, Corpus Christi.
		c.holidays[toCivil(easter.AddDate(0, 0, offset))] = true
	}
}

// easterSunday computes Easter for a Gregorian year using the anonymous
// computus (Meeus/Jones/Butcher).
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	cc := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := cc / 4
	k := cc % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func (c *Calendar) FirstYear() int { return c.firstYear }
func (c *Calendar) LastYear() int  { return c.lastYear }

func (c *Calendar) checkRange(t time.Time) error {
	if y := t.Year(); y < c.firstYear || y > c.lastYear {
		return calendarRangeError(t, c.firstYear, c.lastYear)
	}
	return nil
}

// IsBusinessDay reports whether the date of t is neither a weekend day nor a
// published holiday. Dates outside the configured year range are an error,
// never a silent answer.
func (c *Calendar) IsBusinessDay(t time.Time) (bool, error) {
	if err := c.checkRange(t); err != nil {
		return false, err
	}
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false, nil
	}
	return !c.holidays[toCivil(t)], nil
}

// AddBusinessHours advances start by whole business-hour units. Full business
// days (8 units each) are walked one business day at a time starting from the
// start date itself, skipping weekends and holidays entirely, so a Saturday
// start plus one full day lands on Monday. The remainder is applied as
// wall-clock hours on the landing day, snapping to the next business day's
// opening hour when it crosses midnight.
func (c *Calendar) AddBusinessHours(start time.Time, hours int) (time.Time, error) {
	if hours <= 0 {
		return time.Time{}, fmt.Errorf("business hours must be positive, got %d", hours)
	}
	if err := c.checkRange(start); err != nil {
		return time.Time{}, err
	}

	fullDays := hours / hoursPerBusinessDay
	remHours := hours % hoursPerBusinessDay

	cur := start
	for added := 0; added < fullDays; {
		cur = cur.AddDate(0, 0, 1)
		biz, err := c.IsBusinessDay(cur)
		if err != nil {
			return time.Time{}, err
		}
		if biz {
			added++
		}
	}

	if remHours == 0 {
		return cur, nil
	}

	landed := cur.Add(time.Duration(remHours) * time.Hour)
	if toCivil(landed) == toCivil(cur) {
		return landed, nil
	}
	return c.nextBusinessDayOpen(cur)
}

func (c *Calendar) nextBusinessDaySameTime(t time.Time) (time.Time, error) {
	cur := t
	for {
		cur = cur.AddDate(0, 0, 1)
		biz, err := c.IsBusinessDay(cur)
		if err != nil {
			return time.Time{}, err
		}
		if biz {
			return cur, nil
		}
	}
}

func (c *Calendar) nextBusinessDayOpen(t time.Time) (time.Time, error) {
	next, err := c.nextBusinessDaySameTime(t)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := next.Date()
	return time.Date(y, m, d, businessDayStartHour, 0, 0, 0, t.Location()), nil
}

// BusinessDaysBetween counts business days in the inclusive range [a, b].
// Arguments may be given in either order.
func (c *Calendar) BusinessDaysBetween(a, b time.Time) (int, error) {
	if a.After(b) {
		a, b = b, a
	}

	count := 0
	end := toCivil(b)
	for cur := a; ; cur = cur.AddDate(0, 0, 1) {
		biz, err := c.IsBusinessDay(cur)
		if err != nil {
			return 0, err
		}
		if biz {
			count++
		}
		if toCivil(cur) == end {
			return count, nil
		}
	}
}
