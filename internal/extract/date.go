package extract

import (
	"regexp"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
)

// dateToken matches d/m/y style tokens separated by '/', '-' or '.'. The
// token may touch letters ("INV05/03/2024") but not further digits.
var dateToken = regexp.MustCompile(`(?:^|\D)(\d{1,4})[/.-](\d{1,2})[/.-](\d{1,4})(?:\D|$)`)

// NormalizeDate resolves a date token into a calendar date.
//
// A four digit third group is read as day-month-year, falling back to
// month-day-year when the day-month reading is not a real date. A four digit
// first group is read as year-month-day. Anything else is unmatched.
func NormalizeDate(token string) (civil.Date, bool) {
	m := dateToken.FindStringSubmatch(token)
	if m == nil {
		return civil.Date{}, false
	}
	return resolveDate(m[1], m[2], m[3])
}

func resolveDate(first, second, third string) (civil.Date, bool) {
	a, _ := strconv.Atoi(first)
	b, _ := strconv.Atoi(second)
	c, _ := strconv.Atoi(third)

	switch {
	case len(third) == 4 && len(first) <= 2:
		if d := newDate(c, b, a); d.IsValid() {
			return d, true
		}
		if d := newDate(c, a, b); d.IsValid() {
			return d, true
		}
	case len(first) == 4 && len(third) <= 2:
		if d := newDate(a, b, c); d.IsValid() {
			return d, true
		}
	}
	return civil.Date{}, false
}

func newDate(year, month, day int) civil.Date {
	return civil.Date{Year: year, Month: time.Month(month), Day: day}
}
