package formatting

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	usDatePattern  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	usDashPattern  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
	isoDatePattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dateLikePrefix = regexp.MustCompile(`^\d{1,2}/\d{1,2}`)
)

// ParseDate converts a spreadsheet date cell into a zero-padded ISO
// YYYY-MM-DD string. Anything after the first whitespace (a time of day) is
// ignored. Accepted shapes are M/D/YYYY, M-D-YYYY and YYYY-M-D; any other
// shape reports false, which callers treat as "no usable date".
func ParseDate(raw string) (string, bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", false
	}
	token := fields[0]

	if m := usDatePattern.FindStringSubmatch(token); m != nil {
		return isoDate(m[3], m[1], m[2])
	}
	if m := usDashPattern.FindStringSubmatch(token); m != nil {
		return isoDate(m[3], m[1], m[2])
	}
	if m := isoDatePattern.FindStringSubmatch(token); m != nil {
		return isoDate(m[1], m[2], m[3])
	}
	return "", false
}

func isoDate(year, month, day string) (string, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}

// YearOf returns the year portion of an ISO date produced by ParseDate.
func YearOf(iso string) int {
	if len(iso) < 4 {
		return 0
	}
	y, err := strconv.Atoi(iso[:4])
	if err != nil {
		return 0
	}
	return y
}
