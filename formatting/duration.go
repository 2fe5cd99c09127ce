package formatting

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	durationPattern = regexp.MustCompile(`^(\d+):(\d{1,2}):(\d{1,2})$`)
	integerPattern  = regexp.MustCompile(`\d+`)
)

// ParseDuration converts H:MM:SS text into whole seconds. Text of any other
// shape is a zero-length call, not an error.
func ParseDuration(raw string) int {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	return h*3600 + mins*60 + sec
}

// ParseSeconds reads the first integer in a cell such as "60", "60s" or
// "90 sec". Cells without digits yield 0.
func ParseSeconds(raw string) int {
	digits := integerPattern.FindString(raw)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
