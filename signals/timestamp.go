package signals

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	hmsRe = regexp.MustCompile(`^(\d+):([0-5]?\d):([0-5]?\d)$`)
	msRe  = regexp.MustCompile(`^(\d+):([0-5]?\d)$`)
	nRe   = regexp.MustCompile(`^\d+$`)
)

// ParseTimestamp implements spec.md §8 property 9: "h:mm:ss" / "m:ss" /
// "N" parse to an integer number of seconds; anything else parses to
// "none" (ok=false).
func ParseTimestamp(s string) (seconds int, ok bool) {
	switch {
	case hmsRe.MatchString(s):
		m := hmsRe.FindStringSubmatch(s)
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		se, _ := strconv.Atoi(m[3])
		return h*3600 + mi*60 + se, true
	case msRe.MatchString(s):
		m := msRe.FindStringSubmatch(s)
		mi, _ := strconv.Atoi(m[1])
		se, _ := strconv.Atoi(m[2])
		return mi*60 + se, true
	case nRe.MatchString(s):
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// FormatTimestamp renders seconds back as "m:ss", the inverse of
// ParseTimestamp's "m:ss" form.
func FormatTimestamp(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
