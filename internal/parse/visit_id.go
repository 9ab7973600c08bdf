package parse

import (
	"fmt"
	"regexp"
	"strconv"
)

var visitIDRe = regexp.MustCompile(`^V(\d+)$`)

// VisitSequence extracts the numeric suffix of a visit ID such as "V042".
func VisitSequence(id string) (int, bool) {
	m := visitIDRe.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatVisitID renders a sequence as "V" plus at least three digits.
func FormatVisitID(seq int) string {
	return fmt.Sprintf("V%03d", seq)
}

// NextVisitID returns the ID following the highest sequence in ids. IDs that
// do not follow the V### format are ignored.
func NextVisitID(ids []string) string {
	max := 0
	for _, id := range ids {
		if n, ok := VisitSequence(id); ok && n > max {
			max = n
		}
	}
	return FormatVisitID(max + 1)
}
