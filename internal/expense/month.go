package expense

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MonthNames maps month numbers to German names, used for archive and
// export directory layout.
var MonthNames = map[int]string{
	1: "Januar", 2: "Februar", 3: "März", 4: "April",
	5: "Mai", 6: "Juni", 7: "Juli", 8: "August",
	9: "September", 10: "Oktober", 11: "November", 12: "Dezember",
}

// monthAbbrevs recognizes German and English short forms in month labels.
var monthAbbrevs = map[string]int{
	"jan": 1, "feb": 2, "mär": 3, "mar": 3, "apr": 4,
	"mai": 5, "may": 5, "jun": 6, "jul": 7, "aug": 8,
	"sep": 9, "okt": 10, "oct": 10, "nov": 11, "dez": 12, "dec": 12,
}

var (
	yearPattern    = regexp.MustCompile(`(20\d{2})`)
	numericPattern = regexp.MustCompile(`(\d{1,2})[/\-.]\s*(20\d{2})`)
)

// ParseMonthLabel parses a reporting-month label such as "Nov 2025",
// "November 2025" or "11/2025". Unparseable labels fall back to the
// current month.
func ParseMonthLabel(label string) (year, month int) {
	now := time.Now()
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return now.Year(), int(now.Month())
	}

	for abbrev, num := range monthAbbrevs {
		if strings.Contains(label, abbrev) {
			if m := yearPattern.FindStringSubmatch(label); m != nil {
				y, _ := strconv.Atoi(m[1])
				return y, num
			}
		}
	}

	if m := numericPattern.FindStringSubmatch(label); m != nil {
		month, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 {
			return y, month
		}
	}

	return now.Year(), int(now.Month())
}

// MonthDir returns the "2025/11_November" subtree segment for a date.
func MonthDir(year, month int) string {
	name, ok := MonthNames[month]
	if !ok {
		name = fmt.Sprintf("%02d", month)
	}
	return fmt.Sprintf("%d/%02d_%s", year, month, name)
}
