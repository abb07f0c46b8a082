package normalizer

import (
	"regexp"
	"strconv"
	"strings"
)

var digitsPattern = regexp.MustCompile(`[0-9]+`)

// ZoneMapper maps zone labels to table ids per branch. A nil *ZoneMapper is
// valid and only applies the numeric fallback.
type ZoneMapper struct {
	tables map[string]map[string]int
}

// NewZoneMapper copies tables, so later changes by the caller are not seen.
func NewZoneMapper(tables map[string]map[string]int) *ZoneMapper {
	copied := make(map[string]map[string]int, len(tables))
	for branch, table := range tables {
		t := make(map[string]int, len(table))
		for label, id := range table {
			t[label] = id
		}
		copied[branch] = t
	}
	return &ZoneMapper{tables: copied}
}

// TableID returns the table for zone in branch. Unknown labels fall back to
// their first run of digits, then to 1. The result is never below 1.
func (m *ZoneMapper) TableID(branch, zone string) int {
	label := strings.TrimSpace(zone)
	if label == "" {
		return 1
	}

	if m != nil {
		if id, ok := m.tables[branch][label]; ok && id >= 1 {
			return id
		}
	}

	digits := digitsPattern.FindString(label)
	if digits == "" {
		return 1
	}
	id, err := strconv.Atoi(digits)
	if err != nil || id < 1 {
		return 1
	}
	return id
}

// SequentialZones builds the label -> id table prefix+" 1" .. prefix+" n".
func SequentialZones(prefix string, n int) map[string]int {
	table := make(map[string]int, n)
	for i := 1; i <= n; i++ {
		table[prefix+" "+strconv.Itoa(i)] = i
	}
	return table
}
