package core

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatTaskID renders counter as {prefix}-{counter}, zero padded to
// padWidth digits. Use 0 for no padding (e.g., TASK-1).
func FormatTaskID(prefix string, padWidth int, counter int64) string {
	if padWidth > 0 {
		return fmt.Sprintf("%s-%0*d", prefix, padWidth, counter)
	}
	return fmt.Sprintf("%s-%d", prefix, counter)
}

// ParseTaskID splits an ID produced by FormatTaskID back into its prefix
// and counter.
func ParseTaskID(id string) (prefix string, counter int64, err error) {
	i := strings.LastIndexByte(id, '-')
	if i <= 0 || i == len(id)-1 {
		return "", 0, fmt.Errorf("parsing task id %q: missing prefix or counter", id)
	}
	counter, err = strconv.ParseInt(id[i+1:], 10, 64)
	if err != nil || counter < 0 {
		return "", 0, fmt.Errorf("parsing task id %q: invalid counter", id)
	}
	return id[:i], counter, nil
}
