package state

import (
	"math"
	"strconv"
	"strings"
	"time"
)

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// CoerceTimestamp turns a decoded JSON value into epoch milliseconds. Numbers
// and numeric strings are accepted; anything else, including a missing value
// or a number outside the int64 range, becomes now().
func CoerceTimestamp(v any, now func() int64) int64 {
	switch t := v.(type) {
	case float64:
		if inInt64Range(t) {
			return int64(t)
		}
	case int64:
		return t
	case int:
		return int64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			break
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && inInt64Range(f) {
			return int64(f)
		}
	}
	return now()
}

// inInt64Range rejects NaN and infinities along with every finite value
// int64 conversion would overflow on.
func inInt64Range(f float64) bool {
	return f >= math.MinInt64 && f < math.MaxInt64
}
