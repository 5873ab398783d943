package vici

import (
	"math"
	"strconv"
)

// Count is a counter decoded from a wire string. NaN marks a value that
// carried no leading digits; it survives arithmetic done with SumCounts.
type Count int64

// NaN is the not-a-number sentinel.
const NaN Count = math.MinInt64

// ParseCount extracts the leading base-10 integer of s. Leading whitespace and
// a single sign are accepted, and parsing stops at the first non-digit, so
// "12 kB" gives 12. Strings without leading digits, or whose digits overflow
// int64, give NaN.
func ParseCount(s string) Count {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return NaN
	}
	n, err := strconv.ParseInt(s[start:i], 10, 64)
	if err != nil {
		return NaN
	}
	if neg {
		n = -n
	}
	return Count(n)
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// SumCounts adds counts in argument order. Any NaN operand makes the sum NaN,
// and so does a sum that leaves the int64 range.
func SumCounts(counts ...Count) Count {
	var sum Count
	for _, c := range counts {
		if c.IsNaN() {
			return NaN
		}
		if (c > 0 && sum > math.MaxInt64-c) || (c < 0 && sum < math.MinInt64+1-c) {
			return NaN
		}
		sum += c
	}
	return sum
}

// IsNaN reports whether c is the not-a-number sentinel.
func (c Count) IsNaN() bool {
	return c == NaN
}

// Float64 converts c, mapping NaN to math.NaN().
func (c Count) Float64() float64 {
	if c.IsNaN() {
		return math.NaN()
	}
	return float64(c)
}

func (c Count) String() string {
	if c.IsNaN() {
		return "NaN"
	}
	return strconv.FormatInt(int64(c), 10)
}

// MarshalJSON encodes NaN as null.
func (c Count) MarshalJSON() ([]byte, error) {
	if c.IsNaN() {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, int64(c), 10), nil
}

// UnmarshalJSON accepts a JSON integer, or null for NaN.
func (c *Count) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = NaN
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*c = Count(n)
	return nil
}
