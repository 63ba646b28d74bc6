package utils

import (
	"fmt"
	"strconv"
)

// ToString converts loosely typed JSON values to string.
// Whole floats are printed without a fractional part, so a postal code decoded
// as 94107 becomes "94107" rather than "94107.000000".
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToStringPtr is ToString for optional fields: nil stays nil.
func ToStringPtr(val any) *string {
	if val == nil {
		return nil
	}
	s := ToString(val)
	return &s
}
