package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling cases
// where the extraction model returns numbers or booleans instead of strings.
// Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	// Fallback: return raw string representation
	return string(raw)
}

// FlexibleIntSlice converts a json.RawMessage holding an array of indices to
// an int slice, tolerating elements encoded as numbers or numeric strings.
// Non-numeric elements are dropped. Returns nil for null/empty/non-array.
func FlexibleIntSlice(raw json.RawMessage) []int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}

	out := make([]int, 0, len(elems))
	for _, e := range elems {
		// Unmarshal treats null as a no-op, which would keep the zero
		// value; drop null elements instead.
		if string(e) == "null" {
			continue
		}
		var n int
		if err := json.Unmarshal(e, &n); err == nil {
			out = append(out, n)
			continue
		}
		var s string
		if err := json.Unmarshal(e, &s); err == nil {
			if v, err := strconv.Atoi(s); err == nil {
				out = append(out, v)
			}
		}
	}
	return out
}
