// internal/providers/price.go
package providers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numericRun = regexp.MustCompile(`[\d,.]+`)

// parsePrice extracts a numeric price from whatever shape a provider sends:
// a plain number, a currency-formatted string, an object with nested
// raw/extracted/value sub-fields, or nothing. The numeric result is nil
// when no numeric run can be found; the formatted string always carries
// something readable, falling back to the raw provider string or "N/A".
func parsePrice(raw interface{}) (*float64, string) {
	switch v := raw.(type) {
	case nil:
		return nil, "N/A"
	case float64:
		val := v
		return &val, fmt.Sprintf("$%.2f", v)
	case string:
		return parsePriceString(v)
	case map[string]interface{}:
		for _, key := range []string{"raw", "extracted", "value"} {
			if nested, ok := v[key]; ok && nested != nil {
				return parsePrice(nested)
			}
		}
		return nil, "N/A"
	default:
		return parsePriceString(fmt.Sprint(v))
	}
}

func parsePriceString(s string) (*float64, string) {
	match := numericRun.FindString(s)
	if match == "" {
		if s == "" {
			return nil, "N/A"
		}
		return nil, s
	}

	num, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return nil, s
	}
	return &num, s
}
