package procure

import (
	"fmt"

	"procurio.org/internal/record"
)

func itemString(item record.Item, key string) (string, error) {
	v, ok := item[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: missing attribute %s", ErrCorruptRecord, key)
	}
	return v, nil
}

func itemOptString(item record.Item, key string) *string {
	if v, ok := item[key].(string); ok && v != "" {
		v := v
		return &v
	}
	return nil
}

func itemNumber(item record.Item, key string) (float64, error) {
	switch v := item[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: attribute %s is not a number", ErrCorruptRecord, key)
	}
}

// itemStringList keeps absence distinct from an empty list: a missing or
// null attribute yields nil, a present list yields a non-nil slice.
func itemStringList(item record.Item, key string) []string {
	switch v := item[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
