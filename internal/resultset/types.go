// Package resultset holds the columnar result model shared by child-query
// runners and the composite executor: column typing, narrowing and row scanning.
package resultset

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ColumnType is the inferred type of an output column.
type ColumnType string

const (
	// TypeNull means no row has produced a value for the column yet.
	TypeNull     ColumnType = ""
	TypeString   ColumnType = "string"
	TypeInteger  ColumnType = "integer"
	TypeFloat    ColumnType = "float"
	TypeBoolean  ColumnType = "boolean"
	TypeDatetime ColumnType = "datetime"
	TypeDate     ColumnType = "date"
)

// MarshalJSON encodes TypeNull as JSON null.
func (t ColumnType) MarshalJSON() ([]byte, error) {
	if t == TypeNull {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

// UnmarshalJSON accepts null or a type name.
func (t *ColumnType) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = TypeNull
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ColumnType(s)
	return nil
}

// Narrow folds an observed value type into a column's current type.
//
// Null observations never change the column. The first non-null observation
// fixes the type; any later disagreement collapses it to TypeString, which is
// absorbing.
func Narrow(current, observed ColumnType) ColumnType {
	switch {
	case observed == TypeNull:
		return current
	case current == TypeNull:
		return observed
	case current == observed:
		return current
	default:
		return TypeString
	}
}

// GuessType returns the column type implied by a single runtime value.
func GuessType(v any) ColumnType {
	switch val := v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case float32, float64:
		return TypeFloat
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return TypeInteger
		}
		return TypeFloat
	case time.Time:
		return TypeDatetime
	case []byte:
		return guessFromString(string(val))
	case string:
		return guessFromString(val)
	default:
		return TypeString
	}
}

func guessFromString(s string) ColumnType {
	if s == "" {
		return TypeString
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return TypeInteger
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strconv.FormatFloat(f, 'f', -1, 64) == s {
		return TypeFloat
	}
	switch strings.ToLower(s) {
	case "true", "false":
		return TypeBoolean
	}
	if looksLikeDate(s) {
		if _, err := dateparse.ParseStrict(s); err == nil {
			if strings.ContainsAny(s, ":T") {
				return TypeDatetime
			}
			return TypeDate
		}
	}
	return TypeString
}

// looksLikeDate rejects strings that cannot be dates before handing them to
// dateparse, which is lenient with short free text.
func looksLikeDate(s string) bool {
	if len(s) < 6 || len(s) > 40 {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 4
}
