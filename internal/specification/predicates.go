package specification

import (
	"fmt"
	"strings"
)

// Equal matches column = value. A nil value leaves the listing unfiltered.
func Equal[T any](column string, value *T) Predicate {
	return PredicateFunc(func(bind Binder) (string, bool) {
		if value == nil {
			return "", false
		}
		return fmt.Sprintf("%s = %s", column, bind(*value)), true
	})
}

// EqualFold matches column case-insensitively. Blank values are ignored.
func EqualFold(column, value string) Predicate {
	return PredicateFunc(func(bind Binder) (string, bool) {
		value = strings.TrimSpace(value)
		if value == "" {
			return "", false
		}
		return fmt.Sprintf("LOWER(%s) = %s", column, bind(strings.ToLower(value))), true
	})
}

// IsFalse matches rows where the boolean column is false.
func IsFalse(column string) Predicate {
	return PredicateFunc(func(Binder) (string, bool) {
		return column + " = FALSE", true
	})
}

// NotEqual excludes a single value. An empty value is ignored.
func NotEqual(column, value string) Predicate {
	return PredicateFunc(func(bind Binder) (string, bool) {
		if value == "" {
			return "", false
		}
		return fmt.Sprintf("%s <> %s", column, bind(value)), true
	})
}

// ContainsAny matches when any column contains term, case-insensitively.
// A blank term adds no condition.
func ContainsAny(term string, columns ...string) Predicate {
	return PredicateFunc(func(bind Binder) (string, bool) {
		term = strings.TrimSpace(term)
		if term == "" || len(columns) == 0 {
			return "", false
		}
		placeholder := bind("%" + escapeLike(strings.ToLower(term)) + "%")
		parts := make([]string, len(columns))
		for i, col := range columns {
			parts[i] = fmt.Sprintf("LOWER(%s) LIKE %s", col, placeholder)
		}
		if len(parts) == 1 {
			return parts[0], true
		}
		return "(" + strings.Join(parts, " OR ") + ")", true
	})
}

// HasPrefix matches column LIKE 'prefix%'.
func HasPrefix(column, prefix string) Predicate {
	return PredicateFunc(func(bind Binder) (string, bool) {
		return fmt.Sprintf("%s LIKE %s", column, bind(escapeLike(prefix)+"%")), true
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
