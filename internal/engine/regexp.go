package engine

import (
	"database/sql/driver"
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
	"modernc.org/sqlite"
)

// compiledPatterns keeps recently used REGEXP patterns; SQLite calls the
// function once per row with the same pattern.
var compiledPatterns, _ = lru.New[string, *regexp.Regexp](64)

func init() {
	// Enables `value REGEXP pattern` in composite queries.
	// SQLite invokes the "regexp" function with (pattern, value).
	sqlite.MustRegisterDeterministicScalarFunction("regexp", 2, regexpFunc)
}

func regexpFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("regexp expects 2 arguments")
	}

	pattern, ok := valueString(args[0])
	if !ok || pattern == "" {
		return int64(0), nil
	}
	value, ok := valueString(args[1])
	if !ok {
		return int64(0), nil
	}

	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	if re.MatchString(value) {
		return int64(1), nil
	}
	return int64(0), nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := compiledPatterns.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid REGEXP pattern %q: %w", pattern, err)
	}
	compiledPatterns.Add(pattern, re)
	return re, nil
}

func valueString(v driver.Value) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []byte:
		return string(val), true
	default:
		return fmt.Sprint(val), true
	}
}
