package sqlite

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	moderncsqlite "modernc.org/sqlite"
)

// casefoldFunc is the SQL name of fold. SQLite's own lower() only maps
// ASCII letters, so "Épargne" and "épargne" would compare unequal.
// Indexes and predicates that ignore case call casefold() instead, and Go
// folds the bound arguments with the same function.
const casefoldFunc = "casefold"

func init() {
	// Registration is process-wide and must happen before the first
	// connection is opened, including the one the migrator uses.
	if err := moderncsqlite.RegisterDeterministicScalarFunction(casefoldFunc, 1, casefoldSQL); err != nil {
		panic(fmt.Sprintf("sqlite: registering %s: %v", casefoldFunc, err))
	}
}

// fold returns the caseless form of s used for name uniqueness and
// case-insensitive matching.
func fold(s string) string {
	// A Caser carries state, so each call gets its own.
	return cases.Fold().String(s)
}

// foldName normalizes a category name the way the unique index does.
func foldName(name string) string {
	return fold(strings.TrimSpace(name))
}

func casefoldSQL(_ *moderncsqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return fold(v), nil
	case []byte:
		return fold(string(v)), nil
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T", casefoldFunc, v)
	}
}
