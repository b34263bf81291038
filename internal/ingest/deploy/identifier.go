package deploy

import (
	"fmt"
	"regexp"
)

// identifierPattern is the allowlist for schema and table names that get
// substituted into template SQL. Anything outside it never reaches SQL
// assembly.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// ValidateIdentifier rejects any schema/table name that is not a plain
// Postgres identifier of bounded length.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q: must match %s", name, identifierPattern.String())
	}
	return nil
}
