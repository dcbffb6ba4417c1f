// Package sqlguard validates ad-hoc SQL against a fixed safety denylist.
//
// This is a surface-level check, not a parser: it rejects statements that
// contain restricted command keywords as whole words, multiple statement
// separators, or inline comment markers. It cannot catch keyword
// obfuscation (string literals containing restricted words, encoded
// bypasses). That gap is a documented property of the control; a stricter
// validator is a separate scope decision.
package sqlguard

import (
	"fmt"
	"regexp"
	"strings"
)

// Outcome is the result of validating a single query.
type Outcome struct {
	Allowed bool
	Reason  string
}

// restrictedCommands are rejected when they appear as whole words anywhere
// in the query, regardless of case.
var restrictedCommands = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "CREATE", "ALTER", "TRUNCATE",
	"GRANT", "REVOKE", "FLUSH", "RESET", "KILL", "SHUTDOWN", "RESTART",
}

var restrictedPatterns = compileRestricted()

func compileRestricted() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(restrictedCommands))
	for _, cmd := range restrictedCommands {
		patterns[cmd] = regexp.MustCompile(`\b` + cmd + `\b`)
	}
	return patterns
}

// Validate checks a raw query against the denylist. Pure function, no I/O.
// An Outcome with Allowed == false must prevent any query submission to
// the database.
func Validate(query string) Outcome {
	normalized := strings.ToUpper(strings.TrimSpace(query))

	for _, cmd := range restrictedCommands {
		if restrictedPatterns[cmd].MatchString(normalized) {
			return Outcome{
				Allowed: false,
				Reason:  fmt.Sprintf("Command '%s' is not allowed for security reasons", cmd),
			}
		}
	}

	if strings.Count(query, ";") > 1 {
		return Outcome{Allowed: false, Reason: "Multiple SQL statements are not allowed"}
	}

	if strings.Contains(query, "--") || strings.Contains(query, "/*") {
		return Outcome{Allowed: false, Reason: "SQL comments are not allowed"}
	}

	return Outcome{Allowed: true, Reason: "Query is allowed"}
}
