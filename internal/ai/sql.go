package ai

import (
	"fmt"
	"strings"
)

// sanitizeSQL strips code fences, a leading "sql" tag and a trailing semicolon.
func sanitizeSQL(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "sql") {
		s = strings.TrimSpace(s[3:])
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

var disallowedKeywords = []string{
	"INSERT ", "UPDATE ", "DELETE ", "DROP ", "ALTER ", "TRUNCATE ",
	"CREATE ", "RENAME ", "ATTACH ", "DETACH ", "OPTIMIZE ", "SYSTEM ",
}

// validateSQL allows a single SELECT over the attempts table and nothing else.
func validateSQL(s, database string) error {
	if s == "" {
		return fmt.Errorf("empty SQL generated by LLM")
	}

	upper := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("only SELECT queries are allowed, got: %s", upper[:min(20, len(upper))])
	}
	for _, kw := range disallowedKeywords {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("disallowed SQL keyword %q in generated query", strings.TrimSpace(kw))
		}
	}
	if strings.Contains(s, ";") {
		return fmt.Errorf("multiple statements or semicolons are not allowed")
	}

	table := strings.ToUpper(attemptsTable)
	qualified := strings.ToUpper(database) + "." + table
	if !strings.Contains(upper, "FROM "+table) && !strings.Contains(upper, "FROM "+qualified) {
		return fmt.Errorf("query must target %s.%s", database, attemptsTable)
	}
	return nil
}
