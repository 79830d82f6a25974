package repository

import "strings"

// likeEscape is the escape character declared on every LIKE predicate.
const likeEscape = `ESCAPE '\'`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s as a literal, case-insensitive substring of a
// LOWER()ed column.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// prefixPattern matches values starting with the literal s.
func prefixPattern(s string) string {
	return likeEscaper.Replace(s) + "%"
}
