package storage

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns a free text search into a lower-cased LIKE pattern
// matching it anywhere. Use it with ESCAPE '\' so wildcards in the search stay
// literal.
func ContainsPattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
}
