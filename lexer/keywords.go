package lexer

import "sync/atomic"

// keywords maps lowercase SQL keywords to their token types.
// Uses a two-level lookup: first by length bucket, then a linear scan
// of that bucket's entries, with zero allocations.

// kwEntry is a keyword table entry.
type kwEntry struct {
	word string
	tok  TokenType
}

// keywordTable is an immutable snapshot of the length-bucketed dictionary.
// It is published behind an atomic.Pointer so concurrent lexers holding a
// local reference (taken once at the start of a call) are unaffected by a
// concurrent Reset.
type keywordTable struct {
	byLen [32][]kwEntry
}

var currentKeywords atomic.Pointer[keywordTable]

func init() {
	currentKeywords.Store(buildKeywordTable())
}

// ResetKeywords rebuilds and re-publishes the keyword dictionary. It is
// idempotent and safe to call concurrently with lexing: in-flight lexers
// that already loaded a table reference keep using it to completion.
// Tests use this to restore the dictionary to its default state after
// exercising keyword-table mutation paths.
func ResetKeywords() {
	currentKeywords.Store(buildKeywordTable())
}

func buildKeywordTable() *keywordTable {
	t := &keywordTable{}
	words := []kwEntry{
		{"add", ADD},
		{"after", AFTER},
		{"all", ALL},
		{"alter", ALTER},
		{"analyze", ANALYZE},
		{"and", AND},
		{"as", AS},
		{"asc", ASC},
		{"auto_increment", AUTO_INCREMENT},
		{"between", BETWEEN},
		{"bigint", BIGINT},
		{"binary", BINARY},
		{"blob", BLOB},
		{"boolean", BOOLEAN},
		{"by", BY},
		{"cascade", CASCADE},
		{"case", CASE},
		{"cast", CAST},
		{"change", CHANGE},
		{"char", CHAR},
		{"character", CHARACTER},
		{"check", CHECK},
		{"collate", COLLATE},
		{"column", COLUMN},
		{"comment", COMMENT_KW},
		{"constraint", CONSTRAINT},
		{"create", CREATE},
		{"cross", CROSS},
		{"database", DATABASE},
		{"date", DATE},
		{"datetime", DATETIME},
		{"decimal", DECIMAL},
		{"default", DEFAULT},
		{"deferrable", DEFERRABLE},
		{"deferred", DEFERRED},
		{"delete", DELETE},
		{"desc", DESC},
		{"distinct", DISTINCT},
		{"double", DOUBLE},
		{"drop", DROP},
		{"else", ELSE},
		{"end", END},
		{"engine", ENGINE},
		{"enum", ENUM},
		{"escape", ESCAPE},
		{"except", EXCEPT},
		{"exists", EXISTS},
		{"explain", EXPLAIN},
		{"false", FALSE_KW},
		{"fetch", FETCH},
		{"filter", FILTER},
		{"first", FIRST},
		{"float", FLOAT_KW},
		{"for", FOR},
		{"foreign", FOREIGN},
		{"from", FROM},
		{"full", FULL},
		{"function", FUNCTION},
		{"group", GROUP},
		{"having", HAVING},
		{"if", IF},
		{"ignore", IGNORE},
		{"ilike", ILIKE},
		{"in", IN},
		{"index", INDEX},
		{"inner", INNER},
		{"insert", INSERT},
		{"int", INT_KW},
		{"integer", INTEGER},
		{"intersect", INTERSECT},
		{"into", INTO},
		{"is", IS},
		{"join", JOIN},
		{"json", JSON},
		{"jsonb", JSONB},
		{"key", KEY},
		{"last", LAST},
		{"lateral", LATERAL},
		{"left", LEFT},
		{"like", LIKE},
		{"limit", LIMIT},
		{"longblob", LONGBLOB},
		{"longtext", LONGTEXT},
		{"match", MATCH},
		{"matched", MATCHED},
		{"mediumblob", MEDIUMBLOB},
		{"mediumint", MEDIUMINT},
		{"mediumtext", MEDIUMTEXT},
		{"merge", MERGE},
		{"natural", NATURAL},
		{"nchar", NCHAR},
		{"no", NO},
		{"not", NOT},
		{"null", NULL_KW},
		{"nulls", NULLS},
		{"numeric", NUMERIC},
		{"offset", OFFSET},
		{"on", ON},
		{"or", OR},
		{"order", ORDER},
		{"outer", OUTER},
		{"over", OVER},
		{"partition", PARTITION},
		{"primary", PRIMARY},
		{"procedure", PROCEDURE},
		{"real", REAL},
		{"recursive", RECURSIVE},
		{"references", REFERENCES},
		{"rename", RENAME},
		{"replace", REPLACE},
		{"restrict", RESTRICT},
		{"returning", RETURNING},
		{"right", RIGHT},
		{"rollback", ROLLBACK},
		{"select", SELECT},
		{"set", SET},
		{"show", SHOW},
		{"smallint", SMALLINT},
		{"table", TABLE},
		{"tables", TABLES},
		{"text", TEXT},
		{"then", THEN},
		{"time", TIME},
		{"timestamp", TIMESTAMP},
		{"tinyblob", TINYBLOB},
		{"tinyint", TINYINT},
		{"tinytext", TINYTEXT},
		{"to", TO},
		{"transaction", TRANSACTION},
		{"trigger", TRIGGER},
		{"true", TRUE_KW},
		{"truncate", TRUNCATE},
		{"union", UNION},
		{"unique", UNIQUE},
		{"update", UPDATE},
		{"use", USE},
		{"using", USING},
		{"values", VALUES},
		{"varbinary", VARBINARY},
		{"varchar", VARCHAR},
		{"view", VIEW},
		{"when", WHEN},
		{"where", WHERE},
		{"window", WINDOW},
		{"with", WITH},
		{"without", WITHOUT},
		{"year", YEAR},
	}
	for _, e := range words {
		l := len(e.word)
		if l < len(t.byLen) {
			t.byLen[l] = append(t.byLen[l], e)
		}
	}
	return t
}

// IsKeyword reports whether name (case-insensitively) is a reserved SQL
// keyword in the current dictionary. The printer uses this to decide
// whether an identifier needs quoting even when every character in it is
// already a bare lowercase letter, digit, or underscore.
func IsKeyword(name string) bool {
	if name == "" {
		return false
	}
	lower := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		lower[i] = c
	}
	return lookupKeyword(lower) != IDENT
}

// lookupKeyword returns the token for a keyword, or IDENT if not found.
// val must be lowercase. This function performs zero allocations beyond
// the one atomic load of the current table snapshot.
func lookupKeyword(val []byte) TokenType {
	l := len(val)
	t := currentKeywords.Load()
	if l == 0 || l >= len(t.byLen) {
		return IDENT
	}
	bucket := t.byLen[l]
	for i := range bucket {
		if bytesEqualString(val, bucket[i].word) {
			return bucket[i].tok
		}
	}
	return IDENT
}

func bytesEqualString(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		if b[i] != s[i] {
			return false
		}
	}
	return true
}
