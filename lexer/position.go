package lexer

import "sort"

// PositionTable maps byte offsets to line/column and back, and locates the
// lexeme covering a given cursor — the basis for cursor-aware partial
// parsing (analyzer.ScopeAt / parser.TokenBeforeCursor).
type PositionTable struct {
	src        []byte
	lineStarts []int32 // byte offset of the first byte of each line, 1-indexed via lineStarts[0] == line 1
	lexemes    []Token  // all tokens in source order, including COMMENT when retained
}

// NewPositionTable builds a table from source text and a full token stream
// (typically produced by Tokenize with RetainComments enabled).
func NewPositionTable(src []byte, tokens []Token) *PositionTable {
	pt := &PositionTable{src: src, lexemes: tokens}
	pt.lineStarts = append(pt.lineStarts, 0)
	for i, b := range src {
		if b == '\n' {
			pt.lineStarts = append(pt.lineStarts, int32(i+1))
		}
	}
	return pt
}

// LineColAt converts a byte offset to 1-based line/column.
func (pt *PositionTable) LineColAt(offset int32) (line, col uint32) {
	i := sort.Search(len(pt.lineStarts), func(i int) bool { return pt.lineStarts[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return uint32(i + 1), uint32(offset-pt.lineStarts[i]) + 1
}

// OffsetAt converts a 1-based line/column to a byte offset.
func (pt *PositionTable) OffsetAt(line, col uint32) int32 {
	idx := int(line) - 1
	if idx < 0 || idx >= len(pt.lineStarts) {
		return int32(len(pt.src))
	}
	return pt.lineStarts[idx] + int32(col) - 1
}

// FindLexemeAtOffset returns the token whose span contains offset, and
// whether one was found. Used by C1's cursor-lookup contract.
func (pt *PositionTable) FindLexemeAtOffset(offset int32) (Token, bool) {
	i := sort.Search(len(pt.lexemes), func(i int) bool {
		return pt.lexemes[i].Pos+int32(len(pt.lexemes[i].Raw)) > offset
	})
	if i < len(pt.lexemes) && pt.lexemes[i].Pos <= offset {
		return pt.lexemes[i], true
	}
	return Token{}, false
}

// FindLexemeAtLineColumn is a line/column convenience wrapper over
// FindLexemeAtOffset.
func (pt *PositionTable) FindLexemeAtLineColumn(line, col uint32) (Token, bool) {
	return pt.FindLexemeAtOffset(pt.OffsetAt(line, col))
}

// TokenBefore returns the last non-comment token whose span ends at or
// before offset — the token immediately preceding a cursor.
func (pt *PositionTable) TokenBefore(offset int32) (Token, bool) {
	var best Token
	found := false
	for _, t := range pt.lexemes {
		if t.Type == COMMENT || t.Type == WHITESPACE {
			continue
		}
		end := t.Pos + int32(len(t.Raw))
		if end <= offset {
			best = t
			found = true
			continue
		}
		break
	}
	return best, found
}

// Comments returns every COMMENT token in source order.
func (pt *PositionTable) Comments() []Token {
	var out []Token
	for _, t := range pt.lexemes {
		if t.Type == COMMENT {
			out = append(out, t)
		}
	}
	return out
}
