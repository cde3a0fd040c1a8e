package parser

import (
	"github.com/oarkflow/sqlparser/ast"
	"github.com/oarkflow/sqlparser/lexer"
)

// DefaultMaxRecoveryAttempts bounds how many times ParseToCursor resynchronizes
// after a syntax error before giving up, so a pathologically broken buffer
// (as an editor mid-keystroke produces constantly) cannot spin forever.
const DefaultMaxRecoveryAttempts = 8

// CursorResult is the outcome of a partial, cursor-aware parse: every
// statement that parsed cleanly, plus identification of which one (if any)
// encloses the requested cursor offset.
type CursorResult struct {
	Statements   []ast.Statement
	Errors       []error
	EnclosingIdx int // index into Statements, or -1 if the cursor falls in an unparsed region
}

// ParseToCursor parses src permissively: on a syntax error it discards
// tokens up to the next statement boundary (a semicolon, or EOF) and resumes,
// up to maxRecoveryAttempts times. This lets an editor ask "what statement
// is the cursor in" against a buffer that is transiently invalid SQL.
// A maxRecoveryAttempts <= 0 selects DefaultMaxRecoveryAttempts.
func ParseToCursor(src []byte, cursorOffset int32, maxRecoveryAttempts int) CursorResult {
	if maxRecoveryAttempts <= 0 {
		maxRecoveryAttempts = DefaultMaxRecoveryAttempts
	}
	p := New(src)
	var res CursorResult
	res.EnclosingIdx = -1
	attempts := 0
	for {
		p.skipSemis()
		if p.tok.Type == lexer.EOF {
			break
		}
		startPos := p.tok.Pos
		stmt, err := p.parseStatement()
		if err != nil {
			res.Errors = append(res.Errors, err)
			attempts++
			if attempts > maxRecoveryAttempts {
				break
			}
			p.recoverToStatementBoundary()
			continue
		}
		p.skipSemis()
		endPos := p.tok.Pos
		res.Statements = append(res.Statements, stmt)
		if cursorOffset >= startPos && cursorOffset <= endPos {
			res.EnclosingIdx = len(res.Statements) - 1
		}
	}
	return res
}

// recoverToStatementBoundary advances past tokens until a semicolon or EOF,
// respecting paren nesting so a semicolon inside a string or a nested
// statement does not end recovery early.
func (p *Parser) recoverToStatementBoundary() {
	depth := 0
	for {
		switch p.tok.Type {
		case lexer.EOF:
			return
		case lexer.LPAREN:
			depth++
		case lexer.RPAREN:
			if depth > 0 {
				depth--
			}
		case lexer.SEMICOLON:
			if depth == 0 {
				return
			}
		}
		p.advance()
	}
}

// TokenBeforeCursor returns the last lexeme ending at or before offset,
// using a fresh tokenization of src. It is the cheap half of the cursor
// contract; ScopeAt (in the analyzer package) builds on CursorResult to
// resolve which aliases are visible there.
func TokenBeforeCursor(src []byte, offset int32) (lexer.Token, bool) {
	l := lexer.New(src)
	l.RetainComments = true
	var toks []lexer.Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Type == lexer.EOF {
			break
		}
	}
	pt := lexer.NewPositionTable(src, toks)
	return pt.TokenBefore(offset)
}
