package parser

import (
	"github.com/oarkflow/sqlparser/ast"
	"github.com/oarkflow/sqlparser/lexer"
)

// parseMerge parses MERGE INTO target [alias] USING source ON cond
// WHEN [NOT] MATCHED [BY TARGET|SOURCE] [AND cond] THEN action ...
func (p *Parser) parseMerge() (*ast.MergeStmt, error) {
	pos := p.tok.Pos
	p.advance() // MERGE
	p.tryEatKeyword(lexer.INTO)

	target, err := p.parseQualifiedIdent()
	if err != nil {
		return nil, err
	}
	stmt := arenaNode(&p.arena, ast.MergeStmt{Target: target, TokPos: pos})
	stmt.TargetAlias, _ = p.parseOptionalAlias()

	if err := p.eatKeyword(lexer.USING); err != nil {
		return nil, err
	}
	source, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	stmt.Source = source

	if err := p.eatKeyword(lexer.ON); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	stmt.On = cond

	for p.tryEatKeyword(lexer.WHEN) {
		clause, err := p.parseMergeClause()
		if err != nil {
			return nil, err
		}
		stmt.Clauses = arenaAppend(&p.arena, stmt.Clauses, clause)
	}
	return stmt, nil
}

func (p *Parser) parseMergeClause() (ast.MergeClause, error) {
	pos := p.tok.Pos
	clause := ast.MergeClause{TokPos: pos}
	clause.ByTarget = true
	if p.tryEatKeyword(lexer.NOT) {
		if err := p.eatKeyword(lexer.MATCHED); err != nil {
			return clause, err
		}
		clause.Matched = false
	} else {
		if err := p.eatKeyword(lexer.MATCHED); err != nil {
			return clause, err
		}
		clause.Matched = true
	}
	if p.is(lexer.IDENT) && equalASCIIFold(p.tok.Raw, "by") {
		p.advance()
		switch {
		case p.is(lexer.IDENT) && equalASCIIFold(p.tok.Raw, "source"):
			p.advance()
			clause.ByTarget = false
		case p.is(lexer.IDENT) && equalASCIIFold(p.tok.Raw, "target"):
			p.advance()
			clause.ByTarget = true
		default:
			return clause, p.errorf("expected TARGET or SOURCE after BY, got %q", p.tok.Raw)
		}
	}
	if p.tryEatKeyword(lexer.AND) {
		cond, err := p.parseExpr(0)
		if err != nil {
			return clause, err
		}
		clause.ExtraCond = cond
	}
	if err := p.eatKeyword(lexer.THEN); err != nil {
		return clause, err
	}
	action, err := p.parseMergeAction()
	if err != nil {
		return clause, err
	}
	clause.Action = action
	return clause, nil
}

func (p *Parser) parseMergeAction() (ast.MergeAction, error) {
	pos := p.tok.Pos
	switch {
	case p.tryEatKeyword(lexer.UPDATE):
		if err := p.eatKeyword(lexer.SET); err != nil {
			return nil, err
		}
		asgn, err := p.parseAssignments()
		if err != nil {
			return nil, err
		}
		return arenaNode(&p.arena, ast.MergeUpdateAction{Set: asgn, TokPos: pos}), nil
	case p.tryEatKeyword(lexer.DELETE):
		return arenaNode(&p.arena, ast.MergeDeleteAction{TokPos: pos}), nil
	case p.is(lexer.IDENT) && equalASCIIFold(p.tok.Raw, "nothing"):
		p.advance()
		return arenaNode(&p.arena, ast.MergeDoNothingAction{TokPos: pos}), nil
	case p.tryEatKeyword(lexer.INSERT):
		act := arenaNode(&p.arena, ast.MergeInsertAction{TokPos: pos})
		if p.is(lexer.IDENT) && equalASCIIFold(p.tok.Raw, "default") {
			p.advance()
			if err := p.eatKeyword(lexer.VALUES); err != nil {
				return nil, err
			}
			act.DefaultVals = true
			return act, nil
		}
		if p.is(lexer.LPAREN) {
			p.advance()
			cols, err := p.parseIdentList()
			if err != nil {
				return nil, err
			}
			act.Columns = cols
			if _, err := p.eat(lexer.RPAREN); err != nil {
				return nil, err
			}
		}
		if err := p.eatKeyword(lexer.VALUES); err != nil {
			return nil, err
		}
		if _, err := p.eat(lexer.LPAREN); err != nil {
			return nil, err
		}
		vals, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		act.Values = vals
		if _, err := p.eat(lexer.RPAREN); err != nil {
			return nil, err
		}
		return act, nil
	default:
		return nil, p.errorf("unexpected MERGE action %q", p.tok.Raw)
	}
}
