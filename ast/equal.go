package ast

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Equal reports whether a and b are the same statement up to trivia: token
// positions and retained comments never affect equality, since a
// print-then-parse round trip is free to relocate both. This backs the
// print-parse structural equality property rewrite and printer tests check.
func Equal(a, b Node) bool {
	return cmp.Equal(a, b, equalOpts()...)
}

// Diff is Equal's counterpart for test failure messages: it returns a
// human-readable structural diff, empty when a and b are Equal.
func Diff(a, b Node) string {
	return cmp.Diff(a, b, equalOpts()...)
}

func equalOpts() []cmp.Option {
	return []cmp.Option{
		cmpopts.IgnoreFields(Ident{}, "TokPos", "Raw", "ForceQuote"),
		cmpopts.IgnoreFields(StarExpr{}, "TokPos"),
		cmpopts.IgnoreFields(Literal{}, "TokPos"),
		cmpopts.IgnoreFields(NullLit{}, "TokPos"),
		cmpopts.IgnoreFields(Param{}, "TokPos"),
		cmpopts.IgnoreFields(BinaryExpr{}, "TokPos"),
		cmpopts.IgnoreFields(UnaryExpr{}, "TokPos"),
		cmpopts.IgnoreFields(FuncCall{}, "TokPos"),
		cmpopts.IgnoreFields(CaseExpr{}, "TokPos"),
		cmpopts.IgnoreFields(BetweenExpr{}, "TokPos"),
		cmpopts.IgnoreFields(InExpr{}, "TokPos"),
		cmpopts.IgnoreFields(LikeExpr{}, "TokPos"),
		cmpopts.IgnoreFields(IsNullExpr{}, "TokPos"),
		cmpopts.IgnoreFields(ExistsExpr{}, "TokPos"),
		cmpopts.IgnoreFields(SubqueryExpr{}, "TokPos"),
		cmpopts.IgnoreFields(CastExpr{}, "TokPos"),
		cmpopts.IgnoreFields(SelectStmt{}, "TokPos"),
		cmpopts.IgnoreFields(SubqueryTable{}, "TokPos"),
		cmpopts.IgnoreFields(JoinTable{}, "TokPos"),
		cmpopts.IgnoreFields(CTE{}, "LeadingComments"),
		cmpopts.IgnoreFields(SelectColumn{}, "LeadingComments", "TrailingComment"),
		cmpopts.IgnoreFields(InsertStmt{}, "TokPos"),
		cmpopts.IgnoreFields(UpdateStmt{}, "TokPos"),
		cmpopts.IgnoreFields(DeleteStmt{}, "TokPos"),
		cmp.FilterPath(func(p cmp.Path) bool {
			sf, ok := p.Last().(cmp.StructField)
			return ok && sf.Name() == "TokPos"
		}, cmp.Ignore()),
	}
}
