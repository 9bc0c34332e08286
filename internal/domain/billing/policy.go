package billing

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"clinibill/internal/core/apperror"
)

// DefaultPolicyExpr bills every record in scope regardless of status.
// This mirrors long-standing production behavior: cancellations are excluded
// by operators through an explicit policy, not silently by the engine.
const DefaultPolicyExpr = "true"

// BillablePolicy decides, per source record, whether it is billable in this
// run. Policies are CEL expressions over the record's status, description
// and price presence, e.g.:
//
//	status in ["completed", "no_show"]
//	status != "cancelled" && has_price
//
// A compiled policy is safe for concurrent use.
type BillablePolicy struct {
	expr string
	prog cel.Program
}

// CompileBillablePolicy compiles expr into an evaluable policy.
// An empty expr compiles DefaultPolicyExpr.
func CompileBillablePolicy(expr string) (*BillablePolicy, error) {
	if expr == "" {
		expr = DefaultPolicyExpr
	}

	env, err := cel.NewEnv(
		cel.Variable("status", cel.StringType),
		cel.Variable("description", cel.StringType),
		cel.Variable("has_price", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("create policy env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewValidation("invalid billing policy expression").
			WithDetail("expression", expr).
			WithCause(iss.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, apperror.NewValidation("billing policy must evaluate to a boolean").
			WithDetail("expression", expr).
			WithDetail("output_type", ast.OutputType().String())
	}

	prog, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build policy program: %w", err)
	}

	return &BillablePolicy{expr: expr, prog: prog}, nil
}

// Expr returns the source expression.
func (p *BillablePolicy) Expr() string { return p.expr }

// Billable evaluates the policy against one record.
func (p *BillablePolicy) Billable(rec SourceRecord) (bool, error) {
	out, _, err := p.prog.Eval(map[string]any{
		"status":      rec.Status,
		"description": rec.Description,
		"has_price":   rec.Price != nil,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate policy %q: %w", p.expr, err)
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy %q returned non-boolean %T", p.expr, out.Value())
	}
	return b, nil
}
