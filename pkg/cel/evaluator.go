package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Variables exposed to mail filter expressions. Every expression is evaluated
// against one mail at a time.
const (
	VarID          = "id"
	VarFrom        = "from"
	VarTo          = "to"
	VarCc          = "cc"
	VarSubject     = "subject"
	VarText        = "text"
	VarHTML        = "html"
	VarDate        = "date"
	VarSize        = "size"
	VarHeaders     = "headers"
	VarAttachments = "attachments"
)

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarID, cel.UintType),
		cel.Variable(VarFrom, cel.StringType),
		cel.Variable(VarTo, cel.ListType(cel.StringType)),
		cel.Variable(VarCc, cel.ListType(cel.StringType)),
		cel.Variable(VarSubject, cel.StringType),
		cel.Variable(VarText, cel.StringType),
		cel.Variable(VarHTML, cel.StringType),
		cel.Variable(VarDate, cel.TimestampType),
		cel.Variable(VarSize, cel.IntType),
		cel.Variable(VarHeaders, cel.MapType(cel.StringType, cel.ListType(cel.StringType))),
		cel.Variable(VarAttachments, cel.ListType(cel.MapType(cel.StringType, cel.DynType))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// Filter is a compiled boolean expression.
type Filter struct {
	expression string
	program    cel.Program
}

func (f *Filter) String() string {
	return f.expression
}

// CompileFilter parses and type-checks a boolean expression.
func (e *Evaluator) CompileFilter(expression string) (*Filter, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Filter{expression: expression, program: program}, nil
}

// Match evaluates the filter against one set of variables.
func (f *Filter) Match(ctx context.Context, vars map[string]interface{}) (bool, error) {
	result, _, err := f.program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}
