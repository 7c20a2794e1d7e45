// Package query filters, paginates and looks up mails in a store snapshot.
// Nothing here holds state between calls; every function works on the slice
// it is given and never modifies it.
package query

import (
	"context"
	"fmt"
	"strings"

	"mailsink/internal/mailstore"
	"mailsink/pkg/cel"
)

// Criteria are conjunctive; empty fields impose no constraint.
type Criteria struct {
	From    string
	To      string
	Subject string
	// Expression is an optional CEL boolean expression.
	Expression string
}

func (c Criteria) IsZero() bool {
	return c.From == "" && c.To == "" && c.Subject == "" && c.Expression == ""
}

// Page selects [Offset, Offset+Limit). A nil Limit means "all remaining".
type Page struct {
	Limit  *int
	Offset int
}

type Result struct {
	Total  int
	Limit  *int
	Offset int
	Emails []mailstore.Record
}

type Engine struct {
	eval *cel.Evaluator
}

func NewEngine() (*Engine, error) {
	eval, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}
	return &Engine{eval: eval}, nil
}

// Run filters records and returns the requested page together with the
// filtered total.
func (e *Engine) Run(ctx context.Context, records []mailstore.Record, criteria Criteria, page Page) (Result, error) {
	if err := page.Validate(); err != nil {
		return Result{}, err
	}

	filtered, err := e.Filter(ctx, records, criteria)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Total:  len(filtered),
		Limit:  page.Limit,
		Offset: page.Offset,
		Emails: Paginate(filtered, page),
	}, nil
}

// Filter returns the records matching every supplied criterion, in order.
func (e *Engine) Filter(ctx context.Context, records []mailstore.Record, criteria Criteria) ([]mailstore.Record, error) {
	if criteria.IsZero() {
		return records, nil
	}

	var program *cel.Filter
	if criteria.Expression != "" {
		compiled, err := e.eval.CompileFilter(criteria.Expression)
		if err != nil {
			return nil, &InvalidExpressionError{Expression: criteria.Expression, Err: err}
		}
		program = compiled
	}

	from := strings.ToLower(criteria.From)
	to := strings.ToLower(criteria.To)
	subject := strings.ToLower(criteria.Subject)

	out := make([]mailstore.Record, 0, len(records))
	for _, r := range records {
		if !containsFold(r.From, from) || !containsFold(r.ToLine(), to) || !containsFold(r.Subject, subject) {
			continue
		}
		if program != nil {
			ok, err := program.Match(ctx, Vars(r))
			if err != nil {
				return nil, &InvalidExpressionError{Expression: criteria.Expression, Err: err}
			}
			if !ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// Paginate clips [offset, offset+limit) to the available range. It never
// fails: an offset past the end yields an empty page.
func Paginate(records []mailstore.Record, page Page) []mailstore.Record {
	if page.Offset >= len(records) {
		return []mailstore.Record{}
	}
	end := len(records)
	if page.Limit != nil && *page.Limit < end-page.Offset {
		end = page.Offset + *page.Limit
	}
	return records[page.Offset:end]
}

// Find returns the record with the given id.
func Find(records []mailstore.Record, id uint64) (mailstore.Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return mailstore.Record{}, false
}

func (p Page) Validate() error {
	if p.Offset < 0 {
		return fmt.Errorf("offset must be non-negative, got %d", p.Offset)
	}
	if p.Limit != nil && *p.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", *p.Limit)
	}
	return nil
}

// needle must already be lower-cased.
func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), needle)
}

type InvalidExpressionError struct {
	Expression string
	Err        error
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("invalid filter expression %q: %v", e.Expression, e.Err)
}

func (e *InvalidExpressionError) Unwrap() error {
	return e.Err
}
