package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/tract-dev/tract/internal/timeparsing"
	"github.com/tract-dev/tract/internal/types"
)

// CommitView is the predicate-evaluation unit for tract log --query: a
// commit joined with the annotation state a caller has already resolved
// (latest priority, active tag set), since AnnotationStore/TagStore
// resolution is a separate batch call and the evaluator itself never
// touches the store.
type CommitView struct {
	Commit   *types.Commit
	Priority types.Priority // "" if never annotated
	Tags     []string
}

// Evaluator converts a query AST into a predicate over a CommitView.
// Unlike a store-pushdown filter, every comparison here runs in-process:
// internal/store's CommitStore has no commit-field search method to push
// comparisons into (only GetByConfig, which is scoped to metadata JSON
// paths), so query results are always produced by batch-loading a
// candidate set (AllForTract, GetAncestors) and running it through the
// predicate returned here.
type Evaluator struct {
	now time.Time
}

// NewEvaluator creates an Evaluator with the given reference time, used
// to resolve relative time expressions like "created>7d".
func NewEvaluator(now time.Time) *Evaluator {
	return &Evaluator{now: now}
}

// Evaluate compiles node into a predicate function.
func (e *Evaluator) Evaluate(node Node) (func(*CommitView) bool, error) {
	switch n := node.(type) {
	case *ComparisonNode:
		return e.buildComparison(n)
	case *AndNode:
		left, err := e.Evaluate(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.Evaluate(n.Right)
		if err != nil {
			return nil, err
		}
		return func(c *CommitView) bool { return left(c) && right(c) }, nil
	case *OrNode:
		left, err := e.Evaluate(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.Evaluate(n.Right)
		if err != nil {
			return nil, err
		}
		return func(c *CommitView) bool { return left(c) || right(c) }, nil
	case *NotNode:
		operand, err := e.Evaluate(n.Operand)
		if err != nil {
			return nil, err
		}
		return func(c *CommitView) bool { return !operand(c) }, nil
	default:
		return nil, fmt.Errorf("unexpected node type: %T", node)
	}
}

func (e *Evaluator) buildComparison(comp *ComparisonNode) (func(*CommitView) bool, error) {
	switch comp.Field {
	case "hash", "commit_hash":
		return e.buildHashPredicate(comp)
	case "operation", "op":
		return e.buildEqualityPredicate(comp, "operation", func(c *CommitView) string {
			return string(c.Commit.Operation)
		})
	case "content_type", "type":
		return e.buildEqualityPredicate(comp, "content_type", func(c *CommitView) string {
			return string(c.Commit.ContentType)
		})
	case "priority":
		return e.buildEqualityPredicate(comp, "priority", func(c *CommitView) string {
			return string(c.Priority)
		})
	case "tag":
		return e.buildTagPredicate(comp)
	case "message":
		return e.buildContainsPredicate(comp, "message", func(c *CommitView) string { return c.Commit.Message })
	case "edit_target":
		return e.buildEqualityPredicate(comp, "edit_target", func(c *CommitView) string {
			if c.Commit.EditTarget == nil {
				return ""
			}
			return *c.Commit.EditTarget
		})
	case "tract_id":
		return e.buildEqualityPredicate(comp, "tract_id", func(c *CommitView) string { return c.Commit.TractID })
	case "created", "created_at":
		return e.buildTimePredicate(comp)
	default:
		return nil, fmt.Errorf("unknown field: %s", comp.Field)
	}
}

func (e *Evaluator) buildHashPredicate(comp *ComparisonNode) (func(*CommitView) bool, error) {
	value := comp.Value
	if strings.HasSuffix(value, "*") {
		prefix := strings.TrimSuffix(value, "*")
		switch comp.Op {
		case OpEquals:
			return func(c *CommitView) bool { return strings.HasPrefix(c.Commit.CommitHash, prefix) }, nil
		case OpNotEquals:
			return func(c *CommitView) bool { return !strings.HasPrefix(c.Commit.CommitHash, prefix) }, nil
		default:
			return nil, fmt.Errorf("hash with wildcard only supports = and != operators")
		}
	}
	switch comp.Op {
	case OpEquals:
		return func(c *CommitView) bool { return c.Commit.CommitHash == value }, nil
	case OpNotEquals:
		return func(c *CommitView) bool { return c.Commit.CommitHash != value }, nil
	default:
		return nil, fmt.Errorf("hash does not support %s operator", comp.Op.String())
	}
}

func (e *Evaluator) buildEqualityPredicate(comp *ComparisonNode, field string, get func(*CommitView) string) (func(*CommitView) bool, error) {
	value := comp.Value
	switch comp.Op {
	case OpEquals:
		return func(c *CommitView) bool { return strings.EqualFold(get(c), value) }, nil
	case OpNotEquals:
		return func(c *CommitView) bool { return !strings.EqualFold(get(c), value) }, nil
	default:
		return nil, fmt.Errorf("%s does not support %s operator", field, comp.Op.String())
	}
}

func (e *Evaluator) buildContainsPredicate(comp *ComparisonNode, field string, get func(*CommitView) string) (func(*CommitView) bool, error) {
	value := strings.ToLower(comp.Value)
	switch comp.Op {
	case OpEquals:
		return func(c *CommitView) bool { return strings.Contains(strings.ToLower(get(c)), value) }, nil
	case OpNotEquals:
		return func(c *CommitView) bool { return !strings.Contains(strings.ToLower(get(c)), value) }, nil
	default:
		return nil, fmt.Errorf("%s does not support %s operator", field, comp.Op.String())
	}
}

func (e *Evaluator) buildTagPredicate(comp *ComparisonNode) (func(*CommitView) bool, error) {
	value := comp.Value
	has := func(c *CommitView) bool {
		for _, t := range c.Tags {
			if strings.EqualFold(t, value) {
				return true
			}
		}
		return false
	}
	switch comp.Op {
	case OpEquals:
		return has, nil
	case OpNotEquals:
		return func(c *CommitView) bool { return !has(c) }, nil
	default:
		return nil, fmt.Errorf("tag does not support %s operator", comp.Op.String())
	}
}

func (e *Evaluator) buildTimePredicate(comp *ComparisonNode) (func(*CommitView) bool, error) {
	t, err := e.parseTimeValue(comp)
	if err != nil {
		return nil, fmt.Errorf("invalid created time: %w", err)
	}
	op := comp.Op
	return func(c *CommitView) bool {
		return compareTime(op, c.Commit.CreatedAt, t)
	}, nil
}

func compareTime(op ComparisonOp, actual, target time.Time) bool {
	switch op {
	case OpEquals:
		return actual.Year() == target.Year() && actual.Month() == target.Month() && actual.Day() == target.Day()
	case OpNotEquals:
		return !(actual.Year() == target.Year() && actual.Month() == target.Month() && actual.Day() == target.Day())
	case OpLess:
		return actual.Before(target)
	case OpLessEq:
		return actual.Before(target) || actual.Equal(target)
	case OpGreater:
		return actual.After(target)
	case OpGreaterEq:
		return actual.After(target) || actual.Equal(target)
	default:
		return false
	}
}

// parseTimeValue parses a time value from a comparison node. Duration
// values (7d, 24h) are interpreted as "now - duration", matching the
// query language's "created>7d means within the last 7 days" convention.
func (e *Evaluator) parseTimeValue(comp *ComparisonNode) (time.Time, error) {
	if comp.ValueType == TokenDuration {
		negated := "-" + strings.TrimPrefix(comp.Value, "+")
		return timeparsing.ParseCompactDuration(negated, e.now)
	}
	return timeparsing.ParseRelativeTime(comp.Value, e.now)
}

// Evaluate is a convenience function that parses and evaluates a query
// string against time.Now.
func Evaluate(query string) (func(*CommitView) bool, error) {
	return EvaluateAt(query, time.Now())
}

// EvaluateAt parses and evaluates a query string with a specific
// reference time.
func EvaluateAt(query string, now time.Time) (func(*CommitView) bool, error) {
	node, err := Parse(query)
	if err != nil {
		return nil, err
	}
	eval := NewEvaluator(now)
	return eval.Evaluate(node)
}
