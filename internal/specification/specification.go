// Package specification composes dynamic WHERE and ORDER BY fragments for
// Postgres listings. Each predicate is independent: it either contributes a
// clause with its own bound arguments or contributes nothing.
package specification

import (
	"fmt"
	"strings"
)

// Mode selects what Build renders.
type Mode int

const (
	// Rows renders filters and ordering for a page query.
	Rows Mode = iota
	// Count renders filters only; ordering would be wasted work in COUNT(*).
	Count
)

// Binder records a value as a positional argument and returns its placeholder.
type Binder func(value interface{}) string

// Predicate contributes an optional WHERE condition.
type Predicate interface {
	Condition(bind Binder) (string, bool)
}

// Ordering contributes one ORDER BY term.
type Ordering interface {
	Term(bind Binder) string
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(bind Binder) (string, bool)

// Condition implements Predicate.
func (f PredicateFunc) Condition(bind Binder) (string, bool) { return f(bind) }

// OrderingFunc adapts a function to Ordering.
type OrderingFunc func(bind Binder) string

// Term implements Ordering.
func (f OrderingFunc) Term(bind Binder) string { return f(bind) }

// Spec is an ordered collection of predicates and orderings.
type Spec struct {
	predicates []Predicate
	orderings  []Ordering
}

// New starts a Spec with the given predicates.
func New(predicates ...Predicate) *Spec {
	return &Spec{predicates: append([]Predicate(nil), predicates...)}
}

// Where appends predicates joined with AND.
func (s *Spec) Where(predicates ...Predicate) *Spec {
	s.predicates = append(s.predicates, predicates...)
	return s
}

// OrderBy appends ordering terms in priority order.
func (s *Spec) OrderBy(orderings ...Ordering) *Spec {
	s.orderings = append(s.orderings, orderings...)
	return s
}

// Query is a rendered Spec.
type Query struct {
	Where   string
	OrderBy string
	Args    []interface{}
}

// Bind appends value to Args and returns its placeholder. Used for LIMIT/OFFSET.
func (q *Query) Bind(value interface{}) string {
	q.Args = append(q.Args, value)
	return fmt.Sprintf("$%d", len(q.Args))
}

// Build renders the Spec. Predicate arguments always come first so that the
// Count rendering binds the same placeholders as the Rows rendering.
func (s *Spec) Build(mode Mode) Query {
	q := Query{}
	bind := Binder(q.Bind)

	conditions := make([]string, 0, len(s.predicates))
	for _, p := range s.predicates {
		if p == nil {
			continue
		}
		if cond, ok := p.Condition(bind); ok {
			conditions = append(conditions, cond)
		}
	}
	if len(conditions) > 0 {
		q.Where = " WHERE " + strings.Join(conditions, " AND ")
	}

	if mode == Count || len(s.orderings) == 0 {
		return q
	}
	terms := make([]string, 0, len(s.orderings))
	for _, o := range s.orderings {
		if o == nil {
			continue
		}
		terms = append(terms, o.Term(bind))
	}
	if len(terms) > 0 {
		q.OrderBy = " ORDER BY " + strings.Join(terms, ", ")
	}
	return q
}
