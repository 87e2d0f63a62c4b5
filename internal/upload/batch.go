package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/guestlens/internal/common"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeError   Outcome = "error"
)

type ItemOutcome struct {
	Key     string
	Outcome Outcome
	Err     error
}

// BatchStatus is the coarse result reported to the user.
type BatchStatus string

const (
	BatchAll     BatchStatus = "all"
	BatchPartial BatchStatus = "partial"
	BatchNone    BatchStatus = "none"
)

// BatchResult accounts for every item of a batch in selection order.
// Skipped items count toward Total but not Succeeded.
type BatchResult struct {
	Total     int
	Succeeded int
	Items     []ItemOutcome
}

func (r BatchResult) Status() BatchStatus {
	switch {
	case r.Total > 0 && r.Succeeded == r.Total:
		return BatchAll
	case r.Succeeded > 0:
		return BatchPartial
	default:
		return BatchNone
	}
}

func (r BatchResult) count(o Outcome) int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome == o {
			n++
		}
	}
	return n
}

func (r BatchResult) Skipped() int { return r.count(OutcomeSkipped) }
func (r BatchResult) Failed() int  { return r.count(OutcomeError) }

// Message renders the user-facing summary, e.g. "All 4 photos added".
func (r BatchResult) Message(verb string) string {
	switch r.Status() {
	case BatchAll:
		return fmt.Sprintf("All %d %s %s", r.Total, photoNoun(r.Total), verb)
	case BatchPartial:
		return fmt.Sprintf("Partial Success (%d of %d)", r.Succeeded, r.Total)
	default:
		return fmt.Sprintf("No photos %s", verb)
	}
}

func photoNoun(n int) string {
	if n == 1 {
		return "photo"
	}
	return "photos"
}

// Err is nil when every item succeeded. Otherwise it wraps ErrPartialBatch
// and the individual item errors.
func (r BatchResult) Err() error {
	if r.Status() == BatchAll {
		return nil
	}
	var errs []error
	for _, it := range r.Items {
		if it.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", it.Key, it.Err))
		}
	}
	base := fmt.Errorf("%w: %d of %d succeeded", common.ErrPartialBatch, r.Succeeded, r.Total)
	if len(errs) == 0 {
		return base
	}
	return errors.Join(append([]error{base}, errs...)...)
}

// Operation describes how a batch treats one item. IsDuplicate may be nil.
type Operation[T any] struct {
	Key         func(T) string
	IsDuplicate func(ctx context.Context, item T) (bool, error)
	Apply       func(ctx context.Context, item T) error
	// OnItem, if set, is called after each item.
	OnItem func(ItemOutcome)
}

// ApplyBatch folds op over items in order. Item failures are recorded and
// never stop the loop.
func ApplyBatch[T any](ctx context.Context, items []T, op Operation[T]) BatchResult {
	res := BatchResult{Total: len(items), Items: make([]ItemOutcome, 0, len(items))}

	for _, item := range items {
		out := applyOne(ctx, item, op)
		if out.Outcome == OutcomeSuccess {
			res.Succeeded++
		}
		res.Items = append(res.Items, out)
		if op.OnItem != nil {
			op.OnItem(out)
		}
	}
	return res
}

func applyOne[T any](ctx context.Context, item T, op Operation[T]) (out ItemOutcome) {
	if op.Key != nil {
		out.Key = op.Key(item)
	} else {
		out.Key = fmt.Sprint(item)
	}

	defer func() {
		if r := recover(); r != nil {
			out.Outcome = OutcomeError
			out.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		out.Outcome, out.Err = OutcomeError, err
		return out
	}

	if op.IsDuplicate != nil {
		dup, err := op.IsDuplicate(ctx, item)
		if err != nil {
			out.Outcome, out.Err = OutcomeError, err
			return out
		}
		if dup {
			out.Outcome = OutcomeSkipped
			return out
		}
	}

	if err := op.Apply(ctx, item); err != nil {
		out.Outcome, out.Err = OutcomeError, err
		return out
	}
	out.Outcome = OutcomeSuccess
	return out
}
