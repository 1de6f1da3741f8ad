// Package filter selects staffing plan hours with CEL expressions such as
// `plan.servers > 4 && plan.confidence != "low"`.
package filter

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/tableturn/forecaster/common/models"
)

// ErrInvalidFilter is returned for expressions that fail to compile or evaluate to a non-boolean
var ErrInvalidFilter = errors.New("invalid plan filter")

// PlanFilter compiles and caches plan filter expressions
type PlanFilter struct {
	env   *cel.Env
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewPlanFilter creates a plan filter with the `plan` variable declared
func NewPlanFilter() (*PlanFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable("plan", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	return &PlanFilter{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

func (f *PlanFilter) program(expr string) (cel.Program, error) {
	f.mu.RLock()
	prg, ok := f.cache[expr]
	f.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := f.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, issues.Err())
	}

	prg, err := f.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	f.mu.Lock()
	f.cache[expr] = prg
	f.mu.Unlock()
	return prg, nil
}

// Validate compiles expr without evaluating it
func (f *PlanFilter) Validate(expr string) error {
	_, err := f.program(expr)
	return err
}

// Match reports whether a single record satisfies expr
func (f *PlanFilter) Match(expr string, rec models.PlanRecord) (bool, error) {
	prg, err := f.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]interface{}{"plan": activation(rec)})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression did not return boolean, got %T", ErrInvalidFilter, out.Value())
	}
	return result, nil
}

// Apply keeps the records matching expr. An empty expression keeps everything.
func (f *PlanFilter) Apply(expr string, plan []models.PlanRecord) ([]models.PlanRecord, error) {
	if expr == "" {
		return plan, nil
	}

	out := make([]models.PlanRecord, 0, len(plan))
	for _, rec := range plan {
		ok, err := f.Match(expr, rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// CacheSize returns the number of compiled expressions
func (f *PlanFilter) CacheSize() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.cache)
}

func activation(rec models.PlanRecord) map[string]interface{} {
	return map[string]interface{}{
		"timestamp":  rec.Timestamp.Format(time.RFC3339),
		"hour":       int64(rec.Timestamp.Hour()),
		"weekday":    int64(rec.Timestamp.Weekday()),
		"guestCount": int64(rec.GuestCount),
		"orderCount": int64(rec.OrderCount),
		"revenue":    rec.Revenue,
		"hosts":      int64(rec.Hosts),
		"servers":    int64(rec.Servers),
		"kitchen":    int64(rec.Kitchen),
		"confidence": string(rec.Confidence),
	}
}
