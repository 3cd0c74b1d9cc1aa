package strategies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/rustyeddy/trendline/internal/errs"
	"github.com/rustyeddy/trendline/market"
)

// Engine evaluates a set of exit rules under one relation.
type Engine struct {
	specs    []Spec
	relation Relation
}

// NewEngine validates specs and orders them by Priority. Duplicate kinds
// keep the first occurrence. An empty selection is an error.
func NewEngine(specs []Spec, rel Relation) (*Engine, error) {
	if len(specs) == 0 {
		return nil, errs.ErrNoSellStrategy
	}
	if rel != And && rel != Or {
		return nil, fmt.Errorf("%w: strategy relation %q (AND, OR)", errs.ErrInvalidParameter, rel)
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	uniq := lo.UniqBy(specs, func(s Spec) Kind { return s.Kind })
	sort.SliceStable(uniq, func(i, j int) bool { return uniq[i].Kind.rank() < uniq[j].Kind.rank() })

	return &Engine{specs: uniq, relation: rel}, nil
}

// Specs returns the selected rules in evaluation order.
func (e *Engine) Specs() []Spec {
	return append([]Spec(nil), e.specs...)
}

// Relation returns the combinator.
func (e *Engine) Relation() Relation { return e.relation }

// RequiresMA20 reports whether a selected rule reads the MA20 column.
func (e *Engine) RequiresMA20() bool {
	return lo.ContainsBy(e.specs, func(s Spec) bool { return s.Kind == BelowMA20 })
}

// CheckSeries fails when a selected rule needs a column the series lacks.
func (e *Engine) CheckSeries(bars []market.Bar) error {
	if e.RequiresMA20() && !market.HasMA20Column(bars) {
		return fmt.Errorf("%w: below_ma20 selected but the series has no MA20 values",
			errs.ErrMovingAverageColumnMissing)
	}
	return nil
}

// Reset clears the exit rule state held by p, for a new position.
func (e *Engine) Reset(p *Position) {
	p.Reset()
}

// Evaluate runs every selected rule once against b.
//
// Under OR any triggered rule closes the position and the first one in
// Priority order names the reason. Under AND every selected rule must
// trigger on the same bar; an unarmed rule counts as not triggered. The AND
// reason joins the individual reasons with " & ".
func (e *Engine) Evaluate(p *Position, b market.Bar) (bool, string) {
	var (
		first    string
		fired    bool
		reasons  []string
		allFired = true
	)

	for _, s := range e.specs {
		ok, why := Evaluate(s, p, b)
		if !ok {
			allFired = false
			continue
		}
		reasons = append(reasons, why)
		if !fired {
			fired = true
			first = why
		}
	}

	if e.relation == And {
		if !allFired {
			return false, ""
		}
		return true, strings.Join(reasons, " & ")
	}
	return fired, first
}
