// Package strategies implements the exit rules of a held position. Each rule
// is a tagged variant (Spec) evaluated by a single dispatcher, and an Engine
// combines the selected rules with AND or OR.
package strategies

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/trendline/internal/errs"
)

// Kind names an exit rule.
type Kind string

const (
	StopLoss     Kind = "stop_loss"
	TakeProfit   Kind = "take_profit"
	BelowMA20    Kind = "below_ma20"
	TrailingStop Kind = "trailing_stop_loss"
)

// Priority is the fixed evaluation order; under OR the first triggered rule
// in this order supplies the reason.
var Priority = []Kind{StopLoss, TakeProfit, BelowMA20, TrailingStop}

func (k Kind) rank() int {
	for i, p := range Priority {
		if p == k {
			return i
		}
	}
	return len(Priority)
}

// Relation combines the daily outcomes of the selected rules.
type Relation string

const (
	And Relation = "AND"
	Or  Relation = "OR"
)

// ParseRelation accepts AND/OR case-insensitively; empty selects OR.
func ParseRelation(s string) (Relation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "OR":
		return Or, nil
	case "AND":
		return And, nil
	default:
		return "", fmt.Errorf("%w: strategy relation %q (AND, OR)", errs.ErrInvalidParameter, s)
	}
}

// Spec is one exit rule with its parameters. Only the fields of its Kind
// are used.
type Spec struct {
	Kind Kind `json:"kind" yaml:"kind"`

	// Percent is the loss, gain or drawdown threshold for stop_loss,
	// take_profit and trailing_stop_loss. A nil take_profit percent never
	// triggers.
	Percent *float64 `json:"percent,omitempty" yaml:"percent,omitempty"`

	// Days and MinProfit parameterize below_ma20.
	Days      int      `json:"days,omitempty" yaml:"days,omitempty"`
	MinProfit *float64 `json:"min_profit,omitempty" yaml:"min_profit,omitempty"`
}

// Validate checks the parameters of s.
func (s Spec) Validate() error {
	switch s.Kind {
	case StopLoss, TrailingStop:
		if s.Percent == nil {
			return fmt.Errorf("%w: %s requires a percent", errs.ErrInvalidParameter, s.Kind)
		}
		if *s.Percent <= 0 || *s.Percent >= 100 {
			return fmt.Errorf("%w: %s percent must be in (0,100), got %v", errs.ErrInvalidParameter, s.Kind, *s.Percent)
		}
	case TakeProfit:
		if s.Percent != nil && *s.Percent <= 0 {
			return fmt.Errorf("%w: take_profit percent must be positive, got %v", errs.ErrInvalidParameter, *s.Percent)
		}
	case BelowMA20:
		if s.Days <= 0 {
			return fmt.Errorf("%w: below_ma20 days must be positive, got %d", errs.ErrInvalidParameter, s.Days)
		}
		if s.MinProfit != nil && *s.MinProfit <= 0 {
			return fmt.Errorf("%w: below_ma20 min profit must be positive, got %v", errs.ErrInvalidParameter, *s.MinProfit)
		}
	default:
		return fmt.Errorf("%w: unknown sell strategy %q", errs.ErrInvalidParameter, s.Kind)
	}
	return nil
}

// Params carries the optional parameters of every rule as they arrive from
// a request or config file.
type Params struct {
	StopLossPercent     *float64 `json:"stop_loss_percent,omitempty" yaml:"stop_loss_percent,omitempty"`
	TakeProfitPercent   *float64 `json:"take_profit_percent,omitempty" yaml:"take_profit_percent,omitempty"`
	BelowMA20Days       *int     `json:"below_ma20_days,omitempty" yaml:"below_ma20_days,omitempty"`
	BelowMA20MinProfit  *float64 `json:"below_ma20_min_profit,omitempty" yaml:"below_ma20_min_profit,omitempty"`
	TrailingStopPercent *float64 `json:"trailing_stop_percent,omitempty" yaml:"trailing_stop_percent,omitempty"`
}

// Defaults used when a rule is selected without its parameter.
const (
	DefaultStopLossPercent     = 5.0
	DefaultBelowMA20Days       = 3
	DefaultTrailingStopPercent = 15.0
)

// FromNames builds the specs of the named rules from p, filling defaults
// for missing parameters. Names are matched case-insensitively and may use
// dashes; "trailing_stop" is accepted for trailing_stop_loss.
func FromNames(names []string, p Params) ([]Spec, error) {
	specs := make([]Spec, 0, len(names))
	for _, name := range names {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, err
		}

		s := Spec{Kind: kind}
		switch kind {
		case StopLoss:
			s.Percent = orDefault(p.StopLossPercent, DefaultStopLossPercent)
		case TakeProfit:
			s.Percent = p.TakeProfitPercent
		case BelowMA20:
			s.Days = DefaultBelowMA20Days
			if p.BelowMA20Days != nil {
				s.Days = *p.BelowMA20Days
			}
			s.MinProfit = p.BelowMA20MinProfit
		case TrailingStop:
			s.Percent = orDefault(p.TrailingStopPercent, DefaultTrailingStopPercent)
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// ParseKind normalizes a rule name.
func ParseKind(name string) (Kind, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	switch n {
	case string(StopLoss):
		return StopLoss, nil
	case string(TakeProfit):
		return TakeProfit, nil
	case string(BelowMA20):
		return BelowMA20, nil
	case string(TrailingStop), "trailing_stop":
		return TrailingStop, nil
	default:
		return "", fmt.Errorf("%w: unknown sell strategy %q (supported: stop_loss, take_profit, below_ma20, trailing_stop_loss)",
			errs.ErrInvalidParameter, name)
	}
}

func orDefault(v *float64, def float64) *float64 {
	if v != nil {
		x := *v
		return &x
	}
	return &def
}
