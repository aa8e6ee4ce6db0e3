package conditionals

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
)

// Verdict is the outcome of checking a choice's requirements.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// CanChoose checks every requirement of the choice in order and stops at the first failure.
// Unset world flags evaluate as false.
func CanChoose(c *actor.Character, flags map[string]any, choice scenario.Choice) Verdict {
	for _, req := range choice.Requirements {
		if v := check(c, flags, req); !v.Allowed {
			return v
		}
	}
	return Verdict{Allowed: true}
}

func check(c *actor.Character, flags map[string]any, req scenario.Requirement) Verdict {
	switch req.Type {
	case scenario.RequirementStat:
		current, ok := c.Stats.Get(req.Target)
		if !ok {
			return Verdict{Reason: fmt.Sprintf("Requires %s %s %v (unknown stat)", req.Target, req.Operator, req.Value)}
		}
		if !Compare(current, req.Operator, req.Value) {
			return Verdict{Reason: fmt.Sprintf("Requires %s %s %v (current: %v)", req.Target, req.Operator, req.Value, current)}
		}

	case scenario.RequirementItem:
		if !c.HasItem(req.Target) {
			return Verdict{Reason: fmt.Sprintf("Requires item: %s", req.Target)}
		}

	case scenario.RequirementWorldFlag:
		value, ok := flags[req.Target]
		if !ok {
			value = false
		}
		if !Compare(value, req.Operator, req.Value) {
			return Verdict{Reason: fmt.Sprintf("Requires world flag: %s", req.Target)}
		}

	default:
		return Verdict{Reason: fmt.Sprintf("Unsupported requirement type: %s", req.Type)}
	}
	return Verdict{Allowed: true}
}

// Compare applies op to actual and expected. Numbers (including numeric strings) compare
// numerically and other strings lexically. Any other pairing only supports ==.
func Compare(actual any, op scenario.Operator, expected any) bool {
	a, aNum := toNumber(actual)
	b, bNum := toNumber(expected)
	if aNum && bNum {
		switch op {
		case scenario.OpGTE:
			return a >= b
		case scenario.OpLTE:
			return a <= b
		case scenario.OpEQ:
			return a == b
		case scenario.OpGT:
			return a > b
		case scenario.OpLT:
			return a < b
		}
		return false
	}

	as, aStr := actual.(string)
	bs, bStr := expected.(string)
	if aStr && bStr {
		switch op {
		case scenario.OpGTE:
			return as >= bs
		case scenario.OpLTE:
			return as <= bs
		case scenario.OpEQ:
			return as == bs
		case scenario.OpGT:
			return as > bs
		case scenario.OpLT:
			return as < bs
		}
		return false
	}

	if op == scenario.OpEQ {
		return reflect.DeepEqual(actual, expected)
	}
	return false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
