package scenario

import (
	"fmt"
	"strings"
)

type RequirementType string

const (
	RequirementStat      RequirementType = "stat"
	RequirementItem      RequirementType = "item"
	RequirementWorldFlag RequirementType = "world_flag"
)

type Operator string

const (
	OpGTE Operator = ">="
	OpLTE Operator = "<="
	OpEQ  Operator = "=="
	OpGT  Operator = ">"
	OpLT  Operator = "<"
)

// Requirement gates a choice. All requirements of a choice must hold.
// Value is a decoded JSON scalar (float64, string, bool) or nil.
type Requirement struct {
	Type     RequirementType `json:"type"`
	Target   string          `json:"target"`
	Operator Operator        `json:"operator"`
	Value    any             `json:"value"`
}

func (r Requirement) Validate() error {
	switch r.Type {
	case RequirementStat, RequirementItem, RequirementWorldFlag:
	default:
		return fmt.Errorf("unknown requirement type %q", r.Type)
	}
	if strings.TrimSpace(r.Target) == "" {
		return fmt.Errorf("%s requirement has no target", r.Type)
	}
	if r.Type == RequirementItem {
		return nil
	}
	switch r.Operator {
	case OpGTE, OpLTE, OpEQ, OpGT, OpLT:
		return nil
	}
	return fmt.Errorf("requirement on %q has invalid operator %q", r.Target, r.Operator)
}
