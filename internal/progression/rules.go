package progression

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RuleType is the discriminator of a rule in a ruleset config.
type RuleType string

const (
	RuleAdvanceTopN            RuleType = "ADVANCE_TOP_N"
	RuleAdvanceTopPercent      RuleType = "ADVANCE_TOP_PERCENT"
	RuleSendRankRangeToPhase   RuleType = "SEND_RANK_RANGE_TO_PHASE"
	RuleSendRemainingToPhase   RuleType = "SEND_REMAINING_TO_PHASE"
	RuleEliminateBottomN       RuleType = "ELIMINATE_BOTTOM_N"
	RuleEliminateBottomPercent RuleType = "ELIMINATE_BOTTOM_PERCENT"
)

// Rounding selects how a percentage is turned into a player count.
type Rounding string

const (
	RoundUp      Rounding = "UP"
	RoundDown    Rounding = "DOWN"
	RoundNearest Rounding = "NEAREST"
)

// Lane is the bracket side a moved player is sent to.
type Lane string

const (
	LaneWinners Lane = "WINNERS"
	LaneLosers  Lane = "LOSERS"
)

// Rule is one entry of a ruleset. The concrete types below are the only
// implementations; the evaluator switches over all of them.
type Rule interface {
	Type() RuleType
}

type AdvanceTopN struct {
	Count         int
	TargetPhaseID int64
	TargetMatchID *int64
}

type AdvanceTopPercent struct {
	Percent       float64
	TargetPhaseID int64
	TargetMatchID *int64
	Rounding      Rounding // defaults to UP
}

type SendRankRangeToPhase struct {
	FromRank      int
	ToRank        int
	TargetPhaseID int64
	TargetMatchID *int64
	Lane          Lane
}

type SendRemainingToPhase struct {
	TargetPhaseID int64
	TargetMatchID *int64
	Lane          Lane
}

type EliminateBottomN struct {
	Count int
}

type EliminateBottomPercent struct {
	Percent  float64
	Rounding Rounding // defaults to DOWN
}

func (AdvanceTopN) Type() RuleType            { return RuleAdvanceTopN }
func (AdvanceTopPercent) Type() RuleType      { return RuleAdvanceTopPercent }
func (SendRankRangeToPhase) Type() RuleType   { return RuleSendRankRangeToPhase }
func (SendRemainingToPhase) Type() RuleType   { return RuleSendRemainingToPhase }
func (EliminateBottomN) Type() RuleType       { return RuleEliminateBottomN }
func (EliminateBottomPercent) Type() RuleType { return RuleEliminateBottomPercent }

// rawRule is the wire shape shared by every rule type.
type rawRule struct {
	Type          RuleType `json:"type"`
	Count         int      `json:"count"`
	Percent       float64  `json:"percent"`
	FromRank      int      `json:"fromRank"`
	ToRank        int      `json:"toRank"`
	TargetPhaseID int64    `json:"targetPhaseId"`
	TargetMatchID *int64   `json:"targetMatchId"`
	Rounding      Rounding `json:"rounding"`
	Lane          Lane     `json:"lane"`
}

func decodeRules(raw json.RawMessage, path string) ([]Rule, error) {
	if isNull(raw) {
		return []Rule{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s must be an array", ErrInvalidConfig, path)
	}
	rules := make([]Rule, 0, len(items))
	for i, item := range items {
		rule, err := decodeRule(item)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidConfig, path, i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func decodeRule(raw json.RawMessage) (Rule, error) {
	var r rawRule
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	switch r.Rounding {
	case "", RoundUp, RoundDown, RoundNearest:
	default:
		return nil, fmt.Errorf("unknown rounding %q", r.Rounding)
	}
	switch r.Lane {
	case "", LaneWinners, LaneLosers:
	default:
		return nil, fmt.Errorf("unknown lane %q", r.Lane)
	}

	switch r.Type {
	case RuleAdvanceTopN:
		return AdvanceTopN{Count: r.Count, TargetPhaseID: r.TargetPhaseID, TargetMatchID: r.TargetMatchID}, nil
	case RuleAdvanceTopPercent:
		return AdvanceTopPercent{Percent: r.Percent, TargetPhaseID: r.TargetPhaseID, TargetMatchID: r.TargetMatchID, Rounding: r.Rounding}, nil
	case RuleSendRankRangeToPhase:
		return SendRankRangeToPhase{FromRank: r.FromRank, ToRank: r.ToRank, TargetPhaseID: r.TargetPhaseID, TargetMatchID: r.TargetMatchID, Lane: r.Lane}, nil
	case RuleSendRemainingToPhase:
		return SendRemainingToPhase{TargetPhaseID: r.TargetPhaseID, TargetMatchID: r.TargetMatchID, Lane: r.Lane}, nil
	case RuleEliminateBottomN:
		return EliminateBottomN{Count: r.Count}, nil
	case RuleEliminateBottomPercent:
		return EliminateBottomPercent{Percent: r.Percent, Rounding: r.Rounding}, nil
	default:
		return nil, fmt.Errorf("unknown rule type %q", r.Type)
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
