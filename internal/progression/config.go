package progression

import (
	"encoding/json"
	"fmt"
)

// Step is one named sub-evaluation of a multi-step ruleset.
type Step struct {
	Name          *string
	SourceMatchID *int64
	TiePolicy     TiePolicy
	Rules         []Rule
}

// RulesetConfig is a parsed ruleset configuration. When Steps is non-empty
// it takes precedence over the top-level Rules.
type RulesetConfig struct {
	TiePolicy TiePolicy
	Rules     []Rule
	Steps     []Step
}

// Resolution is the rule list selected for one evaluation.
type Resolution struct {
	Rules     []Rule
	TiePolicy TiePolicy
	// MatchID is the match the ranking comes from, if any.
	MatchID   *int64
	StepIndex *int
	StepName  *string
	// FromStep is set when the rules came from steps[] and MatchID names the
	// step's source match.
	FromStep bool
}

// ParseConfig validates a raw ruleset config.
func ParseConfig(raw json.RawMessage) (*RulesetConfig, error) {
	if isNull(raw) {
		return nil, fmt.Errorf("%w: ruleset config must be an object", ErrInvalidConfig)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: ruleset config must be an object", ErrInvalidConfig)
	}

	cfg := &RulesetConfig{}
	var err error
	if cfg.TiePolicy, err = decodeTiePolicy(fields["tiePolicy"], "tiePolicy"); err != nil {
		return nil, err
	}
	if cfg.Rules, err = decodeRules(fields["rules"], "rules"); err != nil {
		return nil, err
	}
	if cfg.Steps, err = decodeSteps(fields["steps"]); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeTiePolicy(raw json.RawMessage, path string) (TiePolicy, error) {
	if isNull(raw) {
		return "", nil
	}
	var policy TiePolicy
	if err := json.Unmarshal(raw, &policy); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidConfig, path)
	}
	switch policy {
	case TiePolicyManualExtraSong, TiePolicyManualAdmin:
		return policy, nil
	default:
		return "", fmt.Errorf("%w: %s has unknown value %q", ErrInvalidConfig, path, policy)
	}
}

func decodeSteps(raw json.RawMessage) ([]Step, error) {
	if isNull(raw) {
		return nil, nil
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: steps must be an array of objects", ErrInvalidConfig)
	}
	steps := make([]Step, 0, len(items))
	for i, item := range items {
		var (
			step Step
			err  error
		)
		if !isNull(item["name"]) {
			if err := json.Unmarshal(item["name"], &step.Name); err != nil {
				return nil, fmt.Errorf("%w: steps[%d].name must be a string", ErrInvalidConfig, i)
			}
		}
		if !isNull(item["sourceMatchId"]) {
			if err := json.Unmarshal(item["sourceMatchId"], &step.SourceMatchID); err != nil {
				return nil, fmt.Errorf("%w: steps[%d].sourceMatchId must be an integer", ErrInvalidConfig, i)
			}
		}
		if step.TiePolicy, err = decodeTiePolicy(item["tiePolicy"], fmt.Sprintf("steps[%d].tiePolicy", i)); err != nil {
			return nil, err
		}
		if step.Rules, err = decodeRules(item["rules"], fmt.Sprintf("steps[%d].rules", i)); err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Resolve selects the rules to run. stepIndex defaults to 0 and only matters
// when the config has steps; callerMatchID is the match the request was made
// for, if any, and is the fallback source match of a step.
func (c *RulesetConfig) Resolve(stepIndex *int, callerMatchID *int64) (*Resolution, error) {
	tiePolicy := c.TiePolicy
	if tiePolicy == "" {
		tiePolicy = TiePolicyManualExtraSong
	}

	if len(c.Steps) == 0 {
		return &Resolution{
			Rules:     c.Rules,
			TiePolicy: tiePolicy,
			MatchID:   callerMatchID,
		}, nil
	}

	index := 0
	if stepIndex != nil {
		index = *stepIndex
	}
	if index < 0 || index >= len(c.Steps) {
		return nil, fmt.Errorf("ruleset step %d %w", index, ErrNotFound)
	}
	step := c.Steps[index]

	sourceMatchID := step.SourceMatchID
	if sourceMatchID == nil || *sourceMatchID == 0 {
		sourceMatchID = callerMatchID
	}
	if sourceMatchID == nil || *sourceMatchID == 0 {
		return nil, fmt.Errorf("%w: ruleset step %d has no sourceMatchId", ErrInvalidConfig, index)
	}
	if step.TiePolicy != "" {
		tiePolicy = step.TiePolicy
	}

	return &Resolution{
		Rules:     step.Rules,
		TiePolicy: tiePolicy,
		MatchID:   sourceMatchID,
		StepIndex: &index,
		StepName:  step.Name,
		FromStep:  true,
	}, nil
}
