package tournament

import (
	"context"
	"sort"
	"sync"
)

// MockStore is an in-memory implementation of the TournamentStore interface
// for testing. Seed it through the exported maps; override single methods
// through the XxxFunc hooks. It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	Players  map[int64]*Player
	Phases   map[int64]*Phase
	Matches  map[int64]*Match
	Rulesets map[int64]*Ruleset
	Results  []ProgressionResult

	nextID int64

	// Spies for method calls
	GetPlayerFunc func(ctx context.Context, id int64) (*Player, error)
	GetMatchFunc  func(ctx context.Context, id int64) (*Match, error)
	SaveMatchFunc func(ctx context.Context, match *Match) error
	SaveManyFunc  func(ctx context.Context, results []ProgressionResult) error

	// Call records
	SaveMatchCalls []Match
	SaveManyCalls  [][]ProgressionResult
}

var _ TournamentStore = (*MockStore)(nil)

// NewMock creates a new, empty mock store.
func NewMock() *MockStore {
	return &MockStore{
		Players:  make(map[int64]*Player),
		Phases:   make(map[int64]*Phase),
		Matches:  make(map[int64]*Match),
		Rulesets: make(map[int64]*Ruleset),
		nextID:   1000,
	}
}

// Reset clears all call records.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveMatchCalls = nil
	m.SaveManyCalls = nil
}

// AddPlayers registers players by id.
func (m *MockStore) AddPlayers(players ...Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range players {
		p := players[i]
		m.Players[p.ID] = &p
	}
}

// AddMatch registers a match and links it to its phase when the phase exists.
func (m *MockStore) AddMatch(match Match) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Matches[match.ID] = cloneMatch(&match)
	if phase, ok := m.Phases[match.PhaseID]; ok && !phase.HasMatch(match.ID) {
		phase.MatchIDs = append(phase.MatchIDs, match.ID)
		sort.Slice(phase.MatchIDs, func(i, j int) bool { return phase.MatchIDs[i] < phase.MatchIDs[j] })
	}
}

// AddPhase registers a phase.
func (m *MockStore) AddPhase(phase Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if phase.MatchIDs == nil {
		phase.MatchIDs = []int64{}
	}
	m.Phases[phase.ID] = &phase
}

// AddRuleset registers a ruleset.
func (m *MockStore) AddRuleset(ruleset Ruleset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rulesets[ruleset.ID] = &ruleset
}

func (m *MockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func cloneMatch(match *Match) *Match {
	c := *match
	c.Players = append([]Player(nil), match.Players...)
	c.Rounds = make([]Round, len(match.Rounds))
	for i, r := range match.Rounds {
		c.Rounds[i] = Round{
			ID:          r.ID,
			Standings:   append([]Standing(nil), r.Standings...),
			Assignments: append([]SetupAssignment(nil), r.Assignments...),
		}
	}
	return &c
}

func (m *MockStore) CreatePlayer(ctx context.Context, name string) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &Player{ID: m.id(), Name: name}
	m.Players[p.ID] = p
	c := *p
	return &c, nil
}

func (m *MockStore) GetPlayer(ctx context.Context, id int64) (*Player, error) {
	if m.GetPlayerFunc != nil {
		return m.GetPlayerFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Players[id]
	if !ok {
		return nil, notFound("player", id)
	}
	c := *p
	return &c, nil
}

func (m *MockStore) CreateSetup(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id(), nil
}

func (m *MockStore) CreatePhase(ctx context.Context, name string, rulesetID *int64) (*Phase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &Phase{ID: m.id(), Name: name, RulesetID: rulesetID, MatchIDs: []int64{}}
	m.Phases[p.ID] = p
	c := *p
	return &c, nil
}

func (m *MockStore) GetPhase(ctx context.Context, id int64) (*Phase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Phases[id]
	if !ok {
		return nil, notFound("phase", id)
	}
	c := *p
	c.MatchIDs = append([]int64{}, p.MatchIDs...)
	return &c, nil
}

func (m *MockStore) SetPhaseRuleset(ctx context.Context, phaseID int64, rulesetID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Phases[phaseID]
	if !ok {
		return notFound("phase", phaseID)
	}
	p.RulesetID = rulesetID
	return nil
}

func (m *MockStore) CreateMatch(ctx context.Context, phaseID int64, name string, playerIDs []int64) (*Match, error) {
	m.mu.Lock()
	match := Match{ID: m.id(), PhaseID: phaseID, Name: name, Players: []Player{}, Rounds: []Round{}}
	for _, id := range playerIDs {
		if p, ok := m.Players[id]; ok {
			match.Players = append(match.Players, *p)
		}
	}
	m.mu.Unlock()
	m.AddMatch(match)
	return cloneMatch(&match), nil
}

func (m *MockStore) GetMatch(ctx context.Context, id int64) (*Match, error) {
	if m.GetMatchFunc != nil {
		return m.GetMatchFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.Matches[id]
	if !ok {
		return nil, notFound("match", id)
	}
	return cloneMatch(match), nil
}

func (m *MockStore) SaveMatch(ctx context.Context, match *Match) error {
	m.mu.Lock()
	m.SaveMatchCalls = append(m.SaveMatchCalls, *cloneMatch(match))
	m.mu.Unlock()
	if m.SaveMatchFunc != nil {
		return m.SaveMatchFunc(ctx, match)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Matches[match.ID]; !ok {
		return notFound("match", match.ID)
	}
	m.Matches[match.ID] = cloneMatch(match)
	return nil
}

func (m *MockStore) PhaseMatches(ctx context.Context, phaseID int64) ([]Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matches []Match
	for _, match := range m.Matches {
		if match.PhaseID == phaseID {
			matches = append(matches, *cloneMatch(match))
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (m *MockStore) AddRound(ctx context.Context, matchID int64, standings []Standing, setupIDs []int64) (*Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.Matches[matchID]
	if !ok {
		return nil, notFound("match", matchID)
	}
	round := Round{ID: m.id(), Standings: append([]Standing(nil), standings...)}
	for _, id := range setupIDs {
		round.Assignments = append(round.Assignments, SetupAssignment{SetupID: id})
	}
	match.Rounds = append(match.Rounds, round)
	return &round, nil
}

func (m *MockStore) CreateRuleset(ctx context.Context, ruleset *Ruleset) (*Ruleset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *ruleset
	c.ID = m.id()
	m.Rulesets[c.ID] = &c
	out := c
	return &out, nil
}

func (m *MockStore) ListRulesets(ctx context.Context) ([]Ruleset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rulesets := []Ruleset{}
	for _, r := range m.Rulesets {
		rulesets = append(rulesets, *r)
	}
	sort.Slice(rulesets, func(i, j int) bool { return rulesets[i].ID < rulesets[j].ID })
	return rulesets, nil
}

func (m *MockStore) GetRuleset(ctx context.Context, id int64) (*Ruleset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Rulesets[id]
	if !ok {
		return nil, notFound("ruleset", id)
	}
	c := *r
	return &c, nil
}

func (m *MockStore) UpdateRuleset(ctx context.Context, id int64, update RulesetUpdate) (*Ruleset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Rulesets[id]
	if !ok {
		return nil, notFound("ruleset", id)
	}
	if update.Name != nil {
		r.Name = *update.Name
	}
	if update.Description != nil {
		r.Description = *update.Description
	}
	if len(update.Config) > 0 {
		r.Config = update.Config
	}
	if update.IsActive != nil {
		r.IsActive = *update.IsActive
	}
	c := *r
	return &c, nil
}

func (m *MockStore) DeleteRuleset(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Rulesets[id]; !ok {
		return notFound("ruleset", id)
	}
	for _, p := range m.Phases {
		if p.RulesetID != nil && *p.RulesetID == id {
			p.RulesetID = nil
		}
	}
	delete(m.Rulesets, id)
	return nil
}

func (m *MockStore) SaveMany(ctx context.Context, results []ProgressionResult) error {
	m.mu.Lock()
	m.SaveManyCalls = append(m.SaveManyCalls, append([]ProgressionResult(nil), results...))
	m.mu.Unlock()
	if m.SaveManyFunc != nil {
		return m.SaveManyFunc(ctx, results)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range results {
		results[i].ID = m.id()
		m.Results = append(m.Results, results[i])
	}
	return nil
}

func (m *MockStore) ResultsByRun(ctx context.Context, runID string) ([]ProgressionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []ProgressionResult
	for _, r := range m.Results {
		if r.RunID == runID {
			results = append(results, r)
		}
	}
	if len(results) == 0 {
		return nil, notFound("run", runID)
	}
	return results, nil
}
