package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mauv0809/phasekeeper/internal/progression"
	"github.com/mauv0809/phasekeeper/internal/tournament"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func optional(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func renderRanking(entries []progression.RankingEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Rank),
			e.Player.Name,
			strconv.Itoa(e.TotalPoints),
			strconv.FormatFloat(e.AveragePercentage, 'f', 2, 64),
			strconv.Itoa(e.FailCount),
		})
	}
	return renderTable(
		[]string{"Rank", "Player", "Points", "Avg %", "Fails"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
	)
}

func renderActions(actions []progression.PlannedAction) string {
	rows := make([][]string, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, []string{
			strconv.Itoa(a.Rank),
			a.Player.Name,
			string(a.Action),
			optional(a.TargetPhaseID),
			optional(a.TargetMatchID),
			yesNo(a.TiedAtBoundary),
			a.Reason,
		})
	}
	return renderTable(
		[]string{"Rank", "Player", "Action", "Phase", "Match", "Tied", "Reason"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}

// renderPreview prints the header line, ranking, decisions and any ties.
func renderPreview(p *progression.PreviewResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase %d · ruleset %d · tie policy %s", p.PhaseID, p.RulesetID, p.TiePolicy)
	if p.MatchID != nil {
		fmt.Fprintf(&b, " · match %d", *p.MatchID)
	}
	if p.StepIndex != nil {
		fmt.Fprintf(&b, " · step %d", *p.StepIndex)
		if p.StepName != nil {
			fmt.Fprintf(&b, " (%s)", *p.StepName)
		}
	}
	b.WriteString("\n\nRanking\n")
	b.WriteString(renderRanking(p.Ranking))
	b.WriteString("\n\nDecisions\n")
	if len(p.Actions) == 0 {
		b.WriteString("No player was decided.")
	} else {
		b.WriteString(renderActions(p.Actions))
	}

	if len(p.UnresolvedTies) > 0 {
		names := make(map[int64]string, len(p.Ranking))
		for _, e := range p.Ranking {
			names[e.Player.ID] = e.Player.Name
		}
		b.WriteString("\n\nUnresolved ties\n")
		for _, tie := range p.UnresolvedTies {
			players := make([]string, 0, len(tie.PlayerIDs))
			for _, id := range tie.PlayerIDs {
				players = append(players, names[id])
			}
			fmt.Fprintf(&b, "  %s: %s\n", tie.Reason, strings.Join(players, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCommit(c *progression.CommitResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: saved %d, auto-assigned %d\n\n", c.RunID, c.Saved, c.AutoAssignedPlayers)
	if c.Preview != nil {
		b.WriteString(renderPreview(c.Preview))
	}
	return b.String()
}

func renderRulesets(rulesets []tournament.Ruleset) string {
	rows := make([][]string, 0, len(rulesets))
	for _, r := range rulesets {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.Name,
			yesNo(r.IsActive),
			r.UpdatedAt.Format("2006-01-02 15:04"),
			r.Description,
		})
	}
	return renderTable(
		[]string{"ID", "Name", "Active", "Updated", "Description"},
		rows,
		[]columnAlignment{alignRight},
	)
}

func renderRun(results []tournament.ProgressionResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			strconv.Itoa(r.RankingPosition),
			r.PlayerName,
			string(r.Action),
			optional(r.TargetPhaseID),
			optional(r.TargetMatchID),
			yesNo(r.TiedAtBoundary),
			r.Reason,
		})
	}
	return renderTable(
		[]string{"Rank", "Player", "Action", "Phase", "Match", "Tied", "Reason"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
