package parlay

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// RuleNarrator writes a short parlay summary from game script and leg mix
type RuleNarrator struct{}

// NewRuleNarrator creates the rule-based narrator
func NewRuleNarrator() *RuleNarrator {
	return &RuleNarrator{}
}

// Narrate never fails
func (n *RuleNarrator) Narrate(_ context.Context, p models.Parlay, _ []models.EdgeResult) (string, error) {
	var parts []string

	if p.GameTotal != nil {
		switch total := *p.GameTotal; {
		case total > 225:
			parts = append(parts, fmt.Sprintf("High-scoring game expected (%.1f total)", total))
		case total < 215:
			parts = append(parts, fmt.Sprintf("Lower-scoring game projected (%.1f total)", total))
		}
	}

	counts := make(map[models.StatType]int)
	teams := make(map[string]int)
	var edgeSum float64
	for _, l := range p.Legs {
		counts[l.StatType]++
		if l.Team != "" {
			teams[l.Team]++
		}
		edgeSum += l.EdgePct
	}

	if counts[models.StatPoints]+counts[models.StatThrees]+counts[models.StatFGM] >= 2 {
		parts = append(parts, "Offensive-focused parlay targeting scoring production")
	}
	if counts[models.StatRebounds] >= 2 {
		parts = append(parts, "Glass-crashing play with correlated rebounding upside")
	}
	if counts[models.StatAssists] >= 2 {
		parts = append(parts, "Playmaking correlation in expected high-possession game")
	}
	if counts[models.StatPRA] > 0 {
		parts = append(parts, "All-around production from high-usage players")
	}
	if team := stackedTeam(teams); team != "" {
		parts = append(parts, fmt.Sprintf("%s team stack with correlated upside", team))
	}

	if len(parts) == 0 {
		avg := 0.0
		if len(p.Legs) > 0 {
			avg = edgeSum / float64(len(p.Legs))
		}
		parts = append(parts, fmt.Sprintf("Multi-player SGP with %.1f%% average edge", avg))
	}
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, ". "), nil
}

// stackedTeam returns the team holding two or more legs, if any
func stackedTeam(teams map[string]int) string {
	names := make([]string, 0, len(teams))
	for t := range teams {
		names = append(names, t)
	}
	sort.Strings(names)
	best := ""
	for _, t := range names {
		if teams[t] >= 2 && (best == "" || teams[t] > teams[best]) {
			best = t
		}
	}
	return best
}
