package models

import "fmt"

// StatType identifies the box-score quantity a prop is written on
type StatType string

const (
	StatPoints       StatType = "points"
	StatRebounds     StatType = "rebounds"
	StatAssists      StatType = "assists"
	StatThrees       StatType = "threes"
	StatBlocks       StatType = "blocks"
	StatSteals       StatType = "steals"
	StatTurnovers    StatType = "turnovers"
	StatFGM          StatType = "fgm"
	StatFTM          StatType = "ftm"
	StatPRA          StatType = "pra"
	StatPR           StatType = "pr"
	StatPA           StatType = "pa"
	StatRA           StatType = "ra"
	StatBlocksSteals StatType = "blocks_steals"
)

// Box score column keys shared by every stats source
const (
	ColPoints    = "PTS"
	ColRebounds  = "REB"
	ColAssists   = "AST"
	ColSteals    = "STL"
	ColBlocks    = "BLK"
	ColThrees    = "FG3M"
	ColTurnovers = "TO"
	ColFGM       = "FGM"
	ColFTM       = "FTM"
)

var statComponents = map[StatType][]string{
	StatPoints:       {ColPoints},
	StatRebounds:     {ColRebounds},
	StatAssists:      {ColAssists},
	StatThrees:       {ColThrees},
	StatBlocks:       {ColBlocks},
	StatSteals:       {ColSteals},
	StatTurnovers:    {ColTurnovers},
	StatFGM:          {ColFGM},
	StatFTM:          {ColFTM},
	StatPRA:          {ColPoints, ColRebounds, ColAssists},
	StatPR:           {ColPoints, ColRebounds},
	StatPA:           {ColPoints, ColAssists},
	StatRA:           {ColRebounds, ColAssists},
	StatBlocksSteals: {ColBlocks, ColSteals},
}

// AllStatTypes lists every supported stat type in a stable order
var AllStatTypes = []StatType{
	StatPoints, StatRebounds, StatAssists, StatThrees, StatBlocks, StatSteals,
	StatTurnovers, StatFGM, StatFTM, StatPRA, StatPR, StatPA, StatRA, StatBlocksSteals,
}

// ParseStatType validates a raw stat type string
func ParseStatType(s string) (StatType, error) {
	st := StatType(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown stat type: %q", s)
	}
	return st, nil
}

// Valid reports whether s is part of the prop taxonomy
func (s StatType) Valid() bool {
	_, ok := statComponents[s]
	return ok
}

// Components returns the box score columns summed for this stat
func (s StatType) Components() []string {
	return statComponents[s]
}

// IsCombo reports whether the stat is a sum of several columns
func (s StatType) IsCombo() bool {
	return len(statComponents[s]) > 1
}

// Sum totals the stat's components from a column map. ok is false when
// the stat is unknown or any component is missing.
func (s StatType) Sum(cols map[string]float64) (float64, bool) {
	comps, known := statComponents[s]
	if !known {
		return 0, false
	}
	var total float64
	for _, c := range comps {
		v, ok := cols[c]
		if !ok {
			return 0, false
		}
		total += v
	}
	return total, true
}

// Direction is the side of a prop line
type Direction string

const (
	DirectionOver  Direction = "over"
	DirectionUnder Direction = "under"
)

// Valid reports whether d is over or under
func (d Direction) Valid() bool {
	return d == DirectionOver || d == DirectionUnder
}

// Sign returns +1 for over and -1 for under
func (d Direction) Sign() float64 {
	if d == DirectionOver {
		return 1
	}
	return -1
}

// Recommendation is the categorical output of the edge calculator
type Recommendation string

const (
	RecommendStrongOver  Recommendation = "strong_over"
	RecommendStrongUnder Recommendation = "strong_under"
	RecommendLeanOver    Recommendation = "lean_over"
	RecommendLeanUnder   Recommendation = "lean_under"
	RecommendSlightOver  Recommendation = "slight_over"
	RecommendSlightUnder Recommendation = "slight_under"
	RecommendPass        Recommendation = "pass"
)

// Recommendation tiers
const (
	TierStrong = "strong"
	TierLean   = "lean"
	TierSlight = "slight"
)

// NewRecommendation combines a tier with a direction
func NewRecommendation(tier string, dir Direction) Recommendation {
	switch tier {
	case TierStrong, TierLean, TierSlight:
		if dir.Valid() {
			return Recommendation(tier + "_" + string(dir))
		}
	}
	return RecommendPass
}

// IsPass reports whether the recommendation is to skip the prop
func (r Recommendation) IsPass() bool {
	return r == RecommendPass || r == ""
}

// Outcome is the settlement state of a leg or a parlay
type Outcome string

const (
	OutcomePending Outcome = "PENDING"
	OutcomeWin     Outcome = "WIN"
	OutcomeLoss    Outcome = "LOSS"
	OutcomePush    Outcome = "PUSH"
	OutcomeVoid    Outcome = "VOID"
)

// IsTerminal reports whether the outcome can no longer change on its own
func (o Outcome) IsTerminal() bool {
	switch o {
	case OutcomeWin, OutcomeLoss, OutcomePush, OutcomeVoid:
		return true
	}
	return false
}

// ParseOutcome validates a stored outcome string. Empty means pending.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomePending, OutcomeWin, OutcomeLoss, OutcomePush, OutcomeVoid:
		return o, nil
	case "":
		return OutcomePending, nil
	}
	return "", fmt.Errorf("unknown outcome: %q", s)
}
