// Package lamp classifies clear results into ordered lamp tiers.
package lamp

import "strings"

// Tier is a clear lamp. Tiers are ordered by Strength, not by their
// constant values.
type Tier uint8

// Lamp tiers.
const (
	NoPlay Tier = iota
	Failed
	Assist
	Easy
	Normal
	Hard
	ExHard
	FullCombo
)

// All lists every tier from strongest to weakest.
var All = []Tier{FullCombo, ExHard, Hard, Normal, Easy, Assist, Failed, NoPlay}

// Strength returns the position of t in the lamp order. Higher is stronger.
func (t Tier) Strength() int {
	switch t {
	case FullCombo:
		return 7
	case ExHard:
		return 6
	case Hard:
		return 5
	case Normal:
		return 4
	case Easy:
		return 3
	case Assist:
		return 2
	case Failed:
		return 1
	default:
		return 0
	}
}

// String returns the display name of the tier.
func (t Tier) String() string {
	switch t {
	case FullCombo:
		return "FullCombo"
	case ExHard:
		return "ExHard"
	case Hard:
		return "Hard"
	case Normal:
		return "Clear"
	case Easy:
		return "Easy"
	case Assist:
		return "Assist"
	case Failed:
		return "Failed"
	default:
		return "NoPlay"
	}
}

// Label returns the short column label used in tables.
func (t Tier) Label() string {
	switch t {
	case FullCombo:
		return "FC"
	case ExHard:
		return "EXH"
	case Hard:
		return "HARD"
	case Normal:
		return "CLEAR"
	case Easy:
		return "EASY"
	case Assist:
		return "ASSIST"
	case Failed:
		return "FAILED"
	default:
		return "NO PLAY"
	}
}

// Compare returns -1, 0 or 1 when a is weaker than, equal to or stronger than b.
func Compare(a, b Tier) int {
	sa, sb := a.Strength(), b.Strength()
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

// Max returns the stronger of a and b.
func Max(a, b Tier) Tier {
	if Compare(b, a) > 0 {
		return b
	}
	return a
}

// Classify maps a raw clear-type token to a tier. Matching is
// case-insensitive and ignores surrounding whitespace. The checks run in
// a fixed order because tokens overlap ("EX HARD" vs "HARD", "FULLCOMBO"
// vs "EX"). Unknown tokens map to NoPlay.
func Classify(raw string) Tier {
	token := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case token == "":
		return NoPlay
	case strings.Contains(token, "FULL"):
		return FullCombo
	case strings.Contains(token, "EX"):
		return ExHard
	case token == "HARD":
		return Hard
	case token == "CLEAR":
		return Normal
	case token == "EASY":
		return Easy
	case strings.Contains(token, "ASSIST"):
		return Assist
	case token == "FAILED":
		return Failed
	default:
		return NoPlay
	}
}

// Parse resolves a tier from its display name, column label or a raw
// clear token. It reports false when nothing matches.
func Parse(s string) (Tier, bool) {
	key := strings.ToUpper(strings.TrimSpace(s))
	for _, t := range All {
		if key == strings.ToUpper(t.String()) || key == t.Label() {
			return t, true
		}
	}
	if key == "NORMAL" {
		return Normal, true
	}
	if t := Classify(key); t != NoPlay {
		return t, true
	}
	return NoPlay, false
}
