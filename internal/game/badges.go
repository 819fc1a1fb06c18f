package game

import "slices"

type BadgeID string

const (
	BadgeFirstPot      BadgeID = "first_pot"
	BadgeVeteranChef   BadgeID = "veteran_chef"
	BadgeComboMaster   BadgeID = "combo_master"
	BadgePerfectionist BadgeID = "perfectionist"
	BadgeJollofRoyalty BadgeID = "jollof_royalty"
)

type Badge struct {
	ID          BadgeID
	Name        string
	Description string
}

var AllBadges = map[BadgeID]Badge{
	BadgeFirstPot:      {ID: BadgeFirstPot, Name: "First Pot", Description: "Finished a round"},
	BadgeVeteranChef:   {ID: BadgeVeteranChef, Name: "Veteran Chef", Description: "Played 10+ rounds"},
	BadgeComboMaster:   {ID: BadgeComboMaster, Name: "Combo Master", Description: "Cooked 8 steps in a row without a miss"},
	BadgePerfectionist: {ID: BadgePerfectionist, Name: "Perfectionist", Description: "50+ perfectly timed steps"},
	BadgeJollofRoyalty: {ID: BadgeJollofRoyalty, Name: "Jollof Royalty", Description: "High score of 2000+"},
}

// EvaluateBadges checks which badges the lifetime stats qualify for.
func EvaluateBadges(stats PlayerStats) []Badge {
	var earned []Badge

	if stats.TotalPlays >= 1 {
		earned = append(earned, AllBadges[BadgeFirstPot])
	}

	if stats.TotalPlays >= 10 {
		earned = append(earned, AllBadges[BadgeVeteranChef])
	}

	// a full queue is 8 actions
	if stats.LongestCombo >= 8 {
		earned = append(earned, AllBadges[BadgeComboMaster])
	}

	if stats.PerfectActions >= 50 {
		earned = append(earned, AllBadges[BadgePerfectionist])
	}

	if stats.HighScore >= 2000 {
		earned = append(earned, AllBadges[BadgeJollofRoyalty])
	}

	return earned
}

// AwardBadges returns the badge list with newly earned ids appended. Existing
// badges are kept even if the stats no longer qualify, and the input slice is
// never modified.
func AwardBadges(stats PlayerStats) []string {
	out := slices.Clone(stats.Badges)
	if out == nil {
		out = []string{}
	}
	for _, b := range EvaluateBadges(stats) {
		if !slices.Contains(out, string(b.ID)) {
			out = append(out, string(b.ID))
		}
	}
	return out
}
