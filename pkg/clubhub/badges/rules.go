package badges

import "github.com/mikepea/clubhub/pkg/clubhub/models"

// Rule grants Type once the observed metric reaches Threshold
type Rule struct {
	Type      models.BadgeType
	Threshold int
}

// StreakRules are evaluated together whenever a streak grows
var StreakRules = []Rule{
	{Type: models.BadgeBronze, Threshold: 3},
	{Type: models.BadgeSilver, Threshold: 7},
	{Type: models.BadgeGold, Threshold: 15},
	{Type: models.BadgeDiamond, Threshold: 30},
}

// ClubJoinerRule counts the user's active memberships
var ClubJoinerRule = Rule{Type: models.BadgeClubJoiner, Threshold: 5}

// EventGoerRule counts the events the user attends
var EventGoerRule = Rule{Type: models.BadgeEventGoer, Threshold: 10}

// Qualifying returns the badge types whose threshold value meets, in rule order
func Qualifying(rules []Rule, value int) []models.BadgeType {
	var types []models.BadgeType
	for _, r := range rules {
		if value >= r.Threshold {
			types = append(types, r.Type)
		}
	}
	return types
}
