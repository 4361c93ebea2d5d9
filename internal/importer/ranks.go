package importer

import (
	"strings"

	"github.com/verte-zerg/lampstat/internal/model"
)

// RankResolver finds ranks by display name or source label.
type RankResolver struct {
	byName map[string]model.Rank
}

// NewRankResolver indexes ranks by both of their names.
func NewRankResolver(ranks []model.Rank) RankResolver {
	byName := make(map[string]model.Rank, len(ranks)*2)
	for _, r := range ranks {
		byName[r.SourceLabel] = r
	}
	// display names win over source labels that happen to collide
	for _, r := range ranks {
		byName[r.DisplayName] = r
	}
	return RankResolver{byName: byName}
}

// Resolve returns the rank named s.
func (rr RankResolver) Resolve(s string) (model.Rank, bool) {
	r, ok := rr.byName[strings.TrimSpace(s)]
	return r, ok
}
