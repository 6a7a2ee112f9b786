package research

import (
	"context"
	"errors"
	"strings"

	"github.com/smallnest/researchgraph/activity"
)

var errEmptyQuery = errors.New("query is empty")

func (p *Pipeline) queryRefine(ctx context.Context, s State) State {
	sc := scopeFrom(ctx)
	sc.emit(StageQueryRefine, activity.LevelAgent, "Query understanding agent working")

	if strings.TrimSpace(s.OriginalQuery) == "" {
		return s.fail("%s: %v", failureLabel[StageQueryRefine], errEmptyQuery)
	}

	refined, err := p.refiner.Refine(ctx, s.OriginalQuery)
	if err != nil {
		return s.fail("%s: %v", failureLabel[StageQueryRefine], err)
	}

	s.RefinedQuery = strings.TrimSpace(refined)
	if s.RefinedQuery == "" {
		sc.emit(StageQueryRefine, activity.LevelWarning, "Refiner returned nothing, searching with the original query")
		return s
	}
	sc.emit(StageQueryRefine, activity.LevelSuccess, "Refined query: %s", s.RefinedQuery)
	return s
}
