package flow

import (
	"math/rand"
	"sort"

	"github.com/hattiebot/hattiebot/internal/checkin"
	"github.com/hattiebot/hattiebot/internal/store"
)

// weightedQuestion carries a question key with its computed selection weight.
type weightedQuestion struct {
	key    string
	weight float64
}

// selectQuestionOrder implements the weighted, recency-penalized question selection (spec
// §4.5.3). On any internal failure it falls back to a uniform random sample of min(|enabled|,6).
func selectQuestionOrder(catalog *checkin.Catalog, enabled []string, history []store.CheckinResponse, rnd *rand.Rand) []string {
	order, ok := func() (order []string, ok bool) {
		defer func() {
			if r := recover(); r != nil {
				order, ok = nil, false
			}
		}()
		return weightedOrder(catalog, enabled, history, rnd)
	}()
	if ok {
		return order
	}
	return uniformFallback(enabled, rnd)
}

func weightedOrder(catalog *checkin.Catalog, enabled []string, history []store.CheckinResponse, rnd *rand.Rand) ([]string, bool) {
	if len(enabled) == 0 {
		return nil, true
	}

	recent := recentlyAskedSet(history)
	categoryRecentCount := map[string]int{}
	for _, q := range catalog.Questions {
		if recent[q.Key] {
			categoryRecentCount[q.Category]++
		}
	}

	weighted := make([]weightedQuestion, 0, len(enabled))
	for _, key := range enabled {
		q := catalog.Question(key)
		if q == nil {
			continue
		}
		weight := 1.0
		if recent[key] {
			weight *= 0.3
		}
		switch categoryRecentCount[q.Category] {
		case 0:
			weight *= 1.5
		case 1:
			// neutral
		default:
			weight *= 0.7
		}
		weight *= 0.8 + rnd.Float64()*0.4 // uniform jitter in [0.8, 1.2]
		weighted = append(weighted, weightedQuestion{key: key, weight: weight})
	}

	sort.SliceStable(weighted, func(i, j int) bool { return weighted[i].weight > weighted[j].weight })

	n := len(weighted)
	if n > 8 {
		n = 8
	}
	top := weighted[:n]
	rnd.Shuffle(len(top), func(i, j int) { top[i], top[j] = top[j], top[i] })

	order := make([]string, len(top))
	for i, w := range top {
		order[i] = w.key
	}
	return order, true
}

// recentlyAskedSet is the union of questions_asked from the most recent 3 of the last 5 payloads.
func recentlyAskedSet(history []store.CheckinResponse) map[string]bool {
	set := map[string]bool{}
	limit := len(history)
	if limit > 5 {
		limit = 5
	}
	recentN := limit
	if recentN > 3 {
		recentN = 3
	}
	for i := 0; i < recentN; i++ {
		for _, qkey := range history[i].QuestionsAsked {
			set[qkey] = true
		}
	}
	return set
}

func uniformFallback(enabled []string, rnd *rand.Rand) []string {
	n := len(enabled)
	if n > 6 {
		n = 6
	}
	shuffled := append([]string(nil), enabled...)
	rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}
