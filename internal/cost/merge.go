package cost

import (
	"sort"

	"github.com/samber/lo"
)

// MergeAndRank collapses duplicate recommendations and imposes the final
// total ordering. Two recommendations merge when they share an ID, i.e.
// the same (provider, resource, action) tuple:
//
//   - savings: max of the inputs, so the same fix counted by two strategies
//     is never double-counted;
//   - confidence: 1 - Π(1 - c_i), treating strategies as independent
//     detectors. Strategies may in fact share the underlying utilization
//     signal, so merged confidence can overstate certainty; see DESIGN.md.
//   - evidence: concatenated in contribution order, duplicates removed;
//   - strategies: the set of contributing strategy names, sorted.
//
// Ranking is by composite score (savings x confidence) descending, ties
// broken by higher confidence, then lexical resource ID, then action. The
// result is deterministic for identical inputs regardless of the order the
// strategies executed in.
func MergeAndRank(recs []Recommendation) []Recommendation {
	byID := make(map[string]*Recommendation)
	order := make([]string, 0, len(recs))

	for _, rec := range recs {
		existing, ok := byID[rec.ID]
		if !ok {
			clone := rec
			clone.Strategies = append([]string(nil), rec.Strategies...)
			clone.Evidence = append([]string(nil), rec.Evidence...)
			byID[rec.ID] = &clone
			order = append(order, rec.ID)
			continue
		}
		mergeInto(existing, rec)
	}

	merged := make([]Recommendation, 0, len(order))
	for _, id := range order {
		rec := byID[id]
		rec.Strategies = lo.Uniq(rec.Strategies)
		sort.Strings(rec.Strategies)
		rec.Evidence = lo.Uniq(rec.Evidence)
		merged = append(merged, *rec)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		si, sj := merged[i].Score(), merged[j].Score()
		if si != sj {
			return si > sj
		}
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		if merged[i].ResourceID != merged[j].ResourceID {
			return merged[i].ResourceID < merged[j].ResourceID
		}
		return merged[i].Action < merged[j].Action
	})

	return merged
}

func mergeInto(dst *Recommendation, src Recommendation) {
	if src.MonthlySavings.Cmp(dst.MonthlySavings) > 0 {
		dst.MonthlySavings = src.MonthlySavings
	}
	dst.Confidence = combineConfidence(dst.Confidence, src.Confidence)
	dst.Strategies = append(dst.Strategies, src.Strategies...)
	dst.Evidence = append(dst.Evidence, src.Evidence...)
}

// combineConfidence aggregates two detections as independent evidence:
// 1 - (1-a)(1-b), clamped to [0,1].
func combineConfidence(a, b float64) float64 {
	c := 1 - (1-a)*(1-b)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// TotalSavings sums estimated monthly savings across merged
// recommendations in the given reporting currency.
func TotalSavings(recs []Recommendation, currency string) Money {
	total := Zero(currency)
	for _, rec := range recs {
		total = total.Add(rec.MonthlySavings)
	}
	return total
}
