package core

import "sort"

// ConsensusThreshold is the agreement share that ends deliberation.
const ConsensusThreshold = 0.8

const rateEpsilon = 1e-9

// Tally counts the non-empty preferences and resolves the majority. Ties go
// to the letter that comes first in order; letters missing from order rank
// after it alphabetically.
func Tally(prefs []string, order []string, threshold float64) ConsensusCheck {
	dist := make(map[string]int)
	total := 0
	for _, p := range prefs {
		if p == "" {
			continue
		}
		dist[p]++
		total++
	}

	check := ConsensusCheck{Distribution: dist, Total: total}
	if total == 0 {
		return check
	}

	top := rankChoices(dist, order)[0]
	check.Majority = top
	check.AgreementRate = float64(dist[top]) / float64(total)
	check.HasConsensus = check.AgreementRate+rateEpsilon >= threshold
	return check
}

// Groups returns the distinct preferences ordered largest first, using the
// same tie-break as Tally.
func (c ConsensusCheck) Groups(order []string) []string {
	if len(c.Distribution) == 0 {
		return nil
	}
	return rankChoices(c.Distribution, order)
}

func rankChoices(dist map[string]int, order []string) []string {
	rank := make(map[string]int, len(order))
	for i, l := range order {
		rank[l] = i
	}
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if dist[a] != dist[b] {
			return dist[a] > dist[b]
		}
		ra, aok := rank[a]
		rb, bok := rank[b]
		switch {
		case aok && bok:
			return ra < rb
		case aok != bok:
			return aok
		}
		return a < b
	})
	return keys
}
