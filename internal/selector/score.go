package selector

import (
	"math/rand/v2"

	"github.com/runnerr0/dailyverse/internal/dataset"
)

// Score rates how well the two texts of a record balance each other on
// screen. Higher is better; the first matching rule wins.
func Score(r dataset.Record) int {
	at, nt := r.PrimaryLen(), r.SecondaryLen()
	total := at + nt
	diff := at - nt
	if diff < 0 {
		diff = -diff
	}

	switch {
	case diff < 100 && total < 400:
		return 10
	case between(at, 120, 280) && between(nt, 120, 280):
		return 8
	case (at > 280 && between(nt, 100, 280)) || (nt > 280 && between(at, 100, 280)):
		return 6
	case total < 350:
		return 4
	default:
		return 2
	}
}

func between(v, lo, hi int) bool { return v >= lo && v <= hi }

// weight is the number of tickets a candidate with the given score gets in
// a weighted draw.
func weight(score int) int {
	switch score {
	case 10:
		return 5
	case 8:
		return 4
	case 6:
		return 3
	case 4:
		return 2
	default:
		return 1
	}
}

// BalancedPick draws one of candidates, favouring well balanced records.
// A single candidate is returned directly; no candidates yields 0.
func BalancedPick(records []dataset.Record, candidates []int, rng *rand.Rand) int {
	switch len(candidates) {
	case 0:
		return 0
	case 1:
		return candidates[0]
	}

	tickets := make([]int, 0, len(candidates)*2)
	for _, idx := range candidates {
		for range weight(Score(records[idx])) {
			tickets = append(tickets, idx)
		}
	}
	return tickets[rng.IntN(len(tickets))]
}
