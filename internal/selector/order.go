package selector

import (
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"

	"github.com/runnerr0/dailyverse/internal/dataset"
)

// yearRand returns a PRNG whose stream depends only on year, so an order
// generated on two devices for the same year and dataset is identical.
func yearRand(year int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(year), uint64(year)*10000))
}

// SeededShuffle returns a permutation of [0, size) shuffled by the year seed.
func SeededShuffle(year, size int) []int {
	order := lo.Range(size)
	rng := yearRand(year)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

// bucketOf groups scores into the four interleaved quality buckets.
func bucketOf(score int) int {
	switch {
	case score >= 8:
		return 0
	case score == 6:
		return 1
	case score == 4:
		return 2
	default:
		return 3
	}
}

// BalancedOrder returns a permutation of the record indices that cycles
// through the quality buckets, drawing randomly within each bucket, so good
// and poor pairings are spread over the year.
func BalancedOrder(records []dataset.Record, year int) []int {
	buckets := make([][]int, 4)
	for i, r := range records {
		b := bucketOf(Score(r))
		buckets[b] = append(buckets[b], i)
	}

	rng := yearRand(year)
	order := make([]int, 0, len(records))
	for turn := 0; len(order) < len(records); turn++ {
		b := turn % len(buckets)
		if len(buckets[b]) == 0 {
			continue
		}
		pick := rng.IntN(len(buckets[b]))
		order = append(order, buckets[b][pick])
		buckets[b] = slices.Delete(buckets[b], pick, pick+1)
	}
	return order
}
