package backfill

import "slices"

// Gap represents a range of missing blocks.
type Gap struct {
	FromBlock uint64
	ToBlock   uint64
}

// MissingBlocks returns every number in [0, latest] not in archived, ascending.
func MissingBlocks(archived []uint64, latest uint64) []uint64 {
	present := make(map[uint64]struct{}, len(archived))
	for _, n := range archived {
		present[n] = struct{}{}
	}

	missing := make([]uint64, 0)
	for n := uint64(0); ; n++ {
		if _, ok := present[n]; !ok {
			missing = append(missing, n)
		}
		if n == latest {
			break
		}
	}
	return missing
}

// MissingBlocksStreaming produces the same result as MissingBlocks by walking
// the sorted archived set and emitting the holes between neighbours.
// Archived numbers above latest are ignored.
func MissingBlocksStreaming(archived []uint64, latest uint64) []uint64 {
	missing := make([]uint64, 0)
	next := uint64(0) // lowest number not yet accounted for

	for _, a := range archived {
		if a > latest {
			break
		}
		if a < next {
			continue
		}
		for n := next; n < a; n++ {
			missing = append(missing, n)
		}
		if a == latest {
			return missing
		}
		next = a + 1
	}

	for n := next; ; n++ {
		missing = append(missing, n)
		if n == latest {
			break
		}
	}
	return missing
}

// MergeArchived merges block number sets into one sorted, duplicate-free set.
func MergeArchived(sets ...[]uint64) []uint64 {
	total := 0
	for _, s := range sets {
		total += len(s)
	}

	merged := make([]uint64, 0, total)
	for _, s := range sets {
		merged = append(merged, s...)
	}
	slices.Sort(merged)
	return slices.Compact(merged)
}

// Ranges collapses a sorted block set into contiguous gaps.
func Ranges(blocks []uint64) []Gap {
	var gaps []Gap
	for _, n := range blocks {
		if len(gaps) > 0 && gaps[len(gaps)-1].ToBlock+1 == n {
			gaps[len(gaps)-1].ToBlock = n
			continue
		}
		gaps = append(gaps, Gap{FromBlock: n, ToBlock: n})
	}
	return gaps
}
