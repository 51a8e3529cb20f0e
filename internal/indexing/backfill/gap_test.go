package backfill

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestMissingBlocks(t *testing.T) {
	tests := []struct {
		name     string
		archived []uint64
		latest   uint64
		want     []uint64
	}{
		{"empty archive", nil, 3, []uint64{0, 1, 2, 3}},
		{"holes", []uint64{5, 7}, 8, []uint64{0, 1, 2, 3, 4, 6, 8}},
		{"complete", []uint64{0, 1, 2}, 2, []uint64{}},
		{"genesis only", nil, 0, []uint64{0}},
		{"genesis archived", []uint64{0}, 0, []uint64{}},
		{"archived above latest", []uint64{1, 9, 12}, 3, []uint64{0, 2, 3}},
		{"last archived equals latest", []uint64{2, 4}, 4, []uint64{0, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingBlocks(tt.archived, tt.latest)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingBlocks = %v, want %v", got, tt.want)
			}

			streamed := MissingBlocksStreaming(tt.archived, tt.latest)
			if !reflect.DeepEqual(streamed, tt.want) {
				t.Errorf("MissingBlocksStreaming = %v, want %v", streamed, tt.want)
			}
		})
	}
}

func TestMissingBlocks_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		latest := uint64(rng.Intn(300))
		var sets [][]uint64
		for j := 0; j < 3; j++ {
			var s []uint64
			for k := 0; k < rng.Intn(100); k++ {
				s = append(s, uint64(rng.Intn(400)))
			}
			sets = append(sets, s)
		}
		archived := MergeArchived(sets...)

		canonical := MissingBlocks(archived, latest)
		streamed := MissingBlocksStreaming(archived, latest)
		if !reflect.DeepEqual(canonical, streamed) {
			t.Fatalf("latest=%d archived=%v: canonical %v != streamed %v", latest, archived, canonical, streamed)
		}

		present := make(map[uint64]bool, len(archived))
		for _, a := range archived {
			present[a] = true
		}
		for idx, m := range canonical {
			if m > latest {
				t.Fatalf("missing %d beyond latest %d", m, latest)
			}
			if present[m] {
				t.Fatalf("missing %d is archived", m)
			}
			if idx > 0 && canonical[idx-1] >= m {
				t.Fatalf("missing set not strictly increasing at %d", idx)
			}
		}

		// Every number in range is either archived or missing.
		inRange := 0
		for _, a := range archived {
			if a <= latest {
				inRange++
			}
		}
		if inRange+len(canonical) != int(latest)+1 {
			t.Fatalf("latest=%d: %d archived + %d missing does not cover range", latest, inRange, len(canonical))
		}
	}
}

func TestMergeArchived(t *testing.T) {
	got := MergeArchived([]uint64{9, 3, 3}, nil, []uint64{1, 9, 4})
	want := []uint64{1, 3, 4, 9}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeArchived = %v, want %v", got, want)
	}

	if got := MergeArchived(); len(got) != 0 {
		t.Errorf("expected empty merge, got %v", got)
	}
}

func TestRanges(t *testing.T) {
	got := Ranges([]uint64{0, 1, 2, 4, 6, 7})
	want := []Gap{{0, 2}, {4, 4}, {6, 7}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Ranges = %v, want %v", got, want)
	}
	if Ranges(nil) != nil {
		t.Error("expected nil ranges for empty input")
	}
}
