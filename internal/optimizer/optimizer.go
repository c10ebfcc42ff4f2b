// Package optimizer merges scattered tag addresses into batched read
// requests.
package optimizer

import (
	"fmt"
	"sort"

	"github.com/KevinKickass/pointc/internal/types"
)

const (
	DefaultMaxGap       = 20
	DefaultMaxBatchSize = 100
)

// Params bound the merge: a tag joins the current block only if the hole
// before it is at most MaxGap addresses and the grown block spans at most
// MaxBatchSize addresses.
type Params struct {
	MaxGap       int `json:"max_gap"`
	MaxBatchSize int `json:"max_batch_size"`
}

func DefaultParams() Params {
	return Params{MaxGap: DefaultMaxGap, MaxBatchSize: DefaultMaxBatchSize}
}

func (p Params) Validate() error {
	if p.MaxGap < 0 {
		return fmt.Errorf("max gap must be >= 0, got %d", p.MaxGap)
	}
	if p.MaxBatchSize < 1 {
		return fmt.Errorf("max batch size must be >= 1, got %d", p.MaxBatchSize)
	}
	return nil
}

// Optimize runs one greedy left-to-right pass over the tags sorted by
// address. Overlapping tags always merge when the size allows it. A tag
// larger than MaxBatchSize is never split and ends up alone in an
// oversized block. The input slice is not modified.
func Optimize(tags []types.Tag, p Params) []types.RequestBlock {
	if len(tags) == 0 {
		return nil
	}

	sorted := make([]types.Tag, len(tags))
	copy(sorted, tags)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Address < sorted[j].Address
	})

	blocks := make([]types.RequestBlock, 0, 4)
	current := seed(sorted[0])

	for _, tag := range sorted[1:] {
		gap := tag.Address - current.End()
		candidate := max(current.Length, tag.End()-current.StartAddress)

		if gap <= p.MaxGap && candidate <= p.MaxBatchSize {
			current.Length = candidate
			current.IncludedTags = append(current.IncludedTags, tag)
			continue
		}

		blocks = append(blocks, current)
		current = seed(tag)
	}
	blocks = append(blocks, current)

	return blocks
}

func seed(tag types.Tag) types.RequestBlock {
	return types.RequestBlock{
		StartAddress: tag.Address,
		Length:       tag.RegisterLength,
		IncludedTags: []types.Tag{tag},
	}
}

// Partition splits tags by address space, keeping source order inside each.
func Partition(tags []types.Tag) (coils, registers []types.Tag) {
	for _, t := range tags {
		if t.TypeClass == types.ClassCoil {
			coils = append(coils, t)
		} else {
			registers = append(registers, t)
		}
	}
	return coils, registers
}

// Oversized returns the blocks longer than limit.
func Oversized(blocks []types.RequestBlock, limit int) []types.RequestBlock {
	var out []types.RequestBlock
	for _, b := range blocks {
		if b.Length > limit {
			out = append(out, b)
		}
	}
	return out
}
