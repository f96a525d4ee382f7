package pyramid

import "fmt"

// Flatten returns the identifier slots of every level of top's chain,
// level 1 first, Empty slots included. FromFlat reverses it using the same
// traversal order, so slot positions survive a round trip exactly.
func Flatten(top *Level) ([]int64, error) {
	if top == nil || top.chain == nil {
		return nil, ErrNilChain
	}
	if !top.IsTop() {
		return nil, fmt.Errorf("%w: level %d", ErrNotTopLevel, top.number)
	}
	c := top.chain
	out := make([]int64, 0, c.TotalSlots())
	for _, l := range c.levels {
		out = append(out, l.slots...)
	}
	return out, nil
}

// LevelsForSlots returns the number of levels whose capacities sum to
// exactly total slots.
func LevelsForSlots(total int) (int, error) {
	sum := 0
	for n := 1; n <= MaxLevels; n++ {
		sum += Capacity(n)
		if sum == total {
			return n, nil
		}
		if sum > total {
			break
		}
	}
	return 0, fmt.Errorf("%w: %d slots", ErrLayout, total)
}

// FromFlat rebuilds a chain from the output of Flatten. Every entry must be
// Empty or a non-negative identifier, and no identifier may repeat.
func FromFlat(ids []int64, opts ...Option) (*Chain, error) {
	n, err := LevelsForSlots(len(ids))
	if err != nil {
		return nil, err
	}
	c := New(opts...)
	if _, err := c.ensure(n); err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(ids))
	off := 0
	for _, l := range c.levels {
		for i := range l.slots {
			id := ids[off+i]
			if id == Empty {
				continue
			}
			if id < 0 {
				return nil, fmt.Errorf("%w: invalid identifier %d at slot %d", ErrCorrupt, id, off+i)
			}
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("%w: identifier %d repeated", ErrCorrupt, id)
			}
			seen[id] = struct{}{}
			l.set(i, id)
		}
		off += len(l.slots)
	}
	return c, nil
}
