// Package pyramid implements the hierarchy of identifier levels that decides,
// for every block access, which level holds the real block and which levels
// are served a decoy.
//
// Level n holds up to 4^n block identifiers; level 1 is the top. Accessed
// identifiers are promoted to the top level, and a level that cannot take
// another identifier cascades its contents into the next level. Every block
// identifier appears in at most one level.
package pyramid

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// Chain is a pyramid: level 1 and every level below it.
// A Chain is not safe for concurrent use.
type Chain struct {
	levels []*Level
	rand   io.Reader
}

// Option configures a Chain.
type Option func(*Chain)

// WithRand sets the random source used for decoy selection and shuffled
// placement. The default is crypto/rand.Reader.
func WithRand(r io.Reader) Option {
	return func(c *Chain) {
		if r != nil {
			c.rand = r
		}
	}
}

// New returns a chain holding a single empty top level.
func New(opts ...Option) *Chain {
	c := &Chain{rand: rand.Reader}
	for _, opt := range opts {
		opt(c)
	}
	c.levels = []*Level{newLevel(c, 1)}
	return c
}

// Top returns level 1.
func (c *Chain) Top() *Level { return c.levels[0] }

// Level returns level n, or nil if it has not been allocated.
func (c *Chain) Level(n int) *Level {
	if n < 1 || n > len(c.levels) {
		return nil
	}
	return c.levels[n-1]
}

// LevelCount returns the number of allocated levels.
func (c *Chain) LevelCount() int { return len(c.levels) }

// TotalSlots returns the slot count summed over every allocated level.
func (c *Chain) TotalSlots() int {
	total := 0
	for _, l := range c.levels {
		total += len(l.slots)
	}
	return total
}

// Len returns the number of identifiers held by the chain.
func (c *Chain) Len() int {
	n := 0
	for _, l := range c.levels {
		n += l.used
	}
	return n
}

// Occupancy returns the number of occupied slots per level, top first.
func (c *Chain) Occupancy() []int {
	out := make([]int, len(c.levels))
	for i, l := range c.levels {
		out[i] = l.used
	}
	return out
}

// Locate returns the level holding id.
func (c *Chain) Locate(id int64) (int, bool) {
	for _, l := range c.levels {
		if l.indexOf(id) >= 0 {
			return l.number, true
		}
	}
	return 0, false
}

// Prune removes every identifier at or past limit and returns how many were
// removed. Allocated levels are kept.
func (c *Chain) Prune(limit int64) int {
	removed := 0
	for _, l := range c.levels {
		for i, v := range l.slots {
			if v != Empty && v >= limit {
				l.vacate(i)
				removed++
			}
		}
	}
	return removed
}

func (c *Chain) level(n int) (*Level, error) {
	l := c.Level(n)
	if l == nil {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidLevel, n, len(c.levels))
	}
	return l, nil
}

// ensure allocates levels up to and including n.
func (c *Chain) ensure(n int) (*Level, error) {
	if n > MaxLevels {
		return nil, fmt.Errorf("%w: level %d", ErrTooDeep, n)
	}
	for len(c.levels) < n {
		c.levels = append(c.levels, newLevel(c, len(c.levels)+1))
	}
	return c.levels[n-1], nil
}

// Add registers id at level n. An id already held by level n is a no-op.
// If level n is full, its identifiers and id together move into level n+1,
// leaving level n empty; the cascade continues downward for as long as a
// level cannot take everything it receives.
func (c *Chain) Add(n int, id int64) error {
	if id < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	l, err := c.level(n)
	if err != nil {
		return err
	}
	if l.indexOf(id) >= 0 {
		return nil
	}
	return c.place(n, []int64{id})
}

// Overflow moves every identifier of level n into level n+1, allocating it
// if needed, and leaves level n empty.
func (c *Chain) Overflow(n int) error {
	l, err := c.level(n)
	if err != nil {
		return err
	}
	if n+1 > MaxLevels {
		return fmt.Errorf("%w: level %d", ErrTooDeep, n+1)
	}
	if _, err := c.ensure(n + 1); err != nil {
		return err
	}
	return c.place(n+1, l.drain())
}

// place walks down from level n carrying pending identifiers. Each level
// takes pending identifiers while it has room; a level that fills up hands
// its own identifiers plus the remaining pending ones to the next level.
// Level k+1 has four times the slots of level k and the carried set never
// exceeds the capacity of the levels above, so the walk stops at the first
// level that was empty when reached.
func (c *Chain) place(n int, pending []int64) error {
	for len(pending) > 0 {
		l, err := c.ensure(n)
		if err != nil {
			return err
		}
		i := 0
		for ; i < len(pending); i++ {
			id := pending[i]
			if l.indexOf(id) >= 0 {
				continue
			}
			if l.full() {
				break
			}
			l.put(id)
		}
		if i == len(pending) {
			return nil
		}
		if n+1 > MaxLevels {
			return fmt.Errorf("%w: level %d", ErrTooDeep, n+1)
		}
		pending = append(l.drain(), pending[i:]...)
		n++
	}
	return nil
}

// FindAndPromote looks for id at level n. If present it is removed from
// level n and stored in the first empty slot of level 1; a full level 1 is
// overflowed first.
func (c *Chain) FindAndPromote(n int, id int64) (bool, error) {
	if id < 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	l, err := c.level(n)
	if err != nil {
		return false, err
	}
	i := l.indexOf(id)
	if i < 0 {
		return false, nil
	}
	l.vacate(i)

	top := c.levels[0]
	if top.full() {
		if err := c.Overflow(1); err != nil {
			return true, err
		}
	}
	top.put(id)
	return true, nil
}

// SelectDecoy picks a uniformly random slot of level n and returns the
// identifier there, probing forward with wraparound past empty slots.
func (c *Chain) SelectDecoy(n int) (int64, error) {
	l, err := c.level(n)
	if err != nil {
		return Empty, err
	}
	if l.used == 0 {
		return Empty, fmt.Errorf("%w: level %d", ErrEmptyLevel, n)
	}
	start, err := c.randIndex(len(l.slots))
	if err != nil {
		return Empty, err
	}
	for i := 0; i < len(l.slots); i++ {
		if v := l.slots[(start+i)%len(l.slots)]; v != Empty {
			return v, nil
		}
	}
	return Empty, fmt.Errorf("%w: level %d", ErrEmptyLevel, n)
}

// SelectAny picks a decoy uniformly among every identifier in the chain.
func (c *Chain) SelectAny() (int64, error) {
	total := c.Len()
	if total == 0 {
		return Empty, ErrEmptyChain
	}
	k, err := c.randIndex(total)
	if err != nil {
		return Empty, err
	}
	for _, l := range c.levels {
		if k >= l.used {
			k -= l.used
			continue
		}
		for _, v := range l.slots {
			if v == Empty {
				continue
			}
			if k == 0 {
				return v, nil
			}
			k--
		}
	}
	return Empty, ErrEmptyChain
}

// Populate registers block ids 0..n-1 at level 1. With shuffle set the ids
// are added in a uniformly random order, otherwise in increasing order.
func (c *Chain) Populate(n int64, shuffle bool) error {
	if n <= 0 {
		return nil
	}
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i)
	}
	if shuffle {
		for i := len(ids) - 1; i > 0; i-- {
			j, err := c.randIndex(i + 1)
			if err != nil {
				return err
			}
			ids[i], ids[j] = ids[j], ids[i]
		}
	}
	for _, id := range ids {
		if err := c.Add(1, id); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) randIndex(n int) (int, error) {
	v, err := rand.Int(c.rand, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRandom, err)
	}
	return int(v.Int64()), nil
}
