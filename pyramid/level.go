package pyramid

// Empty marks an unoccupied identifier slot.
const Empty int64 = -1

// MaxLevels bounds the depth of a chain. Level MaxLevels alone holds 4^24
// identifiers, far beyond any file a chain is built for.
const MaxLevels = 24

// Capacity returns the number of identifier slots of level n: 4^n.
func Capacity(n int) int {
	return 1 << (2 * uint(n))
}

// Level is one level of a pyramid chain: a fixed array of 4^n slots, each
// holding a block identifier or Empty.
type Level struct {
	number int
	slots  []int64
	index  map[int64]int // id -> slot
	hint   int           // no empty slot below hint
	used   int
	chain  *Chain // owning chain; never copied or released by the level
}

func newLevel(c *Chain, n int) *Level {
	slots := make([]int64, Capacity(n))
	for i := range slots {
		slots[i] = Empty
	}
	return &Level{number: n, slots: slots, index: make(map[int64]int), chain: c}
}

// Number returns the 1-based level number.
func (l *Level) Number() int { return l.number }

// Capacity returns the number of slots of the level.
func (l *Level) Capacity() int { return len(l.slots) }

// Len returns the number of occupied slots.
func (l *Level) Len() int { return l.used }

// IsTop reports whether l is level 1 of its chain.
func (l *Level) IsTop() bool { return l.number == 1 }

// Chain returns the chain the level belongs to.
func (l *Level) Chain() *Chain { return l.chain }

// Next returns the following level, or nil if l is the last one.
func (l *Level) Next() *Level {
	if l.chain == nil || l.number >= len(l.chain.levels) {
		return nil
	}
	return l.chain.levels[l.number]
}

// Slots returns a copy of the level's slots, Empty included.
func (l *Level) Slots() []int64 {
	out := make([]int64, len(l.slots))
	copy(out, l.slots)
	return out
}

// Contains reports whether id occupies a slot of the level.
func (l *Level) Contains(id int64) bool {
	return l.indexOf(id) >= 0
}

func (l *Level) indexOf(id int64) int {
	if i, ok := l.index[id]; ok {
		return i
	}
	return -1
}

func (l *Level) full() bool { return l.used == len(l.slots) }

// put stores id in the first empty slot. The caller checks l is not full.
func (l *Level) put(id int64) {
	for i := l.hint; i < len(l.slots); i++ {
		if l.slots[i] == Empty {
			l.set(i, id)
			l.hint = i + 1
			return
		}
	}
}

func (l *Level) set(i int, id int64) {
	l.slots[i] = id
	l.index[id] = i
	l.used++
}

func (l *Level) vacate(i int) {
	if v := l.slots[i]; v != Empty {
		delete(l.index, v)
		l.slots[i] = Empty
		l.used--
		if i < l.hint {
			l.hint = i
		}
	}
}

// drain empties the level and returns its identifiers in slot order.
func (l *Level) drain() []int64 {
	ids := make([]int64, 0, l.used)
	for i, v := range l.slots {
		if v != Empty {
			ids = append(ids, v)
			l.slots[i] = Empty
		}
	}
	clear(l.index)
	l.used = 0
	l.hint = 0
	return ids
}
