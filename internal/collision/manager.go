package collision

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/daniacca/tissuesim/internal/logging"
)

// Config holds the constants of the contact model.
type Config struct {
	// Phi1 scales the pair force.
	Phi1 float64
	// GridStep is the bucket side length.
	GridStep float64
	// Extents is the size of the simulation volume.
	Extents r3.Vec
	// Toroidal makes pair distances wrap around the volume.
	Toroidal bool
}

// MaxCellIndex is the largest cell index the pair hash can hold. Above it
// max(i,j)*multiplier no longer fits in an int64.
const MaxCellIndex = 100_000_000

// Manager maintains the grid and the set of candidate pairs over a roster of
// cells, and applies contact forces once per step.
type Manager struct {
	cfg  Config
	grid *Grid

	cells      map[int]Cell
	pairs      map[int64]*Pair
	multiplier int64
	maxIndex   int

	logger logging.Logger
}

// NewManager creates a manager with a no-op logger.
func NewManager(cfg Config) (*Manager, error) {
	return NewManagerWithLogger(cfg, nil)
}

// NewManagerWithLogger creates a manager over an empty grid covering
// cfg.Extents. Phi1 must be finite and the grid step positive.
func NewManagerWithLogger(cfg Config, logger logging.Logger) (*Manager, error) {
	if math.IsNaN(cfg.Phi1) || math.IsInf(cfg.Phi1, 0) {
		return nil, fmt.Errorf("collision: Phi1 must be finite, got %v", cfg.Phi1)
	}
	grid, err := NewGrid(cfg.GridStep, cfg.Extents)
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:        cfg,
		grid:       grid,
		cells:      make(map[int]Cell),
		pairs:      make(map[int64]*Pair),
		multiplier: 10,
		logger:     logging.OrNoOp(logger),
	}, nil
}

// Config returns the contact model constants.
func (m *Manager) Config() Config { return m.cfg }

// Grid returns the bucket grid. Callers must not modify it.
func (m *Manager) Grid() *Grid { return m.grid }

// Multiplier is the current pair hash multiplier. It never shrinks.
func (m *Manager) Multiplier() int64 { return m.multiplier }

// Hash is the commutative key of the pair (i, j).
func (m *Manager) Hash(i, j int) int64 {
	return pairHash(i, j, m.multiplier)
}

func pairHash(i, j int, multiplier int64) int64 {
	if i < j {
		i, j = j, i
	}
	return int64(i)*multiplier + int64(j)
}

// multiplierFor returns 10^ceil(0.5+log10(maxIndex)), a power of ten above
// every index up to maxIndex.
func multiplierFor(maxIndex int) int64 {
	if maxIndex < 1 {
		maxIndex = 1
	}
	exp := int(math.Ceil(0.5 + math.Log10(float64(maxIndex))))
	out := int64(1)
	for i := 0; i < exp; i++ {
		out *= 10
	}
	return out
}

// AddCell puts c on the roster. It is bucketed on the next step. Discovery
// only scans neighboring buckets, so c's diameter may not exceed the grid
// step.
func (m *Manager) AddCell(c Cell) error {
	if c == nil {
		return fmt.Errorf("collision: nil cell")
	}
	if c.Index() < 0 {
		return fmt.Errorf("collision: negative cell index %d", c.Index())
	}
	if c.Index() > MaxCellIndex {
		return fmt.Errorf("collision: cell index %d above %d", c.Index(), MaxCellIndex)
	}
	if d := 2 * c.Radius(); d > m.grid.step {
		return fmt.Errorf("%w: cell %d diameter %g exceeds grid step %g", ErrInvalidGrid, c.Index(), d, m.grid.step)
	}
	if _, ok := m.cells[c.Index()]; ok {
		return fmt.Errorf("collision: cell %d already registered", c.Index())
	}
	m.cells[c.Index()] = c
	if c.Index() > m.maxIndex {
		m.maxIndex = c.Index()
	}
	c.SetGridIndex(Unplaced)
	return nil
}

// RemoveCell drops c from the pair table, the grid and the roster.
func (m *Manager) RemoveCell(c Cell) {
	m.RemoveAllPairsContainingCell(c)
	m.RemoveCellFromGrid(c)
	if cur, ok := m.cells[c.Index()]; ok && cur == c {
		delete(m.cells, c.Index())
	}
}

// Cells returns the roster ordered by cell index.
func (m *Manager) Cells() []Cell {
	out := make([]Cell, 0, len(m.cells))
	for _, i := range m.cellIndices() {
		out = append(out, m.cells[i])
	}
	return out
}

func (m *Manager) cellIndices() []int {
	idx := make([]int, 0, len(m.cells))
	for i := range m.cells {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

func (m *Manager) pairKeys() []int64 {
	keys := make([]int64, 0, len(m.pairs))
	for k := range m.pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })
	return keys
}

// Pairs returns the live pairs ordered by hash.
func (m *Manager) Pairs() []*Pair {
	out := make([]*Pair, 0, len(m.pairs))
	for _, k := range m.pairKeys() {
		out = append(out, m.pairs[k])
	}
	return out
}

// Pair looks up the pair of cells i and j.
func (m *Manager) Pair(i, j int) (*Pair, bool) {
	p, ok := m.pairs[m.Hash(i, j)]
	return p, ok
}

// CriticalPairCount returns how many pairs are in contact.
func (m *Manager) CriticalPairCount() int {
	n := 0
	for _, p := range m.pairs {
		if p.Critical {
			n++
		}
	}
	return n
}

// Step runs one round of pair maintenance and applies contact forces:
//
//  1. grow the hash multiplier if the roster outgrew it
//  2. drop separated or out-of-grid pairs, refresh the others' distances
//  3. move cells between buckets, collecting those that changed bucket
//  4. pair each of those with everything in its 27 neighboring buckets
//  5. update contact state
//  6. apply forces of pairs in contact
func (m *Manager) Step(dt float64) {
	m.updateMultiplier()
	pruned := m.prunePairs()
	critical := m.relocateCells()
	created := m.discoverPairs(critical)
	if pruned > 0 || created > 0 {
		m.logger.Debugf("pairs: %d removed, %d created, %d live", pruned, created, len(m.pairs))
	}

	keys := m.pairKeys()
	for _, k := range keys {
		m.pairs[k].bond()
	}
	for _, k := range keys {
		m.pairs[k].interact(m.cfg)
	}
}

func (m *Manager) updateMultiplier() {
	if int64(m.maxIndex) < m.multiplier {
		return
	}
	next := multiplierFor(m.maxIndex)
	if next <= m.multiplier {
		return
	}
	m.logger.Debugf("pair hash multiplier %d -> %d (max cell index %d)", m.multiplier, next, m.maxIndex)
	m.multiplier = next
	rekeyed := make(map[int64]*Pair, len(m.pairs))
	for _, p := range m.pairs {
		rekeyed[m.Hash(p.A.Index(), p.B.Index())] = p
	}
	m.pairs = rekeyed
}

func (m *Manager) prunePairs() int {
	n := 0
	for k, p := range m.pairs {
		if m.separated(p) {
			delete(m.pairs, k)
			n++
			continue
		}
		p.updateDistance(m.cfg)
	}
	return n
}

func (m *Manager) separated(p *Pair) bool {
	if !p.A.Alive() || !p.B.Alive() {
		return true
	}
	ga, gb := p.A.GridIndex(), p.B.GridIndex()
	if !m.grid.LegalIndex(ga) || !m.grid.LegalIndex(gb) {
		return true
	}
	if p.Critical {
		return false
	}
	margin := int(math.Ceil(p.ContactDistance() / m.grid.step))
	return chebyshev(ga, gb) > margin
}

func (m *Manager) relocateCells() []Cell {
	var critical []Cell
	for _, i := range m.cellIndices() {
		c := m.cells[i]
		if !c.Alive() {
			m.RemoveCellFromGrid(c)
			continue
		}
		old := c.GridIndex()
		idx := m.grid.IndexOf(c.Position())
		if idx == old {
			continue
		}
		m.grid.remove(old, c.Index())
		c.SetGridIndex(idx)
		if !m.grid.LegalIndex(idx) {
			if m.grid.LegalIndex(old) {
				m.logger.Debugf("cell %d left the grid at %v", c.Index(), c.Position())
			}
			continue
		}
		m.grid.insert(idx, c)
		critical = append(critical, c)
	}
	return critical
}

func (m *Manager) discoverPairs(critical []Cell) int {
	n := 0
	for _, c := range critical {
		g := c.GridIndex()
		for dz := -1; dz <= 1; dz++ {
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					for _, other := range m.grid.Bucket([3]int{g[0] + dx, g[1] + dy, g[2] + dz}) {
						if other.Index() == c.Index() {
							continue
						}
						h := m.Hash(c.Index(), other.Index())
						if _, ok := m.pairs[h]; ok {
							continue
						}
						p := newPair(c, other)
						if other.Index() < c.Index() {
							p = newPair(other, c)
						}
						p.updateDistance(m.cfg)
						m.pairs[h] = p
						n++
					}
				}
			}
		}
	}
	return n
}

// RemoveAllPairsContainingCell drops every pair c belongs to.
func (m *Manager) RemoveAllPairsContainingCell(c Cell) {
	for k, p := range m.pairs {
		if p.Contains(c) {
			delete(m.pairs, k)
		}
	}
}

// RekeyAllPairsContainingCell refiles c's pairs and roster entry after its
// index changed from oldIndex.
func (m *Manager) RekeyAllPairsContainingCell(c Cell, oldIndex int) {
	if cur, ok := m.cells[oldIndex]; ok && cur == c {
		delete(m.cells, oldIndex)
		m.cells[c.Index()] = c
	}
	if c.Index() > m.maxIndex {
		m.maxIndex = c.Index()
	}
	m.updateMultiplier()

	var moved []*Pair
	for k, p := range m.pairs {
		if p.Contains(c) {
			delete(m.pairs, k)
			moved = append(moved, p)
		}
	}
	for _, p := range moved {
		if p.A.Index() > p.B.Index() {
			p.A, p.B = p.B, p.A
			p.delta = r3.Scale(-1, p.delta)
		}
		m.pairs[m.Hash(p.A.Index(), p.B.Index())] = p
	}
}

// RemoveCellFromGrid takes c out of its bucket. It is rebucketed, and its
// neighborhood rescanned, on the next step if it is still on the roster.
func (m *Manager) RemoveCellFromGrid(c Cell) {
	m.grid.remove(c.GridIndex(), c.Index())
	c.SetGridIndex(Unplaced)
}

// RekeyCellInGrid refiles c in its bucket after its index changed from
// oldIndex.
func (m *Manager) RekeyCellInGrid(c Cell, oldIndex int) {
	idx := c.GridIndex()
	if !m.grid.LegalIndex(idx) {
		return
	}
	m.grid.remove(idx, oldIndex)
	m.grid.insert(idx, c)
}
