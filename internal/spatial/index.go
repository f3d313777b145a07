// Package spatial provides a uniform-grid index over component bounding
// boxes. Components register in every grid cell their box overlaps; queries
// gather candidates from the touched cells and post-filter with the exact
// geometric predicate, so results contain no false positives.
//
// A uniform grid keeps insert and update at amortized O(1), which suits the
// drag-heavy churn of a page builder better than a rebalancing tree. The
// index is a derived cache: it can always be rebuilt from component
// geometry without changing query results.
package spatial

import (
	"math"
	"sort"
	"sync"

	"canvascore/pkg/domain"
)

// DefaultCellSize is a reasonable bucket size for pixel-coordinate canvases.
const DefaultCellSize = 256.0

type cellKey struct {
	X int
	Y int
}

type entry struct {
	bounds domain.BoundingBox
	cells  []cellKey
}

// Index is a grid-bucketed bounding-box index. It is safe for concurrent
// readers; writes are serialized by the owning store's dispatch lock and
// additionally guarded here so background queries never observe a
// half-applied update.
type Index struct {
	mu       sync.RWMutex
	cellSize float64
	cells    map[cellKey]map[string]struct{}
	entries  map[string]entry
}

// New constructs an index with the given cell size; non-positive values
// fall back to DefaultCellSize.
func New(cellSize float64) *Index {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Index{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[string]struct{}),
		entries:  make(map[string]entry),
	}
}

// Len returns the number of indexed components.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Insert registers a component's bounds. Inserting an id that is already
// present replaces its bounds (identical to Update).
func (ix *Index) Insert(id string, bounds domain.BoundingBox) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.upsertLocked(id, bounds)
}

// Update replaces a component's bounds, registering it if absent.
func (ix *Index) Update(id string, bounds domain.BoundingBox) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.upsertLocked(id, bounds)
}

// Remove drops a component from the index. It reports whether the id was
// present.
func (ix *Index) Remove(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	e, ok := ix.entries[id]
	if !ok {
		return false
	}
	for _, key := range e.cells {
		bucket := ix.cells[key]
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(ix.cells, key)
		}
	}
	delete(ix.entries, id)
	return true
}

// Rebuild replaces the entire index contents from component geometry.
func (ix *Index) Rebuild(bounds map[string]domain.BoundingBox) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.cells = make(map[cellKey]map[string]struct{}, len(bounds))
	ix.entries = make(map[string]entry, len(bounds))
	for id, b := range bounds {
		ix.upsertLocked(id, b)
	}
}

// Compact drops empty cell buckets left behind by removals. Query results
// are unaffected.
func (ix *Index) Compact() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for key, bucket := range ix.cells {
		if len(bucket) == 0 {
			delete(ix.cells, key)
		}
	}
}

func (ix *Index) upsertLocked(id string, bounds domain.BoundingBox) {
	if old, ok := ix.entries[id]; ok {
		for _, key := range old.cells {
			bucket := ix.cells[key]
			delete(bucket, id)
			if len(bucket) == 0 {
				delete(ix.cells, key)
			}
		}
	}
	keys := ix.cellsFor(bounds)
	for _, key := range keys {
		bucket, ok := ix.cells[key]
		if !ok {
			bucket = make(map[string]struct{})
			ix.cells[key] = bucket
		}
		bucket[id] = struct{}{}
	}
	ix.entries[id] = entry{bounds: bounds, cells: keys}
}

func (ix *Index) cellsFor(bounds domain.BoundingBox) []cellKey {
	minX := int(math.Floor(bounds.X / ix.cellSize))
	minY := int(math.Floor(bounds.Y / ix.cellSize))
	maxX := int(math.Floor(bounds.MaxX() / ix.cellSize))
	maxY := int(math.Floor(bounds.MaxY() / ix.cellSize))
	keys := make([]cellKey, 0, (maxX-minX+1)*(maxY-minY+1))
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			keys = append(keys, cellKey{X: x, Y: y})
		}
	}
	return keys
}

// QueryPoint returns the ids of every component whose bounds contain the
// point, sorted for deterministic output.
func (ix *Index) QueryPoint(x, y float64) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	key := cellKey{X: int(math.Floor(x / ix.cellSize)), Y: int(math.Floor(y / ix.cellSize))}
	var out []string
	for id := range ix.cells[key] {
		if ix.entries[id].bounds.ContainsPoint(x, y) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// QueryRegion returns ids of components intersecting the region, or fully
// contained in it when fullyContained is set.
func (ix *Index) QueryRegion(region domain.BoundingBox, fullyContained bool) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, key := range ix.cellsFor(region) {
		for id := range ix.cells[key] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			bounds := ix.entries[id].bounds
			if fullyContained {
				if region.Contains(bounds) {
					out = append(out, id)
				}
			} else if region.Intersects(bounds) {
				out = append(out, id)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Neighbor pairs a component id with its distance from a query point.
type Neighbor struct {
	ID       string
	Distance float64
}

// Nearest returns up to limit components within maxDistance of the point,
// ordered by ascending distance (ties broken by id). A non-positive limit
// means no limit; a non-positive maxDistance means unbounded.
func (ix *Index) Nearest(x, y, maxDistance float64, limit int) []Neighbor {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []Neighbor
	if maxDistance > 0 {
		// Bounded search: only cells overlapping the search disc's bounding
		// square can hold candidates.
		search := domain.BoundingBox{
			X: x - maxDistance, Y: y - maxDistance,
			Width: 2 * maxDistance, Height: 2 * maxDistance,
		}
		seen := make(map[string]struct{})
		for _, key := range ix.cellsFor(search) {
			for id := range ix.cells[key] {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				d := ix.entries[id].bounds.DistanceToPoint(x, y)
				if d <= maxDistance {
					out = append(out, Neighbor{ID: id, Distance: d})
				}
			}
		}
	} else {
		// Unbounded search has to rank everything.
		for id, e := range ix.entries {
			out = append(out, Neighbor{ID: id, Distance: e.bounds.DistanceToPoint(x, y)})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Bounds returns the indexed bounds for id.
func (ix *Index) Bounds(id string) (domain.BoundingBox, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.entries[id]
	return e.bounds, ok
}
