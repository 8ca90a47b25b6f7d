// Package democache implements C4 of spec.md: a bounded, on-demand tile
// cache keyed by coverage rather than by a fixed grid — tiles are located by
// asking each cached entry whether it covers the query point (the cache is
// small, so a linear scan is cheap), with concurrent misses on the same
// point collapsed by singleflight, mirroring the LRU-tile-cache pattern
// import pipelines use for on-demand DEM tile loading.
package democache

import (
	"container/list"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/CS-SI/rugged-go/internal/demtile"
	"github.com/CS-SI/rugged-go/internal/rerr"
)

// TileLike is the subset of demtile.Tile / demtile.MinMaxTile the cache
// needs: enough to classify a point against a tile's footprint and confirm
// it has been published. Parameterizing the cache over this interface lets
// the Duvenhage intersector (C7) use *demtile.MinMaxTile while the basic
// scan intersector (C9) uses plain *demtile.Tile, with no duplicated cache
// logic (spec.md's "tile factory indirection" design note).
type TileLike interface {
	Location(lat, lon float64) demtile.Location
	Published() bool
}

// Updater populates a freshly allocated tile with a footprint covering
// (lat, lon) plus all of its elevation samples.
type Updater[T TileLike] interface {
	UpdateTile(lat, lon float64, tile T) error
}

// UpdaterFunc adapts a plain function to Updater.
type UpdaterFunc[T TileLike] func(lat, lon float64, tile T) error

func (f UpdaterFunc[T]) UpdateTile(lat, lon float64, tile T) error { return f(lat, lon, tile) }

type entry[T TileLike] struct {
	tile T
}

// Cache is a bounded LRU cache of tiles, materializing on demand via an
// Updater. Safe for concurrent use.
type Cache[T TileLike] struct {
	maxSize int
	newTile func() T
	updater Updater[T]

	mu   sync.Mutex
	lru  *list.List // of *entry[T], front = MRU
	sflt singleflight.Group
}

// NewCache builds a tile cache of at most maxSize entries. newTile allocates
// a zero-value tile of the cache's kind (e.g. func() *demtile.MinMaxTile {
// return demtile.NewMinMaxTile() }).
func NewCache[T TileLike](maxSize int, newTile func() T, updater Updater[T]) *Cache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Cache[T]{
		maxSize: maxSize,
		newTile: newTile,
		updater: updater,
		lru:     list.New(),
	}
}

// GetTile returns the tile covering (lat, lon), materializing it via the
// Updater on a cache miss. No tile is ever evicted while it is being
// returned to the current call.
func (c *Cache[T]) GetTile(lat, lon float64) (T, error) {
	if t, ok := c.lookup(lat, lon); ok {
		return t, nil
	}

	key := fmt.Sprintf("%.9f,%.9f", lat, lon)
	result, err, _ := c.sflt.Do(key, func() (interface{}, error) {
		if t, ok := c.lookup(lat, lon); ok {
			return t, nil
		}

		tile := c.newTile()
		if uErr := c.updater.UpdateTile(lat, lon, tile); uErr != nil {
			return nil, rerr.Wrap(rerr.TileWithoutRequiredNeighborsSelected, uErr, "update_tile(%g,%g) failed", lat, lon)
		}
		if !tile.Published() {
			return nil, rerr.New(rerr.TileWithoutRequiredNeighborsSelected, "update_tile(%g,%g) never published the tile", lat, lon)
		}
		if tile.Location(lat, lon) != demtile.InTile {
			return nil, rerr.New(rerr.WrongTile, "updater returned a tile not covering (%g,%g)", lat, lon)
		}

		c.insert(tile)
		return tile, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func (c *Cache[T]) lookup(lat, lon float64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for e := c.lru.Front(); e != nil; e = e.Next() {
		en := e.Value.(*entry[T])
		if en.tile.Location(lat, lon) == demtile.InTile {
			c.lru.MoveToFront(e)
			return en.tile, true
		}
	}
	var zero T
	return zero, false
}

func (c *Cache[T]) insert(tile T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.lru.Len() >= c.maxSize {
		back := c.lru.Back()
		if back == nil {
			break
		}
		c.lru.Remove(back)
	}
	c.lru.PushFront(&entry[T]{tile: tile})
}

// Len reports the number of currently cached tiles.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
