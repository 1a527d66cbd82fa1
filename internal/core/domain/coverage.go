package domain

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// CoverageTileDeg is the side, in degrees, of the grid used to describe
// where an extract holds data.
const CoverageTileDeg = 0.1

// Tile is one cell of the coverage grid.
type Tile struct {
	X, Y int
}

// TileOf returns the grid cell containing p.
func TileOf(p GeoPoint) Tile {
	return Tile{
		X: int(math.Floor(p.Lon / CoverageTileDeg)),
		Y: int(math.Floor(p.Lat / CoverageTileDeg)),
	}
}

// Bounds returns the extent of the cell.
func (t Tile) Bounds() Bounds {
	return Bounds{
		MinLat: float64(t.Y) * CoverageTileDeg,
		MinLon: float64(t.X) * CoverageTileDeg,
		MaxLat: float64(t.Y+1) * CoverageTileDeg,
		MaxLon: float64(t.X+1) * CoverageTileDeg,
	}
}

// Coverage is the area one extract can answer for: the part of its
// extent lying on grid cells that hold a feature or border one. Points
// between far-apart clusters of the same extract are not covered.
type Coverage struct {
	Extent Bounds
	tiles  map[Tile]struct{}
}

// NewCoverage derives the coverage of fs. ok is false for an empty set.
func NewCoverage(fs *FeatureSet) (Coverage, bool) {
	bound, ok := fs.Bound()
	if !ok {
		return Coverage{}, false
	}

	occupied := make(map[Tile]struct{})
	mark := func(p orb.Point) {
		occupied[TileOf(GeoPoint{Lat: p.Lat(), Lon: p.Lon()})] = struct{}{}
	}
	for _, r := range fs.Roads {
		for i, p := range r.Geometry {
			mark(p)
			if i > 0 {
				markSegment(r.Geometry[i-1], p, mark)
			}
		}
	}
	for _, b := range fs.Buildings {
		if len(b.Geometry) == 0 || len(b.Geometry[0]) == 0 {
			continue
		}
		mark(b.Anchor())
	}

	tiles := make(map[Tile]struct{}, len(occupied)*9)
	for t := range occupied {
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				tiles[Tile{X: t.X + dx, Y: t.Y + dy}] = struct{}{}
			}
		}
	}
	return Coverage{Extent: BoundsFromOrb(bound), tiles: tiles}, true
}

// markSegment marks the cells crossed by a long road segment.
func markSegment(a, b orb.Point, mark func(orb.Point)) {
	span := math.Max(math.Abs(b.Lon()-a.Lon()), math.Abs(b.Lat()-a.Lat()))
	steps := int(math.Ceil(span / (CoverageTileDeg / 2)))
	for k := 1; k < steps; k++ {
		f := float64(k) / float64(steps)
		mark(orb.Point{a.Lon() + f*(b.Lon()-a.Lon()), a.Lat() + f*(b.Lat()-a.Lat())})
	}
}

// Contains reports whether p lies inside the covered area.
func (c Coverage) Contains(p GeoPoint) bool {
	if !c.Extent.Contains(p) {
		return false
	}
	_, ok := c.tiles[TileOf(p)]
	return ok
}

// Cells returns the covered area as disjoint boxes, ordered south to
// north then west to east.
func (c Coverage) Cells() []Bounds {
	tiles := make([]Tile, 0, len(c.tiles))
	for t := range c.tiles {
		tiles = append(tiles, t)
	}
	sort.Slice(tiles, func(i, j int) bool {
		if tiles[i].Y != tiles[j].Y {
			return tiles[i].Y < tiles[j].Y
		}
		return tiles[i].X < tiles[j].X
	})

	cells := make([]Bounds, 0, len(tiles))
	for _, t := range tiles {
		tb := t.Bounds()
		if !tb.Intersects(c.Extent) {
			continue
		}
		cells = append(cells, Bounds{
			MinLat: math.Max(tb.MinLat, c.Extent.MinLat),
			MinLon: math.Max(tb.MinLon, c.Extent.MinLon),
			MaxLat: math.Min(tb.MaxLat, c.Extent.MaxLat),
			MaxLon: math.Min(tb.MaxLon, c.Extent.MaxLon),
		})
	}
	return cells
}
