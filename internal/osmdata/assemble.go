package osmdata

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/osm"

	"github.com/samirrijal/nrplanner/internal/core/domain"
	"github.com/samirrijal/nrplanner/internal/pkg/metrics"
)

// collector accumulates OSM objects from any decoder and resolves them
// into features once the whole payload has been read.
type collector struct {
	coords    map[osm.NodeID]orb.Point
	ways      []*osm.Way
	wayIndex  map[osm.WayID]*osm.Way
	relations []*osm.Relation
}

func newCollector() *collector {
	return &collector{
		coords:   make(map[osm.NodeID]orb.Point),
		wayIndex: make(map[osm.WayID]*osm.Way),
	}
}

func (c *collector) add(o osm.Object) {
	switch v := o.(type) {
	case *osm.Node:
		c.coords[v.ID] = orb.Point{v.Lon, v.Lat}
	case *osm.Way:
		c.ways = append(c.ways, v)
		c.wayIndex[v.ID] = v
	case *osm.Relation:
		c.relations = append(c.relations, v)
	}
}

// features resolves node references and emits roads and buildings in
// payload order. Ways whose geometry cannot be resolved are skipped.
func (c *collector) features() *domain.FeatureSet {
	fs := &domain.FeatureSet{}

	for _, w := range c.ways {
		switch {
		case w.Tags.HasTag("highway"):
			line := c.line(w.Nodes)
			if len(line) < 2 {
				metrics.FeaturesSkipped.WithLabelValues("road").Inc()
				continue
			}
			fs.Roads = append(fs.Roads, newRoad(int64(w.ID), line, w.Tags.Find("highway"), w.Tags.Find("maxspeed")))

		case isBuilding(w.Tags.Find("building")):
			ring := closeRing(c.line(w.Nodes))
			if ring == nil {
				metrics.FeaturesSkipped.WithLabelValues("building").Inc()
				continue
			}
			fs.Buildings = append(fs.Buildings, newBuilding(int64(w.ID), "way", orb.Polygon{ring}, w.Tags.Find("building:levels")))
		}
	}

	for _, r := range c.relations {
		if !isBuilding(r.Tags.Find("building")) {
			continue
		}
		poly := c.relationPolygon(r)
		if poly == nil {
			metrics.FeaturesSkipped.WithLabelValues("building").Inc()
			continue
		}
		fs.Buildings = append(fs.Buildings, newBuilding(int64(r.ID), "relation", poly, r.Tags.Find("building:levels")))
	}

	metrics.FeaturesDecoded.WithLabelValues("road").Add(float64(len(fs.Roads)))
	metrics.FeaturesDecoded.WithLabelValues("building").Add(float64(len(fs.Buildings)))
	return fs
}

// line resolves way nodes to coordinates. Nodes carrying inline
// coordinates (Overpass "out geom", PBF with locations) win over lookups.
func (c *collector) line(nodes osm.WayNodes) orb.LineString {
	ls := make(orb.LineString, 0, len(nodes))
	for _, n := range nodes {
		if n.Lat != 0 || n.Lon != 0 {
			ls = append(ls, orb.Point{n.Lon, n.Lat})
			continue
		}
		if p, ok := c.coords[n.ID]; ok {
			ls = append(ls, p)
		}
	}
	return ls
}

// relationPolygon builds a polygon from a multipolygon building relation:
// the largest stitched outer ring plus every inner ring.
func (c *collector) relationPolygon(r *osm.Relation) orb.Polygon {
	var outers, inners []orb.LineString
	for _, m := range r.Members {
		if m.Type != osm.TypeWay {
			continue
		}
		var ls orb.LineString
		if len(m.Nodes) > 0 {
			ls = c.line(m.Nodes)
		} else if w, ok := c.wayIndex[osm.WayID(m.Ref)]; ok {
			ls = c.line(w.Nodes)
		}
		if len(ls) < 2 {
			continue
		}
		if m.Role == "inner" {
			inners = append(inners, ls)
		} else {
			outers = append(outers, ls)
		}
	}

	var outer orb.Ring
	var best float64
	for _, ring := range stitch(outers) {
		if a := planar.Area(ring); outer == nil || a > best {
			outer, best = ring, a
		}
	}
	if outer == nil {
		return nil
	}

	poly := orb.Polygon{outer}
	poly = append(poly, stitch(inners)...)
	return poly
}

// stitch joins open way segments sharing endpoints into closed rings.
// Leftover chains with enough points are closed as-is.
func stitch(segments []orb.LineString) []orb.Ring {
	pending := make([]orb.LineString, len(segments))
	copy(pending, segments)

	var rings []orb.Ring
	for len(pending) > 0 {
		chain := append(orb.LineString(nil), pending[0]...)
		pending = pending[1:]

		for !closed(chain) {
			joined := false
			end := chain[len(chain)-1]
			for i, seg := range pending {
				switch {
				case seg[0].Equal(end):
					chain = append(chain, seg[1:]...)
				case seg[len(seg)-1].Equal(end):
					rev := append(orb.LineString(nil), seg...)
					rev.Reverse()
					chain = append(chain, rev[1:]...)
				default:
					continue
				}
				pending = append(pending[:i], pending[i+1:]...)
				joined = true
				break
			}
			if !joined {
				break
			}
		}

		if ring := closeRing(chain); ring != nil {
			rings = append(rings, ring)
		}
	}
	return rings
}

// closeRing returns ls as a closed ring, or nil when it cannot enclose area.
func closeRing(ls orb.LineString) orb.Ring {
	if len(ls) < 3 {
		return nil
	}
	ring := orb.Ring(ls)
	if !closed(ls) {
		ring = append(ring, ring[0])
	}
	if len(ring) < 4 {
		return nil
	}
	return ring
}

func closed(ls orb.LineString) bool {
	return len(ls) > 2 && ls[0].Equal(ls[len(ls)-1])
}

func newRoad(id int64, line orb.LineString, class, maxspeed string) domain.RoadFeature {
	r := domain.RoadFeature{ID: id, Geometry: line, RoadClass: class}
	if kph, ok := ParseMaxSpeed(maxspeed); ok {
		r.SpeedLimitKph = &kph
	}
	return r
}

func newBuilding(id int64, osmType string, poly orb.Polygon, levels string) domain.BuildingFeature {
	b := domain.BuildingFeature{ID: id, OSMType: osmType, Geometry: poly}
	if n, ok := ParseLevels(levels); ok {
		b.FloorCount = &n
	}
	return b
}
