package osmdata

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/osm"

	"github.com/samirrijal/nrplanner/internal/core/domain"
)

// overpassDocument is the [out:json] response envelope of the Overpass API.
type overpassDocument struct {
	Version   float64            `json:"version"`
	Generator string             `json:"generator"`
	Remark    string             `json:"remark,omitempty"`
	Elements  *[]overpassElement `json:"elements"`
}

type overpassElement struct {
	Type     string           `json:"type"`
	ID       int64            `json:"id"`
	Lat      float64          `json:"lat,omitempty"`
	Lon      float64          `json:"lon,omitempty"`
	Nodes    []int64          `json:"nodes,omitempty"`
	Geometry []*overpassCoord `json:"geometry,omitempty"`
	Members  []overpassMember `json:"members,omitempty"`
	Tags     osm.Tags         `json:"tags,omitempty"`
}

type overpassMember struct {
	Type     string           `json:"type"`
	Ref      int64            `json:"ref"`
	Role     string           `json:"role"`
	Geometry []*overpassCoord `json:"geometry,omitempty"`
}

type overpassCoord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func decodeOverpass(body []byte) (*domain.FeatureSet, error) {
	var doc overpassDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, domain.ParseErrorf("overpass json: %v", err)
	}
	if doc.Elements == nil {
		return nil, domain.ParseErrorf("overpass json: missing elements array")
	}
	// Overpass reports server-side timeouts and memory exhaustion as a
	// remark next to a truncated element list.
	if strings.Contains(doc.Remark, "runtime error") {
		return nil, fmt.Errorf("%w: overpass: %s", domain.ErrDataUnavailable, doc.Remark)
	}

	c := newCollector()
	for i, e := range *doc.Elements {
		o, err := e.object()
		if err != nil {
			return nil, domain.ParseErrorf("overpass element %d: %v", i, err)
		}
		if o != nil {
			c.add(o)
		}
	}
	return c.features(), nil
}

// object converts an element into its osm equivalent. Element types other
// than node, way and relation (area, count, ...) yield nil.
func (e overpassElement) object() (osm.Object, error) {
	switch e.Type {
	case "node":
		return &osm.Node{ID: osm.NodeID(e.ID), Lat: e.Lat, Lon: e.Lon, Tags: e.Tags}, nil
	case "way":
		return &osm.Way{ID: osm.WayID(e.ID), Nodes: wayNodes(e.Nodes, e.Geometry), Tags: e.Tags}, nil
	case "relation":
		members := make(osm.Members, 0, len(e.Members))
		for _, m := range e.Members {
			members = append(members, osm.Member{
				Type:  osm.Type(m.Type),
				Ref:   m.Ref,
				Role:  m.Role,
				Nodes: wayNodes(nil, m.Geometry),
			})
		}
		return &osm.Relation{ID: osm.RelationID(e.ID), Members: members, Tags: e.Tags}, nil
	case "":
		return nil, fmt.Errorf("id %d has no type", e.ID)
	}
	return nil, nil
}

// wayNodes pairs node references with inline geometry when Overpass was
// asked for "out geom". Missing geometry entries are left for lookup.
func wayNodes(ids []int64, geom []*overpassCoord) osm.WayNodes {
	n := len(ids)
	if len(geom) > n {
		n = len(geom)
	}
	nodes := make(osm.WayNodes, n)
	for i := range nodes {
		if i < len(ids) {
			nodes[i].ID = osm.NodeID(ids[i])
		}
		if i < len(geom) && geom[i] != nil {
			nodes[i].Lat = geom[i].Lat
			nodes[i].Lon = geom[i].Lon
		}
	}
	return nodes
}
