package overpass

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samirrijal/nrplanner/internal/core/domain"
)

// Kind selects which features a query returns.
type Kind string

const (
	KindRoads     Kind = "road"
	KindBuildings Kind = "building"
	KindAll       Kind = "all"
)

// ParseKind validates a user-supplied query kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindRoads, KindBuildings, KindAll:
		return k, nil
	}
	return "", fmt.Errorf("unknown query kind %q", s)
}

const queryTimeoutSeconds = 25

// BBoxQuery selects highway ways and building ways and relations that
// intersect b, recursing down to their nodes.
func BBoxQuery(b domain.Bounds) string {
	filter := fmt.Sprintf("(%s,%s,%s,%s)", ftoa(b.MinLat), ftoa(b.MinLon), ftoa(b.MaxLat), ftoa(b.MaxLon))
	return build(KindAll, filter, "")
}

// AroundQuery selects features of kind within radiusMeters of center.
func AroundQuery(kind Kind, center domain.GeoPoint, radiusMeters float64) string {
	filter := fmt.Sprintf("(around:%s,%s,%s)", ftoa(radiusMeters), ftoa(center.Lat), ftoa(center.Lon))
	return build(kind, filter, "")
}

// AreaQuery selects features of kind inside the OSM area named name.
func AreaQuery(kind Kind, name string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name)
	setup := fmt.Sprintf("area[\"name\"=\"%s\"]->.searchArea;\n", escaped)
	return build(kind, "(area.searchArea)", setup)
}

func build(kind Kind, filter, setup string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[out:json][timeout:%d];\n", queryTimeoutSeconds)
	sb.WriteString(setup)
	sb.WriteString("(\n")
	if kind == KindRoads || kind == KindAll {
		fmt.Fprintf(&sb, "  way[\"highway\"]%s;\n", filter)
	}
	if kind == KindBuildings || kind == KindAll {
		fmt.Fprintf(&sb, "  way[\"building\"]%s;\n", filter)
		fmt.Fprintf(&sb, "  relation[\"building\"]%s;\n", filter)
	}
	sb.WriteString(");\nout body;\n>;\nout skel qt;\n")
	return sb.String()
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
