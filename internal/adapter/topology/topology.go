// Package topology extracts the district-name vocabulary from map geometry.
// TopoJSON topologies and GeoJSON feature collections are accepted; arcs and
// coordinates are ignored.
package topology

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/couchcryptid/alarm-dashboard-service/internal/domain"
)

const (
	// DefaultObject is the TopoJSON object holding the Upper Austrian districts.
	DefaultObject = "bezirke"

	// NameProperty is the geometry property carrying the district name.
	NameProperty = "name"
)

type document struct {
	Type     string                `json:"type"`
	Objects  map[string]collection `json:"objects"`
	Features []geometry            `json:"features"`
}

type collection struct {
	Type       string     `json:"type"`
	Geometries []geometry `json:"geometries"`
}

type geometry struct {
	Properties map[string]any `json:"properties"`
}

// Decode reads a topology and returns its district vocabulary. For TopoJSON
// the named object is used; an empty object name selects the only object.
func Decode(r io.Reader, object string) (domain.Topology, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return domain.Topology{}, fmt.Errorf("decode topology: %w", err)
	}

	var geometries []geometry
	switch doc.Type {
	case "Topology":
		coll, err := pickObject(doc.Objects, object)
		if err != nil {
			return domain.Topology{}, err
		}
		geometries = coll.Geometries
	case "FeatureCollection":
		geometries = doc.Features
	default:
		return domain.Topology{}, fmt.Errorf("decode topology: unsupported type %q", doc.Type)
	}

	names := make([]string, 0, len(geometries))
	for _, g := range geometries {
		if name, ok := g.Properties[NameProperty].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return domain.Topology{}, errors.New("decode topology: no named districts")
	}
	return domain.NewTopology(names), nil
}

func pickObject(objects map[string]collection, name string) (collection, error) {
	if name != "" {
		coll, ok := objects[name]
		if !ok {
			return collection{}, fmt.Errorf("decode topology: object %q not found", name)
		}
		return coll, nil
	}
	if len(objects) != 1 {
		keys := make([]string, 0, len(objects))
		for k := range objects {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return collection{}, fmt.Errorf("decode topology: object name required, have %v", keys)
	}
	for _, coll := range objects {
		return coll, nil
	}
	return collection{}, nil
}
