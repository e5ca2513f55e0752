package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/paulmach/orb"
	"github.com/projectqai/fleetwatch/geo"
	"github.com/projectqai/fleetwatch/simulate"
)

// tagged is the envelope every fixture document carries: a "kind"
// discriminator plus the kind-specific body, decoded in two passes
// (decode generic, re-marshal to JSON, unmarshal into the concrete
// shape).
type tagged struct {
	Kind string `yaml:"kind"`
}

type routeDoc struct {
	Kind      string `yaml:"kind"`
	Name      string `yaml:"name"`
	Waypoints []struct {
		Lat          float64 `yaml:"lat"`
		Lon          float64 `yaml:"lon"`
		Label        string  `yaml:"label"`
		ArrivalSpeed float64 `yaml:"arrival_speed_kn"`
	} `yaml:"waypoints"`
}

type corridorDoc struct {
	Kind       string  `yaml:"kind"`
	Name       string  `yaml:"name"`
	HalfWidthM float64 `yaml:"half_width_m"`
	MaxSpeedKn float64 `yaml:"max_speed_kn"`
	Centerline []struct {
		Lat float64 `yaml:"lat"`
		Lon float64 `yaml:"lon"`
	} `yaml:"centerline"`
}

type geofenceDoc struct {
	Kind               string  `yaml:"kind"`
	Id                 string  `yaml:"id"`
	Name               string  `yaml:"name"`
	Type               string  `yaml:"type"`
	MaxSpeedKn         float64 `yaml:"max_speed_kn"`
	MandatoryReporting bool    `yaml:"mandatory_reporting"`
	Boundary           []struct {
		Lat float64 `yaml:"lat"`
		Lon float64 `yaml:"lon"`
	} `yaml:"boundary"`
}

// Fixtures holds the route/corridor/geofence definitions parsed from a
// multi-document YAML file.
type Fixtures struct {
	Routes    []simulate.Route
	Corridors []simulate.Corridor
	Zones     []simulate.GeofenceZone
}

// LoadFixtures reads a multi-document YAML file of route/corridor/
// geofence-zone fixtures, streamed document-by-document. A missing path
// is not an error: it returns empty Fixtures.
func LoadFixtures(path string) (Fixtures, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Fixtures{}, nil
		}
		return Fixtures{}, fmt.Errorf("config: read fixtures: %w", err)
	}
	return ParseFixtures(b)
}

// ParseFixtures decodes a multi-document YAML byte stream into Fixtures.
func ParseFixtures(b []byte) (Fixtures, error) {
	var out Fixtures
	decoder := yaml.NewDecoder(bytes.NewReader(b))

	for {
		var raw map[string]interface{}
		err := decoder.Decode(&raw)
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, fmt.Errorf("config: decode fixture document: %w", err)
		}
		if len(raw) == 0 {
			continue
		}

		jsonBytes, err := json.Marshal(raw)
		if err != nil {
			return out, fmt.Errorf("config: re-marshal fixture document: %w", err)
		}

		var t tagged
		if err := yaml.Unmarshal(jsonBytes, &t); err != nil {
			return out, fmt.Errorf("config: inspect fixture kind: %w", err)
		}

		switch t.Kind {
		case "route":
			var d routeDoc
			if err := yaml.Unmarshal(jsonBytes, &d); err != nil {
				return out, fmt.Errorf("config: decode route fixture: %w", err)
			}
			r := simulate.Route{Name: d.Name}
			for _, wp := range d.Waypoints {
				r.Waypoints = append(r.Waypoints, simulate.Waypoint{
					Point:          geo.Point{Lat: wp.Lat, Lon: wp.Lon},
					Label:          wp.Label,
					ArrivalSpeedKn: wp.ArrivalSpeed,
				})
			}
			out.Routes = append(out.Routes, r)

		case "corridor":
			var d corridorDoc
			if err := yaml.Unmarshal(jsonBytes, &d); err != nil {
				return out, fmt.Errorf("config: decode corridor fixture: %w", err)
			}
			c := simulate.Corridor{Name: d.Name, HalfWidthM: d.HalfWidthM, MaxSpeedKn: d.MaxSpeedKn}
			for _, pt := range d.Centerline {
				c.Centerline = append(c.Centerline, geo.Point{Lat: pt.Lat, Lon: pt.Lon})
			}
			out.Corridors = append(out.Corridors, c)

		case "geofence":
			var d geofenceDoc
			if err := yaml.Unmarshal(jsonBytes, &d); err != nil {
				return out, fmt.Errorf("config: decode geofence fixture: %w", err)
			}
			z := simulate.GeofenceZone{
				Id:                 d.Id,
				Name:               d.Name,
				Type:               simulate.ZoneType(d.Type),
				MaxSpeedKn:         d.MaxSpeedKn,
				MandatoryReporting: d.MandatoryReporting,
			}
			for _, pt := range d.Boundary {
				z.Boundary = append(z.Boundary, orb.Point{pt.Lon, pt.Lat})
			}
			out.Zones = append(out.Zones, z)

		default:
			return out, fmt.Errorf("config: unknown fixture kind %q", t.Kind)
		}
	}

	return out, nil
}
