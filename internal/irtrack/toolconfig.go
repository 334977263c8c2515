package irtrack

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// Tool configuration comes in two wire forms: a delimited text form
// ("id,x,y,z,x,y,z,...;id,..." — records split on ';', fields on ',') and a
// JSON form with string-encoded coordinates:
//
//	{"tools": [
//	  {"name": "Probe", "id": 1,
//	   "coordinates": [["0.001", "0.002", "0.003"], ...]}
//	]}
//
// Coordinates are metres in the tool's own right-handed frame. The JSON
// form encodes numbers as strings on purpose: they are parsed with
// strconv.ParseFloat so the decimal separator never depends on host locale.
//
// A malformed tool entry is skipped with a log line; it never aborts the
// rest of the load.

// ParseDelimitedToolConfig parses the delimited text form.
func ParseDelimitedToolConfig(s string) *ToolSet {
	var tools []*TrackedTool
	for _, record := range strings.Split(s, ";") {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		tool, err := parseDelimitedRecord(record)
		if err != nil {
			log.Printf("[toolconfig] skipping malformed entry: %v", err)
			continue
		}
		tools = append(tools, tool)
	}
	return NewToolSet(tools)
}

func parseDelimitedRecord(record string) (*TrackedTool, error) {
	fields := strings.Split(record, ",")
	if len(fields) < 1+3*3 {
		return nil, fmt.Errorf("entry %q: need an id and at least 3 coordinate triples", record)
	}

	id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || id < 0 || id > 255 {
		return nil, fmt.Errorf("entry %q: bad tool id", record)
	}

	coords := fields[1:]
	if len(coords)%3 != 0 {
		return nil, fmt.Errorf("tool %d: coordinate count %d is not a multiple of 3", id, len(coords))
	}
	if len(coords)/3 > MaxGeometryMarkers {
		return nil, fmt.Errorf("tool %d: %d markers exceeds the %d-marker limit", id, len(coords)/3, MaxGeometryMarkers)
	}

	geometry := make([]Vec3, 0, len(coords)/3)
	for i := 0; i < len(coords); i += 3 {
		x, errX := strconv.ParseFloat(strings.TrimSpace(coords[i]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(coords[i+1]), 64)
		z, errZ := strconv.ParseFloat(strings.TrimSpace(coords[i+2]), 64)
		if errX != nil || errY != nil || errZ != nil {
			return nil, fmt.Errorf("tool %d: bad coordinate triple at marker %d", id, i/3)
		}
		geometry = append(geometry, Vec3{X: x, Y: y, Z: z})
	}

	return &TrackedTool{ID: uint8(id), Geometry: geometry}, nil
}

type toolConfigDoc struct {
	Tools []toolConfigEntry `json:"tools"`
}

type toolConfigEntry struct {
	Name        string      `json:"name"`
	ID          *int        `json:"id"`
	Coordinates [][3]string `json:"coordinates"`
}

// ParseJSONToolConfig parses the JSON wire form. An unparseable document is
// an error; individual malformed tool entries are skipped.
func ParseJSONToolConfig(data []byte) (*ToolSet, error) {
	var doc toolConfigDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tool config: %w", err)
	}
	if doc.Tools == nil {
		return nil, fmt.Errorf("parse tool config: no \"tools\" array")
	}

	var tools []*TrackedTool
	for _, entry := range doc.Tools {
		tool, err := entry.toTool()
		if err != nil {
			log.Printf("[toolconfig] skipping malformed entry: %v", err)
			continue
		}
		tools = append(tools, tool)
	}
	return NewToolSet(tools), nil
}

func (e toolConfigEntry) toTool() (*TrackedTool, error) {
	if e.ID == nil || *e.ID < 0 || *e.ID > 255 {
		return nil, fmt.Errorf("tool %q: missing or out-of-range id", e.Name)
	}
	if len(e.Coordinates) < 3 {
		return nil, fmt.Errorf("tool %d: need at least 3 markers, got %d", *e.ID, len(e.Coordinates))
	}
	if len(e.Coordinates) > MaxGeometryMarkers {
		return nil, fmt.Errorf("tool %d: %d markers exceeds the %d-marker limit", *e.ID, len(e.Coordinates), MaxGeometryMarkers)
	}

	geometry := make([]Vec3, 0, len(e.Coordinates))
	for i, triple := range e.Coordinates {
		x, errX := strconv.ParseFloat(triple[0], 64)
		y, errY := strconv.ParseFloat(triple[1], 64)
		z, errZ := strconv.ParseFloat(triple[2], 64)
		if errX != nil || errY != nil || errZ != nil {
			return nil, fmt.Errorf("tool %d: bad coordinate triple at marker %d", *e.ID, i)
		}
		geometry = append(geometry, Vec3{X: x, Y: y, Z: z})
	}

	return &TrackedTool{ID: uint8(*e.ID), Name: e.Name, Geometry: geometry}, nil
}

// LoadToolConfigFile reads a tool configuration from disk, detecting the wire
// form: documents starting with '{' are parsed as JSON, anything else as the
// delimited text form.
func LoadToolConfigFile(path string) (*ToolSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tool config: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		return ParseJSONToolConfig([]byte(trimmed))
	}
	return ParseDelimitedToolConfig(trimmed), nil
}
