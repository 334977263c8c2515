package irtrack

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDelimitedToolConfig(t *testing.T) {
	set := ParseDelimitedToolConfig("3,0,0,0,0.05,0,0,0,0.08,0;1,0,0,0,0.04,0,0,0,0.06,0")
	if set.Len() != 2 {
		t.Fatalf("got %d tools, want 2", set.Len())
	}

	tool := set.Get(3)
	if tool == nil {
		t.Fatal("tool 3 missing")
	}
	want := []Vec3{{}, {X: 0.05}, {Y: 0.08}}
	if diff := cmp.Diff(want, tool.Geometry); diff != "" {
		t.Errorf("tool 3 geometry mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDelimitedToolConfigOrdering(t *testing.T) {
	// ids out of order in the input; iteration must be ascending
	set := ParseDelimitedToolConfig("9,0,0,0,1,0,0,0,1,0;2,0,0,0,1,0,0,0,1,0;5,0,0,0,1,0,0,0,1,0")

	var ids []uint8
	set.Each(func(tool *TrackedTool) { ids = append(ids, tool.ID) })
	if diff := cmp.Diff([]uint8{2, 5, 9}, ids); diff != "" {
		t.Errorf("iteration order mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDelimitedToolConfigSkipsMalformed(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"too few markers", "1,0,0,0,1,0,0"},
		{"bad id", "banana,0,0,0,1,0,0,0,1,0"},
		{"id out of range", "256,0,0,0,1,0,0,0,1,0"},
		{"ragged triple", "1,0,0,0,1,0,0,0,1,0,7"},
		{"bad coordinate", "1,0,0,zero,1,0,0,0,1,0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// the valid record must survive its malformed neighbour
			set := ParseDelimitedToolConfig(tc.input + ";7,0,0,0,1,0,0,0,1,0")
			if set.Len() != 1 {
				t.Fatalf("got %d tools, want 1", set.Len())
			}
			if set.Get(7) == nil {
				t.Error("valid tool 7 was dropped")
			}
		})
	}
}

func TestParseDelimitedToolConfigMarkerCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("1")
	for i := 0; i <= MaxGeometryMarkers; i++ { // one marker over the cap
		b.WriteString(",0,0,0")
	}
	set := ParseDelimitedToolConfig(b.String())
	if set.Len() != 0 {
		t.Errorf("tool over the marker cap should be rejected, got %d tools", set.Len())
	}
}

func TestParseJSONToolConfig(t *testing.T) {
	doc := `{
		"tools": [
			{"name": "Probe", "id": 4, "coordinates": [
				["0", "0", "0"], ["0.05", "0", "0"], ["0", "0.08", "0"]
			]},
			{"name": "NoID", "coordinates": [
				["0", "0", "0"], ["0.05", "0", "0"], ["0", "0.08", "0"]
			]}
		]
	}`
	set, err := ParseJSONToolConfig([]byte(doc))
	if err != nil {
		t.Fatalf("ParseJSONToolConfig: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("got %d tools, want 1 (entry without id skipped)", set.Len())
	}

	tool := set.Get(4)
	if tool == nil {
		t.Fatal("tool 4 missing")
	}
	if tool.Name != "Probe" {
		t.Errorf("tool name = %q, want Probe", tool.Name)
	}
	want := []Vec3{{}, {X: 0.05}, {Y: 0.08}}
	if diff := cmp.Diff(want, tool.Geometry); diff != "" {
		t.Errorf("geometry mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJSONToolConfigDocumentErrors(t *testing.T) {
	if _, err := ParseJSONToolConfig([]byte("{not json")); err == nil {
		t.Error("unparseable document should error")
	}
	if _, err := ParseJSONToolConfig([]byte(`{"other": []}`)); err == nil {
		t.Error("document without a tools array should error")
	}
}

func TestNewToolSetKeepsFirstDuplicate(t *testing.T) {
	set := NewToolSet([]*TrackedTool{
		{ID: 1, Name: "first"},
		{ID: 1, Name: "second"},
	})
	if set.Len() != 1 {
		t.Fatalf("got %d tools, want 1", set.Len())
	}
	if got := set.Get(1).Name; got != "first" {
		t.Errorf("duplicate id kept %q, want the first entry", got)
	}
}

func TestLoadToolConfigFileSniffsFormat(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "tools.json")
	jsonDoc := `{"tools": [{"name": "P", "id": 2, "coordinates": [["0","0","0"],["0.05","0","0"],["0","0.08","0"]]}]}`
	if err := os.WriteFile(jsonPath, []byte(jsonDoc), 0644); err != nil {
		t.Fatal(err)
	}

	textPath := filepath.Join(dir, "tools.txt")
	if err := os.WriteFile(textPath, []byte("2,0,0,0,0.05,0,0,0,0.08,0"), 0644); err != nil {
		t.Fatal(err)
	}

	fromJSON, err := LoadToolConfigFile(jsonPath)
	if err != nil {
		t.Fatalf("load JSON config: %v", err)
	}
	fromText, err := LoadToolConfigFile(textPath)
	if err != nil {
		t.Fatalf("load text config: %v", err)
	}

	if fromJSON.Len() != 1 || fromText.Len() != 1 {
		t.Fatalf("both forms should load one tool, got %d and %d", fromJSON.Len(), fromText.Len())
	}
	if diff := cmp.Diff(fromJSON.Get(2).Geometry, fromText.Get(2).Geometry); diff != "" {
		t.Errorf("geometries differ between forms (-json +text):\n%s", diff)
	}
}

func TestSerializeLayout(t *testing.T) {
	tool := &TrackedTool{ID: 6, Geometry: []Vec3{{}, {X: 1}, {Y: 1}}}
	tool.Visible = true
	tool.PoseWorld = TranslationPose(Vec3{X: 0.1, Y: 0.2, Z: 0.3})
	set := NewToolSet([]*TrackedTool{tool})

	out := set.Serialize()
	if len(out) != SnapshotValuesPerTool {
		t.Fatalf("snapshot length = %d, want %d", len(out), SnapshotValuesPerTool)
	}
	if out[0] != 6 || out[1] != 1 {
		t.Errorf("header = [%v %v], want [6 1]", out[0], out[1])
	}
	// column-major: translation occupies the last column, entries 12..14
	if out[2+12] != 0.1 || out[2+13] != 0.2 || out[2+14] != 0.3 {
		t.Errorf("translation entries = %v", out[2+12:2+15])
	}
	if out[2+15] != 1 {
		t.Errorf("homogeneous corner = %v, want 1", out[2+15])
	}
}
