package graph

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/codeflow/pkg/errors"
)

func TestReadSnapshot(t *testing.T) {
	tests := []struct {
		name      string
		format    Format
		input     string
		wantNodes int
		wantEdges int
		wantErr   bool
	}{
		{
			name:      "json",
			format:    FormatJSON,
			input:     `{"nodes":[{"id":"a","label":"App.tsx","type":"file"},{"id":"b"}],"edges":[{"source":"a","target":"b","type":"import"}]}`,
			wantNodes: 2,
			wantEdges: 1,
		},
		{
			name:   "yaml",
			format: FormatYAML,
			input: `nodes:
  - id: a
    label: utils.js
edges:
  - source: a
    target: missing
`,
			wantNodes: 1,
			wantEdges: 1,
		},
		{
			name:      "empty object",
			format:    FormatJSON,
			input:     `{}`,
			wantNodes: 0,
			wantEdges: 0,
		},
		{
			name:    "malformed",
			format:  FormatJSON,
			input:   `{"nodes":[`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ReadSnapshot(strings.NewReader(tt.input), tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadSnapshot() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidSnapshot) {
					t.Errorf("error code = %q, want %q", errors.GetCode(err), errors.ErrCodeInvalidSnapshot)
				}
				return
			}
			if len(s.Nodes) != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", len(s.Nodes), tt.wantNodes)
			}
			if len(s.Edges) != tt.wantEdges {
				t.Errorf("edges = %d, want %d", len(s.Edges), tt.wantEdges)
			}
			if s.Nodes == nil || s.Edges == nil {
				t.Error("decoded slices should never be nil")
			}
		})
	}
}

func TestReadSnapshotFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.yml")
	if err := os.WriteFile(path, []byte("nodes:\n  - id: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := ReadSnapshotFile(path)
	if err != nil {
		t.Fatalf("ReadSnapshotFile() error = %v", err)
	}
	if len(s.Nodes) != 1 || s.Nodes[0].ID != "x" {
		t.Errorf("nodes = %+v, want one node x", s.Nodes)
	}

	_, err = ReadSnapshotFile(filepath.Join(dir, "nope.json"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error code = %q, want %q", errors.GetCode(err), errors.ErrCodeFileNotFound)
	}
}

func TestWriteSnapshotRoundTrip(t *testing.T) {
	s := Snapshot{
		Nodes: []Node{{ID: "a", Label: "a.ts", Type: TypeFile}},
		Edges: []Edge{{Source: "a", Target: "a", Type: EdgeCall}},
	}
	var buf bytes.Buffer
	if err := WriteSnapshot(s, &buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSnapshot(&buf, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if got.Hash() != s.Hash() {
		t.Error("round trip changed the snapshot hash")
	}
}

func TestSnapshotHash(t *testing.T) {
	a := Snapshot{Nodes: []Node{{ID: "a"}, {ID: "b"}}, Edges: []Edge{{Source: "a", Target: "b"}}}
	b := Snapshot{Nodes: []Node{{ID: "a"}, {ID: "b"}}, Edges: []Edge{{Source: "a", Target: "b"}}}
	c := Snapshot{Nodes: []Node{{ID: "a"}, {ID: "b"}}, Edges: []Edge{{Source: "b", Target: "a"}}}

	if a.Hash() != b.Hash() {
		t.Error("equal snapshots should hash identically")
	}
	if a.Hash() == c.Hash() {
		t.Error("different edges should change the hash")
	}
	if len(a.Hash()) != 64 {
		t.Errorf("hash length = %d, want 64", len(a.Hash()))
	}
}

func TestSnapshotValidate(t *testing.T) {
	tests := []struct {
		name string
		s    Snapshot
		code errors.Code
	}{
		{"valid", Snapshot{Nodes: []Node{{ID: "a"}, {ID: "b"}}}, ""},
		{"dangling edge is valid", Snapshot{Nodes: []Node{{ID: "a"}}, Edges: []Edge{{Source: "a", Target: "zz"}}}, ""},
		{"empty id", Snapshot{Nodes: []Node{{ID: ""}}}, errors.ErrCodeInvalidSnapshot},
		{"duplicate", Snapshot{Nodes: []Node{{ID: "a"}, {ID: "a"}}}, errors.ErrCodeDuplicateNode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("Validate() code = %q, want %q (err=%v)", got, tt.code, err)
			}
		})
	}
}

func TestEdgeCounts(t *testing.T) {
	s := Snapshot{
		Nodes: []Node{{ID: "A"}, {ID: "B"}, {ID: "C"}},
		Edges: []Edge{{Source: "A", Target: "B"}, {Source: "A", Target: "C"}},
	}

	tests := []struct {
		id      string
		out, in int
	}{
		{"A", 2, 0},
		{"B", 0, 1},
		{"C", 0, 1},
		{"missing", 0, 0},
	}
	for _, tt := range tests {
		out, in := s.EdgeCounts(tt.id)
		if out != tt.out || in != tt.in {
			t.Errorf("EdgeCounts(%q) = (%d, %d), want (%d, %d)", tt.id, out, in, tt.out, tt.in)
		}
	}
}

func TestDisplayLabel(t *testing.T) {
	if got := (Node{ID: "id"}).DisplayLabel(); got != "id" {
		t.Errorf("DisplayLabel() = %q, want id", got)
	}
	if got := (Node{ID: "id", Label: "L"}).DisplayLabel(); got != "L" {
		t.Errorf("DisplayLabel() = %q, want L", got)
	}
}
