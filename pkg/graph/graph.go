package graph

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/codeflow/pkg/errors"
)

// =============================================================================
// Snapshot Serialization API
// =============================================================================

// Format identifies a snapshot encoding.
type Format string

// Supported encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from a file extension. Anything that is not
// .yaml or .yml is read as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ReadSnapshot decodes a snapshot from r. Nil node or edge lists decode as
// empty slices.
func ReadSnapshot(r io.Reader, format Format) (Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "read snapshot")
	}
	return UnmarshalSnapshot(data, format)
}

// UnmarshalSnapshot decodes a snapshot from bytes.
func UnmarshalSnapshot(data []byte, format Format) (Snapshot, error) {
	var s Snapshot
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Snapshot{}, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "decode yaml snapshot")
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&s); err != nil {
			return Snapshot{}, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "decode json snapshot")
		}
	}
	if s.Nodes == nil {
		s.Nodes = []Node{}
	}
	if s.Edges == nil {
		s.Edges = []Edge{}
	}
	return s, nil
}

// ReadSnapshotFile reads a snapshot from disk, choosing the decoder by
// extension.
func ReadSnapshotFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Snapshot{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return Snapshot{}, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "open %s", path)
	}
	defer f.Close()
	return ReadSnapshot(f, FormatForPath(path))
}

// WriteSnapshot writes s as indented JSON.
func WriteSnapshot(s Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
