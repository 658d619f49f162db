// Package queue reads and writes the patch queue file and implements the
// addpatch operation.
//
// The queue file is YAML by default (patchqueue.yaml). A JSON file is
// accepted too, with comments allowed, because the queue is often kept
// next to editor tooling that writes JSONC. The format is chosen by file
// extension and preserved on save.
package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/patchqueue/internal/model"
)

// DefaultFile is the queue file name looked up in the working directory.
const DefaultFile = "patchqueue.yaml"

// Format is the on-disk encoding of a queue file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from the file extension. Anything that is not
// .json or .jsonc is read as YAML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Load reads and validates the queue file at path.
//
// Returns a CLIError with ExitConfigError if the file does not exist or
// cannot be parsed.
func Load(path string) (*model.QueueConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("queue file not found: %s", path), err)
		}
		return nil, &model.FSError{Op: "read", Path: path, Err: err}
	}

	cfg, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse queue file %s", path), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("invalid queue file %s", path), err)
	}
	return cfg, nil
}

// Parse decodes a queue file body. Unknown keys are rejected so a typo in
// a field name does not silently drop a setting.
func Parse(data []byte, format Format) (*model.QueueConfig, error) {
	var cfg model.QueueConfig

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, err
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Marshal encodes cfg in the given format.
func Marshal(cfg *model.QueueConfig, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// Save writes cfg to path in the format implied by its extension. The file
// is written to a temporary sibling first and renamed into place, so a
// failed write never leaves a truncated queue behind.
func Save(path string, cfg *model.QueueConfig) error {
	data, err := Marshal(cfg, FormatOf(path))
	if err != nil {
		return fmt.Errorf("failed to encode queue file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return &model.FSError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &model.FSError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &model.FSError{Op: "write", Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return &model.FSError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &model.FSError{Op: "rename", Path: tmpName, Err: err}
	}
	return nil
}
