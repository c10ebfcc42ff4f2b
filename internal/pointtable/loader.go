package pointtable

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/KevinKickass/pointc/internal/types"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the decoder from a file extension. Anything that is not
// .json is read as YAML, which is a superset of JSON.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Loader reads workbook snapshots from disk. Relative paths that do not
// exist as given are looked up in the search paths, in order.
type Loader struct {
	validator   *SchemaValidator
	searchPaths []string
}

func NewLoader(searchPaths []string) (*Loader, error) {
	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &Loader{
		validator:   validator,
		searchPaths: searchPaths,
	}, nil
}

func (l *Loader) Load(path string) (*types.Workbook, error) {
	foundPath, data, err := l.read(path)
	if err != nil {
		return nil, err
	}

	wb, err := l.Parse(data, FormatFor(foundPath))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", foundPath, err)
	}
	return wb, nil
}

func (l *Loader) read(path string) (string, []byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return path, data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || filepath.IsAbs(path) {
		return "", nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	for _, searchPath := range l.searchPaths {
		fullPath := filepath.Join(searchPath, path)
		data, err = os.ReadFile(fullPath)
		if err == nil {
			return fullPath, data, nil
		}
	}

	return "", nil, fmt.Errorf("snapshot not found: %s (searched in: %v)", path, l.searchPaths)
}

// Parse decodes a snapshot. YAML input is re-encoded as JSON first so both
// formats go through the same schema gate and cell decoding.
func (l *Loader) Parse(data []byte, format Format) (*types.Workbook, error) {
	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, err
		}
		data = converted
	}

	if err := l.validator.ValidateJSON(data); err != nil {
		return nil, err
	}

	var wb types.Workbook
	if err := json.Unmarshal(data, &wb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &wb, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML to JSON: %w", err)
	}
	return out, nil
}
