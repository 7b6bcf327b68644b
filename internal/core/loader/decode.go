package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadYAML decodes a definition from YAML.
func LoadYAML(r io.Reader) (*Definition, error) {
	var d Definition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadJSON decodes a definition from JSON.
func LoadJSON(r io.Reader) (*Definition, error) {
	var d Definition
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadFile picks the decoder from the file extension.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadBytes(data, path)
}

// LoadBytes decodes src, choosing the format from filename's extension.
func LoadBytes(src []byte, filename string) (*Definition, error) {
	var (
		d   *Definition
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		d, err = LoadYAML(bytes.NewReader(src))
	case ".json":
		d, err = LoadJSON(bytes.NewReader(src))
	case ".hcl":
		d, err = LoadHCL(src, filename)
	case ".xml":
		d, err = LoadXML(bytes.NewReader(src))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return d, nil
}
