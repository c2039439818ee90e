package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/gridroute/pkg/design"
	"github.com/matzehuels/gridroute/pkg/errors"
	"github.com/matzehuels/gridroute/pkg/result"
)

// Format is a design file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf returns the design format for a file path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported design format %q (want .toml, .yaml or .json)", filepath.Ext(path))
}

// ReadDesign decodes a design in format f from r and validates it.
// ReadDesign does not close r.
func ReadDesign(r io.Reader, f Format) (*design.Design, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read design: %w", err)
	}
	var d design.Design
	switch f {
	case FormatTOML:
		err = toml.Unmarshal(data, &d)
	case FormatYAML:
		err = yaml.Unmarshal(data, &d)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&d)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported design format %q", f)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s design", f)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ImportDesign reads and validates the design file at path.
func ImportDesign(path string) (*design.Design, error) {
	if err := errors.ValidateDesignPath(path); err != nil {
		return nil, err
	}
	f, _ := FormatOf(path)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "design %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return ReadDesign(file, f)
}

// ReadResult decodes a JSON result from r.
func ReadResult(r io.Reader) (*result.Result, error) {
	var res result.Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode result")
	}
	return &res, nil
}

// ImportResult reads a JSON result file at path.
func ImportResult(path string) (*result.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "result %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadResult(f)
}
