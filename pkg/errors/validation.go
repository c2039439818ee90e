package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength bounds net, pin and layer identifiers.
const maxNameLength = 256

// identRegex matches identifiers accepted for layers and cut layers.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

// ValidateName validates a net or pin name.
//
// Net names come from netlists and may contain hierarchy separators and bus
// brackets (e.g. "u_core/data[3]"), so the rules only reject what can never
// be a real name:
//   - No empty names
//   - No control characters or null bytes
//   - No whitespace
//   - Maximum length of 256 characters
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidDesign, "%s name cannot be empty", kind)
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidDesign, "%s name too long (max %d characters)", kind, maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidDesign, "%s name contains invalid control characters", kind)
		}
		if unicode.IsSpace(r) {
			return New(ErrCodeInvalidDesign, "%s name %q contains whitespace", kind, name)
		}
	}
	return nil
}

// ValidateLayerName validates a routing or cut layer name.
func ValidateLayerName(name string) error {
	if err := ValidateName("layer", name); err != nil {
		return err
	}
	if !identRegex.MatchString(name) {
		return New(ErrCodeInvalidDesign, "invalid layer name: %q", name)
	}
	return nil
}

// ValidateDesignPath validates a design file path given on the command line.
// Only the extension is checked here; existence is checked when opening.
func ValidateDesignPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "design path cannot be empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return New(ErrCodeInvalidPath, "design path contains invalid characters")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".yaml", ".yml", ".json":
		return nil
	default:
		return New(ErrCodeInvalidFormat, "unsupported design format %q (want .toml, .yaml or .json)", filepath.Ext(path))
	}
}
