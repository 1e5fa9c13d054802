// Package idgen generates export identifiers backed by nanoid.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// ExportPrefix starts every export identifier.
const ExportPrefix = "exp-"

// Lowercase only: identifiers end up in object keys and file names.
const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	size     = 12
)

// ExportID returns a new export identifier, e.g. "exp-4f9k2m0x1q7z".
func ExportID() (string, error) {
	id, err := nanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return ExportPrefix + id, nil
}

// IsExportID reports whether s has the shape ExportID produces.
func IsExportID(s string) bool {
	rest, ok := strings.CutPrefix(s, ExportPrefix)
	if !ok || len(rest) != size {
		return false
	}
	for _, r := range rest {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}
