package interfaces

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/voxflow/voxflow/pkg/engine/node"
)

// inputPath extracts a file path input, which must be a non-empty string.
func inputPath(in node.Values, name string) (string, error) {
	raw, ok := in[name]
	if !ok {
		return "", fmt.Errorf("input %q is not set", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("input %q: expected a file path, got %T", name, raw)
	}
	if s == "" {
		return "", fmt.Errorf("input %q: empty file path", name)
	}
	return s, nil
}

// inputFloat extracts a numeric input, accepting the integer and float types a
// sweep declaration can carry. Missing inputs fall back to def.
func inputFloat(in node.Values, name string, def float64) (float64, error) {
	raw, ok := in[name]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("input %q: expected a number, got %T", name, raw)
	}
}

// stem returns the image filename without its .nii or .nii.gz extension.
func stem(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, ".nii")
	return base
}
