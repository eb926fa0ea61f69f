package globaltags

import (
	"fmt"
	"path/filepath"
)

// PathIdentity identifies a file by its absolute path with symlinks resolved.
func PathIdentity(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("identifying %s: %w", path, err)
	}
	return "path:" + real, nil
}
