package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// OutputPaths derives the assembly and object file names that sit next to
// the executable exePath: "out" gives "out.asm" and "out.o". An exePath that
// would overwrite either of them is rejected.
func OutputPaths(exePath string) (asmPath, objPath string, err error) {
	base := strings.TrimSuffix(exePath, filepath.Ext(exePath))
	if base == "" {
		base = exePath
	}
	asmPath, objPath = base+".asm", base+".o"

	exe := filepath.Clean(exePath)
	if exe == filepath.Clean(asmPath) || exe == filepath.Clean(objPath) {
		return "", "", fmt.Errorf("output path %q collides with the intermediate %s and %s files", exePath, asmPath, objPath)
	}
	return asmPath, objPath, nil
}

// ReadSource reads a source file as text.
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read input file %q: %w", path, err)
	}
	return string(data), nil
}

// WriteText writes s to path, creating or truncating it.
func WriteText(path, s string) error {
	if err := os.WriteFile(path, []byte(s), 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return nil
}
