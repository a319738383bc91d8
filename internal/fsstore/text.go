package fsstore

import (
	"errors"
	"fmt"
	"os"
)

// ReadText returns the file's content and whether it exists. A missing
// file is not an error.
func ReadText(path string) (string, bool, error) {
	normalizedPath, err := normalizePath(path)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(normalizedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read text %s: %w", normalizedPath, err)
	}
	return string(data), true, nil
}

// WriteTextAtomic replaces the file at path with content in one rename.
func WriteTextAtomic(path string, content string) error {
	return writeAtomic(path, []byte(content))
}
