package helper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// IsValidUUID reports whether s parses as a UUID.
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// SanitizeFilename strips everything but letters, digits, '.', '_' and '-'
// from the base name. Returns fallback when nothing safe remains.
func SanitizeFilename(name, fallback string) string {
	base := filepath.Base(name)
	var b strings.Builder
	for _, r := range base {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	clean := strings.TrimSpace(b.String())
	if strings.Trim(clean, ".") == "" {
		return fallback
	}
	return clean
}

// CreateFolder ensures the directory exists.
func CreateFolder(path string) error {
	return os.MkdirAll(path, 0o755)
}

// ClearFolder removes every regular file directly under path, creating the
// directory if it is missing. A failure on one file does not stop the rest;
// all failures are joined into the returned error.
func ClearFolder(path string) (int, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, CreateFolder(path)
		}
		return 0, err
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(path, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
