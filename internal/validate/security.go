package validate

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/trly/quadlet-gen/internal/quadlet"
)

// sensitiveKeywords identifies potentially sensitive environment variable names.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "key", "token", "auth", "credential",
	"private", "cert", "api_key", "access_key",
}

// isSensitiveKey checks if an environment variable key indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}

// SanitizeForLogging redacts sensitive information from strings for safe logging.
func SanitizeForLogging(key, value string) string {
	if isSensitiveKey(key) {
		if len(value) <= 4 {
			return "[REDACTED]"
		}
		// Show first 2 and last 2 characters with asterisks in between
		return value[:2] + strings.Repeat("*", len(value)-4) + value[len(value)-2:]
	}
	return value
}

// SensitiveEnvironment returns the keys of Environment directives in doc
// that look like credentials stored in plain text.
func SensitiveEnvironment(doc *quadlet.Document) []string {
	var keys []string
	for _, kv := range doc.Values(quadlet.SectionName(quadlet.KindContainer), "Environment") {
		key, _, _ := strings.Cut(kv, "=")
		if isSensitiveKey(key) {
			keys = append(keys, key)
		}
	}
	return keys
}

// PathWithinBase ensures a path stays within a base directory after cleaning.
func PathWithinBase(path, basePath string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if basePath == "" {
		return "", fmt.Errorf("base path cannot be empty")
	}

	absBase, err := filepath.Abs(filepath.Clean(basePath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	absPath := filepath.Clean(path)
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(absBase, absPath)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return "", fmt.Errorf("path escapes base directory")
	}

	return absPath, nil
}
