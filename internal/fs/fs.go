// Package fs provides file system operations for generated quadlet units
package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/trly/quadlet-gen/internal/config"
	"github.com/trly/quadlet-gen/internal/log"
	"github.com/trly/quadlet-gen/internal/quadlet"
)

// Service provides file system operations with configurable paths.
type Service struct {
	configProvider config.Provider
	logger         log.Logger
}

// NewService creates a new filesystem service with the given config provider.
func NewService(configProvider config.Provider) *Service {
	return &Service{
		configProvider: configProvider,
		logger:         log.NewLogger(configProvider.GetConfig().Verbose),
	}
}

// NewServiceWithLogger creates a new filesystem service with explicit logger injection.
func NewServiceWithLogger(configProvider config.Provider, logger log.Logger) *Service {
	return &Service{
		configProvider: configProvider,
		logger:         logger,
	}
}

// UnitPath returns the output path of the unit generated for in.
func (s *Service) UnitPath(in quadlet.Input) (string, error) {
	name, err := quadlet.UnitFileName(in)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.UnitDirectory(), name), nil
}

// UnitDirectory returns the directory generated units are written to.
func (s *Service) UnitDirectory() string {
	return s.configProvider.GetConfig().OutputDir
}

// HasUnitChanged checks if the content of a unit file has changed.
func (s *Service) HasUnitChanged(unitPath, content string) bool {
	existingContent, err := os.ReadFile(unitPath) //nolint:gosec // Safe as path is internally constructed, not user-controlled
	if err != nil {
		// File doesn't exist or can't be read, so it has changed
		return true
	}

	s.logger.Debug("Content hash comparison",
		"existing", ContentHash(string(existingContent)),
		"new", ContentHash(content))

	if string(existingContent) == content {
		s.logger.Debug("Unit unchanged, skipping", "path", unitPath)
		return false
	}

	return true
}

// WriteUnitFile writes unit content to the specified file path. Units must
// stay readable by the systemd generator.
func (s *Service) WriteUnitFile(unitPath, content string) error {
	s.logger.Debug("Writing quadlet unit", "path", unitPath)

	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil { //nolint:gosec // unit directories are world readable
		return fmt.Errorf("failed to create unit directory: %w", err)
	}

	return os.WriteFile(unitPath, []byte(content), 0644) //nolint:gosec // unit files are world readable
}

// ContentHash returns the hex encoded SHA-256 of content, used for change
// tracking.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
