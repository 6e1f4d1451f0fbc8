// Package config provides configuration management for quadlet-gen
package config

import (
	"os"

	"github.com/spf13/viper"
)

// Provider defines the interface for configuration providers.
type Provider interface {
	// GetConfig returns the current application configuration.
	GetConfig() *Settings
	// SetConfig sets the application configuration.
	SetConfig(c *Settings)
	// InitConfig initializes the application configuration.
	InitConfig() *Settings
	// SetConfigFilePath sets the configuration file path.
	SetConfigFilePath(p string)
}

// defaultConfigProvider implements the Provider interface.
type defaultConfigProvider struct {
	cfg        *Settings
	configFile string
}

// NewDefaultConfigProvider creates a new default config provider.
func NewDefaultConfigProvider() Provider {
	return &defaultConfigProvider{}
}

var defaultProvider = NewDefaultConfigProvider()

// Inspection sources.
const (
	SourceExec   = "exec"
	SourcePodman = "podman"
	SourceFile   = "file"
)

// Default configuration values for quadlet-gen.
const (
	DefaultSource           = SourceExec
	DefaultPodmanBinary     = "podman"
	DefaultPodmanSocket     = "unix:///run/podman/podman.sock"
	DefaultUserPodmanSocket = "unix://$XDG_RUNTIME_DIR/podman/podman.sock"
	DefaultWantedBy         = "default.target"
	DefaultDBPath           = "$HOME/.local/share/quadlet-gen/history.db"
	DefaultUserMode         = false
	DefaultVerbose          = false
	DefaultRecord           = false
)

// Settings represents the configuration for quadlet-gen. It selects where
// inspection records come from, how generated units are finished and where
// generation history is kept.
type Settings struct {
	Source       string   `yaml:"source"`
	PodmanBinary string   `yaml:"podmanBinary"`
	PodmanSocket string   `yaml:"podmanSocket,omitempty"`
	OutputDir    string   `yaml:"outputDir,omitempty"`
	WantedBy     []string `yaml:"wantedBy"`
	NoInstall    bool     `yaml:"noInstall"`
	Description  string   `yaml:"description,omitempty"`
	DBPath       string   `yaml:"dbPath"`
	Record       bool     `yaml:"record"`
	UserMode     bool     `yaml:"userMode"`
	Verbose      bool     `yaml:"verbose"`
	ReleaseSlug  string   `yaml:"releaseSlug,omitempty"`
}

// Socket returns the podman service URI with environment variables expanded.
func (s *Settings) Socket() string {
	switch {
	case s.PodmanSocket != "":
		return os.ExpandEnv(s.PodmanSocket)
	case s.UserMode:
		return os.ExpandEnv(DefaultUserPodmanSocket)
	default:
		return DefaultPodmanSocket
	}
}

// HistoryPath returns the history database path with environment variables
// expanded.
func (s *Settings) HistoryPath() string {
	return os.ExpandEnv(s.DBPath)
}

func (p *defaultConfigProvider) SetConfig(c *Settings) {
	p.cfg = c
}

func (p *defaultConfigProvider) GetConfig() *Settings {
	return p.cfg
}

func (p *defaultConfigProvider) SetConfigFilePath(path string) {
	p.configFile = path
}

func (p *defaultConfigProvider) InitConfig() *Settings {
	p.cfg = initConfigInternal(p.configFile)
	return p.cfg
}

// SetConfig sets the application configuration.
func SetConfig(c *Settings) {
	defaultProvider.SetConfig(c)
}

// GetConfig returns the current application configuration.
func GetConfig() *Settings {
	return defaultProvider.GetConfig()
}

// SetConfigFilePath sets the configuration file path.
func SetConfigFilePath(p string) {
	defaultProvider.SetConfigFilePath(p)
}

// InitConfig initializes the application configuration.
func InitConfig() *Settings {
	return defaultProvider.InitConfig()
}

// Internal function to initialize configuration. A non-empty configFile
// replaces the config search paths.
func initConfigInternal(configFile string) *Settings {
	cfg := &Settings{
		Source:       DefaultSource,
		PodmanBinary: DefaultPodmanBinary,
		WantedBy:     []string{DefaultWantedBy},
		DBPath:       DefaultDBPath,
		Record:       DefaultRecord,
		UserMode:     DefaultUserMode,
		Verbose:      DefaultVerbose,
	}

	viper.SetDefault("source", DefaultSource)
	viper.SetDefault("podmanBinary", DefaultPodmanBinary)
	viper.SetDefault("wantedBy", []string{DefaultWantedBy})
	viper.SetDefault("dbPath", DefaultDBPath)
	viper.SetDefault("record", DefaultRecord)
	viper.SetDefault("userMode", DefaultUserMode)
	viper.SetDefault("verbose", DefaultVerbose)

	// SetConfigName clears an explicit config file, so it has to run first.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(os.ExpandEnv("$HOME/.config/quadlet-gen"))
	viper.AddConfigPath("/etc/quadlet-gen")
	viper.AddConfigPath(".")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	}

	viper.SetEnvPrefix("QUADLET_GEN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		panic(err)
	}

	return cfg
}
