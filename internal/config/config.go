// Package config resolves glhost directories, settings and the patch tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
	"gopkg.in/yaml.v3"

	"glhost/internal/artifacts"
	"glhost/internal/classify"
	"glhost/internal/common"
	"glhost/internal/util"
)

// AppName names the config and cache directories.
const AppName = "glhost"

// getConfigDir returns the config directory path.
// Uses GLHOST_CONFIG_DIR if set, then $XDG_CONFIG_HOME/glhost, then ~/.config/glhost.
// This is computed dynamically to support test isolation.
func getConfigDir() string {
	if dir := os.Getenv("GLHOST_CONFIG_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", AppName)
}

// ConfigDir returns the configuration directory path
func ConfigDir() string {
	return getConfigDir()
}

// SettingsPath returns the settings file path
func SettingsPath() string {
	return filepath.Join(getConfigDir(), "settings.yaml")
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(getConfigDir(), 0700)
}

// DefaultCacheRoot returns $XDG_CACHE_HOME/glhost, falling back to ~/.cache/glhost.
func DefaultCacheRoot() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", AppName)
}

// Settings represents the user settings file
type Settings struct {
	LogLevel    string            `yaml:"log_level"`    // trace, debug, info, warn, off (default: off)
	CacheDir    string            `yaml:"cache_dir"`    // empty = DefaultCacheRoot()
	Patchelf    string            `yaml:"patchelf"`     // empty = build default, then PATH
	ExcludeDirs []string          `yaml:"exclude_dirs"` // gitignore-style patterns
	ExtraRules  classify.Patterns `yaml:"extra_rules"`
}

// LoggingEnabled returns whether a log level other than "off" or "none" is set.
func (s *Settings) LoggingEnabled() bool {
	level := s.NormalizedLogLevel()
	return level != "" && level != "off" && level != "none"
}

// NormalizedLogLevel returns the lowercase log level.
func (s *Settings) NormalizedLogLevel() string {
	return strings.ToLower(strings.TrimSpace(s.LogLevel))
}

// Vendor returns the NVIDIA profile extended with the configured extra rules.
func (s *Settings) Vendor() (classify.Vendor, error) {
	v, err := classify.NVIDIA().WithExtraRules(s.ExtraRules)
	if err != nil {
		return classify.Vendor{}, fmt.Errorf("invalid extra_rules: %w", err)
	}
	return v, nil
}

// CacheRoot picks the cache root: the flag value, then cache_dir, then the
// default. The result is always absolute.
func (s *Settings) CacheRoot(flagValue string) string {
	for _, candidate := range []string{flagValue, s.CacheDir} {
		if candidate != "" {
			return common.AbsPath(expandHome(candidate))
		}
	}
	return common.AbsPath(DefaultCacheRoot())
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// loadDefaultSettings parses default settings from embedded artifact.
func loadDefaultSettings() Settings {
	var settings Settings
	if err := yaml.Unmarshal(artifacts.GlobalSettings, &settings); err != nil {
		panic("failed to parse embedded settings: " + err.Error())
	}
	return settings
}

// LoadSettings loads the settings file.
// Falls back to embedded defaults if the file doesn't exist.
func LoadSettings() (*Settings, error) {
	return LoadSettingsFromPath(SettingsPath())
}

// LoadSettingsFromPath loads settings from a specific file.
func LoadSettingsFromPath(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			settings := loadDefaultSettings()
			return &settings, nil
		}
		return nil, err
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &settings, nil
}

// SaveSettings atomically replaces the settings file
func SaveSettings(settings *Settings) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	header := []byte("# glhost settings\n# See: glhost config --help\n\n")
	return renameio.WriteFile(SettingsPath(), append(header, data...), 0600)
}

// InitSettings writes the default settings file if none exists.
// Returns true if a file was created.
func InitSettings() (bool, error) {
	if err := EnsureConfigDir(); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	if err := renameio.WriteFile(path, artifacts.GlobalSettings, 0600); err != nil {
		return false, fmt.Errorf("failed to create default settings: %w", err)
	}
	return true, nil
}

// ResolvePatchTool picks the runpath rewriting tool once at startup: the
// configured path, then the build default, then "patchelf" on PATH.
// The result must be executable.
func ResolvePatchTool(configured, buildDefault string) (string, error) {
	for _, candidate := range []string{configured, buildDefault} {
		if candidate == "" {
			continue
		}
		path, err := util.LookExecutable(expandHome(candidate))
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", common.ErrPatchToolNotFound, candidate, err)
		}
		return path, nil
	}
	path, err := util.LookExecutable("patchelf")
	if err != nil {
		return "", fmt.Errorf("%w: patchelf is not on PATH", common.ErrPatchToolNotFound)
	}
	return path, nil
}
