package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	apperrors "releasecheck/internal/errors"
	"releasecheck/internal/update"
)

const (
	KeyOwner          = "owner"
	KeyRepo           = "repo"
	KeyCurrentVersion = "current-version"
	KeyScriptFile     = "script-file"
	KeyCompareMode    = "compare-mode"

	KeyAPIBaseURL = "api.base-url"
	KeyAPITimeout = "api.timeout"
	KeyRawBaseURL = "raw.base-url"
	KeyRawBranch  = "raw.branch"
	KeyRawPath    = "raw.path"

	KeyOutputFormat = "output.format"
	KeyOutputJSON   = "output.json"
	KeyOutputWidth  = "output.width"

	KeyHistoryEnabled = "history.enabled"
	KeyHistoryPath    = "history.path"
	KeyHistoryLimit   = "history.limit"
)

const (
	// DirName is the directory holding user and project config files.
	DirName   = ".releasecheck"
	envPrefix = "RC"
)

type initSettings struct {
	workingDir        string
	projectConfigPath string
	userConfigPath    string
}

// Option configures Initialize behaviour. Useful for tests to override paths.
type Option func(*initSettings)

// WithWorkingDir overrides the directory used for project config discovery.
func WithWorkingDir(dir string) Option {
	return func(cfg *initSettings) {
		cfg.workingDir = dir
	}
}

// WithProjectConfig explicitly sets the project config path instead of discovery.
func WithProjectConfig(path string) Option {
	return func(cfg *initSettings) {
		cfg.projectConfigPath = path
	}
}

// WithUserConfig overrides the default user config path.
func WithUserConfig(path string) Option {
	return func(cfg *initSettings) {
		cfg.userConfigPath = path
	}
}

var (
	configOnce sync.Once
	configMu   sync.RWMutex
	configInst *viper.Viper
	initErr    error
)

// Initialize loads configuration using the precedence:
// defaults < user config < project config < environment variables < overrides.
func Initialize(opts ...Option) error {
	configOnce.Do(func() {
		settings := initSettings{}
		for _, opt := range opts {
			opt(&settings)
		}
		initErr = configure(&settings)
	})
	return initErr
}

// ApplyOverrides injects values typically coming from CLI flags.
func ApplyOverrides(overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	if err := Initialize(); err != nil {
		return err
	}
	configMu.Lock()
	defer configMu.Unlock()
	if configInst == nil {
		return fmt.Errorf("configuration not initialized")
	}
	for k, v := range overrides {
		configInst.Set(k, v)
	}
	return nil
}

// GetString fetches a string configuration value, initializing on demand.
func GetString(key string) string {
	v, err := getViper()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v.GetString(key))
}

// GetBool fetches a bool configuration value, initializing on demand.
func GetBool(key string) bool {
	v, err := getViper()
	if err != nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt fetches an integer configuration value, initializing on demand.
func GetInt(key string) int {
	v, err := getViper()
	if err != nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration fetches a duration configuration value, initializing on demand.
func GetDuration(key string) time.Duration {
	v, err := getViper()
	if err != nil {
		return 0
	}
	return v.GetDuration(key)
}

// Validate reports missing or malformed settings the checker cannot run without.
func Validate() error {
	var missing []string
	for _, key := range []string{KeyOwner, KeyRepo, KeyCurrentVersion} {
		if GetString(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return apperrors.New(apperrors.CodeConfigurationError,
			fmt.Sprintf("missing required setting(s): %s", strings.Join(missing, ", ")), nil)
	}
	if GetDuration(KeyAPITimeout) < 0 {
		return apperrors.New(apperrors.CodeConfigurationError, fmt.Sprintf("%s must not be negative", KeyAPITimeout), nil)
	}
	switch mode := strings.ToLower(GetString(KeyCompareMode)); mode {
	case "", update.CompareLenient, update.CompareSemver:
	default:
		return apperrors.New(apperrors.CodeConfigurationError,
			fmt.Sprintf("unknown %s %q (want lenient or semver)", KeyCompareMode, mode), nil)
	}
	return nil
}

// DefaultHistoryPath returns ~/.releasecheck/history.db.
func DefaultHistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, DirName, "history.db"), nil
}

func configure(settings *initSettings) error {
	workingDir := strings.TrimSpace(settings.workingDir)
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
		workingDir = wd
	}

	userConfigPath := strings.TrimSpace(settings.userConfigPath)
	if userConfigPath == "" {
		path, err := defaultUserConfigPath()
		if err != nil {
			return err
		}
		userConfigPath = path
	}

	projectConfigPath := strings.TrimSpace(settings.projectConfigPath)
	if projectConfigPath == "" {
		path, err := findProjectConfig(workingDir)
		if err != nil {
			return err
		}
		projectConfigPath = path
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := mergeConfigFile(v, userConfigPath); err != nil {
		return fmt.Errorf("load user config: %w", err)
	}
	if err := mergeConfigFile(v, projectConfigPath); err != nil {
		return fmt.Errorf("load project config: %w", err)
	}

	configMu.Lock()
	defer configMu.Unlock()
	configInst = v
	return nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	//nolint:gosec // G304: Config loader intentionally reads user and project config files
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, DirName, "config.yaml"), nil
}

func findProjectConfig(startDir string) (string, error) {
	if strings.TrimSpace(startDir) == "" {
		return "", nil
	}
	dir := startDir
	for {
		candidate := filepath.Join(dir, DirName, "config.yaml")
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", fmt.Errorf("config path %s is a directory", candidate)
			}
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Defaults mirror the values the tool was first shipped with.
func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyOwner, update.DefaultRepoOwner)
	v.SetDefault(KeyRepo, update.DefaultRepoName)
	v.SetDefault(KeyCurrentVersion, update.DefaultCurrentVersion)
	v.SetDefault(KeyScriptFile, update.DefaultScriptFile)
	v.SetDefault(KeyCompareMode, update.CompareLenient)

	v.SetDefault(KeyAPIBaseURL, update.DefaultAPIBaseURL)
	v.SetDefault(KeyAPITimeout, update.DefaultTimeout)
	v.SetDefault(KeyRawBaseURL, update.DefaultRawBaseURL)
	v.SetDefault(KeyRawBranch, update.DefaultRawBranch)
	v.SetDefault(KeyRawPath, update.DefaultRawPath)

	v.SetDefault(KeyOutputFormat, "rich")
	v.SetDefault(KeyOutputJSON, false)
	v.SetDefault(KeyOutputWidth, 80)

	v.SetDefault(KeyHistoryEnabled, false)
	v.SetDefault(KeyHistoryPath, "")
	v.SetDefault(KeyHistoryLimit, 10)
}

func getViper() (*viper.Viper, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	configMu.RLock()
	defer configMu.RUnlock()
	if configInst == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return configInst, nil
}

// reset clears package state for tests.
func reset() {
	configMu.Lock()
	defer configMu.Unlock()
	configInst = nil
	initErr = nil
	configOnce = sync.Once{}
}

// ResetForTesting clears package state for tests in other packages and
// initializes from an empty temp directory.
// Returns a cleanup function that should be deferred.
func ResetForTesting(t interface{ TempDir() string }) func() {
	reset()
	tmp := t.TempDir()
	_ = Initialize(WithWorkingDir(tmp), WithUserConfig(filepath.Join(tmp, "user.yaml")))
	return reset
}
