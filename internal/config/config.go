package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/xyproto/env/v2"
	"go.yaml.in/yaml/v3"

	"rigela/internal/combokey"
)

const (
	maxConfigFileBytes   = 1 << 20
	maxRenameRetry       = 10
	renameRetryBaseDelay = 10 * time.Millisecond
	maxTimingWindow      = 10 * time.Second

	configDirName  = "RigelA"
	configFileName = "config.yaml"

	// EnvConfigPath overrides DefaultPath.
	EnvConfigPath = "RIGELA_CONFIG"
	// EnvLogLevel overrides log.level.
	EnvLogLevel = "RIGELA_LOG_LEVEL"
	// EnvMouseRead overrides mouse.read.
	EnvMouseRead = "RIGELA_MOUSE_READ"

	defaultKeyFeedAddr = "127.0.0.1:0"
)

var (
	saveMu             sync.Mutex
	defaultConfigDirFn = defaultConfigDir
	renameFileFn       = os.Rename
)

// Config is the persisted RigelA configuration.
type Config struct {
	Log       LogConfig           `yaml:"log" json:"log"`
	Mouse     MouseConfig         `yaml:"mouse" json:"mouse"`
	Keyboard  KeyboardConfig      `yaml:"keyboard" json:"keyboard"`
	Hotkeys   map[string][]string `yaml:"hotkeys,omitempty" json:"hotkeys,omitempty"`
	EventCore EventCoreConfig     `yaml:"event_core" json:"event_core"`
	KeyFeed   KeyFeedConfig       `yaml:"key_feed" json:"key_feed"`
	Pipe      PipeConfig          `yaml:"pipe" json:"pipe"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

type MouseConfig struct {
	// Read is the initial state of the mouse-read flag.
	Read bool `yaml:"read" json:"read"`
}

type KeyboardConfig struct {
	DoublePressWindow  time.Duration `yaml:"double_press_window" json:"double_press_window"`
	LongPressThreshold time.Duration `yaml:"long_press_threshold" json:"long_press_threshold"`
}

type EventCoreConfig struct {
	// MaxFingerprints bounds the de-duplication list. 0 means unbounded.
	MaxFingerprints int `yaml:"max_fingerprints" json:"max_fingerprints"`
}

type KeyFeedConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

type PipeConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Keyboard: KeyboardConfig{
			DoublePressWindow:  combokey.DefaultDoublePressWindow,
			LongPressThreshold: combokey.DefaultLongPressThreshold,
		},
		KeyFeed: KeyFeedConfig{Addr: defaultKeyFeedAddr},
		Pipe:    PipeConfig{Enabled: true},
	}
}

// Clone returns a deep copy of cfg.
func Clone(cfg Config) Config {
	out := cfg
	if cfg.Hotkeys != nil {
		out.Hotkeys = make(map[string][]string, len(cfg.Hotkeys))
		for id, chords := range cfg.Hotkeys {
			out.Hotkeys[id] = slices.Clone(chords)
		}
	}
	return out
}

// DefaultPath returns the config file path, honouring RIGELA_CONFIG.
func DefaultPath() string {
	if override := strings.TrimSpace(env.Str(EnvConfigPath)); override != "" {
		return override
	}
	dir, err := defaultConfigDirFn()
	if err != nil {
		fallback := filepath.Join(os.TempDir(), configDirName)
		slog.Warn("[WARN-CONFIG] failed to resolve config dir, falling back to temp dir",
			"error", err, "fallback", fallback)
		return filepath.Join(fallback, configFileName)
	}
	return filepath.Join(dir, configFileName)
}

func defaultConfigDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); dir != "" {
		return filepath.Join(dir, configDirName), nil
	}
	if dir := strings.TrimSpace(os.Getenv("APPDATA")); dir != "" {
		return filepath.Join(dir, configDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", configDirName), nil
}

// Load reads path. A missing file yields defaults and no error. A malformed
// file yields defaults together with the parse error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), fmt.Errorf("parse config: %w", err)
	}
	applyDefaultValues(&cfg)
	return cfg, nil
}

// EnsureFile loads path and writes the result back when the file does not
// exist yet. The loaded config is returned even when that write fails.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return cfg, nil
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return cfg, fmt.Errorf("stat config: %w", statErr)
	}
	if err := Save(path, cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg atomically. path must live inside the default config
// directory.
func Save(path string, cfg Config) error {
	absolutePath, err := validateConfigPath(path)
	if err != nil {
		return err
	}
	normalized := Clone(cfg)
	applyDefaultValues(&normalized)
	data, err := yaml.Marshal(&normalized)
	if err != nil {
		return fmt.Errorf("save config: marshal: %w", err)
	}

	saveMu.Lock()
	defer saveMu.Unlock()
	if err := os.MkdirAll(filepath.Dir(absolutePath), 0o700); err != nil {
		return fmt.Errorf("save config: create dir: %w", err)
	}
	return atomicWrite(absolutePath, data)
}

// ApplyEnv overlays RIGELA_LOG_LEVEL and RIGELA_MOUSE_READ onto cfg.
func ApplyEnv(cfg Config) Config {
	out := Clone(cfg)
	if level := strings.TrimSpace(env.Str(EnvLogLevel)); level != "" {
		out.Log.Level = level
	}
	if env.Has(EnvMouseRead) {
		out.Mouse.Read = env.Bool(EnvMouseRead)
	}
	return out
}

// SlogLevel maps log.level to a slog level. Unknown values map to Info.
func SlogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HotkeyOverrides parses the hotkeys section. Malformed chords are skipped;
// an entry left with no chords is dropped so the talent keeps its defaults.
func HotkeyOverrides(cfg Config) map[string][]combokey.ComboKey {
	out := make(map[string][]combokey.ComboKey, len(cfg.Hotkeys))
	for _, key := range slices.Sorted(maps.Keys(cfg.Hotkeys)) {
		id := strings.TrimSpace(key)
		if id == "" {
			continue
		}
		var chords []combokey.ComboKey
		for _, raw := range cfg.Hotkeys[key] {
			chord, err := combokey.Parse(raw)
			if err != nil {
				slog.Warn("[WARN-CONFIG] skipping malformed hotkey", "talent", id, "chord", raw, "error", err)
				continue
			}
			chords = append(chords, chord)
		}
		if len(chords) == 0 {
			slog.Warn("[WARN-CONFIG] hotkey override has no valid chords, using defaults", "talent", id)
			continue
		}
		out[id] = chords
	}
	return out
}

func applyDefaultValues(cfg *Config) {
	defaults := DefaultConfig()
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	case "":
		cfg.Log.Level = defaults.Log.Level
	default:
		slog.Warn("[WARN-CONFIG] unknown log level, falling back to info", "configured", cfg.Log.Level)
		cfg.Log.Level = defaults.Log.Level
	}
	cfg.Keyboard.DoublePressWindow = validTimingWindow("keyboard.double_press_window",
		cfg.Keyboard.DoublePressWindow, defaults.Keyboard.DoublePressWindow)
	cfg.Keyboard.LongPressThreshold = validTimingWindow("keyboard.long_press_threshold",
		cfg.Keyboard.LongPressThreshold, defaults.Keyboard.LongPressThreshold)
	if cfg.EventCore.MaxFingerprints < 0 {
		slog.Warn("[WARN-CONFIG] event_core.max_fingerprints is negative, falling back to unbounded",
			"configured", cfg.EventCore.MaxFingerprints)
		cfg.EventCore.MaxFingerprints = 0
	}
	cfg.KeyFeed.Addr = validKeyFeedAddr(cfg.KeyFeed.Addr)
}

func validTimingWindow(field string, value, fallback time.Duration) time.Duration {
	if value == 0 {
		return fallback
	}
	if value < 0 || value > maxTimingWindow {
		slog.Warn("[WARN-CONFIG] timing window out of range (0-10s], falling back to default",
			"field", field, "configured", value, "default", fallback)
		return fallback
	}
	return value
}

// validKeyFeedAddr keeps the key feed on loopback.
func validKeyFeedAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return defaultKeyFeedAddr
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		slog.Warn("[WARN-CONFIG] invalid key_feed.addr, falling back to default",
			"configured", addr, "error", err)
		return defaultKeyFeedAddr
	}
	if host == "localhost" {
		return addr
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		slog.Warn("[WARN-CONFIG] key_feed.addr must be a loopback address, falling back to default",
			"configured", addr)
		return defaultKeyFeedAddr
	}
	return addr
}

func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}
	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	// An explicit RIGELA_CONFIG location is trusted as well.
	if override := strings.TrimSpace(env.Str(EnvConfigPath)); override != "" {
		if abs, absErr := filepath.Abs(override); absErr == nil && abs == absolutePath {
			return absolutePath, nil
		}
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}
	return absolutePath, nil
}

func pathWithinDir(path string, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(0o600); err != nil && runtime.GOOS != "windows" {
		_ = tmp.Close()
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save config: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save config: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save config: close temp: %w", err)
	}
	if err := renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	committed = true
	return nil
}

func readLimitedFile(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("config file exceeds %d bytes", limit)
	}
	return data, nil
}

// renameFileWithRetry retries on Windows, where antivirus and indexers
// briefly hold the destination open.
func renameFileWithRetry(src, dst string) error {
	var err error
	for attempt := range maxRenameRetry {
		err = renameFileFn(src, dst)
		if err == nil || runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(renameRetryBaseDelay * time.Duration(attempt+1))
	}
	return err
}
