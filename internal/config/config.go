package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/vents/internal/logging"
)

// Config is the complete vents configuration.
type Config struct {
	// Delay is the default debounce window for delayed events.
	Delay Duration `toml:"delay" yaml:"delay"`

	Log    LogConfig    `toml:"log" yaml:"log"`
	Script ScriptConfig `toml:"script" yaml:"script"`
	Watch  WatchConfig  `toml:"watch" yaml:"watch"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of DEBUG, INFO, WARN or ERROR, case-insensitive.
	Level string `toml:"level" yaml:"level"`
	// File is the log file path. Empty means stderr.
	File string `toml:"file" yaml:"file"`
}

// ScriptConfig controls the Lua host.
type ScriptConfig struct {
	// Timeout bounds a single script run. Zero disables the limit.
	Timeout Duration `toml:"timeout" yaml:"timeout"`
}

// WatchConfig controls the config file watcher.
type WatchConfig struct {
	// Debounce is the quiet period after the last file event before a reload.
	Debounce Duration `toml:"debounce" yaml:"debounce"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Delay: Duration(250 * time.Millisecond),
		Log: LogConfig{
			Level: logging.LevelInfo,
		},
		Script: ScriptConfig{
			Timeout: Duration(30 * time.Second),
		},
		Watch: WatchConfig{
			Debounce: Duration(100 * time.Millisecond),
		},
	}
}

// Validate checks that every setting is in range.
func (c Config) Validate() error {
	var errs []error
	if c.Delay < 0 {
		errs = append(errs, &ValidationError{Key: "delay", Value: c.Delay, Message: "must not be negative"})
	}
	if !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, &ValidationError{
			Key:     "log.level",
			Value:   c.Log.Level,
			Message: "must be one of " + strings.Join(logging.ValidLevels(), ", "),
		})
	}
	if c.Script.Timeout < 0 {
		errs = append(errs, &ValidationError{Key: "script.timeout", Value: c.Script.Timeout, Message: "must not be negative"})
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, &ValidationError{Key: "watch.debounce", Value: c.Watch.Debounce, Message: "must not be negative"})
	}
	return errors.Join(errs...)
}

// Format is a configuration file format.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Load reads path, decodes it over Default according to its extension,
// and validates the result.
func Load(path string) (Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg, err := decode(path, format, data)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the given format over Default and validates it.
func Parse(format Format, data []byte) (Config, error) {
	cfg, err := decode("<input>", format, data)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode rejects unknown keys so that typos surface instead of silently
// keeping defaults.
func decode(source string, format Format, data []byte) (Config, error) {
	cfg := Default()

	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			pe := &ParseError{Path: source, Format: format, Err: err}
			var de *toml.DecodeError
			if errors.As(err, &de) {
				pe.Line, _ = de.Position()
			}
			return Config{}, pe
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, &ParseError{Path: source, Format: format, Err: err}
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return cfg, nil
}

// Marshal encodes c in the given format.
func (c Config) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(c)
	case FormatYAML:
		return yaml.Marshal(c)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
