// Package config loads project settings from draveur.yml and turns them into
// a configured engine.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/draveur/internal/engine"
	"github.com/dusk-indust/draveur/internal/lang"
)

// FileNames are the config file names Load looks for, in order.
var FileNames = []string{"draveur.yml", "draveur.yaml"}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		_, err := lang.Lookup(fl.Field().String())
		return err == nil
	})
}

// Config holds project-level settings loaded from draveur.yml.
type Config struct {
	Language      string    `yaml:"language,omitempty" validate:"omitempty,language"`
	Threads       int       `yaml:"threads,omitempty" validate:"gte=0"`
	OnScriptError string    `yaml:"onScriptError,omitempty" validate:"omitempty,oneof=abort skip"`
	Hidden        bool      `yaml:"hidden,omitempty"`
	NoIgnore      bool      `yaml:"noIgnore,omitempty"`
	NoBuiltin     bool      `yaml:"noBuiltin,omitempty"`
	Decorators    []string  `yaml:"decorators,omitempty" validate:"dive,required"`
	Link          Link      `yaml:"link,omitempty"`
	Mappings      []Mapping `yaml:"mappings,omitempty" validate:"dive"`
	Format        string    `yaml:"format,omitempty" validate:"omitempty,oneof=json mermaid"`

	// dir is the directory of the loaded file; file references resolve
	// against it.
	dir string
}

// Link configures the foreign-edge pass.
type Link struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	LeafAttr string `yaml:"leafAttr,omitempty" validate:"required_if=Enabled true"`
	RootAttr string `yaml:"rootAttr,omitempty" validate:"required_if=Enabled true"`
}

// Mapping is a user-defined pattern and script pair. Pattern and script are
// given inline or as paths relative to the config file.
type Mapping struct {
	Name        string `yaml:"name,omitempty"`
	Pattern     string `yaml:"pattern,omitempty" validate:"required_without=PatternFile,excluded_with=PatternFile"`
	PatternFile string `yaml:"patternFile,omitempty"`
	Script      string `yaml:"script,omitempty" validate:"required_without=ScriptFile,excluded_with=ScriptFile"`
	ScriptFile  string `yaml:"scriptFile,omitempty"`
	Target      string `yaml:"target,omitempty"`
}

// Load attempts to read draveur.yml or draveur.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return LoadFile(path)
	}
	return &Config{dir: dir}, nil
}

// LoadFile reads and validates the config file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the field constraints.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// LanguageOrDefault returns the configured language, python when unset.
func (c *Config) LanguageOrDefault() string {
	if c.Language == "" {
		return "python"
	}
	return c.Language
}

// ResolveMappings returns the user mappings with file references read.
func (c *Config) ResolveMappings() ([]lang.Mapping, error) {
	out := make([]lang.Mapping, 0, len(c.Mappings))
	for i, m := range c.Mappings {
		pattern, err := c.inlineOrFile(m.Pattern, m.PatternFile)
		if err != nil {
			return nil, fmt.Errorf("mapping %d pattern: %w", i, err)
		}
		script, err := c.inlineOrFile(m.Script, m.ScriptFile)
		if err != nil {
			return nil, fmt.Errorf("mapping %d script: %w", i, err)
		}
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("config-%d", i)
		}
		out = append(out, lang.Mapping{Name: name, Pattern: pattern, Script: script, Target: m.Target})
	}
	return out, nil
}

func (c *Config) inlineOrFile(inline, file string) (string, error) {
	if file == "" {
		return inline, nil
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(c.dir, file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Engine builds an engine for the configured language with the built-in
// mappings (unless disabled) followed by the user mappings. opts are applied
// after the options derived from the config.
func (c *Config) Engine(opts ...engine.Option) (*engine.Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	l, err := lang.Lookup(c.LanguageOrDefault())
	if err != nil {
		return nil, err
	}
	policy, _ := engine.ParseErrorPolicy(c.OnScriptError)

	all := []engine.Option{
		engine.WithThreads(c.Threads),
		engine.WithScriptErrorPolicy(policy),
		engine.WithHidden(c.Hidden),
		engine.WithNoIgnore(c.NoIgnore),
	}
	if c.Link.Enabled {
		all = append(all, engine.WithLink(c.Link.LeafAttr, c.Link.RootAttr))
	}
	e := engine.New(l, append(all, opts...)...)

	mappings, err := c.mappings(l)
	if err != nil {
		e.Close()
		return nil, err
	}
	for _, m := range mappings {
		if err := e.Add(m); err != nil {
			e.Close()
			return nil, fmt.Errorf("mapping %s: %w", m.Name, err)
		}
	}
	return e, nil
}

func (c *Config) mappings(l lang.Language) ([]lang.Mapping, error) {
	if len(c.Decorators) > 0 && l.Name() != "python" {
		return nil, fmt.Errorf("decorators are only supported for python, not %s", l.Name())
	}
	var out []lang.Mapping
	if !c.NoBuiltin {
		for _, m := range l.Mappings() {
			if m.Name == "decorated-classes" && len(c.Decorators) > 0 {
				m = lang.PythonDecoratedClasses(c.Decorators...)
			}
			out = append(out, m)
		}
	}
	user, err := c.ResolveMappings()
	if err != nil {
		return nil, err
	}
	out = append(out, user...)
	if len(out) == 0 {
		return nil, engine.ErrNoMappings
	}
	return out, nil
}
