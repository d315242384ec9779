// Package config handles justice.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/dhamidi/justice/repository"
	"github.com/dhamidi/justice/verifier"
)

const FileName = "justice.toml"

// Config represents a justice.toml file.
type Config struct {
	ClassPath ClassPath `toml:"classpath"`
	Verify    Verify    `toml:"verify"`
	Cache     Cache     `toml:"cache"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the justice.toml file (set at load time).
	Dir string `toml:"-"`
}

// ClassPath lists where referenced classes are looked up. Relative paths
// are resolved against Dir.
type ClassPath struct {
	Entries []string `toml:"entries"`
	Jmods   []string `toml:"jmods"`
}

type Verify struct {
	Passes           string `toml:"passes"`
	WarningsAsErrors bool   `toml:"warnings-as-errors"`
}

type Cache struct {
	Path    string `toml:"path"`
	Enabled *bool  `toml:"enabled"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no justice.toml exists.
func Default(dir string) *Config {
	c := &Config{Dir: dir}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Verify.Passes == "" {
		c.Verify.Passes = verifier.Pass3a.String()
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(".justice", "verdicts.db")
	}
	if c.Cache.Enabled == nil {
		enabled := true
		c.Cache.Enabled = &enabled
	}
}

// Load parses justice.toml from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if _, err := verifier.ParsePass(c.Verify.Passes); c.Verify.Passes != "" && err != nil {
		return nil, fmt.Errorf("%s: verify.passes: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a justice.toml file. Without
// one it returns the defaults rooted at startDir.
func FindAndLoad(startDir string) (*Config, error) {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for dir := start; ; {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(start), nil
		}
		dir = parent
	}
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// MaxPass returns the configured last pass.
func (c *Config) MaxPass() (verifier.Pass, error) {
	return verifier.ParsePass(c.Verify.Passes)
}

func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled == nil || *c.Cache.Enabled
}

// CachePath returns the absolute path of the verdict cache.
func (c *Config) CachePath() string {
	return c.resolve(c.Cache.Path)
}

func (c *Config) LogFile() string {
	if c.Log.File == "" {
		return ""
	}
	return c.resolve(c.Log.File)
}

// Repository opens the jmods and class path entries, in that order, as
// a single class path. extra entries are searched last.
func (c *Config) Repository(extra ...string) (*repository.ClassPath, error) {
	var sources []repository.Source
	var paths []string
	for _, p := range c.ClassPath.Jmods {
		paths = append(paths, c.resolve(p))
	}
	for _, p := range c.ClassPath.Entries {
		paths = append(paths, c.resolve(p))
	}
	paths = append(paths, extra...)

	for _, p := range paths {
		s, err := repository.Open(p)
		if err != nil {
			repository.NewClassPath(nil, sources...).Close()
			return nil, err
		}
		sources = append(sources, s)
	}
	return repository.NewClassPath(nil, sources...), nil
}
