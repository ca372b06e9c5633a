// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/readaloud/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig          `toml:"practice"`
	NATS     NATSConfig              `toml:"nats"`
	Log      LogConfig               `toml:"log"`
	Corpus   map[string]CorpusConfig `toml:"corpus"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Level       *string `toml:"level"`
	Index       *int    `toml:"index"`
	Source      *string `toml:"source"`
	AdvanceOn   *string `toml:"advance-on"`
	MaxRestarts *int    `toml:"max-restarts"`
	Lang        *string `toml:"lang"`
	WordList    *string `toml:"wordlist"`
	Words       *int    `toml:"words"`
}

// NATSConfig maps the NATS transcript source settings.
type NATSConfig struct {
	URL     *string `toml:"url"`
	Subject *string `toml:"subject"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
	Path   *string `toml:"path"`
}

// CorpusConfig lists extra practice texts for one level.
type CorpusConfig struct {
	Texts []string `toml:"texts"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return FileConfig{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// ExtraTexts returns the configured corpus additions keyed by level.
func (c FileConfig) ExtraTexts() (map[model.Difficulty][]string, error) {
	out := make(map[model.Difficulty][]string, len(c.Corpus))
	for name, section := range c.Corpus {
		level, err := model.ParseDifficulty(name)
		if err != nil {
			return nil, fmt.Errorf("invalid [corpus.%s] section: %w", name, err)
		}
		for _, text := range section.Texts {
			if text = strings.TrimSpace(text); text != "" {
				out[level] = append(out[level], text)
			}
		}
	}
	return out, nil
}
