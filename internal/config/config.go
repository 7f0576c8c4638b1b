// Package config loads run defaults from TOML files. Command-line flags
// override everything loaded here.
package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	UserAgent string `koanf:"user_agent"` // MusicBrainz identification header

	WritePopularity bool `koanf:"write_popm"`      // also write the ID3 POPM frame
	SearchFallback  bool `koanf:"search_fallback"` // search by metadata when no MBID is embedded

	RemoveExotic bool   `koanf:"remove_exotic"`       // prune non-standard tags before writing
	ExoticMode   string `koanf:"exotic_mode"`         // "conservative" or "strict"
	AllowTXXX    string `koanf:"exotic_allow_txxx"`   // extra TXXX descriptions, semicolon-separated
	AllowVorbis  string `koanf:"exotic_allow_vorbis"` // extra Vorbis keys, semicolon-separated
	AllowMP4     string `koanf:"exotic_allow_mp4"`    // extra MP4 atom keys, semicolon-separated
	BackupDir    string `koanf:"backup_dir"`          // tag snapshot directory
	LogPath      string `koanf:"log_path"`            // run log location
	ReportPath   string `koanf:"report_path"`         // HTML report location

	Cache CacheConfig `koanf:"cache"`
}

// CacheConfig holds the persistent cache settings.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`     // empty means the XDG cache location
	TTLDays int    `koanf:"ttl_days"` // 0 means never expire
	Mode    string `koanf:"mode"`     // "rw", "ro" or "refresh"
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		SearchFallback: true,
		ExoticMode:     "conservative",
		Cache: CacheConfig{
			Enabled: true,
			TTLDays: 30,
			Mode:    "rw",
		},
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.BackupDir = expandPath(cfg.BackupDir)
	cfg.LogPath = expandPath(cfg.LogPath)
	cfg.ReportPath = expandPath(cfg.ReportPath)
	cfg.Cache.Path = expandPath(cfg.Cache.Path)

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/mbrate/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "mbrate", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
