package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultLanguage   = "eng"
	defaultStepMS     = 100
	defaultTailMS     = 10000
	defaultSimilarity = 0.5
	defaultStateDir   = ".local/state/vidsub"
	defaultConfigDir  = ".config/vidsub"
)

// Config holds user configuration loaded from TOML.
type Config struct {
	OCR struct {
		Language      string   `toml:"language"`
		Crop          bool     `toml:"crop"`
		TesseractPath string   `toml:"tesseract_path"`
		ExtraArgs     string   `toml:"extra_args"`
		TessdataDir   string   `toml:"tessdata_dir"`
		TessdataURL   string   `toml:"tessdata_url"`
		AllowedHosts  []string `toml:"allowed_hosts"`
	} `toml:"ocr"`

	FFmpeg struct {
		FFmpegPath  string `toml:"ffmpeg_path"`
		FFprobePath string `toml:"ffprobe_path"`
		ExtraArgs   string `toml:"extra_args"`
	} `toml:"ffmpeg"`

	Sampling struct {
		StepMS     int     `toml:"step_ms"`
		Similarity float64 `toml:"similarity"`
		TailMS     int     `toml:"tail_ms"`
	} `toml:"sampling"`

	Output struct {
		Dir    string `toml:"dir"`
		Format string `toml:"format"` // srt, ass
	} `toml:"output"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`
	} `toml:"logging"`

	Server struct {
		Addr         string `toml:"addr"`
		MaxJobs      int    `toml:"max_jobs"`
		MaxUploadMB  int    `toml:"max_upload_mb"`
		RetentionMin int    `toml:"retention_min"` // minutes a finished session is kept
	} `toml:"server"`

	Paths struct {
		StateDir   string `toml:"state_dir"`
		CacheDir   string `toml:"cache_dir"`
		LogPath    string `toml:"log_path"`
		DBPath     string `toml:"db_path"`
		ConfigPath string `toml:"-"`
	} `toml:"paths"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	stateDir := filepath.Join(home, defaultStateDir)

	cfg := &Config{}

	cfg.OCR.Language = DefaultLanguage
	cfg.OCR.TesseractPath = "tesseract"
	cfg.OCR.TessdataDir = filepath.Join(stateDir, "tessdata")
	cfg.OCR.TessdataURL = "https://github.com/tesseract-ocr/tessdata/raw/main"

	cfg.FFmpeg.FFmpegPath = "ffmpeg"
	cfg.FFmpeg.FFprobePath = "ffprobe"

	cfg.Sampling.StepMS = defaultStepMS
	cfg.Sampling.Similarity = defaultSimilarity
	cfg.Sampling.TailMS = defaultTailMS

	cfg.Output.Dir = "out"
	cfg.Output.Format = "srt"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Logging.Stdout = true

	cfg.Server.Addr = "127.0.0.1:8080"
	cfg.Server.MaxJobs = 2
	cfg.Server.MaxUploadMB = 2048
	cfg.Server.RetentionMin = 60

	cfg.Paths.StateDir = stateDir
	cfg.Paths.CacheDir = filepath.Join(stateDir, "cache")
	cfg.Paths.LogPath = filepath.Join(stateDir, "vidsub.log")
	cfg.Paths.DBPath = filepath.Join(stateDir, "jobs.db")

	return cfg, nil
}

// Load loads config from file, applying defaults. A missing file is written
// out as a template.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{
		cfg.Paths.StateDir,
		cfg.Paths.CacheDir,
		filepath.Dir(cfg.Paths.LogPath),
		filepath.Dir(cfg.Paths.DBPath),
	} {
		if p == "" || p == "." {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SUBTITLE_LANG"); v != "" {
		cfg.OCR.Language = strings.TrimSpace(v)
	}
	// Any non-empty value turns cropping on, including "false".
	if v := os.Getenv("USE_CROP"); v != "" {
		cfg.OCR.Crop = true
	}
	if v := os.Getenv("TESSDATA_URL"); v != "" {
		cfg.OCR.TessdataURL = v
	}
	if v := os.Getenv("TESSDATA_ALLOWED_HOSTS"); v != "" {
		cfg.OCR.AllowedHosts = splitCSV(v)
	}
	if v := os.Getenv("TESSDATA_DIR"); v != "" {
		cfg.OCR.TessdataDir = v
	}
	if v := os.Getenv("VIDSUB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VIDSUB_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("VIDSUB_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
