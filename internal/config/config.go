package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port             int           `envconfig:"PORT" default:"8080"`
	DataDir          string        `envconfig:"DATA_DIR" default:"./data"`
	PresetDBPath     string        `envconfig:"PRESET_DB_PATH"` // defaults to DATA_DIR/presets.db
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	SyncBaseURL      string        `envconfig:"SYNC_BASE_URL"`
	SyncTimeout      time.Duration `envconfig:"SYNC_TIMEOUT" default:"8s"`
	JWTSecret        string        `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AllowAnonymous   bool          `envconfig:"ALLOW_ANONYMOUS" default:"true"`
	CloudinaryURL    string        `envconfig:"CLOUDINARY_URL"`
	CloudinaryFolder string        `envconfig:"CLOUDINARY_FOLDER" default:"sheetgen"`
	ImageHosts       string        `envconfig:"IMAGE_HOSTS"`
	MaxUploadBytes   int64         `envconfig:"MAX_UPLOAD_BYTES" default:"20971520"`
	ExportPixelRatio float64       `envconfig:"EXPORT_PIXEL_RATIO" default:"2"`
	AllowedOrigins   string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	SessionIdle      time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"2h"`
}

// Load reads an optional .env file from the working directory and then the
// process environment. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.PresetDBPath == "" {
		cfg.PresetDBPath = filepath.Join(cfg.DataDir, "presets.db")
	}
	if cfg.ExportPixelRatio <= 0 {
		return nil, fmt.Errorf("EXPORT_PIXEL_RATIO must be positive, got %v", cfg.ExportPixelRatio)
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins into a trimmed list.
func (c *Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

// RemoteImageHosts lists the hosts export may fetch document images from:
// IMAGE_HOSTS plus the Cloudinary delivery host when Cloudinary is on.
func (c *Config) RemoteImageHosts(cloudinaryHost string) []string {
	hosts := splitList(c.ImageHosts)
	if c.CloudinaryURL != "" {
		hosts = append(hosts, cloudinaryHost)
	}
	return hosts
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
