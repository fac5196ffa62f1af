package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/picrate/picrate/apperr"
	"github.com/picrate/picrate/catalog"
)

const (
	DefaultTitle      = "Image Annotation Tool"
	DefaultNumClasses = 5
	DefaultMaxHistory = 10
	DefaultHost       = "127.0.0.1"
	DefaultPort       = 5001

	// DefaultConfigFile is looked up relative to the working directory
	// when no --config flag is given.
	DefaultConfigFile = "config.yaml"

	// DefaultDatabaseFile is created inside the images folder unless
	// database_path points elsewhere.
	DefaultDatabaseFile = "annotations.db"
)

type Config struct {
	// display settings
	Title       string `yaml:"title"`
	Description string `yaml:"description"` // Markdown, rendered on the page

	// rating settings
	NumClasses int `yaml:"num_classes"` // valid ratings are 1..NumClasses
	MaxHistory int `yaml:"max_history"` // undo depth, 0 disables undo

	// source directory (scanned recursively for images)
	ImagesFolder string `yaml:"images_folder"`
	SortOrder    string `yaml:"sort_order"`

	// server settings
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// database path
	DatabasePath string `yaml:"database_path"`

	// attribution written into every annotation row
	Username string `yaml:"username"`
}

func Defaults() Config {
	return Config{
		Title:      DefaultTitle,
		NumClasses: DefaultNumClasses,
		MaxHistory: DefaultMaxHistory,
		SortOrder:  catalog.DefaultSortOrder,
		Host:       DefaultHost,
		Port:       DefaultPort,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

// Load builds the effective configuration: defaults, then the YAML file,
// then PICRATE_* environment overrides. An empty path means the default
// config.yaml, which is allowed to be absent; an explicit path is not.
func Load(path string) (Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parsing config file %s: %v", apperr.ErrInvalidConfig, path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// no config.yaml, defaults plus env is fine
	default:
		return Config{}, fmt.Errorf("%w: reading config file %s: %v", apperr.ErrInvalidConfig, path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Title = getEnvOrDefault("PICRATE_TITLE", c.Title)
	c.Description = getEnvOrDefault("PICRATE_DESCRIPTION", c.Description)
	c.NumClasses = getEnvIntOrDefault("PICRATE_NUM_CLASSES", c.NumClasses)
	c.MaxHistory = getEnvIntOrDefault("PICRATE_MAX_HISTORY", c.MaxHistory)
	c.ImagesFolder = getEnvOrDefault("PICRATE_IMAGES_FOLDER", c.ImagesFolder)
	c.SortOrder = getEnvOrDefault("PICRATE_SORT_ORDER", c.SortOrder)
	c.Host = getEnvOrDefault("PICRATE_HOST", c.Host)
	c.Port = getEnvIntOrDefault("PICRATE_PORT", c.Port)
	c.DatabasePath = getEnvOrDefault("PICRATE_DATABASE_PATH", c.DatabasePath)
	c.Username = getEnvOrDefault("PICRATE_USERNAME", c.Username)
}

// Finalize resolves derived fields once all override layers have been
// applied: the images folder becomes absolute, the database defaults to
// annotations.db inside it, and the username falls back to the OS user.
func (c *Config) Finalize() error {
	if c.ImagesFolder != "" {
		absFolder, err := filepath.Abs(c.ImagesFolder)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for images folder '%s': %w", c.ImagesFolder, err)
		}
		c.ImagesFolder = absFolder
	}

	if c.DatabasePath == "" && c.ImagesFolder != "" {
		c.DatabasePath = filepath.Join(c.ImagesFolder, DefaultDatabaseFile)
	}

	if c.Username == "" {
		c.Username = getEnvOrDefault("USER", getEnvOrDefault("USERNAME", "unknown"))
	}

	return nil
}

// Validate reports the first configuration problem as ErrInvalidConfig.
// Folder existence and emptiness are checked later by the catalog scan.
func (c *Config) Validate() error {
	if c.ImagesFolder == "" {
		return fmt.Errorf("%w: images_folder is required", apperr.ErrInvalidConfig)
	}
	if c.NumClasses < 1 {
		return fmt.Errorf("%w: num_classes must be >= 1, got %d", apperr.ErrInvalidConfig, c.NumClasses)
	}
	if c.MaxHistory < 0 {
		return fmt.Errorf("%w: max_history must be >= 0, got %d", apperr.ErrInvalidConfig, c.MaxHistory)
	}
	if !catalog.IsValidSortOrder(c.SortOrder) {
		return fmt.Errorf("%w: unknown sort_order '%s'", apperr.ErrInvalidConfig, c.SortOrder)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be in 1..65535, got %d", apperr.ErrInvalidConfig, c.Port)
	}
	return nil
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
