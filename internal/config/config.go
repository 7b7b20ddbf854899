package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/TimBim12345/SME/internal/db"
	"github.com/TimBim12345/SME/internal/generator"
	"github.com/TimBim12345/SME/internal/models"
	"github.com/TimBim12345/SME/internal/pipeline"
	"github.com/TimBim12345/SME/internal/validation"
)

// DefaultConfigFile is read from the working directory when no path is given
const DefaultConfigFile = "config.toml"

// AppConfig is the application configuration
type AppConfig struct {
	Generator GeneratorConfig `toml:"generator"`
	Data      DataConfig      `toml:"data"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	Server    ServerConfig    `toml:"server"`
	Schedule  ScheduleConfig  `toml:"schedule"`
}

// GeneratorConfig holds the generation parameters.
// RevenueDistribution is keyed by category index ("0".."4").
type GeneratorConfig struct {
	TargetGroups        int                `toml:"target_groups"`
	TotalCompanies      int64              `toml:"total_companies"`
	Seed                int64              `toml:"seed"`
	RevenueDistribution map[string]float64 `toml:"revenue_distribution"`
}

// DataConfig holds input and output locations
type DataConfig struct {
	ReferenceDir string `toml:"reference_dir"`
	OutputPath   string `toml:"output_path"`
	CSVPath      string `toml:"csv_path"`
	XLSXPath     string `toml:"xlsx_path"`
}

// DatabaseConfig configures run persistence
type DatabaseConfig struct {
	Enabled  bool   `toml:"enabled"`
	Driver   string `toml:"driver"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"ssl_mode"`
	DSN      string `toml:"dsn"`
}

// RedisConfig configures run notifications
type RedisConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// ScheduleConfig configures periodic regeneration; an empty Cron disables it
type ScheduleConfig struct {
	Cron     string `toml:"cron"`
	TimeZone string `toml:"timezone"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	gen := generator.DefaultConfig()
	dist := make(map[string]float64, len(gen.RevenueDistribution))
	for k, v := range gen.RevenueDistribution {
		dist[strconv.Itoa(k)] = v
	}

	return &AppConfig{
		Generator: GeneratorConfig{
			TargetGroups:        gen.TargetGroups,
			TotalCompanies:      gen.TotalCompanies,
			RevenueDistribution: dist,
		},
		Data: DataConfig{
			ReferenceDir: "data",
			OutputPath:   filepath.Join("data", pipeline.DefaultOutputFile),
		},
		Database: DatabaseConfig{
			Driver:   db.DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			User:     "sme",
			Password: "sme",
			Name:     "sme",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Schedule: ScheduleConfig{
			TimeZone: "Europe/Moscow",
		},
	}
}

// Load reads the TOML file at path over the defaults and applies environment
// overrides. An empty path reads DefaultConfigFile if it exists.
func Load(path string) (*AppConfig, error) {
	config := DefaultConfig()
	loadDotEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}

	config.applyEnv()
	return config, nil
}

func (c *AppConfig) applyEnv() {
	c.Generator.TargetGroups = getEnvInt("SME_TARGET_GROUPS", c.Generator.TargetGroups)
	c.Generator.TotalCompanies = getEnvInt64("SME_TOTAL_COMPANIES", c.Generator.TotalCompanies)
	c.Generator.Seed = getEnvInt64("SME_SEED", c.Generator.Seed)
	c.Data.ReferenceDir = getEnv("SME_DATA_DIR", c.Data.ReferenceDir)
	c.Data.OutputPath = getEnv("SME_OUTPUT", c.Data.OutputPath)
	c.Server.Addr = getEnv("SME_ADDR", c.Server.Addr)
	c.Schedule.Cron = getEnv("SME_SCHEDULE", c.Schedule.Cron)

	if _, ok := os.LookupEnv("DB_DRIVER"); ok {
		c.Database.Enabled = true
	}
	if _, ok := os.LookupEnv("DSN"); ok {
		c.Database.Enabled = true
	}
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.DSN = getEnv("DSN", c.Database.DSN)

	if addr, ok := os.LookupEnv("REDIS_ADDR"); ok {
		c.Redis.Enabled = true
		c.Redis.Addr = addr
	}
}

// GeneratorParams converts the generator section
func (c *AppConfig) GeneratorParams() (generator.Config, error) {
	dist := make(map[int]float64, len(c.Generator.RevenueDistribution))
	for k, v := range c.Generator.RevenueDistribution {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return generator.Config{}, errors.Wrapf(validation.ErrInvalidConfig, "revenue distribution key %q is not a category index", k)
		}
		dist[idx] = v
	}
	if len(dist) == 0 {
		dist = models.DefaultRevenueDistribution()
	}

	params := generator.Config{
		TargetGroups:        c.Generator.TargetGroups,
		TotalCompanies:      c.Generator.TotalCompanies,
		RevenueDistribution: dist,
		Seed:                c.Generator.Seed,
	}
	if err := params.Validate(); err != nil {
		return generator.Config{}, err
	}
	return params, nil
}

// PipelineOptions converts the data and generator sections
func (c *AppConfig) PipelineOptions() (pipeline.Options, error) {
	params, err := c.GeneratorParams()
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.DefaultOptions()
	opts.ReferenceDir = c.Data.ReferenceDir
	opts.OutputPath = c.Data.OutputPath
	opts.CSVPath = c.Data.CSVPath
	opts.XLSXPath = c.Data.XLSXPath
	opts.Generator = params
	return opts, nil
}

// DBConfig converts the database section
func (c *AppConfig) DBConfig() db.Config {
	return db.Config{
		Driver:   c.Database.Driver,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		DBName:   c.Database.Name,
		SSLMode:  c.Database.SSLMode,
		DSN:      c.Database.DSN,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}
