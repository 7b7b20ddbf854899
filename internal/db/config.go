package db

import (
	"fmt"
	"os"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config is the database connection configuration
type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// DSN, when set, is passed to the driver as is
	DSN string
}

// DefaultConfig returns a configuration read from the environment
func DefaultConfig() Config {
	return Config{
		Driver:   getEnv("DB_DRIVER", DriverPostgres),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "sme"),
		Password: getEnv("DB_PASSWORD", "sme"),
		DBName:   getEnv("DB_NAME", "sme"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		DSN:      getEnv("DSN", ""),
	}
}

// DataSource returns the driver name and connection string
func (c Config) DataSource() (string, string) {
	driver := c.Driver
	if driver == "" {
		driver = DriverPostgres
	}
	if c.DSN != "" {
		return driver, c.DSN
	}
	if driver == DriverSQLite {
		return driver, c.DBName + ".db"
	}
	return driver, fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// String describes the target without credentials
func (c Config) String() string {
	driver, dsn := c.DataSource()
	if driver == DriverSQLite {
		return "sqlite3:" + dsn
	}
	if c.DSN != "" {
		return driver
	}
	return fmt.Sprintf("%s:%s:%d/%s", driver, c.Host, c.Port, c.DBName)
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get integer environment variables with defaults
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}
