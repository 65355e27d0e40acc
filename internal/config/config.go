package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers understood by STORE_DRIVER.
const (
	DriverSurreal = "surreal"
	DriverMemory  = "memory"
)

// Provider exposes application configuration through getters so that
// components and tests can depend on an interface instead of the struct.
type Provider interface {
	GetServerAddr() string
	GetStoreDriver() string
	GetDBURL() string
	GetDBNs() string
	GetDBDb() string
	GetDBUser() string
	GetDBPass() string
	GetDBQueryTimeout() time.Duration
	GetDBExecuteTimeout() time.Duration
	GetSessionSecret() string
	GetAdminEmail() string
	GetAdminPassword() string
	GetPlanSteps() int
	GetPricingScript() string
}

// Config holds all configuration for the application.
type Config struct {
	ServerAddr       string
	StoreDriver      string
	DBUrl            string
	DBNs             string
	DBDb             string
	DBUser           string
	DBPass           string
	DBQueryTimeout   time.Duration
	DBExecuteTimeout time.Duration
	SessionSecret    string
	AdminEmail       string
	AdminPassword    string
	PlanSteps        int
	PricingScript    string
}

// New loads configuration from environment variables, reading a .env file
// first when one is present.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment without
// touching any .env file.
func FromEnv() *Config {
	return &Config{
		ServerAddr:       getEnv("APP_ADDR", ":8080"),
		StoreDriver:      getEnv("STORE_DRIVER", DriverSurreal),
		DBUrl:            os.Getenv("SURREAL_URL"),
		DBNs:             os.Getenv("SURREAL_NS"),
		DBDb:             os.Getenv("SURREAL_DB"),
		DBUser:           os.Getenv("SURREAL_USER"),
		DBPass:           os.Getenv("SURREAL_PASS"),
		DBQueryTimeout:   getDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		DBExecuteTimeout: getDuration("DB_EXECUTE_TIMEOUT", 10*time.Second),
		SessionSecret:    getEnv("SESSION_SECRET", "smartshop-dev-secret-change-me"),
		AdminEmail:       getEnv("ADMIN_EMAIL", "admin@smartshop.com"),
		AdminPassword:    getEnv("ADMIN_PASSWORD", "adminpassword"),
		PlanSteps:        getInt("PLAN_STEPS", 5),
		PricingScript:    os.Getenv("PRICING_SCRIPT"),
	}
}

// Validate reports configuration that would prevent the server from starting.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSurreal:
		if c.DBUrl == "" || c.DBNs == "" || c.DBDb == "" {
			return errors.New("required environment variables SURREAL_URL, SURREAL_NS, or SURREAL_DB are not set")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.PlanSteps < 1 {
		return fmt.Errorf("PLAN_STEPS must be positive, got %d", c.PlanSteps)
	}
	return nil
}

func (c *Config) GetServerAddr() string              { return c.ServerAddr }
func (c *Config) GetStoreDriver() string             { return c.StoreDriver }
func (c *Config) GetDBURL() string                   { return c.DBUrl }
func (c *Config) GetDBNs() string                    { return c.DBNs }
func (c *Config) GetDBDb() string                    { return c.DBDb }
func (c *Config) GetDBUser() string                  { return c.DBUser }
func (c *Config) GetDBPass() string                  { return c.DBPass }
func (c *Config) GetDBQueryTimeout() time.Duration   { return c.DBQueryTimeout }
func (c *Config) GetDBExecuteTimeout() time.Duration { return c.DBExecuteTimeout }
func (c *Config) GetSessionSecret() string           { return c.SessionSecret }
func (c *Config) GetAdminEmail() string              { return c.AdminEmail }
func (c *Config) GetAdminPassword() string           { return c.AdminPassword }
func (c *Config) GetPlanSteps() int                  { return c.PlanSteps }
func (c *Config) GetPricingScript() string           { return c.PricingScript }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid duration for %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
