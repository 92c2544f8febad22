package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type Config struct {
	// Environment
	Environment string `mapstructure:"ENV"`

	Database  DatabaseConfig
	Cache     CacheConfig
	Queue     QueueConfig
	Storage   StorageConfig
	Import    ImportConfig
	Scheduler SchedulerConfig
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	LogLevel        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // minutes
	MaxConnIdleTime int // minutes
}

// CacheConfig holds Redis connection settings
type CacheConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	DialTimeout  int // seconds
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	PoolSize     int
	MinIdleConns int
}

// QueueConfig holds asynq settings
type QueueConfig struct {
	RedisHost      string
	RedisPort      int
	RedisPassword  string
	RedisDB        int
	DialTimeout    int // seconds
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	Concurrency    int
	StrictPriority bool
	MaxRetries     int
}

// StorageConfig holds local file storage settings
type StorageConfig struct {
	BasePath      string
	MaxFileSize   int64 // MB
	RetentionDays int   // 0 keeps files forever
}

// ImportConfig controls catalog reconciliation behaviour
type ImportConfig struct {
	// ForceUpdate treats every matched row as changed
	ForceUpdate bool
	// AllowMissingMainProducts defers unresolved main products to clustering
	AllowMissingMainProducts bool
	// LockTTLSeconds bounds how long one worker may own a catalog file
	LockTTLSeconds int
}

// SchedulerConfig controls the periodic sweep of pending catalog files
type SchedulerConfig struct {
	Enabled bool
	Spec    string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found, using environment variables only")
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	config := &Config{
		Environment: v.GetString("ENV"),
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Database:        v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			LogLevel:        v.GetString("DB_LOG_LEVEL"),
			MaxConnections:  v.GetInt("DB_MAX_CONNECTIONS"),
			MinConnections:  v.GetInt("DB_MIN_CONNECTIONS"),
			MaxConnLifetime: v.GetInt("DB_MAX_CONN_LIFETIME_MIN"),
			MaxConnIdleTime: v.GetInt("DB_MAX_CONN_IDLE_MIN"),
		},
		Cache: CacheConfig{
			Host:         v.GetString("REDIS_HOST"),
			Port:         v.GetInt("REDIS_PORT"),
			Password:     v.GetString("REDIS_PASSWORD"),
			DB:           v.GetInt("REDIS_DB"),
			DialTimeout:  v.GetInt("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetInt("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetInt("REDIS_WRITE_TIMEOUT"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
		},
		Queue: QueueConfig{
			RedisHost:      v.GetString("REDIS_HOST"),
			RedisPort:      v.GetInt("REDIS_PORT"),
			RedisPassword:  v.GetString("REDIS_PASSWORD"),
			RedisDB:        v.GetInt("QUEUE_REDIS_DB"),
			DialTimeout:    v.GetInt("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:    v.GetInt("REDIS_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("REDIS_WRITE_TIMEOUT"),
			Concurrency:    v.GetInt("WORKER_CONCURRENCY"),
			StrictPriority: v.GetBool("WORKER_STRICT_PRIORITY"),
			MaxRetries:     v.GetInt("WORKER_MAX_RETRIES"),
		},
		Storage: StorageConfig{
			BasePath:      v.GetString("STORAGE_PATH"),
			MaxFileSize:   v.GetInt64("MAX_FILE_SIZE_MB"),
			RetentionDays: v.GetInt("STORAGE_RETENTION_DAYS"),
		},
		Import: ImportConfig{
			ForceUpdate:              v.GetBool("IMPORT_FORCE_UPDATE"),
			AllowMissingMainProducts: v.GetBool("IMPORT_ALLOW_MISSING_MAIN_PRODUCTS"),
			LockTTLSeconds:           v.GetInt("IMPORT_LOCK_TTL_SECONDS"),
		},
		Scheduler: SchedulerConfig{
			Enabled: v.GetBool("SCHEDULER_ENABLED"),
			Spec:    v.GetString("SCHEDULER_SPEC"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")

	// Database defaults
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_NAME", "catalog")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_LOG_LEVEL", "silent")
	v.SetDefault("DB_MAX_CONNECTIONS", 20)
	v.SetDefault("DB_MIN_CONNECTIONS", 2)
	v.SetDefault("DB_MAX_CONN_LIFETIME_MIN", 30)
	v.SetDefault("DB_MAX_CONN_IDLE_MIN", 5)

	// Redis defaults
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("QUEUE_REDIS_DB", 1)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5)
	v.SetDefault("REDIS_READ_TIMEOUT", 3)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 2)

	// Worker defaults
	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("WORKER_STRICT_PRIORITY", false)
	v.SetDefault("WORKER_MAX_RETRIES", 0)

	// File processing defaults
	v.SetDefault("STORAGE_PATH", "/tmp/catalogs")
	v.SetDefault("MAX_FILE_SIZE_MB", 50)
	v.SetDefault("STORAGE_RETENTION_DAYS", 180)

	// Import defaults
	v.SetDefault("IMPORT_FORCE_UPDATE", false)
	v.SetDefault("IMPORT_ALLOW_MISSING_MAIN_PRODUCTS", false)
	v.SetDefault("IMPORT_LOCK_TTL_SECONDS", 900)

	// Scheduler defaults
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_SPEC", "@every 5m")
}

// Validate checks required fields and value formats
func (c *Config) Validate() error {
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}
	if c.Scheduler.Enabled {
		if _, err := cron.ParseStandard(c.Scheduler.Spec); err != nil {
			return fmt.Errorf("invalid SCHEDULER_SPEC %q: %w", c.Scheduler.Spec, err)
		}
	}
	return nil
}

// GetDatabaseURL constructs the PostgreSQL connection string
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password,
		c.Database.Database, c.Database.SSLMode)
}

// GetRedisURL constructs the Redis address
func (c *Config) GetRedisURL() string {
	return fmt.Sprintf("%s:%d", c.Cache.Host, c.Cache.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LogConfig logs the configuration (hiding sensitive data)
func (c *Config) LogConfig() {
	log.Printf("Configuration loaded:")
	log.Printf("  Environment: %s", c.Environment)
	log.Printf("  Database: %s:%d/%s", c.Database.Host, c.Database.Port, c.Database.Database)
	log.Printf("  Redis: %s:%d (DB: %d, queue DB: %d)", c.Cache.Host, c.Cache.Port, c.Cache.DB, c.Queue.RedisDB)
	log.Printf("  Worker Concurrency: %d", c.Queue.Concurrency)
	log.Printf("  Storage: %s (max %d MB)", c.Storage.BasePath, c.Storage.MaxFileSize)
	log.Printf("  Force Update: %t", c.Import.ForceUpdate)
	log.Printf("  Scheduler: enabled=%t spec=%q", c.Scheduler.Enabled, c.Scheduler.Spec)
}
