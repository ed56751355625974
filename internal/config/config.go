package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

type Config struct {
	Env                   string
	StoreDriver           string
	MongoURI              string
	MongoDB               string
	ServerAddr            string
	FrontendOrigins       []string
	RateLimitAppointments int
	RateLimitWindowSec    int
	RedisURL              string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	CacheTTLSeconds       int
	AdminAPIKey           string
	JWTSecret             string
	AccessTTLMinutes      int
	BrevoAPIKey           string
	BrevoSenderEmail      string
	BrevoSenderName       string
	BrevoSandbox          bool
	KafkaBrokers          []string
	KafkaTopic            string
	SlotCron              string
	SlotHorizonDays       int
	MaxGenerateDays       int
	NotifyTimeoutSec      int
	Timezone              *time.Location
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMinutes) * time.Minute
}

func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutSec) * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, fallback), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load reads the configuration from the environment. Values from a .env file in
// the working directory fill in variables that are not already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("TZ", "Asia/Kolkata"))
	if err != nil {
		return nil, err
	}

	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017/jensie")
	mongoDB := getEnv("MONGO_DB", "")
	if mongoDB == "" {
		mongoDB = mongoDBFromURI(mongoURI)
	}
	if mongoDB == "" {
		mongoDB = "jensie"
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", StoreDriverMongo))
	if driver != StoreDriverMemory {
		driver = StoreDriverMongo
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		StoreDriver:           driver,
		MongoURI:              mongoURI,
		MongoDB:               mongoDB,
		ServerAddr:            getEnv("SERVER_ADDR", ":8080"),
		FrontendOrigins:       getEnvList("FRONTEND_ORIGINS", "http://localhost:3000"),
		RateLimitAppointments: getEnvInt("RATE_LIMIT_APPOINTMENTS", 10),
		RateLimitWindowSec:    getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		CacheTTLSeconds:       getEnvInt("CACHE_TTL_SECONDS", 60),
		AdminAPIKey:           getEnv("ADMIN_API_KEY", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		AccessTTLMinutes:      getEnvInt("ACCESS_TTL_MINUTES", 60),
		BrevoAPIKey:           getEnv("BREVO_API_KEY", ""),
		BrevoSenderEmail:      getEnv("BREVO_SENDER_EMAIL", ""),
		BrevoSenderName:       getEnv("BREVO_SENDER_NAME", "Jensie"),
		BrevoSandbox:          getEnvBool("BREVO_SANDBOX", false),
		KafkaBrokers:          getEnvList("KAFKA_BROKERS", ""),
		KafkaTopic:            getEnv("KAFKA_TOPIC", "appointments"),
		SlotCron:              getEnv("SLOT_CRON", "0 2 * * *"),
		SlotHorizonDays:       getEnvInt("SLOT_HORIZON_DAYS", 14),
		MaxGenerateDays:       getEnvInt("MAX_GENERATE_DAYS", 90),
		NotifyTimeoutSec:      getEnvInt("NOTIFY_TIMEOUT_SEC", 10),
		Timezone:              loc,
	}

	// the worker materializes today plus SLOT_HORIZON_DAYS in one range
	if cfg.SlotHorizonDays < 0 || cfg.SlotHorizonDays >= cfg.MaxGenerateDays {
		return nil, fmt.Errorf("SLOT_HORIZON_DAYS (%d) must be between 0 and MAX_GENERATE_DAYS-1 (%d)", cfg.SlotHorizonDays, cfg.MaxGenerateDays-1)
	}

	return cfg, nil
}

func mongoDBFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		return ""
	}
	// only the first path segment names the database
	if idx := strings.Index(db, "/"); idx >= 0 {
		db = db[:idx]
	}
	return db
}
