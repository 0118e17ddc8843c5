package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// Storage backends selectable through STORAGE.
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database fields are only required when the
// MySQL storage backend is selected.
type Config struct {
	Env            string         // application environment (e.g. "dev", "prod")
	Port           string         // HTTP port to listen on
	Storage        string         // "mysql" (default) or "memory"
	DBUser         string         // database username
	DBPass         string         // database password (optional)
	DBHost         string         // database host address
	DBPort         string         // database port number
	DBName         string         // database name
	JWTSecret      string         // secret used to verify (and in dev, sign) JWTs
	ServiceKeyHash string         // bcrypt hash of the X-Service-Key accepted for service accounts (optional)
	AMQPURL        string         // RabbitMQ URL; empty disables events and the audit outbox
	EventsQueue    string         // queue receiving reservation lifecycle events
	AuditQueue     string         // queue used as the audit outbox
	Location       *time.Location // zone in which calendar dates are evaluated
	PolicyPath     string         // optional YAML file overriding the booking policy
	LogLevel       string         // debug, info, warn or error
	LogFormat      string         // "json" (default) or "text"
	LockTimeout    time.Duration  // wait for the room-day booking lock
	AuditTimeout   time.Duration  // deadline of a single audit write
	SeedRooms      []model.Room   // rooms loaded into the in-memory store
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when
// present; real environment variables take precedence.  Required variables
// are enforced by must() and missing values cause the program to exit with
// a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: ignoring .env: %v", err)
	}

	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           must("APP_PORT"),
		Storage:        strings.ToLower(envStr("STORAGE", StorageMySQL)),
		JWTSecret:      must("JWT_SECRET"),
		ServiceKeyHash: os.Getenv("SERVICE_KEY_HASH"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		EventsQueue:    envStr("EVENTS_QUEUE", "reservation.events"),
		AuditQueue:     envStr("AUDIT_QUEUE", "reservation.audit"),
		Location:       mustLocation("APP_TZ"),
		PolicyPath:     os.Getenv("POLICY_FILE"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		LogFormat:      envStr("LOG_FORMAT", "json"),
		LockTimeout:    envDur("LOCK_TIMEOUT", 5*time.Second),
		AuditTimeout:   envDur("AUDIT_TIMEOUT", 3*time.Second),
	}
	switch cfg.Storage {
	case StorageMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case StorageMemory:
		rooms, err := ParseRooms(os.Getenv("MEMORY_ROOMS"))
		if err != nil {
			log.Fatalf("invalid MEMORY_ROOMS: %v", err)
		}
		cfg.SeedRooms = rooms
	default:
		log.Fatalf("invalid STORAGE %q: expected %s or %s", cfg.Storage, StorageMySQL, StorageMemory)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustLocation resolves an IANA zone name, defaulting to UTC when unset.
func mustLocation(key string) *time.Location {
	name := envStr(key, "UTC")
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("invalid time zone for %s: %q", key, name)
	}
	return loc
}
