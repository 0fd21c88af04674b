package cliparse

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/vocaltworld/micropoll/auth"
)

// Database types
const (
	DBSQLite    = "sqlite"
	DBPostgres  = "postgres"
	DBMongo     = "mongo"
	DBPostgREST = "postgrest"
)

const (
	DefaultPort          = 3318
	DefaultLinkTTL       = 7 * 24 * time.Hour
	DefaultRedirectBase  = "https://survey.vocaltworld.com"
	DefaultMongoDatabase = "micropoll"
	DefaultLinkRateLimit = 30
	DefaultRateWindow    = time.Minute

	// rateLimitPurpose labels the salt derived from the poll secret
	rateLimitPurpose = "micropoll/rate-limit-salt"
)

type Config struct {
	Port            int
	DatabaseType    string
	DatabaseURL     string
	MongoDatabase   string
	ServiceKey      string
	PollSecret      string
	AdminKey        string
	LinkTTL         time.Duration
	RedirectBases   []string
	AllowedOrigins  []string
	RedisURL        string
	LinkRateLimit   int
	RateWindow      time.Duration
	RateLimitSalt   string
	StoreVoterEmail bool
}

// DefaultRedirectBase returns the first allowed redirect base
func (c Config) DefaultRedirectBase() string {
	if len(c.RedirectBases) == 0 {
		return DefaultRedirectBase
	}
	return c.RedirectBases[0]
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile string

	fs := pflag.NewFlagSet("micropoll", pflag.ContinueOnError)

	// Network and storage (can be CLI args or env)
	fs.IntVarP(&cfg.Port, "port", "p", 0, "Server port")
	fs.StringVarP(&cfg.DatabaseURL, "database-url", "d", "", "Database URL (sqlite DSN, postgres URL, mongo URI or PostgREST base URL)")
	fs.StringVarP(&cfg.DatabaseType, "db-type", "t", "", "Database type (sqlite, postgres, mongo or postgrest)")
	fs.StringVar(&envFile, "env-file", "", "Load environment from this file")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.PollSecret, "poll-secret", "", "Vote token signing secret (prefer env)")
	fs.StringVar(&cfg.AdminKey, "admin-key", "", "Admin API key (prefer env)")

	// Link policy
	fs.DurationVar(&cfg.LinkTTL, "link-ttl", 0, "Vote link validity")
	fs.StringSliceVar(&cfg.RedirectBases, "redirect-base", nil, "Allowed vote page base URLs; the first is the default")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		port, err := envInt("PORT", DefaultPort)
		if err != nil {
			return Config{}, err
		}
		cfg.Port = port
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = firstEnv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = DBSQLite
		}
	}
	switch cfg.DatabaseType {
	case DBSQLite, DBPostgres, DBMongo, DBPostgREST:
	default:
		return Config{}, fmt.Errorf("unknown database type %q", cfg.DatabaseType)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = firstEnv("DATABASE_URL", "SUPABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	cfg.MongoDatabase = firstEnv("MONGO_DATABASE")
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = DefaultMongoDatabase
	}

	cfg.ServiceKey = firstEnv("SUPABASE_SERVICE_ROLE_KEY")
	if cfg.DatabaseType == DBPostgREST && cfg.ServiceKey == "" {
		return Config{}, errors.New("SUPABASE_SERVICE_ROLE_KEY required for postgrest")
	}

	// Secrets - MUST be provided
	if cfg.PollSecret == "" {
		cfg.PollSecret = firstEnv("MICRO_POLL_SECRET")
	}
	if cfg.PollSecret == "" {
		return Config{}, errors.New("MICRO_POLL_SECRET required")
	}

	if cfg.AdminKey == "" {
		cfg.AdminKey = firstEnv("VT_ADMIN_KEY", "ADMIN_DASHBOARD_KEY", "ADMIN_KEY")
	}
	if cfg.AdminKey == "" {
		return Config{}, errors.New("VT_ADMIN_KEY required")
	}

	if cfg.LinkTTL == 0 {
		ttl, err := envDuration("LINK_TTL", DefaultLinkTTL)
		if err != nil {
			return Config{}, err
		}
		cfg.LinkTTL = ttl
	}
	if cfg.LinkTTL < 0 {
		return Config{}, errors.New("link TTL must not be negative")
	}

	if len(cfg.RedirectBases) == 0 {
		cfg.RedirectBases = envList("REDIRECT_BASES", []string{DefaultRedirectBase})
	}
	cfg.AllowedOrigins = envList("API_ALLOWED_ORIGINS", cfg.RedirectBases)

	cfg.RedisURL = firstEnv("REDIS_URL")

	limit, err := envInt("LINK_RATE_LIMIT", DefaultLinkRateLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.LinkRateLimit = limit

	window, err := envDuration("RATE_WINDOW", DefaultRateWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.RateWindow = window

	cfg.RateLimitSalt = firstEnv("RATE_LIMIT_SALT")
	if cfg.RateLimitSalt == "" {
		cfg.RateLimitSalt = auth.DeriveKey(cfg.PollSecret, rateLimitPurpose)
	}

	cfg.StoreVoterEmail = true
	if v := firstEnv("STORE_VOTER_EMAIL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.New("invalid STORE_VOTER_EMAIL env variable")
		}
		cfg.StoreVoterEmail = b
	}

	return cfg, nil
}

// loadEnvFile loads an explicit env file, or .env when present. Variables
// already set in the environment are not overridden.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) (int, error) {
	v := firstEnv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := firstEnv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return d, nil
}

func envList(key string, def []string) []string {
	v := firstEnv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimRight(strings.TrimSpace(part), "/"); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
