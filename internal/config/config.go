package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"time"
)

// Store backends selectable through STORE.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets and connection settings are required,
// lifetimes and costs fall back to defaults.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	Store         string        // credential store backend: mysql | memory
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	JWTSecret     string        // secret used to sign bearer tokens
	AccessTTLMin  int           // bearer token time-to-live in minutes
	BcryptCost    int           // bcrypt cost for password hashing
	OTPTTL        time.Duration // lifetime of an e-mail verification code
	ResetTTL      time.Duration // lifetime of a password reset token
	ResetURLBase  string        // front-end page that receives ?token=
	ClientOrigin  string        // allowed CORS origin
	CheckEmailMX  bool          // require MX records for the e-mail domain at registration
	ShutdownGrace time.Duration // time allowed for in-flight requests on shutdown

	AdminEmail    string // optional admin account created at startup
	AdminUsername string
	AdminPassword string
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		Store:         envStr("STORE", StoreMySQL),
		DBPass:        os.Getenv("DB_PASS"),
		JWTSecret:     must("JWT_SECRET"),
		AccessTTLMin:  envInt("ACCESS_TOKEN_TTL_MIN", 15),
		BcryptCost:    envInt("BCRYPT_COST", 12),
		OTPTTL:        envDur("OTP_TTL", 10*time.Minute),
		ResetTTL:      envDur("RESET_TOKEN_TTL", time.Hour),
		ResetURLBase:  envStr("RESET_URL_BASE", "http://localhost:5173/auth/reset-password"),
		ClientOrigin:  envStr("CLIENT_BASE_URL", "http://localhost:5173"),
		CheckEmailMX:  envBool("EMAIL_MX_CHECK", true),
		ShutdownGrace: envDur("SHUTDOWN_GRACE", 10*time.Second),
		AdminEmail:    os.Getenv("ADMIN_BOOTSTRAP_EMAIL"),
		AdminUsername: envStr("ADMIN_BOOTSTRAP_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_BOOTSTRAP_PASSWORD"),
	}
	if cfg.Store == StoreMySQL {
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	if cfg.AccessTTLMin < 1 {
		cfg.AccessTTLMin = 15
	}
	return cfg
}

// AccessTTL is the bearer token lifetime as a duration.
func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMin) * time.Minute
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return IsProductionEnv(c.Env)
}

// IsProductionEnv classifies an APP_ENV value.
func IsProductionEnv(env string) bool {
	return env == "prod" || env == "production"
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
