package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds every runtime setting the server needs.
type Config struct {
	Env        string
	HTTP       HTTPConfig
	JWT        JWTConfig
	Argon2     Argon2Config
	Ledger     LedgerConfig
	Auth       AuthConfig
	Payout     PayoutConfig
	Settlement SettlementConfig
}

type HTTPConfig struct {
	Port           string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

type JWTConfig struct {
	SecretKey   string
	ExpiryHours int
}

// Argon2Config holds the argon2id cost parameters for password hashing.
type Argon2Config struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength uint32
}

type LedgerConfig struct {
	OperationTimeout time.Duration
	SignupBonus      decimal.Decimal
	MaxDeposit       decimal.Decimal
}

type AuthConfig struct {
	MaxFailedLogins int
	LockoutWindow   time.Duration
}

type PayoutConfig struct {
	DebtorAgentBIC string
	DebtorName     string
	Currency       string
	QueueKey       string
}

type SettlementConfig struct {
	QueueKey    string
	PollTimeout time.Duration
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"env":                      "APP_ENV",
	"http.port":                "PORT",
	"http.request_timeout":     "HTTP_REQUEST_TIMEOUT",
	"cors.allowed_origins":     "CORS_ALLOWED_ORIGINS",
	"database.host":            "DB_HOST",
	"database.port":            "DB_PORT",
	"database.user":            "DB_USER",
	"database.password":        "DB_PASSWORD",
	"database.name":            "DB_NAME",
	"database.ssl_mode":        "DB_SSL_MODE",
	"redis.host":               "REDIS_HOST",
	"redis.port":               "REDIS_PORT",
	"redis.password":           "REDIS_PASSWORD",
	"jwt.secret_key":           "JWT_SECRET_KEY",
	"jwt.expiry_hours":         "JWT_EXPIRY_HOURS",
	"ledger.operation_timeout": "LEDGER_OPERATION_TIMEOUT",
	"ledger.signup_bonus":      "LEDGER_SIGNUP_BONUS",
	"ledger.max_deposit":       "LEDGER_MAX_DEPOSIT",
	"auth.max_failed_logins":   "AUTH_MAX_FAILED_LOGINS",
	"auth.lockout_window":      "AUTH_LOCKOUT_WINDOW",
	"payout.debtor_agent_bic":  "PAYOUT_DEBTOR_AGENT_BIC",
	"payout.currency":          "PAYOUT_CURRENCY",
	"settlement.queue_key":     "SETTLEMENT_QUEUE_KEY",
	"settlement.poll_timeout":  "SETTLEMENT_POLL_TIMEOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("http.port", "8080")
	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("jwt.secret_key", "change-me-in-production")
	v.SetDefault("jwt.expiry_hours", 24)

	v.SetDefault("argon2.time", 1)
	v.SetDefault("argon2.memory", 64*1024)
	v.SetDefault("argon2.threads", 4)
	v.SetDefault("argon2.key_length", 32)
	v.SetDefault("argon2.salt_length", 16)

	v.SetDefault("ledger.operation_timeout", 10*time.Second)
	v.SetDefault("ledger.signup_bonus", "0")
	v.SetDefault("ledger.max_deposit", "10000")

	v.SetDefault("auth.max_failed_logins", 5)
	v.SetDefault("auth.lockout_window", 15*time.Minute)

	v.SetDefault("payout.debtor_agent_bic", "PICKUS33XXX")
	v.SetDefault("payout.debtor_name", "Pickline Payouts")
	v.SetDefault("payout.currency", "USD")
	v.SetDefault("payout.queue_key", "payout_queue")

	v.SetDefault("settlement.queue_key", "settlement_queue")
	v.SetDefault("settlement.poll_timeout", 5*time.Second)
}

// Load reads an optional config file from the working directory, applies
// environment overrides and returns the resolved settings. The global viper
// instance is used so the database package sees the same values.
func Load() (*Config, error) {
	v := viper.GetViper()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	signupBonus, err := decimal.NewFromString(v.GetString("ledger.signup_bonus"))
	if err != nil {
		return nil, err
	}
	maxDeposit, err := decimal.NewFromString(v.GetString("ledger.max_deposit"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Env: v.GetString("env"),
		HTTP: HTTPConfig{
			Port:           v.GetString("http.port"),
			RequestTimeout: v.GetDuration("http.request_timeout"),
			AllowedOrigins: v.GetStringSlice("cors.allowed_origins"),
		},
		JWT: JWTConfig{
			SecretKey:   v.GetString("jwt.secret_key"),
			ExpiryHours: v.GetInt("jwt.expiry_hours"),
		},
		Argon2: Argon2Config{
			Time:       v.GetUint32("argon2.time"),
			Memory:     v.GetUint32("argon2.memory"),
			Threads:    uint8(v.GetUint("argon2.threads")),
			KeyLength:  v.GetUint32("argon2.key_length"),
			SaltLength: v.GetUint32("argon2.salt_length"),
		},
		Ledger: LedgerConfig{
			OperationTimeout: v.GetDuration("ledger.operation_timeout"),
			SignupBonus:      signupBonus,
			MaxDeposit:       maxDeposit,
		},
		Auth: AuthConfig{
			MaxFailedLogins: v.GetInt("auth.max_failed_logins"),
			LockoutWindow:   v.GetDuration("auth.lockout_window"),
		},
		Payout: PayoutConfig{
			DebtorAgentBIC: v.GetString("payout.debtor_agent_bic"),
			DebtorName:     v.GetString("payout.debtor_name"),
			Currency:       v.GetString("payout.currency"),
			QueueKey:       v.GetString("payout.queue_key"),
		},
		Settlement: SettlementConfig{
			QueueKey:    v.GetString("settlement.queue_key"),
			PollTimeout: v.GetDuration("settlement.poll_timeout"),
		},
	}, nil
}
