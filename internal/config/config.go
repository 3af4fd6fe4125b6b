package config

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// The Keys lock vendor
	TheKeysUsername string `env:"THEKEYS_USERNAME,required"`
	TheKeysPassword string `env:"THEKEYS_PASSWORD,required"`
	TheKeysBaseURL  string `env:"THEKEYS_BASE_URL" envDefault:"https://api.the-keys.fr"`
	// token uses the JSON API, form falls back to the authenticated web UI.
	LockClient string `env:"LOCK_CLIENT" envDefault:"token"`

	// Smoobu reservation platform
	SmoobuAPIKey  string `env:"SMOOBU_API_KEY"`
	SmoobuBaseURL string `env:"SMOOBU_BASE_URL" envDefault:"https://login.smoobu.com/api"`

	// SMSFactor notifications
	SMSFactorToken   string `env:"SMSFACTOR_API_TOKEN"`
	SMSFactorBaseURL string `env:"SMSFACTOR_BASE_URL" envDefault:"https://api.smsfactor.com"`
	SMSSender        string `env:"SMS_SENDER" envDefault:"KOLNA"`

	// Webhook ingress
	WebhookSecret      string   `env:"WEBHOOK_SECRET"`
	WebhookIPAllowlist []string `env:"WEBHOOK_IP_ALLOWLIST"`
	WebhookRatePerMin  int      `env:"WEBHOOK_RATE_PER_MIN" envDefault:"120"`

	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	// Static fleet mappings, e.g. APARTMENT_LOCKS="505200:3718,505201:3719".
	ApartmentLocks  map[string]int64  `env:"APARTMENT_LOCKS"`
	LockAccessoires map[string]string `env:"LOCK_ACCESSOIRES"`
	LockPINPrefixes map[string]string `env:"LOCK_PIN_PREFIXES"`

	PINLength      int `env:"PIN_LENGTH" envDefault:"4"`
	CheckInHour    int `env:"CHECKIN_HOUR" envDefault:"15"`
	CheckInMinute  int `env:"CHECKIN_MINUTE" envDefault:"0"`
	CheckOutHour   int `env:"CHECKOUT_HOUR" envDefault:"12"`
	CheckOutMinute int `env:"CHECKOUT_MINUTE" envDefault:"0"`

	IdempotencyWindowMinutes int `env:"IDEMPOTENCY_WINDOW_MINUTES" envDefault:"5"`
	LogRetentionDays         int `env:"LOG_RETENTION_DAYS" envDefault:"90"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IdempotencyWindow() time.Duration {
	return time.Duration(c.IdempotencyWindowMinutes) * time.Minute
}

// LockForApartment resolves the lock serving an apartment, or false when the
// apartment is not in the fleet configuration.
func (c *Config) LockForApartment(apartmentID string) (int64, bool) {
	lockID, ok := c.ApartmentLocks[apartmentID]
	return lockID, ok
}

// AccessoireForLock resolves the keypad hardware unit id required to create
// codes on a lock.
func (c *Config) AccessoireForLock(lockID int64) (string, bool) {
	accessoireID, ok := c.LockAccessoires[strconv.FormatInt(lockID, 10)]
	return accessoireID, ok
}

// PrefixForLock returns the site-specific digits prepended to a generated
// PIN before it is communicated to guests. Empty when no prefix is set.
func (c *Config) PrefixForLock(lockID int64) string {
	return c.LockPINPrefixes[strconv.FormatInt(lockID, 10)]
}

// OrderedLockIDs returns every configured lock in ascending id order. The
// cross-lock correlation scan iterates this slice, so search order is stable
// across processes regardless of map iteration.
func (c *Config) OrderedLockIDs() []int64 {
	ids := make([]int64, 0, len(c.LockAccessoires))
	for key := range c.LockAccessoires {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			log.Warn().Str("lockId", key).Msg("ignoring non-numeric lock id in LOCK_ACCESSOIRES")
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c *Config) Validate(isProduction bool) error {
	if c.LockClient != "token" && c.LockClient != "form" {
		return fmt.Errorf("LOCK_CLIENT must be token or form, got %q", c.LockClient)
	}
	if c.PINLength < 1 || c.PINLength > 8 {
		return fmt.Errorf("PIN_LENGTH must be between 1 and 8, got %d", c.PINLength)
	}
	if len(c.ApartmentLocks) == 0 {
		log.Warn().Msg("APARTMENT_LOCKS is empty: every webhook will be skipped")
	}
	for apartmentID, lockID := range c.ApartmentLocks {
		if _, ok := c.AccessoireForLock(lockID); !ok {
			log.Warn().
				Str("apartmentId", apartmentID).
				Int64("lockId", lockID).
				Msg("lock has no accessoire mapping: bookings for this apartment will be skipped")
		}
	}

	if isProduction {
		if c.WebhookSecret == "" {
			log.Warn().Msg("WEBHOOK_SECRET is empty in production: webhook signature verification disabled")
		}
		if c.AdminPasswordHash == "" {
			log.Warn().Msg("ADMIN_PASSWORD_HASH is empty in production: manual sync endpoint disabled")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
