package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://tldr.example.com)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Cache configuration
	CacheBackend string        `long:"cache-backend" env:"CACHE_BACKEND" default:"memory" choice:"memory" choice:"sqlite" choice:"redis" description:"Cache backend"`
	CachePath    string        `long:"cache-path" env:"CACHE_PATH" default:"./data/tldr.db" description:"SQLite cache file (sqlite backend)"`
	RedisAddr    string        `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address (redis backend)"`
	CacheTTL     time.Duration `long:"cache-ttl" env:"CACHE_TTL" default:"45m" description:"How long a digest is served as fresh"`

	// Pipeline configuration
	RefreshInterval time.Duration `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"45m" description:"Interval between scheduled digest runs"`
	FetchTimeout    time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"0" description:"Per-request fetch timeout (0 disables)"`
	Once            bool          `long:"once" description:"Run the pipeline once, print the digest as JSON and exit"`

	// Contact relay configuration
	ContactCooldown       time.Duration `long:"contact-cooldown" env:"CONTACT_COOLDOWN" default:"60s" description:"Minimum time between messages from one client"`
	ContactHourlyLimit    int           `long:"contact-hourly-limit" env:"CONTACT_HOURLY_LIMIT" default:"5" description:"Messages allowed per client per hour"`
	ContactTo             string        `long:"contact-to" env:"CONTACT_TO" description:"Recipient address for contact messages"`
	MailProvider          string        `long:"mail-provider" env:"MAIL_PROVIDER" description:"Mail provider (resend, or empty to log messages)"`
	MailFrom              string        `long:"mail-from" env:"MAIL_FROM" default:"TL;DR <no-reply@tldr.local>" description:"Sender address for contact messages"`
	ResendAPIKey          string        `long:"resend-api-key" env:"RESEND_API_KEY" description:"Resend API key"`
	ContactSuccessMessage string        `long:"contact-success-message" env:"CONTACT_SUCCESS_MESSAGE" default:"Thanks! We received your question." description:"Message returned after a successful submission"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"TLDR Digest/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses args instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache TTL must be positive, got %s", raw.CacheTTL)
	}
	if raw.RefreshInterval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", raw.RefreshInterval)
	}

	cfg := &Cfg{
		Port:                  raw.Port,
		BaseUrl:               raw.BaseUrl,
		APIAccessKey:          raw.APIAccessKey,
		CacheBackend:          raw.CacheBackend,
		CachePath:             raw.CachePath,
		RedisAddr:             raw.RedisAddr,
		CacheTTL:              raw.CacheTTL,
		RefreshInterval:       raw.RefreshInterval,
		FetchTimeout:          raw.FetchTimeout,
		Once:                  raw.Once,
		ContactCooldown:       raw.ContactCooldown,
		ContactHourlyLimit:    raw.ContactHourlyLimit,
		ContactTo:             raw.ContactTo,
		MailProvider:          raw.MailProvider,
		MailFrom:              raw.MailFrom,
		ResendAPIKey:          raw.ResendAPIKey,
		ContactSuccessMessage: raw.ContactSuccessMessage,
		UserAgent:             raw.UserAgent,
		Timezone:              raw.Timezone,
		Debug:                 raw.Debug,
		Version:               GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
