package cfg

import "time"

type Cfg struct {
	// Server configuration
	Port         string
	BaseUrl      string
	APIAccessKey string

	// Cache configuration
	CacheBackend string
	CachePath    string
	RedisAddr    string
	CacheTTL     time.Duration

	// Pipeline configuration
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	Once            bool

	// Contact relay configuration
	ContactCooldown       time.Duration
	ContactHourlyLimit    int
	ContactTo             string
	MailProvider          string
	MailFrom              string
	ResendAPIKey          string
	ContactSuccessMessage string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
