package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"

	StorageSupabase = "supabase"
	StorageLocal    = "local"

	// StripeMinReservationTTL is the shortest checkout session Stripe
	// accepts. A shorter reservation would be released while the customer
	// can still pay.
	StripeMinReservationTTL = 31 * time.Minute
)

type Config struct {
	Env      string `env:"APP_ENV,default=development"`
	Port     string `env:"APP_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	DBDriver    string `env:"DB_DRIVER,default=postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBMigrate   bool   `env:"DB_MIGRATE,default=true"`

	JWTSecret  string        `env:"JWT_SECRET"`
	JWTTTL     time.Duration `env:"JWT_TTL,default=24h"`
	BcryptCost int           `env:"BCRYPT_COST,default=12"`

	BootstrapAdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`

	Currency                 string        `env:"CURRENCY,default=ZAR"`
	ShippingDomesticFee      string        `env:"SHIPPING_DOMESTIC_FEE,default=150.00"`
	ShippingInternationalFee string        `env:"SHIPPING_INTERNATIONAL_FEE,default=850.00"`
	FreeShippingThreshold    string        `env:"FREE_SHIPPING_THRESHOLD,default=0"`
	HomeCountry              string        `env:"HOME_COUNTRY,default=ZA"`
	BaseProcessingDays       int           `env:"BASE_PROCESSING_DAYS,default=3"`
	ReservationTTL           time.Duration `env:"RESERVATION_TTL,default=35m"`
	LowStockThreshold        int64         `env:"LOW_STOCK_THRESHOLD,default=1"`
	PublicBaseURL            string        `env:"PUBLIC_BASE_URL,default=http://localhost:8080"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	YocoSecretKey       string `env:"YOCO_SECRET_KEY"`
	YocoWebhookSecret   string `env:"YOCO_WEBHOOK_SECRET"`
	YocoAPIURL          string `env:"YOCO_API_URL,default=https://payments.yoco.com"`

	SMTPAddr     string `env:"SMTP_ADDR"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"`
	AdminEmail   string `env:"ADMIN_EMAIL"`

	RabbitMQURL      string `env:"RABBITMQ_URL"`
	RabbitMQQueue    string `env:"RABBITMQ_QUEUE,default=gallery.notifications"`
	RabbitMQPoolSize int    `env:"RABBITMQ_POOL_SIZE,default=4"`

	RedisURL          string        `env:"REDIS_URL"`
	CatalogueCacheTTL time.Duration `env:"CATALOGUE_CACHE_TTL,default=5m"`

	StorageDriver      string `env:"STORAGE_DRIVER,default=local"`
	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_KEY"`
	StorageBucket      string `env:"STORAGE_BUCKET,default=artworks"`
	LocalStorageDir    string `env:"LOCAL_STORAGE_DIR,default=./data/media"`

	InquiryRatePerMinute int `env:"INQUIRY_RATE_PER_MINUTE,default=5"`
	LoginRatePerMinute   int `env:"LOGIN_RATE_PER_MINUTE,default=10"`

	GalleryName      string `env:"GALLERY_NAME,default=Gallery"`
	GalleryAddress   string `env:"GALLERY_ADDRESS"`
	GalleryVATNumber string `env:"GALLERY_VAT_NUMBER"`
}

// Load reads an optional .env file (ENV_FILE, default ".env") and decodes
// the environment into a validated Config.
func Load() (Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("config: decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	switch c.DBDriver {
	case DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}
	switch c.StorageDriver {
	case StorageLocal:
	case StorageSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return errors.New("config: supabase storage needs SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	if len(c.Currency) != 3 {
		return fmt.Errorf("config: CURRENCY must be an ISO 4217 code, got %q", c.Currency)
	}

	for key, raw := range map[string]string{
		"SHIPPING_DOMESTIC_FEE":      c.ShippingDomesticFee,
		"SHIPPING_INTERNATIONAL_FEE": c.ShippingInternationalFee,
		"FREE_SHIPPING_THRESHOLD":    c.FreeShippingThreshold,
	} {
		if _, err := parseAmount(key, raw); err != nil {
			return err
		}
	}
	if c.ReservationTTL <= 0 {
		return errors.New("config: RESERVATION_TTL must be positive")
	}
	if c.StripeEnabled() && c.ReservationTTL < StripeMinReservationTTL {
		return fmt.Errorf("config: RESERVATION_TTL must be at least %s when Stripe is enabled", StripeMinReservationTTL)
	}
	if c.BaseProcessingDays < 0 {
		return errors.New("config: BASE_PROCESSING_DAYS must not be negative")
	}
	return nil
}

func (c Config) IsProduction() bool { return strings.EqualFold(c.Env, "production") }

func (c Config) Addr() string { return ":" + c.Port }

// ShippingFees returns the fee amounts. Validate has already rejected
// unparsable values, so parse errors here read as zero.
func (c Config) ShippingFees() (domestic, international, freeThreshold decimal.Decimal) {
	domestic, _ = parseAmount("", c.ShippingDomesticFee)
	international, _ = parseAmount("", c.ShippingInternationalFee)
	freeThreshold, _ = parseAmount("", c.FreeShippingThreshold)
	return domestic, international, freeThreshold
}

func (c Config) StripeEnabled() bool { return c.StripeSecretKey != "" }

func (c Config) YocoEnabled() bool { return c.YocoSecretKey != "" }

func (c Config) MailEnabled() bool { return c.SMTPAddr != "" && c.MailFrom != "" }

func parseAmount(key, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s: %w", key, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("config: %s must not be negative", key)
	}
	return d, nil
}
