package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or a .env file loaded in main).
// No business logic should depend on raw environment variables.
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Twilio       TwilioConfig
	Gemini       GeminiConfig
	LemonSqueezy LemonSqueezyConfig
	Mail         MailConfig
	Telegram     TelegramConfig
}

type AppConfig struct {
	Env  string
	Port int

	// APIURL is the public base URL of this service; Twilio action URLs
	// and the LemonSqueezy webhook URL are derived from it.
	APIURL string

	// ClientURL is the dashboard origin, used for checkout redirects and CORS.
	ClientURL string

	// AudioDir is where synthesized phrase clips are written; they are
	// served back to Twilio under /static/audio.
	AudioDir string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Google OAuth client used for the transparent refresh-token flow.
	GoogleClientID     string
	GoogleClientSecret string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string

	// BundleSid is the approved regulatory bundle attached to number
	// purchases. Twilio rejects purchases in regulated countries without
	// one; leave empty when renting US numbers only.
	BundleSid string
}

type GeminiConfig struct {
	APIKey string

	// Model names default in Validate().
	ChatModel  string
	EmbedModel string
	TTSModel   string
}

type LemonSqueezyConfig struct {
	APIKey        string
	StoreID       string
	WebhookSecret string
}

type MailConfig struct {
	APIKey string
	From   string
}

type TelegramConfig struct {
	BotToken string

	// OpsChatID receives operational alerts (orphaned agents, sweep
	// failures). Alerts are skipped when zero.
	OpsChatID int64
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.APIURL = strings.TrimRight(strings.TrimSpace(os.Getenv("API_URL")), "/")
	c.App.ClientURL = strings.TrimRight(strings.TrimSpace(os.Getenv("CLIENT_URL")), "/")
	c.App.AudioDir = strings.TrimSpace(os.Getenv("AUDIO_DIR"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")
	c.Auth.GoogleClientID = strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID"))
	c.Auth.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.BundleSid = strings.TrimSpace(os.Getenv("TWILIO_BUNDLE_SID"))

	c.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	c.Gemini.ChatModel = strings.TrimSpace(os.Getenv("GEMINI_CHAT_MODEL"))
	c.Gemini.EmbedModel = strings.TrimSpace(os.Getenv("GEMINI_EMBED_MODEL"))
	c.Gemini.TTSModel = strings.TrimSpace(os.Getenv("GEMINI_TTS_MODEL"))

	c.LemonSqueezy.APIKey = os.Getenv("LEMONSQUEEZY_API_KEY")
	c.LemonSqueezy.StoreID = strings.TrimSpace(os.Getenv("LEMONSQUEEZY_STORE_ID"))
	c.LemonSqueezy.WebhookSecret = os.Getenv("LEMONSQUEEZY_WEBHOOK_SECRET")

	c.Mail.APIKey = os.Getenv("MAIL_API_KEY")
	c.Mail.From = strings.TrimSpace(os.Getenv("MAIL_FROM"))

	c.Telegram.BotToken = os.Getenv("TG_BOT_TOKEN")
	if v := strings.TrimSpace(os.Getenv("TG_OPS_CHAT_ID")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("TG_OPS_CHAT_ID must be an integer, got %q", v))
		}
		c.Telegram.OpsChatID = n
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.APIURL == "" {
		errs = append(errs, errors.New("API_URL is required"))
	}
	if c.App.ClientURL == "" {
		errs = append(errs, errors.New("CLIENT_URL is required"))
	}
	if c.App.AudioDir == "" {
		c.App.AudioDir = "./data/audio"
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Twilio.AccountSID == "" {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required"))
	}
	if c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required"))
	}

	if c.Gemini.APIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required"))
	}
	if c.Gemini.ChatModel == "" {
		c.Gemini.ChatModel = "gemini-2.0-flash"
	}
	if c.Gemini.EmbedModel == "" {
		c.Gemini.EmbedModel = "text-embedding-004"
	}
	if c.Gemini.TTSModel == "" {
		c.Gemini.TTSModel = "gemini-2.5-flash-preview-tts"
	}

	if c.LemonSqueezy.APIKey == "" {
		errs = append(errs, errors.New("LEMONSQUEEZY_API_KEY is required"))
	}
	if c.LemonSqueezy.StoreID == "" {
		errs = append(errs, errors.New("LEMONSQUEEZY_STORE_ID is required"))
	}
	if c.LemonSqueezy.WebhookSecret == "" {
		errs = append(errs, errors.New("LEMONSQUEEZY_WEBHOOK_SECRET is required"))
	}

	// Mail and Telegram are optional outside production; notifications
	// degrade to log-only when unset.
	if c.IsProduction() {
		if c.Mail.APIKey == "" {
			errs = append(errs, errors.New("MAIL_API_KEY is required in production"))
		}
		if c.Mail.From == "" {
			errs = append(errs, errors.New("MAIL_FROM is required in production"))
		}
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
