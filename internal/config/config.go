package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	Port               string
	DatabaseURL        string
	SQLitePath         string
	LocalTimezone      *time.Location
	SessionSecret      []byte
	SessionTTL         time.Duration
	DefaultCountryCode string

	VerifyWebhookURL       string
	TwilioAccountSID       string
	TwilioAuthToken        string
	TwilioVerifyServiceSID string
	OpenAIAPIKey           string

	ChatNumber  string
	ChatMessage string

	RatesURL      string
	RatesCurrency string
	RatesFallback float64
	RatesSchedule string

	GinMode string
}

// Load reads configuration values and prepares defaults where applicable.
func Load() *Config {
	_ = godotenv.Load()

	timezoneName := getenvDefault("LOCAL_TIMEZONE", "Local")
	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		log.Printf("config: invalid LOCAL_TIMEZONE %q, defaulting to system local: %v", timezoneName, err)
		location = time.Local
	}

	secret := []byte(os.Getenv("SESSION_SECRET"))
	if len(secret) == 0 {
		log.Printf("config: SESSION_SECRET not set, sessions will not survive a restart")
		secret = randomSecret()
	}

	ttlHours := ParseIntEnv("SESSION_TTL_HOURS", 168)
	if ttlHours <= 0 {
		log.Printf("config: SESSION_TTL_HOURS must be positive, using 168")
		ttlHours = 168
	}

	return &Config{
		Port:               getenvDefault("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getenvDefault("SQLITE_PATH", "claudia.db"),
		LocalTimezone:      location,
		SessionSecret:      secret,
		SessionTTL:         time.Duration(ttlHours) * time.Hour,
		DefaultCountryCode: getenvDefault("DEFAULT_COUNTRY_CODE", "+57"),

		VerifyWebhookURL:       os.Getenv("VERIFY_WEBHOOK_URL"),
		TwilioAccountSID:       os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:        os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioVerifyServiceSID: os.Getenv("TWILIO_VERIFY_SERVICE_SID"),
		OpenAIAPIKey:           os.Getenv("OPENAI_API_KEY"),

		ChatNumber:  os.Getenv("CHAT_NUMBER"),
		ChatMessage: getenvDefault("CHAT_MESSAGE", "Hola Claudia"),

		RatesURL:      getenvDefault("RATES_URL", "https://open.er-api.com/v6/latest/USD"),
		RatesCurrency: getenvDefault("RATES_CURRENCY", "COP"),
		RatesFallback: ParseFloatEnv("RATES_FALLBACK", 4000),
		RatesSchedule: getenvDefault("RATES_SCHEDULE", "@every 1h"),

		GinMode: os.Getenv("GIN_MODE"),
	}
}

func getenvDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

// ParseIntEnv returns the integer value for an environment variable or the provided default.
func ParseIntEnv(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("config: unable to parse %s=%q as int: %v", key, value, err)
		return def
	}
	return parsed
}

// ParseFloatEnv returns the float value for an environment variable or the provided default.
func ParseFloatEnv(key string, def float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		log.Printf("config: unable to parse %s=%q as positive float: %v", key, value, err)
		return def
	}
	return parsed
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("config: generate session secret: %v", err)
	}
	return []byte(hex.EncodeToString(buf))
}
