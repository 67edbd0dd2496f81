package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fiftydrive/fifty-drive-backend/internal/pricing"
)

// Config captures all tunable parameters for the API process. Values
// load from environment variables with defaults that let the binary
// run locally with no setup (in-memory store, no Redis, no Kafka).
type Config struct {
	HTTPAddr string
	PGDSN    string

	RedisURL string

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret string

	GoogleMapsAPIKey string
	CityCenterLat    float64
	CityCenterLng    float64

	Rates pricing.Table

	// OrderAcceptanceTimeout is reserved configuration: the window a
	// pending order waits for a driver. No re-dispatch timer enforces
	// it yet; it is surfaced to clients as display metadata only.
	OrderAcceptanceTimeout time.Duration

	LogLevel string
}

func defaults() Config {
	return Config{
		HTTPAddr: ":8080",
		// Moscow city center anchors synthetic geocoding fallbacks.
		CityCenterLat:          55.755826,
		CityCenterLng:          37.617300,
		KafkaTopic:             "order-events",
		Rates:                  pricing.DefaultTable(),
		OrderAcceptanceTimeout: 60 * time.Second,
		LogLevel:               "info",
	}
}

func Load() (Config, error) {
	cfg := defaults()
	var errs []error

	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	cfg.PGDSN = os.Getenv("PG_DSN")
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setString(&cfg.KafkaTopic, "KAFKA_TOPIC")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.GoogleMapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	setFloat(&cfg.CityCenterLat, "CITY_CENTER_LAT", &errs)
	setFloat(&cfg.CityCenterLng, "CITY_CENTER_LNG", &errs)
	setDuration(&cfg.OrderAcceptanceTimeout, "ORDER_ACCEPTANCE_TIMEOUT", &errs)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	loadRateOverrides(&cfg, &errs)

	if cfg.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required"))
	}

	return cfg, errors.Join(errs...)
}

// Rate table overrides, one env per figure, e.g. FARE_ECONOMY_BASE=120.
func loadRateOverrides(cfg *Config, errs *[]error) {
	for class, rate := range cfg.Rates {
		prefix := "FARE_" + strings.ToUpper(string(class))
		setFloat(&rate.BaseFare, prefix+"_BASE", errs)
		setFloat(&rate.PerKm, prefix+"_PER_KM", errs)
		setInt(&rate.WaitTimeMin, prefix+"_WAIT_MIN", errs)
		cfg.Rates[class] = rate
	}
}

func setString(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func setFloat(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setInt(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setDuration(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
