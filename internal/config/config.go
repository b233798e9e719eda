// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, Load returns an
// error and the process exits.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"interview-scheduler/internal/model"
)

const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port             string
	AdminSecret      string
	StoreDriver      string
	RedisURL         string
	RedisNamespace   string
	DatabaseURL      string
	Location         *time.Location
	SlotDefaults     model.SlotConfig
	WhatsappPattern  *regexp.Regexp
	InterviewTitle   string
	HousekeepingSpec string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleCalendarID   string
	CalendarTimeout    time.Duration
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	secret := strings.TrimSpace(os.Getenv("ADMIN_SECRET"))
	if secret == "" {
		return nil, fmt.Errorf("ADMIN_SECRET is required")
	}

	driver := getEnv("STORE_DRIVER", DriverRedis)
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		AdminSecret:      secret,
		StoreDriver:      driver,
		RedisURL:         os.Getenv("REDIS_URL"),
		RedisNamespace:   getEnv("REDIS_NAMESPACE", "interviews:"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		InterviewTitle:   getEnv("INTERVIEW_TITLE", "Interview"),
		HousekeepingSpec: getEnv("HOUSEKEEPING_SPEC", "@daily"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		GoogleCalendarID:   getEnv("GOOGLE_CALENDAR_ID", "primary"),
	}

	switch driver {
	case DriverRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when STORE_DRIVER=redis")
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be redis, postgres or memory, got %q", driver)
	}

	loc, err := time.LoadLocation(getEnv("BUSINESS_TIMEZONE", "Asia/Dhaka"))
	if err != nil {
		return nil, fmt.Errorf("BUSINESS_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	ints := map[string]*int{}
	slots := model.SlotConfig{WhatsappTemplate: os.Getenv("WHATSAPP_TEMPLATE")}
	ints["SLOT_START_HOUR"] = &slots.StartHour
	ints["SLOT_END_HOUR"] = &slots.EndHour
	ints["SLOT_DURATION_MINUTES"] = &slots.SlotDurationMinutes
	ints["SLOT_BREAK_MINUTES"] = &slots.BreakDurationMinutes
	ints["SLOT_NUMBER_OF_DAYS"] = &slots.NumberOfDays
	defaults := map[string]int{
		"SLOT_START_HOUR":       10,
		"SLOT_END_HOUR":         17,
		"SLOT_DURATION_MINUTES": 30,
		"SLOT_BREAK_MINUTES":    0,
		"SLOT_NUMBER_OF_DAYS":   7,
	}
	for key, dst := range ints {
		v, err := getEnvInt(key, defaults[key])
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	overrun, err := getEnvBool("SLOT_ALLOW_OVERRUN", false)
	if err != nil {
		return nil, err
	}
	slots.AllowOverrun = overrun
	for _, o := range strings.Split(os.Getenv("JOINING_OPTIONS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			slots.JoiningOptions = append(slots.JoiningOptions, o)
		}
	}
	if err := slots.Validate(); err != nil {
		return nil, fmt.Errorf("slot defaults: %w", err)
	}
	cfg.SlotDefaults = slots

	if p := os.Getenv("WHATSAPP_PATTERN"); p != "" {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("WHATSAPP_PATTERN: %w", err)
		}
		cfg.WhatsappPattern = re
	}

	timeout, err := getEnvInt("CALENDAR_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	if timeout < 1 {
		return nil, fmt.Errorf("CALENDAR_TIMEOUT_SECONDS must be a positive integer, got %d", timeout)
	}
	cfg.CalendarTimeout = time.Duration(timeout) * time.Second

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return i, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}
