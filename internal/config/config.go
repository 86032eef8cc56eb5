package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"epicast/internal/jira"
	"epicast/internal/simulation"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Jira                jira.Config
	Forecast            ForecastDefaults
	DataPath            string
	LogDir              string
	ReportDir           string
	DBPath              string
	PlanFile            string
	EnableMermaidCharts bool
}

// ForecastDefaults are the simulation settings used when the matching
// command-line flags are left at their defaults.
type ForecastDefaults struct {
	Trials       int
	Percentiles  []float64
	MinSamples   int
	NearEndDays  int
	LookbackDays int
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (lets the binary run from anywhere)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve data paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := getEnv("LOG_DIR", filepath.Join(dataPath, "logs"))
	reportDir := getEnv("REPORT_DIR", filepath.Join(dataPath, "reports"))

	// Ensure directories exist
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", reportDir).Msg("Failed to create report directory")
	}

	cfg := &AppConfig{
		Jira: jira.Config{
			BaseURL:      getEnv("JIRA_URL", ""),
			Email:        getEnv("JIRA_EMAIL", ""),
			APIToken:     getEnv("JIRA_API_TOKEN", ""),
			BearerToken:  getEnv("JIRA_BEARER_TOKEN", ""),
			RequestDelay: time.Duration(getEnvInt("JIRA_REQUEST_DELAY_SECONDS", 0)) * time.Second,
			Project:      getEnv("JIRA_PROJECT", ""),
			TeamField:    getEnv("JIRA_TEAM_FIELD", ""),
			Team:         getEnv("JIRA_TEAM", ""),
			StartStatus:  getEnv("JIRA_START_STATUS", "In Progress"),
			DoneStatus:   getEnv("JIRA_DONE_STATUS", "Done"),
			PageSize:     getEnvInt("JIRA_PAGE_SIZE", 0),
		},
		Forecast: ForecastDefaults{
			Trials:       getEnvInt("FORECAST_TRIALS", simulation.DefaultTrials),
			Percentiles:  getEnvFloats("FORECAST_PERCENTILES", nil),
			MinSamples:   getEnvInt("FORECAST_MIN_SAMPLES", simulation.DefaultMinSamples),
			NearEndDays:  getEnvInt("FORECAST_NEAR_END_DAYS", simulation.DefaultNearEndThreshold),
			LookbackDays: getEnvInt("FORECAST_LOOKBACK_DAYS", 365),
		},
		DataPath:            dataPath,
		LogDir:              logDir,
		ReportDir:           reportDir,
		DBPath:              getEnv("DB_PATH", filepath.Join(dataPath, "epicast.db")),
		PlanFile:            getEnv("PLAN_FILE", ""),
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", true),
	}

	return cfg, nil
}

// ValidateJira reports the first missing setting required to reach Jira.
// A bearer token alone satisfies authentication (Data Center); otherwise
// both email and API token are required (Cloud).
func (c *AppConfig) ValidateJira() error {
	switch {
	case c.Jira.BaseURL == "":
		return errors.New("JIRA_URL is not set")
	case c.Jira.BearerToken == "" && c.Jira.Email == "":
		return errors.New("JIRA_EMAIL is not set (or set JIRA_BEARER_TOKEN for Data Center)")
	case c.Jira.BearerToken == "" && c.Jira.APIToken == "":
		return errors.New("JIRA_API_TOKEN is not set (or set JIRA_BEARER_TOKEN for Data Center)")
	case c.Jira.Project == "":
		return errors.New("JIRA_PROJECT is not set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric environment value")
	}
	return fallback
}

func getEnvFloats(key string, fallback []float64) []float64 {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []float64
	for _, part := range strings.Split(value, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			log.Warn().Str("key", key).Str("value", value).Msg("Ignoring malformed percentile list")
			return fallback
		}
		out = append(out, f)
	}
	return out
}
