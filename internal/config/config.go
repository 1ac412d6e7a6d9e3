package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath      string
	RawDir      string
	RawMailDir  string
	OutputDir   string
	OutputFile  string
	OutputSheet string
	VocabPath   string

	LogLevel     string
	LogFormat    string
	BatchWorkers int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	IntakeProvider      string
	IntakeLabel         string
	IntakeAHJ           string
	IntakeIntervalSec   int
	IntakeFetchMax      int
	IntakeProcessBatch  int
	IntakeAutoNormalize bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "permitnorm.db")),
		RawDir:      getEnv("RAW_DIR", filepath.Join(cwd, "raw")),
		RawMailDir:  getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "mail")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		OutputFile:  getEnv("OUTPUT_FILE", "Clean.xlsx"),
		OutputSheet: getEnv("OUTPUT_SHEET", "Clean"),
		VocabPath:   getEnv("VOCAB_PATH", ""),

		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "console"),
		BatchWorkers: getEnvInt("BATCH_WORKERS", 4),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		IntakeProvider:      getEnv("INTAKE_PROVIDER", "imap"),
		IntakeLabel:         getEnv("INTAKE_LABEL", "INBOX"),
		IntakeAHJ:           getEnv("INTAKE_AHJ", ""),
		IntakeIntervalSec:   getEnvInt("INTAKE_INTERVAL_SEC", 300),
		IntakeFetchMax:      getEnvInt("INTAKE_FETCH_MAX", 20),
		IntakeProcessBatch:  getEnvInt("INTAKE_PROCESS_BATCH", 20),
		IntakeAutoNormalize: getEnvBool("INTAKE_AUTO_NORMALIZE", true),
	}

	if cfg.BatchWorkers < 1 {
		cfg.BatchWorkers = 1
	}
	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// OutputPath is where the normalized table of one AHJ is written.
func (c Config) OutputPath(ahj string) string {
	return filepath.Join(c.OutputDir, ahj, c.OutputFile)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
