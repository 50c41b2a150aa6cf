package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL string

	StateBackend string // "file" or "db"
	StatePath    string
	DBDriver     string // "sqlite" or "postgres"
	DBDSN        string

	LogDir     string
	SummaryDir string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOSecure    bool

	NatsURL     string
	NatsToken   string
	NatsSubject string

	BridgeAddr   string
	BridgeSecret string

	RecordCmd  string
	RecordMIME string
	PlayCmd    string
}

func LoadConfig() Config {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	return Config{
		APIBaseURL: strings.TrimRight(getEnv("DOCCHAT_API_BASE_URL", "http://127.0.0.1:8000"), "/"),

		StateBackend: getEnv("DOCCHAT_STATE_BACKEND", "file"),
		StatePath:    ExpandHome(getEnv("DOCCHAT_STATE_PATH", "~/.docchat/state.yaml")),
		DBDriver:     getEnv("DOCCHAT_DB_DRIVER", "sqlite"),
		DBDSN:        ExpandHome(getEnv("DOCCHAT_DB_DSN", "~/.docchat/docchat.db")),

		LogDir:     getEnv("DOCCHAT_LOG_DIR", "./logs"),
		SummaryDir: getEnv("DOCCHAT_SUMMARY_DIR", "."),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "docchat-summaries"),
		MinIOSecure:    getEnvBool("MINIO_SECURE", false),

		NatsURL:     getEnv("NATS_URL", ""),
		NatsToken:   getEnv("NATS_TOKEN", ""),
		NatsSubject: getEnv("NATS_SUBJECT", "docchat.timeline"),

		BridgeAddr:   getEnv("DOCCHAT_BRIDGE_ADDR", ":8787"),
		BridgeSecret: getEnv("DOCCHAT_BRIDGE_SECRET", ""),

		RecordCmd:  getEnv("DOCCHAT_RECORD_CMD", "ffmpeg -loglevel quiet -f pulse -i default -f webm -"),
		RecordMIME: getEnv("DOCCHAT_RECORD_MIME", "audio/webm"),
		PlayCmd:    getEnv("DOCCHAT_PLAY_CMD", "ffplay -nodisp -autoexit -loglevel quiet"),
	}
}

// UsesMinIO reports whether summaries go to object storage instead of SummaryDir.
func (c Config) UsesMinIO() bool {
	return c.MinIOEndpoint != ""
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

// ExpandHome resolves a leading "~/" against the user's home directory.
func ExpandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
