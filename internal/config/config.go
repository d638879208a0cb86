// Package config loads the module's configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GitHub   GitHubConfig
	Gemini   GeminiConfig
	Pipeline PipelineConfig
	Store    StoreConfig
}

type GitHubConfig struct {
	Token string
	Owner string
}

type GeminiConfig struct {
	ImageModel string
	TextModel  string
}

type PipelineConfig struct {
	StageTimeout time.Duration
}

type StoreConfig struct {
	// Backend selects the remote store: "github" (default), "s3", "postgres".
	Backend     string
	PostgresDSN string
	S3          S3Config
	CacheSize   int
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		GitHub: GitHubConfig{
			Token: strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
			Owner: strings.TrimSpace(os.Getenv("GITHUB_OWNER")),
		},
		Gemini: GeminiConfig{
			ImageModel: strings.TrimSpace(os.Getenv("GEMINI_IMAGE_MODEL")),
			TextModel:  strings.TrimSpace(os.Getenv("GEMINI_TEXT_MODEL")),
		},
		Pipeline: PipelineConfig{
			StageTimeout: durationOr("PIPELINE_STAGE_TIMEOUT", 2*time.Minute),
		},
		Store: StoreConfig{
			Backend:     firstNonEmpty(strings.TrimSpace(os.Getenv("STORE_BACKEND")), "github"),
			PostgresDSN: strings.TrimSpace(os.Getenv("STORE_PG_DSN")),
			CacheSize:   intOr("STORE_CACHE_SIZE", 256),
			S3: S3Config{
				Endpoint:  strings.TrimSpace(os.Getenv("STORE_S3_ENDPOINT")),
				Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("STORE_S3_REGION")), "us-east-1"),
				AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("STORE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
				SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("STORE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
				Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("STORE_S3_BUCKET")), "architectai-projects"),
				UseSSL:    boolOr("STORE_S3_USE_SSL", true),
			},
		},
	}, nil
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func intOr(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func boolOr(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
