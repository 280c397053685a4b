package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	StoreDSN string
	LLM      LLMConfig
	Pipeline PipelineConfig
	Artifact ArtifactConfig
	Log      LogConfig
}

type LLMConfig struct {
	APIKey      string
	TextModel   string
	ImageModel  string
	SpeechModel string
	VideoModel  string
	RPS         float64
	Burst       int
	// Fake swaps the Gemini client for the deterministic offline client.
	Fake bool
}

type PipelineConfig struct {
	Voice             string
	ImageAspectRatio  string
	ImageSize         string
	VideoResolution   string
	VideoAspectRatio  string
	VideoPollInterval time.Duration
	VideoPollAttempts int
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the config from the current environment only.
func FromEnv() (*Config, error) {
	env := firstNonEmpty(getenv("APP_ENV"), "local")

	rps, err := floatEnv("LLM_RPS", 2)
	if err != nil {
		return nil, err
	}
	burst, err := intEnv("LLM_BURST", 4)
	if err != nil {
		return nil, err
	}
	interval, err := durationEnv("VIDEO_POLL_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, err
	}
	attempts, err := intEnv("VIDEO_POLL_ATTEMPTS", 30)
	if err != nil {
		return nil, err
	}
	fake, err := boolEnv("LLM_FAKE", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:     normalizePort(firstNonEmpty(getenv("PORT"), ":8081")),
		Env:      env,
		StoreDSN: firstNonEmpty(getenv("DESIGN_STORE_DSN"), "data/designs.json"),
		LLM: LLMConfig{
			APIKey:      firstNonEmpty(getenv("GEMINI_API_KEY"), getenv("GOOGLE_API_KEY")),
			TextModel:   getenv("GEMINI_TEXT_MODEL"),
			ImageModel:  getenv("GEMINI_IMAGE_MODEL"),
			SpeechModel: getenv("GEMINI_SPEECH_MODEL"),
			VideoModel:  getenv("GEMINI_VIDEO_MODEL"),
			RPS:         rps,
			Burst:       burst,
			Fake:        fake,
		},
		Pipeline: PipelineConfig{
			Voice:             getenv("PITCH_VOICE"),
			ImageAspectRatio:  getenv("IMAGE_ASPECT_RATIO"),
			ImageSize:         getenv("IMAGE_SIZE"),
			VideoResolution:   getenv("VIDEO_RESOLUTION"),
			VideoAspectRatio:  getenv("VIDEO_ASPECT_RATIO"),
			VideoPollInterval: interval,
			VideoPollAttempts: attempts,
		},
		Artifact: loadArtifactConfig(env),
		Log: LogConfig{
			Level:  firstNonEmpty(getenv("LOG_LEVEL"), "INFO"),
			Format: firstNonEmpty(getenv("LOG_FORMAT"), "json"),
		},
	}, nil
}

// loadArtifactConfig enables the S3 store only when an endpoint is set;
// local runs read ARTIFACT_MINIO_ENDPOINT and default to plain HTTP.
func loadArtifactConfig(env string) ArtifactConfig {
	local := strings.EqualFold(env, "local")
	endpoint := getenv("ARTIFACT_S3_ENDPOINT")
	if local {
		endpoint = firstNonEmpty(getenv("ARTIFACT_MINIO_ENDPOINT"), endpoint)
	}
	useSSL := !local
	if raw := getenv("ARTIFACT_S3_USE_SSL"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			useSSL = v
		}
	}
	return ArtifactConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(getenv("ARTIFACT_S3_REGION"), "us-east-1"),
		AccessKey: firstNonEmpty(getenv("ARTIFACT_S3_ACCESS_KEY"), getenv("MINIO_ROOT_USER")),
		SecretKey: firstNonEmpty(getenv("ARTIFACT_S3_SECRET_KEY"), getenv("MINIO_ROOT_PASSWORD")),
		Bucket:    firstNonEmpty(getenv("ARTIFACT_S3_BUCKET"), "designforge-assets"),
		UseSSL:    useSSL,
	}
}

func normalizePort(port string) string {
	if strings.HasPrefix(port, ":") || strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func intEnv(key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s: want a positive integer, got %q", key, raw)
	}
	return v, nil
}

func floatEnv(key string, def float64) (float64, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s: want a non-negative number, got %q", key, raw)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s: want a positive duration, got %q", key, raw)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: want a boolean, got %q", key, raw)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
