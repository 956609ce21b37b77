package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "CLIPMASTER_CONFIG"

	supabaseURLEnv        = "SUPABASE_URL"
	supabaseServiceKeyEnv = "SUPABASE_SERVICE_KEY"
	supabaseJWTSecretEnv  = "SUPABASE_JWT_SECRET"
	databaseDSNEnv        = "DATABASE_DSN"
	clipStoreBackendEnv   = "CLIP_STORE_BACKEND"
	objectBackendEnv      = "OBJECT_STORE_BACKEND"
	objectBucketEnv       = "OBJECT_STORE_BUCKET"
	sqsQueueURLEnv        = "SQS_QUEUE_URL"
	awsRegionEnv          = "AWS_REGION"
	workerServiceKeyEnv   = "WORKER_SERVICE_KEY"
	logLevelEnv           = "LOG_LEVEL"
	portEnv               = "PORT"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Supabase    SupabaseConfig    `yaml:"supabase"`
	ClipStore   ClipStoreConfig   `yaml:"clip_store"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Dispatch    DispatchConfig    `yaml:"dispatch"`
	Realtime    RealtimeConfig    `yaml:"realtime"`
	Uploads     UploadConfig      `yaml:"uploads"`
}

// ServerConfig controls the HTTP API and the gRPC health listener.
type ServerConfig struct {
	Port             int    `yaml:"port" validate:"min=1,max=65535"`
	HealthPort       int    `yaml:"health_port" validate:"min=0,max=65535"` // 0 disables
	AllowOrigins     string `yaml:"allow_origins"`
	WorkerServiceKey string `yaml:"worker_service_key"` // empty disables the internal routes
	BodyLimitMB      int    `yaml:"body_limit_mb" validate:"min=1"`
}

// LogConfig selects logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// SupabaseConfig points at the Supabase project.
type SupabaseConfig struct {
	URL         string `yaml:"url" validate:"omitempty,url"`
	ServiceKey  string `yaml:"service_key"`
	JWTSecret   string `yaml:"jwt_secret"`
	JWTAudience string `yaml:"jwt_audience"`
}

// ClipStoreConfig selects where clip records live.
type ClipStoreConfig struct {
	Backend string `yaml:"backend" validate:"oneof=supabase postgres sqlite"`
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table" validate:"required"`
	Migrate bool   `yaml:"migrate"`
}

// ObjectStoreConfig selects where uploaded files go.
type ObjectStoreConfig struct {
	Backend       string `yaml:"backend" validate:"oneof=supabase s3 minio"`
	Bucket        string `yaml:"bucket" validate:"required"`
	Region        string `yaml:"region"`
	PublicBaseURL string `yaml:"public_base_url" validate:"omitempty,url"`
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	UseSSL        bool   `yaml:"use_ssl"`
}

// DispatchConfig controls the worker hand-off queue.
type DispatchConfig struct {
	SQSQueueURL string `yaml:"sqs_queue_url" validate:"omitempty,url"`
	Region      string `yaml:"region"`
	Workers     int    `yaml:"workers" validate:"min=1"`
	QueueSize   int    `yaml:"queue_size" validate:"min=1"`
}

// RealtimeConfig controls the change feed.
type RealtimeConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" validate:"min=0"` // 0 disables the watcher
	Buffer       int           `yaml:"buffer" validate:"min=1"`
	Keepalive    time.Duration `yaml:"keepalive" validate:"min=0"`
}

// UploadConfig controls upload progress tracking.
type UploadConfig struct {
	ProgressRetention time.Duration `yaml:"progress_retention" validate:"min=0"`
}

// Load builds the configuration: defaults, then .env, then the YAML file at
// path (or $CLIPMASTER_CONFIG), then environment overrides. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: cannot read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: cannot parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			HealthPort:   9090,
			AllowOrigins: "*",
			BodyLimitMB:  512,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		ClipStore: ClipStoreConfig{
			Backend: "supabase",
			Table:   "clips",
		},
		ObjectStore: ObjectStoreConfig{
			Backend: "supabase",
			Bucket:  "videos",
		},
		Dispatch: DispatchConfig{Workers: 4, QueueSize: 100},
		Realtime: RealtimeConfig{
			PollInterval: 5 * time.Second,
			Buffer:       32,
			Keepalive:    25 * time.Second,
		},
		Uploads: UploadConfig{ProgressRetention: 10 * time.Minute},
	}
}

func (c *Config) applyEnvOverrides() error {
	set := func(dst *string, env string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	set(&c.Supabase.URL, supabaseURLEnv)
	set(&c.Supabase.ServiceKey, supabaseServiceKeyEnv)
	set(&c.Supabase.JWTSecret, supabaseJWTSecretEnv)
	set(&c.ClipStore.DSN, databaseDSNEnv)
	set(&c.ClipStore.Backend, clipStoreBackendEnv)
	set(&c.ObjectStore.Backend, objectBackendEnv)
	set(&c.ObjectStore.Bucket, objectBucketEnv)
	set(&c.Dispatch.SQSQueueURL, sqsQueueURLEnv)
	set(&c.Server.WorkerServiceKey, workerServiceKeyEnv)
	set(&c.Log.Level, logLevelEnv)
	if v := os.Getenv(awsRegionEnv); v != "" {
		if c.ObjectStore.Region == "" {
			c.ObjectStore.Region = v
		}
		if c.Dispatch.Region == "" {
			c.Dispatch.Region = v
		}
	}

	if v := os.Getenv(portEnv); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not a port number", portEnv, v)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks field constraints and the combinations backends need.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var problems []string
	supabaseReady := c.Supabase.URL != "" && c.Supabase.ServiceKey != ""

	if c.ClipStore.Backend == "supabase" && !supabaseReady {
		problems = append(problems, "clip_store.backend=supabase needs supabase.url and supabase.service_key")
	}
	if (c.ClipStore.Backend == "postgres" || c.ClipStore.Backend == "sqlite") && c.ClipStore.DSN == "" {
		problems = append(problems, fmt.Sprintf("clip_store.backend=%s needs clip_store.dsn", c.ClipStore.Backend))
	}
	if c.ObjectStore.Backend == "supabase" && !supabaseReady {
		problems = append(problems, "object_store.backend=supabase needs supabase.url and supabase.service_key")
	}
	if c.ObjectStore.Backend == "minio" && (c.ObjectStore.Endpoint == "" || c.ObjectStore.AccessKey == "" || c.ObjectStore.SecretKey == "") {
		problems = append(problems, "object_store.backend=minio needs endpoint, access_key and secret_key")
	}
	if c.Supabase.JWTSecret == "" && !supabaseReady {
		problems = append(problems, "identity needs supabase.jwt_secret or supabase.url with supabase.service_key")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// WithConfig stores config in context.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
