package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile       = ".env"
	defaultPort          = "8080"
	defaultReadTimeout   = 15 * time.Second
	defaultWriteTimeout  = 30 * time.Second
	defaultIdleTimeout   = 120 * time.Second
	defaultDBDriver      = "sqlite"
	defaultDBDSN         = "file:ordering.db?_fk=1"
	defaultVisionModel   = "gemini-2.0-flash"
	defaultTTSVoice      = "cmn-TW-Wavenet-A"
	defaultVoiceBucket   = "ordering-helper-voice-files"
	defaultBucketRegion  = "asia-east1"
	defaultVoiceDir      = "/tmp/voices"
	defaultVoiceMaxAge   = 60 * time.Minute
	defaultOIDCJWKSURL   = "https://www.googleapis.com/oauth2/v3/certs"
	defaultOIDCIssuer    = "https://accounts.google.com"
	defaultMemoryBudget  = 400 << 20
	defaultOCRTimeout    = 240 * time.Second
	defaultEventsTopicID = "order-events"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Vision      VisionConfig
	Translation TranslationConfig
	TTS         TTSConfig
	Line        LineConfig
	Storage     StorageConfig
	Tasks       TasksConfig
	Events      EventsConfig
	Security    SecurityConfig
	CORS        CORSConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig selects the relational backend.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// VisionConfig configures the menu OCR model.
type VisionConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// TranslationConfig configures the translation backend.
type TranslationConfig struct {
	APIKey string
}

// TTSConfig configures Mandarin speech synthesis.
type TTSConfig struct {
	Voice             string
	CredentialsFile   string
	MemoryBudgetBytes uint64
}

// LineConfig holds LINE Messaging API credentials.
type LineConfig struct {
	ChannelAccessToken string
	ChannelSecret      string
}

// StorageConfig covers the voice file scratch directory and its GCS mirror.
type StorageConfig struct {
	BucketName  string
	Region      string
	VoiceDir    string
	VoiceMaxAge time.Duration
}

// TasksConfig configures Cloud Tasks dispatch of order processing.
type TasksConfig struct {
	ProjectID             string
	Location              string
	Queue                 string
	InvokerServiceAccount string
	ServiceURL            string
}

// EventsConfig configures best-effort order lifecycle events.
type EventsConfig struct {
	ProjectID string
	TopicID   string
}

// SecurityConfig groups server-to-server authentication settings.
type SecurityConfig struct {
	OIDC OIDCConfig
}

// OIDCConfig controls Google-signed token verification on internal routes.
type OIDCConfig struct {
	JWKSURL      string
	Audience     string
	Issuers      []string
	InvokerEmail string
}

// CORSConfig controls browser origins admitted by the edge.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom secret resolver used for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "PORT", defaultPort),
			BaseURL:      strings.TrimRight(stringWithDefault(lookup, "BASE_URL", ""), "/"),
			ReadTimeout:  durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(stringWithDefault(lookup, "DB_DRIVER", defaultDBDriver)),
			DSN:    stringWithDefault(lookup, "DB_DSN", ""),
		},
		Vision: VisionConfig{
			APIKey:  stringWithDefault(lookup, "VISION_API_KEY", ""),
			Model:   stringWithDefault(lookup, "VISION_MODEL", defaultVisionModel),
			Timeout: durationWithDefault(lookup, "VISION_TIMEOUT", defaultOCRTimeout),
		},
		Translation: TranslationConfig{
			APIKey: stringWithDefault(lookup, "TRANSLATION_API_KEY", ""),
		},
		TTS: TTSConfig{
			Voice:             stringWithDefault(lookup, "TTS_VOICE", defaultTTSVoice),
			CredentialsFile:   stringWithDefault(lookup, "TTS_CREDENTIALS_FILE", ""),
			MemoryBudgetBytes: uint64(intWithDefault(lookup, "MEMORY_BUDGET_BYTES", defaultMemoryBudget)),
		},
		Line: LineConfig{
			ChannelAccessToken: stringWithDefault(lookup, "LINE_CHANNEL_ACCESS_TOKEN", ""),
			ChannelSecret:      stringWithDefault(lookup, "LINE_CHANNEL_SECRET", ""),
		},
		Storage: StorageConfig{
			BucketName:  stringWithDefault(lookup, "GCS_BUCKET_NAME", defaultVoiceBucket),
			Region:      stringWithDefault(lookup, "GCS_REGION", defaultBucketRegion),
			VoiceDir:    stringWithDefault(lookup, "VOICE_DIR", defaultVoiceDir),
			VoiceMaxAge: durationWithDefault(lookup, "VOICE_MAX_AGE", defaultVoiceMaxAge),
		},
		Tasks: TasksConfig{
			ProjectID:             stringWithDefault(lookup, "TASKS_PROJECT_ID", ""),
			Location:              stringWithDefault(lookup, "TASKS_LOCATION", ""),
			Queue:                 stringWithDefault(lookup, "TASKS_QUEUE", ""),
			InvokerServiceAccount: stringWithDefault(lookup, "TASKS_INVOKER_SERVICE_ACCOUNT", ""),
			ServiceURL:            strings.TrimRight(stringWithDefault(lookup, "CLOUD_RUN_SERVICE_URL", ""), "/"),
		},
		Events: EventsConfig{
			ProjectID: stringWithDefault(lookup, "EVENTS_PROJECT_ID", ""),
			TopicID:   stringWithDefault(lookup, "EVENTS_TOPIC_ID", defaultEventsTopicID),
		},
		Security: SecurityConfig{
			OIDC: OIDCConfig{
				JWKSURL:      stringWithDefault(lookup, "OIDC_JWKS_URL", defaultOIDCJWKSURL),
				Audience:     stringWithDefault(lookup, "OIDC_AUDIENCE", ""),
				Issuers:      csvWithDefault(lookup, "OIDC_ISSUERS"),
				InvokerEmail: stringWithDefault(lookup, "TASKS_INVOKER_SERVICE_ACCOUNT", ""),
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: csvWithDefault(lookup, "CORS_ALLOWED_ORIGINS"),
		},
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = assembleDSN(lookup, cfg.Database.Driver)
	}
	if cfg.Security.OIDC.Audience == "" {
		cfg.Security.OIDC.Audience = cfg.Tasks.ServiceURL
	}
	if len(cfg.Security.OIDC.Issuers) == 0 {
		cfg.Security.OIDC.Issuers = []string{defaultOIDCIssuer}
	}

	// Resolve secrets when values reference Secret Manager.
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Vision.APIKey", &cfg.Vision.APIKey},
		{"Translation.APIKey", &cfg.Translation.APIKey},
		{"Line.ChannelAccessToken", &cfg.Line.ChannelAccessToken},
		{"Line.ChannelSecret", &cfg.Line.ChannelSecret},
	}
	for _, target := range secretFields {
		resolved, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// assembleDSN builds a connection string from the discrete DB_* variables when
// DB_DSN is not given.
func assembleDSN(lookup func(string) (string, bool), driver string) string {
	host := stringWithDefault(lookup, "DB_HOST", "")
	if driver == "sqlite" || driver == "sqlite3" || host == "" {
		return defaultDBDSN
	}
	port := stringWithDefault(lookup, "DB_PORT", "5432")
	user := stringWithDefault(lookup, "DB_USER", "")
	password := stringWithDefault(lookup, "DB_PASSWORD", "")
	name := stringWithDefault(lookup, "DB_NAME", "")
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, name)
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" {
		return value, nil
	}
	if !isSecretReference(value) {
		return value, nil
	}
	if resolver == nil {
		normalized := normalizeSecretReference(value)
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	normalized := normalizeSecretReference(value)
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Database.Driver == "" {
		missing = append(missing, "Database.Driver")
	}
	if cfg.Database.DSN == "" {
		missing = append(missing, "Database.DSN")
	}
	if cfg.Storage.BucketName == "" {
		missing = append(missing, "Storage.BucketName")
	}
	if cfg.Storage.VoiceDir == "" {
		missing = append(missing, "Storage.VoiceDir")
	}
	if cfg.Storage.VoiceMaxAge <= 0 {
		missing = append(missing, "Storage.VoiceMaxAge")
	}
	if cfg.Vision.Timeout <= 0 {
		missing = append(missing, "Vision.Timeout")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
