// Package config loads Repository Worker configuration with precedence:
// compiled defaults, overlaid by environment variables, overlaid by an
// optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Upstream holds per-upstream credentials and dispatch info for the
// Upstream Client.
type Upstream struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	AuthType string `yaml:"auth_type"` // none | basic | bearer-static
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Token    string `yaml:"token"`
}

// Config is the fully resolved Process Supervisor configuration.
type Config struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`

	S3Endpoint  string `yaml:"s3_endpoint"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
	S3UseSSL    bool   `yaml:"s3_use_ssl"`

	AuthEnabled   bool   `yaml:"auth_enabled"`
	AnonymousPull bool   `yaml:"anonymous_pull"`
	JWTSecretKey  string `yaml:"jwt_secret_key"`

	// CacheMaxSizeGB is parsed and carried but not enforced; see DESIGN.md
	// Open Question (iii).
	CacheMaxSizeGB      float64  `yaml:"cache_max_size_gb"`
	MutableTagPatterns  []string `yaml:"mutable_tag_patterns"`

	Upstreams map[string]Upstream `yaml:"upstreams"`

	// RedisAddr, when set, backs the Cache Controller's single-flight
	// de-duplication with a distributed lock instead of an in-process
	// singleflight.Group.
	RedisAddr string `yaml:"redis_addr"`

	MetricsPath string `yaml:"metrics_path"`
}

func defaults() *Config {
	return &Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		Port:               getEnv("PORT", "5000"),
		S3Endpoint:         getEnv("S3_ENDPOINT", "localhost:9000"),
		S3Bucket:           getEnv("S3_BUCKET", "repo-worker"),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:        getEnv("S3_SECRET_KEY", "minioadmin"),
		S3UseSSL:           getEnvBool("S3_USE_SSL", false),
		AuthEnabled:        getEnvBool("AUTH_ENABLED", false),
		AnonymousPull:      getEnvBool("ANONYMOUS_PULL", true),
		JWTSecretKey:       getEnv("JWT_SECRET_KEY", "dev-secret-key-change-me"),
		CacheMaxSizeGB:     getEnvFloat("CACHE_MAX_SIZE_GB", 0),
		MutableTagPatterns: getEnvList("MUTABLE_TAG_PATTERNS", []string{"latest", "*nightly*"}),
		Upstreams:          builtinUpstreams(),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		MetricsPath:        getEnv("METRICS_PATH", "/metrics"),
	}
}

// builtinUpstreams registers the four upstreams spec.md §6 requires at
// startup with no credentials, plus whatever UPSTREAM_<name>_* variables
// the environment additionally defines.
func builtinUpstreams() map[string]Upstream {
	ups := map[string]Upstream{
		"dockerhub": {Name: "dockerhub", URL: "https://registry-1.docker.io", AuthType: "none"},
		"ghcr":      {Name: "ghcr", URL: "https://ghcr.io", AuthType: "none"},
		"quay":      {Name: "quay", URL: "https://quay.io", AuthType: "none"},
		"gcr":       {Name: "gcr", URL: "https://gcr.io", AuthType: "none"},
	}
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 || !strings.HasPrefix(parts[0], "UPSTREAM_") {
			continue
		}
		rest := strings.TrimPrefix(parts[0], "UPSTREAM_")
		segs := strings.SplitN(rest, "_", 2)
		if len(segs) != 2 {
			continue
		}
		name := strings.ToLower(segs[0])
		field := segs[1]
		u := ups[name]
		u.Name = name
		switch field {
		case "URL":
			u.URL = parts[1]
		case "AUTH_TYPE":
			u.AuthType = parts[1]
		case "USERNAME":
			u.Username = parts[1]
		case "PASSWORD":
			u.Password = parts[1]
		case "TOKEN":
			u.Token = parts[1]
		default:
			continue
		}
		ups[name] = u
	}
	return ups
}

// Load resolves configuration: defaults overlaid by the environment
// (already applied in defaults()), then overlaid by the YAML file at
// path, if it exists. An empty path or a missing file is not an error.
func Load(yamlPath string) (*Config, error) {
	cfg := defaults()
	if yamlPath == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(yamlPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", yamlPath, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", yamlPath, err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true" || value == "1"
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
