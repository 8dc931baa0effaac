package config

import (
	"os"
	"strings"
	"time"
)

// Config carries every environment-derived setting the gateway and the
// refresher consume. It is built once in main and passed down explicitly;
// nothing below main reads the environment.
type Config struct {
	// ClusterNames is the ordered list of clusters every operation walks.
	ClusterNames []string

	// ClusterEndpoint, when set, bypasses the control-plane description
	// call and is used as the endpoint for every configured cluster.
	// Intended for local runs and tests.
	ClusterEndpoint string

	// KubernetesToken seeds the credential store at startup. The refresher
	// replaces it out of band.
	KubernetesToken string

	AWSRegion   string
	DatabaseURL string
	APIAddress  string
	LogLevel    string

	// Refresher settings.
	SecretName      string
	SecretNamespace string
	RefreshInterval time.Duration
}

// Load reads the configuration from the environment, applying the same
// defaults for gateway and refresher.
func Load() *Config {
	cfg := &Config{
		ClusterEndpoint: os.Getenv("CLUSTER_ENDPOINT"),
		KubernetesToken: os.Getenv("KUBERNETES_TOKEN"),
		AWSRegion:       envOr("AWS_REGION", "eu-central-1"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		APIAddress:      envOr("API_ADDRESS", ":8080"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		SecretName:      envOr("SECRET_NAME", "agent-gateway-token"),
		SecretNamespace: envOr("SECRET_NAMESPACE", "kube-system"),
		RefreshInterval: 45 * time.Minute,
	}

	// CLUSTER_NAMES takes a comma-separated list; CLUSTER_NAME keeps the
	// original single-cluster form.
	if names := os.Getenv("CLUSTER_NAMES"); names != "" {
		for _, name := range strings.Split(names, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				cfg.ClusterNames = append(cfg.ClusterNames, trimmed)
			}
		}
	}
	if len(cfg.ClusterNames) == 0 {
		cfg.ClusterNames = []string{envOr("CLUSTER_NAME", "test-cluster-production")}
	}

	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RefreshInterval = d
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
