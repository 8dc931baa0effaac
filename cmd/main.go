package main

import (
	"github.com/sirupsen/logrus"

	"github.com/sre-tools/kube-action-gateway/cmd/server"
	"github.com/sre-tools/kube-action-gateway/internal/config"
	"github.com/sre-tools/kube-action-gateway/internal/credentials"
	"github.com/sre-tools/kube-action-gateway/internal/eks"
	"github.com/sre-tools/kube-action-gateway/internal/gateway"
	"github.com/sre-tools/kube-action-gateway/internal/kubeapi"
	"github.com/sre-tools/kube-action-gateway/internal/ops"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg.LogLevel)

	log.Infof("Kubernetes action gateway, clusters: %v", cfg.ClusterNames)

	// Prefer the shared Postgres store so the refresher's publishes are
	// visible across processes; fall back to in-memory for single-process
	// runs.
	var store credentials.Store
	if cfg.DatabaseURL != "" {
		pgStore, err := credentials.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			log.Errorf("Failed to connect to PostgreSQL: %v", err)
			log.Info("Falling back to in-memory credential store")
			store = credentials.NewMemoryStore()
		} else {
			log.Info("Connected to PostgreSQL credential store")
			store = pgStore
			defer pgStore.Close()
		}
	} else {
		store = credentials.NewMemoryStore()
	}

	seedCredentials(cfg, store, log)

	clusterOps := ops.NewClusterOps(cfg.ClusterNames, store, kubeapi.NewClient(log), log)
	router := gateway.NewRouter(clusterOps, log)

	api := server.NewAPIServer(router, store, log)
	log.Infof("Gateway ready, actions: %v", gateway.AvailablePaths)
	if err := api.Start(cfg.APIAddress); err != nil {
		log.Fatalf("API server failed: %v", err)
	}
}

// seedCredentials publishes the initial credential for each cluster. A
// cluster without a token or a resolvable endpoint is left out of the
// store so every operation reports it as skipped rather than calling the
// API with an empty bearer header.
func seedCredentials(cfg *config.Config, store credentials.Store, log *logrus.Entry) {
	if cfg.KubernetesToken == "" {
		log.Warn("No KUBERNETES_TOKEN configured; clusters stay skipped until the refresher publishes a token")
		return
	}

	var resolver *eks.Resolver
	if cfg.ClusterEndpoint == "" {
		var err error
		resolver, err = eks.NewResolver(cfg.AWSRegion)
		if err != nil {
			log.Errorf("Failed to build EKS resolver: %v", err)
			return
		}
	}

	for _, cluster := range cfg.ClusterNames {
		endpoint := cfg.ClusterEndpoint
		var caData []byte
		if endpoint == "" {
			info, err := resolver.Resolve(cluster)
			if err != nil {
				log.WithField("cluster", cluster).Errorf("Failed to resolve endpoint, skipping: %v", err)
				continue
			}
			endpoint = info.Endpoint
			caData = info.CAData
		}

		err := store.Replace(cluster, credentials.ClusterCredential{
			APIEndpoint: endpoint,
			BearerToken: cfg.KubernetesToken,
			CAData:      caData,
		})
		if err != nil {
			log.WithField("cluster", cluster).Errorf("Failed to seed credential: %v", err)
			continue
		}
		log.WithField("cluster", cluster).Info("Seeded credential")
	}
}

func newLogger(level string) *logrus.Entry {
	log := logrus.New()
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return logrus.NewEntry(log)
}
