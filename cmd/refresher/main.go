// The refresher keeps the gateway's credential store stocked with a live
// service-account token. It runs on its own schedule, independent of
// gateway invocations.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/sre-tools/kube-action-gateway/internal/config"
	"github.com/sre-tools/kube-action-gateway/internal/credentials"
	"github.com/sre-tools/kube-action-gateway/internal/eks"
	"github.com/sre-tools/kube-action-gateway/internal/kubeapi"
	"github.com/sre-tools/kube-action-gateway/internal/refresh"
)

func main() {
	once := flag.Bool("once", false, "run a single refresh cycle and exit (for external schedulers)")
	kubeconfig := flag.String("kubeconfig", "", "refresh from a local kubeconfig context instead of AWS; empty value with the flag set means ~/.kube/config")
	local := flag.Bool("local", false, "use the kubeconfig mode even without an explicit -kubeconfig path")
	flag.Parse()

	cfg := config.Load()

	log := logrus.New()
	if parsed, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(parsed)
	}
	entry := logrus.NewEntry(log)

	if cfg.DatabaseURL == "" {
		entry.Fatal("DATABASE_URL is required: the refresher publishes credentials through the shared store")
	}
	store, err := credentials.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		entry.Fatalf("Failed to connect to credential store: %v", err)
	}
	defer store.Close()

	var resolver refresh.EndpointResolver
	var tokens refresh.TokenSource
	if *local || *kubeconfig != "" {
		src, err := refresh.NewKubeconfigSource(*kubeconfig)
		if err != nil {
			entry.Fatalf("Failed to load kubeconfig: %v", err)
		}
		resolver, tokens = src, src
		entry.Info("Using local kubeconfig mode")
	} else {
		eksResolver, err := eks.NewResolver(cfg.AWSRegion)
		if err != nil {
			entry.Fatalf("Failed to build EKS resolver: %v", err)
		}
		resolver = eksResolver
		tokens = &refresh.IAMTokenSource{Region: cfg.AWSRegion}
	}

	refresher := refresh.NewRefresher(
		cfg.ClusterNames,
		resolver,
		tokens,
		kubeapi.NewClient(entry),
		store,
		cfg.SecretNamespace,
		cfg.SecretName,
		entry,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := refresher.RefreshAll(ctx); err != nil {
			entry.Fatalf("Refresh cycle failed: %v", err)
		}
		return
	}

	entry.Infof("Refreshing every %s", cfg.RefreshInterval)
	refresher.Run(ctx, cfg.RefreshInterval)
}
