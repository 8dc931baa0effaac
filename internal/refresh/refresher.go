// Package refresh keeps the gateway's bearer credentials valid. On each
// cycle it authenticates to the cluster's control plane as a privileged
// operator, reads the designated service-account secret and republishes
// the decoded token into the credential store the gateway reads from.
package refresh

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sre-tools/kube-action-gateway/internal/credentials"
	"github.com/sre-tools/kube-action-gateway/internal/eks"
	"github.com/sre-tools/kube-action-gateway/internal/kubeapi"
)

// EndpointResolver resolves a cluster name to its connection description.
type EndpointResolver interface {
	Resolve(clusterName string) (eks.ClusterInfo, error)
}

// TokenSource produces the short-lived operator token used to read the
// service-account secret. It is not the token that gets published.
type TokenSource interface {
	OperatorToken(clusterName string) (string, error)
}

type Refresher struct {
	clusters []string
	resolver EndpointResolver
	tokens   TokenSource
	api      *kubeapi.Client
	store    credentials.Store
	secretns string
	secret   string
	log      *logrus.Entry
}

func NewRefresher(clusters []string, resolver EndpointResolver, tokens TokenSource, api *kubeapi.Client, store credentials.Store, secretNamespace, secretName string, log *logrus.Entry) *Refresher {
	return &Refresher{
		clusters: clusters,
		resolver: resolver,
		tokens:   tokens,
		api:      api,
		store:    store,
		secretns: secretNamespace,
		secret:   secretName,
		log:      log,
	}
}

// secretObject is the slice of the Secret wire format the refresher reads.
// Data values stay in their base64 at-rest encoding at this layer; the
// decode below is the explicit step.
type secretObject struct {
	Data map[string]string `json:"data"`
}

// RefreshCluster obtains and publishes a fresh credential for one cluster.
// On failure the previously published credential stays in effect.
func (r *Refresher) RefreshCluster(ctx context.Context, cluster string) error {
	log := r.log.WithField("cluster", cluster)

	info, err := r.resolver.Resolve(cluster)
	if err != nil {
		return fmt.Errorf("endpoint resolution failed: %w", err)
	}

	operatorToken, err := r.tokens.OperatorToken(cluster)
	if err != nil {
		return fmt.Errorf("operator authentication failed: %w", err)
	}

	// Read the service-account secret with the operator credential.
	operatorCred := credentials.ClusterCredential{
		ClusterName: cluster,
		APIEndpoint: info.Endpoint,
		BearerToken: operatorToken,
		CAData:      info.CAData,
	}
	path := fmt.Sprintf("/api/v1/namespaces/%s/secrets/%s", r.secretns, r.secret)
	raw, err := r.api.Do(ctx, operatorCred, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("failed to read secret %s/%s: %w", r.secretns, r.secret, err)
	}

	var secret secretObject
	if err := json.Unmarshal(raw, &secret); err != nil {
		return fmt.Errorf("failed to decode secret: %w", err)
	}

	encoded, ok := secret.Data["token"]
	if !ok || encoded == "" {
		return fmt.Errorf("secret %s/%s has no token key", r.secretns, r.secret)
	}
	token, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode token: %w", err)
	}

	log.Infof("Retrieved token (length: %d characters)", len(token))

	cred := credentials.ClusterCredential{
		ClusterName: cluster,
		APIEndpoint: info.Endpoint,
		BearerToken: string(token),
		CAData:      info.CAData,
		RefreshedAt: time.Now().UTC(),
	}
	if err := r.store.Replace(cluster, cred); err != nil {
		return fmt.Errorf("failed to publish credential: %w", err)
	}

	log.Info("Credential refreshed")
	return nil
}

// RefreshAll runs one refresh cycle over every cluster. A cluster failure
// is logged and does not stop the others; the returned error reports how
// many clusters failed this cycle.
func (r *Refresher) RefreshAll(ctx context.Context) error {
	failed := 0
	for _, cluster := range r.clusters {
		if err := r.RefreshCluster(ctx, cluster); err != nil {
			r.log.WithField("cluster", cluster).Errorf("Refresh failed: %v", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d clusters failed to refresh", failed, len(r.clusters))
	}
	return nil
}

// Run refreshes on a fixed interval until the context is cancelled. One
// cycle runs immediately so the store never starts a full interval stale.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) {
	if err := r.RefreshAll(ctx); err != nil {
		r.log.Errorf("Initial refresh cycle: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RefreshAll(ctx); err != nil {
				r.log.Errorf("Refresh cycle: %v", err)
			}
		}
	}
}
