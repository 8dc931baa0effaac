package credentials

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is reported when no credential has been published for a
// cluster. Callers must treat the cluster as unreachable rather than
// attempting a call with an empty bearer token.
var ErrNotFound = errors.New("credential not found")

// ClusterCredential holds everything needed to call one cluster's API
// server. Credentials are replaced wholesale on refresh, never mutated
// field by field, so a reader always sees a consistent pair of endpoint
// and token.
type ClusterCredential struct {
	ClusterName string    `json:"cluster_name"`
	APIEndpoint string    `json:"api_endpoint"`
	BearerToken string    `json:"bearer_token"`
	CAData      []byte    `json:"ca_data,omitempty"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Store is the credential store shared between the gateway (reader) and
// the token refresher (writer).
type Store interface {
	Get(clusterName string) (ClusterCredential, error)
	Replace(clusterName string, cred ClusterCredential) error
}

// In-memory implementation for single-process deployments and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]ClusterCredential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds: make(map[string]ClusterCredential),
	}
}

func (s *MemoryStore) Get(clusterName string) (ClusterCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, exists := s.creds[clusterName]
	if !exists {
		return ClusterCredential{}, ErrNotFound
	}
	return cred, nil
}

func (s *MemoryStore) Replace(clusterName string, cred ClusterCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred.ClusterName = clusterName
	s.creds[clusterName] = cred
	return nil
}
