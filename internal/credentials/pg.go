package credentials

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore persists credentials in a single table so the refresher
// (a separate process) can publish a new token and concurrently running
// gateway invocations pick it up on their next read. The row is written
// in one UPSERT, which is what makes Replace atomic for readers.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cluster_credentials (
		cluster_name TEXT PRIMARY KEY,
		api_endpoint TEXT NOT NULL,
		bearer_token TEXT NOT NULL,
		ca_data BYTEA,
		refreshed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *PostgresStore) Get(clusterName string) (ClusterCredential, error) {
	var cred ClusterCredential
	var refreshedAt time.Time

	row := s.db.QueryRow(
		`SELECT cluster_name, api_endpoint, bearer_token, ca_data, refreshed_at
		 FROM cluster_credentials WHERE cluster_name = $1`,
		clusterName,
	)
	err := row.Scan(&cred.ClusterName, &cred.APIEndpoint, &cred.BearerToken, &cred.CAData, &refreshedAt)
	if err == sql.ErrNoRows {
		return ClusterCredential{}, ErrNotFound
	}
	if err != nil {
		return ClusterCredential{}, fmt.Errorf("failed to read credential for %s: %w", clusterName, err)
	}

	cred.RefreshedAt = refreshedAt
	return cred, nil
}

func (s *PostgresStore) Replace(clusterName string, cred ClusterCredential) error {
	refreshedAt := cred.RefreshedAt
	if refreshedAt.IsZero() {
		refreshedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO cluster_credentials (cluster_name, api_endpoint, bearer_token, ca_data, refreshed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (cluster_name) DO UPDATE SET
			api_endpoint = EXCLUDED.api_endpoint,
			bearer_token = EXCLUDED.bearer_token,
			ca_data = EXCLUDED.ca_data,
			refreshed_at = EXCLUDED.refreshed_at`,
		clusterName, cred.APIEndpoint, cred.BearerToken, cred.CAData, refreshedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store credential for %s: %w", clusterName, err)
	}
	return nil
}

func (s *PostgresStore) Ping() error {
	return s.db.Ping()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
