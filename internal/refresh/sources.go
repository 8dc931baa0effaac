package refresh

import (
	"fmt"
	"path/filepath"

	"github.com/u2takey/go-utils/filesystem/homedir"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/aws-iam-authenticator/pkg/token"

	"github.com/sre-tools/kube-action-gateway/internal/eks"
)

// IAMTokenSource generates operator tokens from the ambient AWS identity,
// the same way kubectl does for EKS clusters.
type IAMTokenSource struct {
	Region string
}

func (s *IAMTokenSource) OperatorToken(clusterName string) (string, error) {
	gen, err := token.NewGenerator(true, false)
	if err != nil {
		return "", fmt.Errorf("failed to create token generator: %w", err)
	}

	tok, err := gen.GetWithOptions(&token.GetTokenOptions{
		ClusterID: clusterName,
		Region:    s.Region,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate token for %s: %w", clusterName, err)
	}
	return tok.Token, nil
}

// KubeconfigSource serves both the endpoint and the operator token from a
// local kubeconfig context, for running the refresher outside AWS against
// a cluster the operator is already logged into.
type KubeconfigSource struct {
	host        string
	caData      []byte
	bearerToken string
}

// NewKubeconfigSource loads the kubeconfig at path, defaulting to
// ~/.kube/config when path is empty.
func NewKubeconfigSource(path string) (*KubeconfigSource, error) {
	if path == "" {
		home := homedir.HomeDir()
		if home == "" {
			return nil, fmt.Errorf("no kubeconfig path given and home directory not found")
		}
		path = filepath.Join(home, ".kube", "config")
	}

	cfg, err := clientcmd.BuildConfigFromFlags("", path)
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig %s: %w", path, err)
	}
	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("kubeconfig context for %s carries no bearer token", cfg.Host)
	}

	return &KubeconfigSource{
		host:        cfg.Host,
		caData:      cfg.TLSClientConfig.CAData,
		bearerToken: cfg.BearerToken,
	}, nil
}

func (s *KubeconfigSource) Resolve(clusterName string) (eks.ClusterInfo, error) {
	return eks.ClusterInfo{Endpoint: s.host, CAData: s.caData}, nil
}

func (s *KubeconfigSource) OperatorToken(clusterName string) (string, error) {
	return s.bearerToken, nil
}
