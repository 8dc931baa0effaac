// Package eks resolves a cluster's API endpoint and certificate authority
// from the orchestration control plane.
package eks

import (
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/eks"
)

// ClusterInfo is the resolved connection description of one cluster.
type ClusterInfo struct {
	Endpoint string
	CAData   []byte
}

// describeAPI is the slice of the EKS API the resolver needs.
type describeAPI interface {
	DescribeCluster(input *eks.DescribeClusterInput) (*eks.DescribeClusterOutput, error)
}

type Resolver struct {
	svc describeAPI
}

// NewResolver builds a resolver for the given region using the ambient
// AWS credential chain.
func NewResolver(region string) (*Resolver, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &Resolver{
		svc: eks.New(sess, &aws.Config{Region: aws.String(region)}),
	}, nil
}

// NewResolverWithAPI is for tests.
func NewResolverWithAPI(svc describeAPI) *Resolver {
	return &Resolver{svc: svc}
}

// Resolve describes the named cluster and returns its endpoint with the
// CA decoded from its base64 at-rest form.
func (r *Resolver) Resolve(clusterName string) (ClusterInfo, error) {
	out, err := r.svc.DescribeCluster(&eks.DescribeClusterInput{
		Name: aws.String(clusterName),
	})
	if err != nil {
		return ClusterInfo{}, fmt.Errorf("failed to describe cluster %s: %w", clusterName, err)
	}
	if out.Cluster == nil || out.Cluster.Endpoint == nil {
		return ClusterInfo{}, fmt.Errorf("cluster %s has no endpoint in its description", clusterName)
	}

	info := ClusterInfo{Endpoint: aws.StringValue(out.Cluster.Endpoint)}

	if out.Cluster.CertificateAuthority != nil && out.Cluster.CertificateAuthority.Data != nil {
		ca, err := base64.StdEncoding.DecodeString(aws.StringValue(out.Cluster.CertificateAuthority.Data))
		if err != nil {
			return ClusterInfo{}, fmt.Errorf("failed to decode CA for %s: %w", clusterName, err)
		}
		info.CAData = ca
	}

	return info, nil
}
