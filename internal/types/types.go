package types

import (
	"time"

	corev1 "k8s.io/api/core/v1"
)

// DataSource tags every envelope with where the results came from.
const DataSource = "kubernetes_api"

// ContainerRecord is the projection of a declared container in a pod spec.
type ContainerRecord struct {
	Name  string                 `json:"name"`
	Image string                 `json:"image"`
	Ports []corev1.ContainerPort `json:"ports,omitempty"`
}

// PodRecord is the flat projection of a pod returned by list operations.
type PodRecord struct {
	Name       string            `json:"name"`
	Namespace  string            `json:"namespace"`
	Status     string            `json:"status"`
	Node       string            `json:"node"`
	Created    string            `json:"created"`
	Containers []ContainerRecord `json:"containers,omitempty"`
}

// PodDetail carries everything /describe-pod reports for one cluster,
// including the pod's condition list verbatim.
type PodDetail struct {
	Cluster    string                `json:"cluster"`
	Name       string                `json:"name"`
	Namespace  string                `json:"namespace"`
	Status     string                `json:"status"`
	Node       string                `json:"node"`
	Created    string                `json:"created"`
	Labels     map[string]string     `json:"labels,omitempty"`
	Containers []ContainerRecord     `json:"containers"`
	Conditions []corev1.PodCondition `json:"conditions"`
}

// NamespaceRecord is the flat projection of a namespace.
type NamespaceRecord struct {
	Name    string            `json:"name"`
	Status  string            `json:"status"`
	Created string            `json:"created"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// ClusterNamespaces groups one cluster's namespaces for the health views.
type ClusterNamespaces struct {
	ClusterName    string            `json:"cluster_name"`
	Endpoint       string            `json:"endpoint"`
	Namespaces     []NamespaceRecord `json:"namespaces"`
	NamespaceCount int               `json:"namespace_count"`
}

// NodeRecord is the flat projection of a node with its derived readiness.
type NodeRecord struct {
	Name           string `json:"name"`
	Status         string `json:"status"`
	KubeletVersion string `json:"kubelet_version"`
	InstanceType   string `json:"instance_type"`
	Created        string `json:"created"`
}

// CreateResult is one cluster's outcome of /create-pod.
type CreateResult struct {
	Cluster   string `json:"cluster"`
	PodName   string `json:"pod_name"`
	Namespace string `json:"namespace"`
	Image     string `json:"image"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

const (
	CreateStatusCreated = "created"
	CreateStatusFailed  = "failed"
)

// Envelope is the uniform response wrapper for every operation. Failures are
// carried in the Error field of a fully populated envelope rather than a
// separate error type, so callers always consume the same shape. Clusters
// skipped for lack of a credential are listed in ClustersSkipped while still
// appearing in ClustersChecked.
type Envelope struct {
	Timestamp       string              `json:"timestamp"`
	ClustersChecked []string            `json:"clusters_checked,omitempty"`
	ClustersSkipped []string            `json:"clusters_skipped,omitempty"`
	DataSource      string              `json:"data_source,omitempty"`
	Results         interface{}         `json:"results,omitempty"`
	Clusters        []ClusterNamespaces `json:"clusters,omitempty"`
	Summary         string              `json:"summary,omitempty"`
	Error           string              `json:"error,omitempty"`
	AvailablePaths  []string            `json:"available_paths,omitempty"`
}

// NewEnvelope stamps an envelope for the given cluster list.
func NewEnvelope(clusters []string) Envelope {
	return Envelope{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		ClustersChecked: clusters,
		DataSource:      DataSource,
	}
}
