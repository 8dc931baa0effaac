// Package ops implements the cluster operation set. Every operation walks
// the configured cluster list in order, resolves that cluster's credential,
// calls the API server and folds the outcome into one aggregate envelope.
// A failing cluster never aborts the remaining ones.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/sre-tools/kube-action-gateway/internal/credentials"
	"github.com/sre-tools/kube-action-gateway/internal/kubeapi"
	"github.com/sre-tools/kube-action-gateway/internal/types"
)

// CreatedByLabel marks pods created through the gateway.
const CreatedByLabel = "kube-action-gateway"

const (
	instanceTypeLabel       = "node.kubernetes.io/instance-type"
	legacyInstanceTypeLabel = "beta.kubernetes.io/instance-type"
	unknownValue            = "Unknown"
)

type ClusterOps struct {
	clusters []string
	store    credentials.Store
	api      *kubeapi.Client
	log      *logrus.Entry
}

func NewClusterOps(clusters []string, store credentials.Store, api *kubeapi.Client, log *logrus.Entry) *ClusterOps {
	return &ClusterOps{
		clusters: clusters,
		store:    store,
		api:      api,
		log:      log,
	}
}

// Clusters returns the configured cluster list in iteration order.
func (o *ClusterOps) Clusters() []string {
	return o.clusters
}

// credential resolves one cluster's credential. A missing credential is a
// skip, not a failure: the cluster is recorded in the envelope's skipped
// list and contributes nothing to the results.
func (o *ClusterOps) credential(cluster string, env *types.Envelope) (credentials.ClusterCredential, bool) {
	cred, err := o.store.Get(cluster)
	if err != nil {
		o.log.WithField("cluster", cluster).Warnf("No credential configured, skipping: %v", err)
		env.ClustersSkipped = append(env.ClustersSkipped, cluster)
		return credentials.ClusterCredential{}, false
	}
	return cred, true
}

// ListPods returns every pod across all clusters, flattened into one list.
// An empty namespace means all namespaces.
func (o *ClusterOps) ListPods(ctx context.Context, namespace string) types.Envelope {
	env := types.NewEnvelope(o.clusters)
	results := make([]types.PodRecord, 0)

	for _, cluster := range o.clusters {
		cred, ok := o.credential(cluster, &env)
		if !ok {
			continue
		}

		path := "/api/v1/pods"
		if namespace != "" {
			path = fmt.Sprintf("/api/v1/namespaces/%s/pods", namespace)
		}

		raw, err := o.api.Do(ctx, cred, http.MethodGet, path, nil)
		if err != nil {
			o.log.WithField("cluster", cluster).Errorf("Failed to get pods: %v", err)
			continue
		}

		var podList corev1.PodList
		if err := json.Unmarshal(raw, &podList); err != nil {
			o.log.WithField("cluster", cluster).Errorf("Failed to decode pod list: %v", err)
			continue
		}

		for _, pod := range podList.Items {
			results = append(results, projectPod(pod))
		}
	}

	env.Results = results
	return env
}

// ClusterHealth lists every cluster's namespaces and summarizes how many
// clusters could be read. It backs both /analyze-namespace and
// /get-cluster-health.
func (o *ClusterOps) ClusterHealth(ctx context.Context) types.Envelope {
	env := types.NewEnvelope(o.clusters)
	groups := make([]types.ClusterNamespaces, 0)

	for _, cluster := range o.clusters {
		cred, ok := o.credential(cluster, &env)
		if !ok {
			continue
		}

		raw, err := o.api.Do(ctx, cred, http.MethodGet, "/api/v1/namespaces", nil)
		if err != nil {
			o.log.WithField("cluster", cluster).Errorf("Failed to get namespaces: %v", err)
			continue
		}

		var nsList corev1.NamespaceList
		if err := json.Unmarshal(raw, &nsList); err != nil {
			o.log.WithField("cluster", cluster).Errorf("Failed to decode namespace list: %v", err)
			continue
		}

		namespaces := make([]types.NamespaceRecord, 0, len(nsList.Items))
		for _, ns := range nsList.Items {
			namespaces = append(namespaces, types.NamespaceRecord{
				Name:    ns.Name,
				Status:  string(ns.Status.Phase),
				Created: formatTime(ns.CreationTimestamp),
				Labels:  ns.Labels,
			})
		}

		groups = append(groups, types.ClusterNamespaces{
			ClusterName:    cluster,
			Endpoint:       cred.APIEndpoint,
			Namespaces:     namespaces,
			NamespaceCount: len(namespaces),
		})
	}

	env.Clusters = groups
	env.Summary = fmt.Sprintf("Found %d clusters with namespace information", len(groups))
	return env
}

// CheckNodes reports every node's readiness. A node is Ready iff its
// condition list contains an entry with type Ready and status True.
func (o *ClusterOps) CheckNodes(ctx context.Context) types.Envelope {
	env := types.NewEnvelope(o.clusters)
	results := make([]types.NodeRecord, 0)

	for _, cluster := range o.clusters {
		cred, ok := o.credential(cluster, &env)
		if !ok {
			continue
		}

		raw, err := o.api.Do(ctx, cred, http.MethodGet, "/api/v1/nodes", nil)
		if err != nil {
			o.log.WithField("cluster", cluster).Errorf("Failed to get nodes: %v", err)
			continue
		}

		var nodeList corev1.NodeList
		if err := json.Unmarshal(raw, &nodeList); err != nil {
			o.log.WithField("cluster", cluster).Errorf("Failed to decode node list: %v", err)
			continue
		}

		for _, node := range nodeList.Items {
			results = append(results, types.NodeRecord{
				Name:           node.Name,
				Status:         nodeStatus(node),
				KubeletVersion: node.Status.NodeInfo.KubeletVersion,
				InstanceType:   instanceType(node.Labels),
				Created:        formatTime(node.CreationTimestamp),
			})
		}
	}

	env.Results = results
	return env
}

// DescribePod fetches one pod from every cluster that has it, with the
// container list and the pod's conditions reproduced verbatim.
func (o *ClusterOps) DescribePod(ctx context.Context, name, namespace string) types.Envelope {
	env := types.NewEnvelope(o.clusters)
	results := make([]types.PodDetail, 0)

	for _, cluster := range o.clusters {
		cred, ok := o.credential(cluster, &env)
		if !ok {
			continue
		}

		path := fmt.Sprintf("/api/v1/namespaces/%s/pods/%s", namespace, name)
		raw, err := o.api.Do(ctx, cred, http.MethodGet, path, nil)
		if err != nil {
			o.log.WithField("cluster", cluster).Errorf("Failed to describe pod %s/%s: %v", namespace, name, err)
			continue
		}

		var pod corev1.Pod
		if err := json.Unmarshal(raw, &pod); err != nil {
			o.log.WithField("cluster", cluster).Errorf("Failed to decode pod: %v", err)
			continue
		}

		results = append(results, types.PodDetail{
			Cluster:    cluster,
			Name:       pod.Name,
			Namespace:  pod.Namespace,
			Status:     string(pod.Status.Phase),
			Node:       nodeName(pod),
			Created:    formatTime(pod.CreationTimestamp),
			Labels:     pod.Labels,
			Containers: projectContainers(pod.Spec.Containers),
			Conditions: pod.Status.Conditions,
		})
	}

	env.Results = results
	return env
}

// CreatePod creates a minimal pod in every cluster and reports each
// cluster's outcome individually. API failures become per-cluster failed
// entries, never errors past this boundary.
func (o *ClusterOps) CreatePod(ctx context.Context, name, image, namespace string) types.Envelope {
	env := types.NewEnvelope(o.clusters)
	results := make([]types.CreateResult, 0)

	for _, cluster := range o.clusters {
		cred, ok := o.credential(cluster, &env)
		if !ok {
			continue
		}

		manifest := podManifest(name, image, namespace)
		path := fmt.Sprintf("/api/v1/namespaces/%s/pods", namespace)

		result := types.CreateResult{
			Cluster:   cluster,
			PodName:   name,
			Namespace: namespace,
			Image:     image,
		}

		if _, err := o.api.Do(ctx, cred, http.MethodPost, path, manifest); err != nil {
			o.log.WithField("cluster", cluster).Errorf("Failed to create pod %s: %v", name, err)
			result.Status = types.CreateStatusFailed
			result.Error = err.Error()
		} else {
			result.Status = types.CreateStatusCreated
			result.Message = fmt.Sprintf("Pod %s created successfully in namespace %s", name, namespace)
		}

		results = append(results, result)
	}

	env.Results = results
	return env
}

func podManifest(name, image, namespace string) *corev1.Pod {
	return &corev1.Pod{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "Pod",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels: map[string]string{
				"created-by": CreatedByLabel,
				"app":        name,
			},
		},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{
				{
					Name:  name,
					Image: image,
					Ports: []corev1.ContainerPort{
						{ContainerPort: 80},
					},
				},
			},
			RestartPolicy: corev1.RestartPolicyAlways,
		},
	}
}

func projectPod(pod corev1.Pod) types.PodRecord {
	return types.PodRecord{
		Name:       pod.Name,
		Namespace:  pod.Namespace,
		Status:     string(pod.Status.Phase),
		Node:       nodeName(pod),
		Created:    formatTime(pod.CreationTimestamp),
		Containers: projectContainers(pod.Spec.Containers),
	}
}

func projectContainers(containers []corev1.Container) []types.ContainerRecord {
	records := make([]types.ContainerRecord, 0, len(containers))
	for _, c := range containers {
		records = append(records, types.ContainerRecord{
			Name:  c.Name,
			Image: c.Image,
			Ports: c.Ports,
		})
	}
	return records
}

func nodeName(pod corev1.Pod) string {
	if pod.Spec.NodeName == "" {
		return unknownValue
	}
	return pod.Spec.NodeName
}

// nodeStatus derives Ready/NotReady from the condition list. Only the
// Ready condition type counts; pressure conditions are ignored.
func nodeStatus(node corev1.Node) string {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady && cond.Status == corev1.ConditionTrue {
			return "Ready"
		}
	}
	return "NotReady"
}

func instanceType(labels map[string]string) string {
	if t, ok := labels[instanceTypeLabel]; ok {
		return t
	}
	if t, ok := labels[legacyInstanceTypeLabel]; ok {
		return t
	}
	return unknownValue
}

func formatTime(t metav1.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
