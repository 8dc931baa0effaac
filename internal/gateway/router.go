// Package gateway routes an already-parsed action identifier with its flat
// parameter map to one of the cluster operations.
package gateway

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sre-tools/kube-action-gateway/internal/ops"
	"github.com/sre-tools/kube-action-gateway/internal/types"
)

// Recognized action identifiers, in the order they are advertised to a
// caller that sends an unknown one.
const (
	PathGetPods          = "/get-pods"
	PathAnalyzeNamespace = "/analyze-namespace"
	PathClusterHealth    = "/get-cluster-health"
	PathCheckNodes       = "/check-nodes"
	PathDescribePod      = "/describe-pod"
	PathCreatePod        = "/create-pod"
)

// AvailablePaths lists every action the router understands.
var AvailablePaths = []string{
	PathGetPods,
	PathAnalyzeNamespace,
	PathClusterHealth,
	PathCheckNodes,
	PathDescribePod,
	PathCreatePod,
}

type Router struct {
	ops *ops.ClusterOps
	log *logrus.Entry
}

func NewRouter(clusterOps *ops.ClusterOps, log *logrus.Entry) *Router {
	return &Router{
		ops: clusterOps,
		log: log,
	}
}

// Route dispatches one action and always returns a well-formed envelope.
// Unknown actions and missing required parameters are reported inside the
// envelope, not as failures, so the caller can self-correct.
func (r *Router) Route(ctx context.Context, apiPath string, params map[string]string) types.Envelope {
	r.log.WithField("api_path", apiPath).Infof("Routing action with %d parameters", len(params))

	switch apiPath {
	case PathGetPods:
		return r.ops.ListPods(ctx, params["namespace"])

	case PathAnalyzeNamespace, PathClusterHealth:
		// The namespace parameter is accepted on /analyze-namespace but
		// the namespace listing itself does not use it.
		return r.ops.ClusterHealth(ctx)

	case PathCheckNodes:
		return r.ops.CheckNodes(ctx)

	case PathDescribePod:
		name := params["pod_name"]
		if name == "" {
			env := types.NewEnvelope(r.ops.Clusters())
			env.Error = "pod_name parameter is required for /describe-pod"
			return env
		}
		return r.ops.DescribePod(ctx, name, paramOr(params, "namespace", "default"))

	case PathCreatePod:
		return r.ops.CreatePod(ctx,
			paramOr(params, "name", "test-pod"),
			paramOr(params, "image", "nginx"),
			paramOr(params, "namespace", "default"),
		)

	default:
		r.log.Warnf("Unknown API path: %s", apiPath)
		env := types.NewEnvelope(nil)
		env.Error = fmt.Sprintf("Unknown API path: %s", apiPath)
		env.AvailablePaths = AvailablePaths
		return env
	}
}

func paramOr(params map[string]string, key, fallback string) string {
	if v, ok := params[key]; ok && v != "" {
		return v
	}
	return fallback
}
