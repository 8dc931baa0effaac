package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/sre-tools/kube-action-gateway/internal/agent"
	"github.com/sre-tools/kube-action-gateway/internal/credentials"
	"github.com/sre-tools/kube-action-gateway/internal/gateway"
	"github.com/sre-tools/kube-action-gateway/internal/kubeapi"
	"github.com/sre-tools/kube-action-gateway/internal/ops"
	"github.com/sre-tools/kube-action-gateway/internal/types"
)

func newTestServer(t *testing.T, clusters []string, endpoint string) *APIServer {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	entry := logrus.NewEntry(log)

	store := credentials.NewMemoryStore()
	for _, cluster := range clusters {
		if err := store.Replace(cluster, credentials.ClusterCredential{
			APIEndpoint: endpoint,
			BearerToken: "token",
		}); err != nil {
			t.Fatalf("Failed to seed store: %v", err)
		}
	}

	clusterOps := ops.NewClusterOps(clusters, store, kubeapi.NewClient(entry), entry)
	router := gateway.NewRouter(clusterOps, entry)
	return NewAPIServer(router, store, entry)
}

func fakeCluster() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"kind":"PodList","items":[{"metadata":{"name":"api-pod","namespace":"default"},"spec":{"nodeName":"n1","containers":[]},"status":{"phase":"Running"}}]}`))
	}))
}

func invoke(t *testing.T, api *APIServer, payload []byte) agent.Response {
	t.Helper()
	req := httptest.NewRequest("POST", "/invoke", bytes.NewReader(payload))
	w := httptest.NewRecorder()

	api.handleInvoke(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected transport status 200, got %d", w.Code)
	}

	var resp agent.Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestHandleInvoke_GetPods(t *testing.T) {
	cluster := fakeCluster()
	defer cluster.Close()

	api := newTestServer(t, []string{"prod"}, cluster.URL)

	event := agent.Event{
		ActionGroup: "k8s-tools",
		APIPath:     "/get-pods",
		HTTPMethod:  "GET",
		RequestBody: agent.RequestBody{
			Content: map[string]agent.Content{
				"application/json": {Properties: []agent.Property{{Name: "namespace", Value: "default"}}},
			},
		},
	}
	payload, _ := json.Marshal(event)

	resp := invoke(t, api, payload)

	if resp.MessageVersion != "1.0" {
		t.Errorf("Expected messageVersion 1.0, got %s", resp.MessageVersion)
	}
	if resp.Response.HTTPStatusCode != 200 {
		t.Errorf("Expected embedded status 200, got %d", resp.Response.HTTPStatusCode)
	}
	if resp.Response.ActionGroup != "k8s-tools" || resp.Response.APIPath != "/get-pods" || resp.Response.HTTPMethod != "GET" {
		t.Errorf("Event fields not echoed back: %+v", resp.Response)
	}

	var envelope types.Envelope
	body := resp.Response.ResponseBody["application/json"].Body
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if len(envelope.ClustersChecked) != 1 || envelope.ClustersChecked[0] != "prod" {
		t.Errorf("Expected clusters_checked [prod], got %v", envelope.ClustersChecked)
	}
	if envelope.DataSource != types.DataSource {
		t.Errorf("Expected data_source %s, got %s", types.DataSource, envelope.DataSource)
	}
}

func TestHandleInvoke_UnknownPathStays200(t *testing.T) {
	cluster := fakeCluster()
	defer cluster.Close()

	api := newTestServer(t, []string{"prod"}, cluster.URL)

	payload := []byte(`{"actionGroup":"k8s-tools","apiPath":"/reboot-cluster","httpMethod":"POST"}`)
	resp := invoke(t, api, payload)

	if resp.Response.HTTPStatusCode != 200 {
		t.Errorf("Unknown path must not be a 500, got %d", resp.Response.HTTPStatusCode)
	}

	var envelope types.Envelope
	body := resp.Response.ResponseBody["application/json"].Body
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if envelope.Error == "" || len(envelope.AvailablePaths) == 0 {
		t.Errorf("Expected error plus available paths, got %+v", envelope)
	}
}

func TestHandleInvoke_MalformedEventIs500Frame(t *testing.T) {
	api := newTestServer(t, []string{"prod"}, "http://127.0.0.1:1")

	resp := invoke(t, api, []byte(`{"apiPath": `))

	if resp.Response.HTTPStatusCode != 500 {
		t.Errorf("Expected embedded status 500 for malformed event, got %d", resp.Response.HTTPStatusCode)
	}

	body := resp.Response.ResponseBody["application/json"].Body
	var decoded map[string]string
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if decoded["error"] == "" || decoded["timestamp"] == "" {
		t.Errorf("Expected timestamped error body, got %v", decoded)
	}
}

func TestHandleInvoke_RejectsGet(t *testing.T) {
	api := newTestServer(t, []string{"prod"}, "http://127.0.0.1:1")

	req := httptest.NewRequest("GET", "/invoke", nil)
	w := httptest.NewRecorder()

	api.handleInvoke(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	api := newTestServer(t, []string{"prod"}, "http://127.0.0.1:1")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	api.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got '%v'", response["status"])
	}
}

func TestHandleReady(t *testing.T) {
	api := newTestServer(t, []string{"prod"}, "http://127.0.0.1:1")

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	api.handleReady(w, req)

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !response["ready"].(bool) {
		t.Error("Expected ready to be true")
	}
}
