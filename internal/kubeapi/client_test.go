package kubeapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sre-tools/kube-action-gateway/internal/credentials"
)

func testClient() *Client {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewClient(logrus.NewEntry(log))
}

func credFor(url string) credentials.ClusterCredential {
	return credentials.ClusterCredential{
		ClusterName: "test-cluster",
		APIEndpoint: url,
		BearerToken: "test-token",
	}
}

func TestClient_GetSendsBearerAndAccept(t *testing.T) {
	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	raw, err := testClient().Do(context.Background(), credFor(srv.URL), http.MethodGet, "/api/v1/pods", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(raw))
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
}

func TestClient_TLSVerificationSkipped(t *testing.T) {
	// Self-signed server cert; the call must still succeed.
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"kind":"PodList"}`))
	}))
	defer srv.Close()

	_, err := testClient().Do(context.Background(), credFor(srv.URL), http.MethodGet, "/api/v1/pods", nil)
	require.NoError(t, err)
}

func TestClient_NonOKStatusIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"kind":"Status","code":403}`))
	}))
	defer srv.Close()

	_, err := testClient().Do(context.Background(), credFor(srv.URL), http.MethodGet, "/api/v1/nodes", nil)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "HTTP 403")
}

func TestClient_NonJSONBodyIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not the api server</html>"))
	}))
	defer srv.Close()

	_, err := testClient().Do(context.Background(), credFor(srv.URL), http.MethodGet, "/api/v1/pods", nil)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
}

func TestClient_PostCreated(t *testing.T) {
	var gotContentType string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"kind":"Pod"}`))
	}))
	defer srv.Close()

	body := map[string]string{"kind": "Pod"}
	raw, err := testClient().Do(context.Background(), credFor(srv.URL), http.MethodPost, "/api/v1/namespaces/default/pods", body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"Pod"}`, string(raw))
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Pod", gotBody["kind"])
}

func TestClient_PostConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"kind":"Status","reason":"AlreadyExists"}`))
	}))
	defer srv.Close()

	_, err := testClient().Do(context.Background(), credFor(srv.URL), http.MethodPost, "/api/v1/namespaces/default/pods", map[string]string{})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "AlreadyExists")
}

func TestClient_TransportErrorIsNotAPIError(t *testing.T) {
	cred := credFor("http://127.0.0.1:1") // nothing listens here
	_, err := testClient().Do(context.Background(), cred, http.MethodGet, "/api/v1/pods", nil)
	require.Error(t, err)

	_, ok := err.(*APIError)
	assert.False(t, ok, "transport failures must not be APIErrors")
}
