package agent

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_Parameters(t *testing.T) {
	event := Event{
		RequestBody: RequestBody{
			Content: map[string]Content{
				"application/json": {
					Properties: []Property{
						{Name: "namespace", Value: "default"},
						{Name: "name", Value: "web"},
					},
				},
			},
		},
	}

	params := event.Parameters()
	assert.Equal(t, map[string]string{"namespace": "default", "name": "web"}, params)
}

func TestEvent_ParametersLastDuplicateWins(t *testing.T) {
	event := Event{
		RequestBody: RequestBody{
			Content: map[string]Content{
				"application/json": {
					Properties: []Property{
						{Name: "namespace", Value: "default"},
						{Name: "namespace", Value: "kube-system"},
					},
				},
			},
		},
	}

	assert.Equal(t, "kube-system", event.Parameters()["namespace"])
}

func TestEvent_ParametersEmptyBody(t *testing.T) {
	event := Event{}
	assert.Empty(t, event.Parameters())
}

func TestNewResponse(t *testing.T) {
	event := Event{ActionGroup: "k8s-tools", APIPath: "/get-pods", HTTPMethod: "GET"}

	resp := NewResponse(event, map[string]string{"summary": "ok"})

	assert.Equal(t, "1.0", resp.MessageVersion)
	assert.Equal(t, "k8s-tools", resp.Response.ActionGroup)
	assert.Equal(t, "/get-pods", resp.Response.APIPath)
	assert.Equal(t, "GET", resp.Response.HTTPMethod)
	assert.Equal(t, 200, resp.Response.HTTPStatusCode)

	body := resp.Response.ResponseBody["application/json"].Body
	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	assert.Equal(t, "ok", decoded["summary"])
}

func TestNewErrorResponse(t *testing.T) {
	event := Event{ActionGroup: "k8s-tools", APIPath: "/get-pods"}

	resp := NewErrorResponse(event, errors.New("malformed event"))

	assert.Equal(t, 500, resp.Response.HTTPStatusCode)

	body := resp.Response.ResponseBody["application/json"].Body
	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	assert.Equal(t, "malformed event", decoded["error"])
	assert.NotEmpty(t, decoded["timestamp"])
}
