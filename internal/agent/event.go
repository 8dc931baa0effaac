// Package agent implements the wire framing of the external invoker: the
// inbound action event and the versioned response wrapper it expects back.
package agent

import (
	"encoding/json"
	"fmt"
	"time"
)

const messageVersion = "1.0"

// Property is one name/value pair from the inbound request body.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Content keyed by media type; only application/json is used.
type Content struct {
	Properties []Property `json:"properties"`
}

type RequestBody struct {
	Content map[string]Content `json:"content"`
}

// Event is the inbound invocation. The HTTP method is echoed back but not
// used for routing; apiPath alone selects the operation.
type Event struct {
	ActionGroup string      `json:"actionGroup"`
	APIPath     string      `json:"apiPath"`
	HTTPMethod  string      `json:"httpMethod"`
	InputText   string      `json:"inputText,omitempty"`
	RequestBody RequestBody `json:"requestBody,omitempty"`
}

// Parameters flattens the request body's property list into a map. When a
// name repeats, the last occurrence wins.
func (e *Event) Parameters() map[string]string {
	params := make(map[string]string)
	content, ok := e.RequestBody.Content["application/json"]
	if !ok {
		return params
	}
	for _, prop := range content.Properties {
		if prop.Name != "" {
			params[prop.Name] = prop.Value
		}
	}
	return params
}

// Response is the versioned wrapper the invoker consumes.
type Response struct {
	MessageVersion string       `json:"messageVersion"`
	Response       ResponseBody `json:"response"`
}

type ResponseBody struct {
	ActionGroup    string                 `json:"actionGroup"`
	APIPath        string                 `json:"apiPath"`
	HTTPMethod     string                 `json:"httpMethod"`
	HTTPStatusCode int                    `json:"httpStatusCode"`
	ResponseBody   map[string]BodyContent `json:"responseBody"`
}

type BodyContent struct {
	Body string `json:"body"`
}

// NewResponse wraps a JSON-encodable payload in the 200 response frame.
func NewResponse(event Event, payload interface{}) Response {
	body, err := json.Marshal(payload)
	if err != nil {
		// The payload is our own envelope type; failing to encode it is a
		// dispatch-level fault.
		return NewErrorResponse(event, fmt.Errorf("failed to encode response body: %w", err))
	}
	return wrap(event, 200, string(body))
}

// NewErrorResponse wraps a dispatch failure in the 500 response frame. The
// body is still a timestamped error document, not an empty shell.
func NewErrorResponse(event Event, err error) Response {
	body, _ := json.Marshal(map[string]string{
		"error":     err.Error(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	return wrap(event, 500, string(body))
}

func wrap(event Event, status int, body string) Response {
	return Response{
		MessageVersion: messageVersion,
		Response: ResponseBody{
			ActionGroup:    event.ActionGroup,
			APIPath:        event.APIPath,
			HTTPMethod:     event.HTTPMethod,
			HTTPStatusCode: status,
			ResponseBody: map[string]BodyContent{
				"application/json": {Body: body},
			},
		},
	}
}
