package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-go-golems/grillo/pkg/workflow/api"
)

type converseBody struct {
	Data map[string][]api.Turn `json:"data"`
}

func newConverseBody(turns []api.Turn) converseBody {
	return converseBody{Data: map[string][]api.Turn{api.DefaultChannel: turns}}
}

type pollBody struct {
	Data map[string][]api.PollTurn `json:"data"`
}

// newPollBody wraps a single poll turn; the wire format is an array of
// exactly one element.
func newPollBody(sessionID string, correlationID string) pollBody {
	return pollBody{Data: map[string][]api.PollTurn{api.DefaultChannel: {
		{SessionID: sessionID, ID: correlationID, Mode: api.ModePollRequest},
	}}}
}

type fileUploadBody struct {
	Base64FileBytes map[string]string `json:"base64FileBytes"`
}

type textUploadBody struct {
	Strings map[string]string `json:"strings"`
}

type tableUploadBody struct {
	Data map[string][]map[string]any `json:"data"`
}

// versionFor selects the version token for a workflow id: an upload cache's
// own version when the id names a configured cache, falling back to the
// general version, then "0".
func (c *Client) versionFor(workflowID string) string {
	for _, cache := range []CacheTarget{c.fileCache, c.textCache, c.tableCache} {
		if cache.WorkflowID != "" && cache.WorkflowID == workflowID {
			if cache.Version != "" {
				return cache.Version
			}
			break
		}
	}
	if c.version != "" {
		return c.version
	}
	return DefaultVersion
}

// keyFor selects the credential for a workflow id, defaulting to the primary
// key when the cache has none of its own.
func (c *Client) keyFor(workflowID string) string {
	for _, cache := range []CacheTarget{c.fileCache, c.textCache, c.tableCache} {
		if cache.WorkflowID != "" && cache.WorkflowID == workflowID {
			if cache.APIKey != "" {
				return cache.APIKey
			}
			break
		}
	}
	return c.apiKey
}

// invokeURL builds the invocation target root/resource/version/invoke with an
// optional trailing sub-path.
func (c *Client) invokeURL(workflowID string, subPath string) string {
	url := strings.TrimRight(c.baseURL, "/") + "/" + workflowID + "/" + c.versionFor(workflowID) + "/invoke"
	if subPath != "" {
		url += "/" + strings.TrimLeft(subPath, "/")
	}
	return url
}

func (c *Client) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", apiKey)
}

// doInvoke performs one invoke round-trip against workflowID and decodes the
// reply envelope. No retries happen at this layer. The returned status is the
// HTTP status of the exchange.
func (c *Client) doInvoke(ctx context.Context, workflowID string, body interface{}) (*api.Envelope, int, *api.Error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, api.StatusTransport, api.NewTransportError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.invokeURL(workflowID, ""), bytes.NewBuffer(payload))
	if err != nil {
		return nil, api.StatusTransport, api.NewTransportError(err)
	}
	c.setHeaders(httpReq, c.keyFor(workflowID))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, api.StatusTransport, api.NewTransportError(err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, api.StatusTransport, api.NewTransportError(err)
	}

	var envelope api.Envelope
	if unmarshalErr := json.Unmarshal(respBody, &envelope); unmarshalErr != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, resp.StatusCode, api.NewProtocolError(resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return nil, resp.StatusCode, api.NewProtocolError(resp.StatusCode, unmarshalErr.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, api.NewProtocolError(resp.StatusCode, envelope.Classify().ErrorText)
	}

	return &envelope, resp.StatusCode, nil
}

// Get performs a raw GET against a path below the service root and decodes
// the JSON reply.
func (c *Client) Get(ctx context.Context, path string) (map[string]interface{}, error) {
	return c.doRaw(ctx, http.MethodGet, path, nil)
}

// Post performs a raw POST against a path below the service root.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (map[string]interface{}, error) {
	return c.doRaw(ctx, http.MethodPost, path, body)
}

func (c *Client) doRaw(ctx context.Context, method string, path string, body interface{}) (map[string]interface{}, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, api.NewTransportError(err)
		}
		reader = bytes.NewBuffer(payload)
	}

	url := strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, api.NewTransportError(err)
	}
	c.setHeaders(httpReq, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, api.NewTransportError(err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, api.NewTransportError(err)
	}

	var decoded map[string]interface{}
	if len(respBody) > 0 {
		if unmarshalErr := json.Unmarshal(respBody, &decoded); unmarshalErr != nil {
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, api.NewProtocolError(resp.StatusCode, strings.TrimSpace(string(respBody)))
			}
			return nil, api.NewProtocolError(resp.StatusCode, unmarshalErr.Error())
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(respBody))
		return nil, api.NewProtocolError(resp.StatusCode, message)
	}

	return decoded, nil
}
