package workflow

import (
	"context"
	"encoding/base64"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/grillo/pkg/workflow/api"
)

// UploadFile uploads raw file bytes to the file upload cache and returns the
// asset id a later turn can reference.
func (c *Client) UploadFile(ctx context.Context, content []byte) (*api.UploadResult, error) {
	if len(content) == 0 {
		return nil, api.NewValidationError("File content is required")
	}
	return c.UploadFileBase64(ctx, base64.StdEncoding.EncodeToString(content))
}

// UploadFileBase64 uploads an already-encoded file, passing the string
// through verbatim.
func (c *Client) UploadFileBase64(ctx context.Context, encoded string) (*api.UploadResult, error) {
	if encoded == "" {
		return nil, api.NewValidationError("File content is required")
	}
	if c.fileCache.WorkflowID == "" {
		return nil, api.NewValidationError("No file upload cache workflow configured")
	}
	body := fileUploadBody{Base64FileBytes: map[string]string{api.DefaultChannel: encoded}}
	return c.upload(ctx, c.fileCache.WorkflowID, body)
}

// UploadText uploads a text snippet to the text upload cache.
func (c *Client) UploadText(ctx context.Context, text string) (*api.UploadResult, error) {
	if text == "" {
		return nil, api.NewValidationError("Text content is required")
	}
	if c.textCache.WorkflowID == "" {
		return nil, api.NewValidationError("No text upload cache workflow configured")
	}
	body := textUploadBody{Strings: map[string]string{api.DefaultChannel: text}}
	return c.upload(ctx, c.textCache.WorkflowID, body)
}

// UploadTable uploads tabular data as an array of row objects.
func (c *Client) UploadTable(ctx context.Context, rows []map[string]any) (*api.UploadResult, error) {
	if len(rows) == 0 {
		return nil, api.NewValidationError("Table rows are required")
	}
	if c.tableCache.WorkflowID == "" {
		return nil, api.NewValidationError("No table upload cache workflow configured")
	}
	body := tableUploadBody{Data: map[string][]map[string]any{api.DefaultChannel: rows}}
	return c.upload(ctx, c.tableCache.WorkflowID, body)
}

func (c *Client) upload(ctx context.Context, cacheWorkflowID string, body interface{}) (*api.UploadResult, error) {
	envelope, status, err := c.doInvoke(ctx, cacheWorkflowID, body)
	if err != nil {
		return nil, err
	}

	assetID, ok := envelope.AssetID()
	if !ok {
		return nil, api.NewProtocolError(status, "No assetId in upload response")
	}

	log.Debug().
		Str("cache_workflow_id", cacheWorkflowID).
		Str("asset_id", assetID).
		Msg("asset uploaded")

	return &api.UploadResult{
		AssetID:     assetID,
		ExecutionID: envelope.WorkflowExecutionID,
	}, nil
}
