package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"medexam/intake-portal/internal/logger"

	"github.com/rs/zerolog"
)

// Client is the HTTP implementation of RecordService.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient builds a client against the given base URL. A zero timeout
// falls back to 60s, matching the longest accepted upload.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger.Get(),
	}
}

type createResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (c *Client) CreateApplication(ctx context.Context, reqBody CreateRequest) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/applications", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().Str("email", reqBody.Email).Str("occurrence", reqBody.ExamOccurrenceID).
		Msg("Creating application record")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return "", ErrConflict
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var created createResponse
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if created.ID == "" {
			return "", fmt.Errorf("create succeeded but response carried no id")
		}
		return created.ID, nil
	default:
		return "", c.statusError(resp)
	}
}

func (c *Client) ConfirmApplication(ctx context.Context, recordID string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal confirm payload: %w", err)
	}

	url := fmt.Sprintf("%s/applications/%s", c.baseURL, recordID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().Str("record_id", recordID).Msg("Confirming application record")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return c.statusError(resp)
}

func (c *Client) UploadAttachment(ctx context.Context, upload UploadRequest) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", upload.FileName)
	if err != nil {
		return "", fmt.Errorf("failed to create multipart file field: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return "", fmt.Errorf("failed to write file data: %w", err)
	}

	fields := map[string]string{
		"examOccurrenceId": upload.ExamOccurrenceID,
		"entityType":       upload.EntityType,
		"entityId":         upload.EntityID,
		"category":         upload.Category,
		"fileName":         upload.FileName,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/attachments/upload/image", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.log.Debug().Str("entity_id", upload.EntityID).Str("file_name", upload.FileName).
		Int("size", len(upload.Data)).Msg("Uploading attachment")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var created createResponse
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		return created.ID, nil
	}
	return "", c.statusError(resp)
}

func (c *Client) DeleteAttachment(ctx context.Context, fileID string) error {
	url := fmt.Sprintf("%s/attachments/%s", c.baseURL, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return c.statusError(resp)
}

// statusError drains the body for the upstream message field so user-facing
// errors repeat it verbatim.
func (c *Client) statusError(resp *http.Response) error {
	var msg errorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &msg)
	c.log.Warn().Int("status", resp.StatusCode).Str("message", msg.Message).
		Msg("Remote record service returned error")
	return &StatusError{StatusCode: resp.StatusCode, Message: msg.Message}
}
