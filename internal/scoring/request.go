package scoring

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/document"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/utils"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	apiKeyHeader    = "X-API-Key"
	requestIDHeader = "X-Request-ID"
)

// postForm sends the sources as multipart form data and decodes the JSON answer.
// Sources without data are left out of the form.
func (c *Client) postForm(ctx context.Context, url string, sources ...document.Source) (map[string]any, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	for _, src := range sources {
		if err := writePart(w, src); err != nil {
			return nil, fmt.Errorf("write %s part: %w", src.FormField(), err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())

	var body map[string]any
	if err := c.do(req, &body); err != nil {
		return nil, err
	}

	return body, nil
}

func writePart(w *multipart.Writer, src document.Source) error {
	if !src.HasData() {
		return nil
	}

	if src.Mode == document.ModeText {
		field, err := w.CreateFormField(src.FormField())
		if err != nil {
			return err
		}
		_, err = io.Copy(field, strings.NewReader(src.Text))
		return err
	}

	part, err := w.CreateFormFile(src.FormField(), src.File.Name)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, bytes.NewReader(src.File.Bytes()))
	return err
}

func (c *Client) getJSON(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	return c.do(req, target)
}

// do executes the request, checks the status and decodes the JSON body into target.
func (c *Client) do(req *http.Request, target any) error {
	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Detail:     errorDetail(data),
		}
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		c.logger.Debug("undecodable response",
			zap.String("url", req.URL.String()),
			zap.String("body_preview", utils.TruncateForLog(string(data), c.MaxLogLength)),
		)
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	requestID := req.Header.Get(requestIDHeader)
	log := c.logger.With(zap.String(logger.FieldRequestID, requestID), zap.String("url", req.URL.String()))

	log.Debug("make request", zap.String("method", req.Method))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	log.Debug("got response", zap.Int("status", resp.StatusCode))

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set(requestIDHeader, uuid.NewString())

	return req
}

// errorDetail extracts the service's "detail" message, which is either a
// string or an object with a "message" key.
func errorDetail(data []byte) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return utils.TruncateForLog(utils.OneLine(string(data)), maxMessageLength)
	}

	switch detail := body.Detail.(type) {
	case string:
		return utils.OneLine(detail)
	case map[string]any:
		if message, ok := detail["message"].(string); ok {
			return utils.OneLine(message)
		}
	case []any:
		// request validation errors come as a list of {loc, msg}
		messages := make([]string, 0, len(detail))
		for _, item := range detail {
			if entry, ok := item.(map[string]any); ok {
				if msg, ok := entry["msg"].(string); ok {
					messages = append(messages, msg)
				}
			}
		}
		return strings.Join(messages, "; ")
	}

	return ""
}
