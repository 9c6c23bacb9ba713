package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/blacktop/fbpost/internal/fbpost"
	"github.com/blacktop/fbpost/internal/logutil"
)

const formContentType = "application/x-www-form-urlencoded"

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (c *Client) newGetRequest(ctx context.Context, endpoint string, query url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func (c *Client) newFormRequest(ctx context.Context, endpoint string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", formContentType)
	return req, nil
}

// newMultipartRequest builds a POST carrying the given fields plus the image
// file as the "source" part.
func (c *Client) newMultipartRequest(ctx context.Context, endpoint string, fields url.Values, imagePath string) (*http.Request, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		for _, value := range fields[key] {
			if err := writer.WriteField(key, value); err != nil {
				return nil, fmt.Errorf("write field %s: %w", key, err)
			}
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="source"; filename="%s"`, quoteEscaper.Replace(filepath.Base(imagePath))))
	header.Set("Content-Type", detectContentType(imagePath, data))
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create source part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write source part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	logutil.Debugf("multipart body: image=%s bytes=%d", imagePath, len(data))
	return req, nil
}

// do sends req and decodes the JSON body into out. Failed responses are
// classified into TransportError or RemoteAPIError.
func (c *Client) do(req *http.Request, out any) error {
	op := req.Method + " " + req.URL.Path
	logutil.Debugf("graph request: %s", op)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the full URL, which may carry the access token.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fbpost.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fbpost.TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	logutil.Debugf("graph response: %s status=%d bytes=%d", op, resp.StatusCode, len(body))

	if err := checkResponse(resp.StatusCode, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkResponse(status int, body []byte) error {
	var env errorEnvelope
	hasError := json.Unmarshal(body, &env) == nil && len(env.Error) > 0 && string(env.Error) != "null"
	if status < http.StatusBadRequest && !hasError {
		return nil
	}

	apiErr := fbpost.RemoteAPIError{StatusCode: status}
	if hasError {
		var detail apiError
		if json.Unmarshal(env.Error, &detail) == nil {
			apiErr.Message = detail.Message
			apiErr.Type = detail.Type
			apiErr.Code = detail.Code
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fbpost.UnknownErrorMessage
	}
	return apiErr
}

func detectContentType(path string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}
