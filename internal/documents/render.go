package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Renderer wraps a Gotenberg-compatible HTML to PDF service.
type Renderer struct {
	baseURL    string
	httpClient *http.Client
}

// NewRenderer constructs the renderer client.
func NewRenderer(baseURL string) *Renderer {
	return &Renderer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks that the remote renderer is reachable.
func (r *Renderer) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", r.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("renderer returned status %d", resp.StatusCode)
	}
	return nil
}

// PageSize selects the output paper format in inches. Zero values leave the
// renderer's default in place.
type PageSize struct {
	Width  float64
	Height float64
}

// LabelPage is the 4x6 inch thermal label format used for box labels.
var LabelPage = PageSize{Width: 4, Height: 6}

// RenderHTML converts raw HTML into a PDF document.
func (r *Renderer) RenderHTML(ctx context.Context, html string, page PageSize) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, bytes.NewBufferString(html)); err != nil {
		return nil, err
	}
	if page.Width > 0 {
		if err := writer.WriteField("paperWidth", fmt.Sprintf("%g", page.Width)); err != nil {
			return nil, err
		}
	}
	if page.Height > 0 {
		if err := writer.WriteField("paperHeight", fmt.Sprintf("%g", page.Height)); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/forms/chromium/convert/html", r.baseURL), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("render failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
