package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/fleet/internal/model"
	"github.com/alfredjeanlab/fleet/internal/query"
)

// HTTPClient implements FleetClient against the fleet REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a client for baseURL (e.g. "http://localhost:8080").
// When token is non-empty it is sent as a bearer token on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Listings ---

func (c *HTTPClient) List(ctx context.Context, listing string, req *ListRequest) (*query.Page, error) {
	q := url.Values{}
	for key, values := range req.Filters {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.PerPage > 0 {
		q.Set("perPage", strconv.Itoa(req.PerPage))
	}
	if len(req.Columns) > 0 {
		q.Set("columns", strings.Join(req.Columns, ","))
	}
	if req.NoStats {
		q.Set("stats", "false")
	}

	path := "/v1/" + url.PathEscape(listing)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page query.Page
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) Get(ctx context.Context, listing, id string) (query.Record, error) {
	var rec query.Record
	path := "/v1/" + url.PathEscape(listing) + "/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// --- Export ---

func (c *HTTPClient) Export(ctx context.Context, listing string, req *ExportRequest, w io.Writer) (*ExportResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/"+url.PathEscape(listing)+"/export", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	if req.Upload {
		var ev model.ExportEvent
		if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		return &ExportResult{Rows: ev.Rows, Upload: &ev}, nil
	}

	res := &ExportResult{ContentType: resp.Header.Get("Content-Type")}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		res.Filename = params["filename"]
	}
	res.Rows, _ = strconv.Atoi(resp.Header.Get("X-Export-Rows"))
	if _, err := io.Copy(w, resp.Body); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	return res, nil
}

// --- Events ---

func (c *HTTPClient) Stream(ctx context.Context, topics []string, lastEventID string) (<-chan StreamEvent, error) {
	path := "/v1/events/stream"
	if len(topics) > 0 {
		path += "?" + url.Values{"topics": {strings.Join(topics, ",")}}.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	ch := make(chan StreamEvent, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		readEvents(ctx, resp.Body, ch)
	}()
	return ch, nil
}

// readEvents parses a text/event-stream body and sends each complete event.
// Comment lines (keepalives) are skipped.
func readEvents(ctx context.Context, r io.Reader, ch chan<- StreamEvent) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var evt StreamEvent
	for scanner.Scan() {
		line := scanner.Text()
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "":
			if line != "" {
				continue
			}
			if evt.Topic == "" && evt.Data == nil {
				continue
			}
			select {
			case ch <- evt:
			case <-ctx.Done():
				return
			}
			evt = StreamEvent{}
		case "id":
			evt.ID = value
		case "event":
			evt.Topic = value
		case "data":
			evt.Data = append(evt.Data, value...)
		}
	}
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	return resp, nil
}

// doJSON performs a request with an optional JSON body and decodes the JSON
// response into result.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// checkStatus turns a 4xx/5xx response into an *APIError, preferring the
// server's {"error": ...} message.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
}
