package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// httpClient allows http.Client to be mocked for tests
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Generic REST restClient
type restClient struct {
	client  httpClient
	baseURL *url.URL
}

// do performs an HTTP request with this client and returns the response.  A non-empty query is
// appended to the request URL.
func (c *restClient) do(
	ctx context.Context,
	method, uri string,
	query url.Values,
	body []byte,
) (*http.Response, error) {
	url := c.baseURL.JoinPath(uri)
	if len(query) > 0 {
		url.RawQuery = query.Encode()
	}
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url.String(), r)
	if err != nil {
		return nil, fmt.Errorf("%s for %q: %v", method, url, err)
	}

	return c.client.Do(req)
}

// doJSON performs an HTTP request with this client and marshalls the JSON response into v.
func (c *restClient) doJSON(
	ctx context.Context,
	method, uri string,
	query url.Values,
	body []byte,
	v any,
) error {
	resp, err := c.do(ctx, method, uri, query, body)
	if err != nil {
		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusOK {
		if v == nil {
			return nil
		}
		// Decode response body
		return json.NewDecoder(resp.Body).Decode(v)
	}

	return responseError(method, uri, resp)
}

// responseError describes an unexpected response, including the first line of the body as the
// server renders its error messages there.
func responseError(method, uri string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	line, _, _ := strings.Cut(string(msg), "\n")
	if line = strings.TrimSpace(line); line != "" {
		return fmt.Errorf("%s for %q, unexpected %v: %s", method, uri, resp.StatusCode, line)
	}
	return fmt.Errorf("%s for %q, unexpected %v: %s", method, uri, resp.StatusCode, resp.Status)
}
