// Package client provides a basic REST client for mailclean
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mailclean/mailclean/pkg/rest/model"
)

// Client accesses the mailclean REST API v1
type Client struct {
	restClient
}

// New creates a new v1 REST API client given the base URL of a mailclean server, ex:
// "http://localhost:9000"
func New(baseURL string, opts ...func(*ClientOptions)) (*Client, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	options := getDefaultClientOptions()
	for _, opt := range opts {
		opt(options)
	}
	c := &Client{
		restClient{
			client: &http.Client{
				Transport: options.transport,
				Timeout:   options.timeout,
			},
			baseURL: parsedURL,
		},
	}
	return c, nil
}

// Sanitize submits an HTML document for sanitizing.  Nil option fields keep the server defaults.
func (c *Client) Sanitize(
	ctx context.Context,
	html string,
	opts *model.JSONSanitizeOptionsV1,
) (*Result, error) {
	body, err := json.Marshal(&model.JSONSanitizeRequestV1{HTML: html, Options: opts})
	if err != nil {
		return nil, err
	}
	var result *Result
	if err := c.doJSON(ctx, "POST", "/api/v1/sanitize", nil, body, &result); err != nil {
		return nil, err
	}
	result.client = c
	return result, nil
}

// SanitizeMessage submits a raw RFC 5322 message, its HTML body is sanitized.
func (c *Client) SanitizeMessage(
	ctx context.Context,
	source io.Reader,
	opts *model.JSONSanitizeOptionsV1,
) (*Result, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(source); err != nil {
		return nil, err
	}
	var result *Result
	err := c.doJSON(ctx, "POST", "/api/v1/message", optionsQuery(opts), buf.Bytes(), &result)
	if err != nil {
		return nil, err
	}
	result.client = c
	return result, nil
}

// ListResults returns the headers of all stored results, oldest first.
func (c *Client) ListResults(ctx context.Context) (headers []*ResultHeader, err error) {
	err = c.doJSON(ctx, "GET", "/api/v1/results", nil, nil, &headers)
	if err != nil {
		return nil, err
	}
	for _, h := range headers {
		h.client = c
	}
	return
}

// GetResult returns the identified result, "latest" is accepted as an ID.
func (c *Client) GetResult(ctx context.Context, id string) (result *Result, err error) {
	uri := "/api/v1/results/" + url.PathEscape(id)
	err = c.doJSON(ctx, "GET", uri, nil, nil, &result)
	if err != nil {
		return nil, err
	}
	result.client = c
	return
}

// GetResultHTML returns the sanitized document of the identified result.
func (c *Client) GetResultHTML(ctx context.Context, id string) (string, error) {
	uri := "/api/v1/results/" + url.PathEscape(id) + "/html"
	resp, err := c.do(ctx, "GET", uri, nil, nil)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", responseError("GET", uri, resp)
	}
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	return buf.String(), err
}

// DeleteResult deletes a single stored result.
func (c *Client) DeleteResult(ctx context.Context, id string) error {
	uri := "/api/v1/results/" + url.PathEscape(id)
	resp, err := c.do(ctx, "DELETE", uri, nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return responseError("DELETE", uri, resp)
	}
	return nil
}

// Policy returns the allow-list tables in use by the server.
func (c *Client) Policy(ctx context.Context) (policy *model.JSONPolicyV1, err error) {
	err = c.doJSON(ctx, "GET", "/api/v1/policy", nil, nil, &policy)
	return
}

// optionsQuery encodes the non-nil options as query parameters.
func optionsQuery(o *model.JSONSanitizeOptionsV1) url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	if o.MaxContentSize != nil {
		q.Set("max-content-size", strconv.Itoa(*o.MaxContentSize))
	}
	if o.CSSClassPrefix != nil {
		q.Set("css-class-prefix", *o.CSSClassPrefix)
	}
	bools := map[string]*bool{
		"suppress-links":              o.SuppressLinks,
		"drop-external-images":        o.DropExternalImages,
		"replace-urls":                o.ReplaceURLs,
		"replace-body-with-container": o.ReplaceBodyWithContainer,
		"css-only":                    o.CSSOnly,
	}
	for name, v := range bools {
		if v != nil {
			q.Set(name, strconv.FormatBool(*v))
		}
	}
	return q
}

// ResultHeader represents a stored result sans document
type ResultHeader struct {
	*model.JSONResultHeaderV1
	client *Client
}

// GetResult returns this result with its document
func (h *ResultHeader) GetResult(ctx context.Context) (*Result, error) {
	return h.client.GetResult(ctx, h.ID)
}

// GetHTML returns the sanitized document for this result
func (h *ResultHeader) GetHTML(ctx context.Context) (string, error) {
	return h.client.GetResultHTML(ctx, h.ID)
}

// Delete deletes this result from the store
func (h *ResultHeader) Delete(ctx context.Context) error {
	return h.client.DeleteResult(ctx, h.ID)
}

// Result represents a stored result including its document
type Result struct {
	*model.JSONResultV1
	client *Client
}

// Delete deletes this result from the store
func (r *Result) Delete(ctx context.Context) error {
	return r.client.DeleteResult(ctx, r.ID)
}
