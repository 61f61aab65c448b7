package stac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/airbusgeo/stac-uploader/common"
	"github.com/airbusgeo/stac-uploader/service"
)

// Client of a STAC API (items, collections and search)
type Client struct {
	transport        service.Transport
	baseURL          common.URL
	validator        common.Validator
	validateLicense  bool
	collectionsLimit int
}

// Option configures a Client
type Option func(*Client)

// WithValidator validates the items before CreateItem and AddItem
func WithValidator(v common.Validator) Option {
	return func(c *Client) { c.validator = v }
}

// WithLicenseValidation normalizes and checks the license of the collections before CreateCollection and UpdateCollection
func WithLicenseValidation() Option {
	return func(c *Client) { c.validateLicense = true }
}

// WithCollectionsPageSize sets the number of collections fetched per request by FetchAllCollections
func WithCollectionsPageSize(limit int) Option {
	return func(c *Client) { c.collectionsLimit = limit }
}

// NewClient creates a client of the STAC API available at baseURL
func NewClient(transport service.Transport, baseURL common.URL, options ...Option) *Client {
	c := &Client{transport: transport, baseURL: baseURL, collectionsLimit: 10}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// URL returns the url of the endpoint
func (c *Client) URL(suffix string, params url.Values) string {
	u := c.baseURL.WithSuffix(suffix)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// send encodes in as the body of the request, and decodes the response in out (if not nil)
func (c *Client) send(ctx context.Context, method, u string, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return service.MakeFatal(fmt.Errorf("json.Marshal: %w", err))
		}
	}
	header := http.Header{"Accept": {"application/json"}}
	_, respBody, err := c.transport.Do(ctx, method, u, body, header)
	if err != nil {
		return err
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("json.Unmarshal: %w", err)
		}
	}
	return nil
}

// paginationToken extracts the cursor from the href of a "next" link
func paginationToken(href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil || u.RawQuery == "" {
		return "", fmt.Errorf("failed to parse pagination token from %s", href)
	}
	if cursor := u.Query().Get("cursor"); cursor != "" {
		return cursor, nil
	}
	// Last value of the query
	parts := strings.Split(u.RawQuery, "=")
	token, err := url.QueryUnescape(parts[len(parts)-1])
	if err != nil || token == "" {
		return "", fmt.Errorf("failed to parse pagination token from %s", href)
	}
	return token, nil
}

// nextToken returns the pagination token of the "next" link, "" if there is no next page
func nextToken(links []common.Link) (string, error) {
	for _, l := range links {
		if l.Rel == common.RelNext && l.Href != "" {
			return paginationToken(l.Href)
		}
	}
	return "", nil
}
