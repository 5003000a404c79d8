package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	fetcherrors "canteen-menu/internal/common/errors"
	commonhttp "canteen-menu/internal/common/http"
	"canteen-menu/internal/common/logger"
)

const (
	maxAttachmentBytes = 20 << 20
	attachmentPageSize = 100
	maxAttachmentPages = 50
)

// Client talks to the Confluence REST API of a single page.
type Client struct {
	baseURL string
	pageID  string
	http    *commonhttp.Client
	logger  logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		pageID:  cfg.PageID,
		http:    commonhttp.NewBearerClient(cfg.Auth, timeout),
		logger:  log,
	}
}

// ListAttachments returns the attachments of the configured page, following
// _links.next until the last page.
func (c *Client) ListAttachments(ctx context.Context) ([]Attachment, error) {
	endpoint := fmt.Sprintf("%s/rest/api/content/%s/child/attachment?expand=version&limit=%d",
		c.baseURL, url.PathEscape(c.pageID), attachmentPageSize)

	var all []Attachment
	for page := 0; endpoint != ""; page++ {
		if page == maxAttachmentPages {
			return nil, fetcherrors.NewTransport("Failed to fetch attachments from Confluence",
				fmt.Errorf("more than %d result pages", maxAttachmentPages))
		}
		c.logger.Debug("listing attachments", map[string]interface{}{"url": endpoint, "page": page})

		list, err := c.listPage(ctx, endpoint)
		if err != nil {
			return nil, fetcherrors.NewTransport("Failed to fetch attachments from Confluence", err)
		}
		all = append(all, list.Results...)

		endpoint = ""
		if list.Links.Next != "" {
			endpoint = c.baseURL + list.Links.Next
		}
	}
	return all, nil
}

func (c *Client) listPage(ctx context.Context, endpoint string) (attachmentList, error) {
	var list attachmentList

	body, err := c.get(ctx, endpoint, "application/json")
	if err != nil {
		return list, err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(&list); err != nil {
		return list, fmt.Errorf("decode response: %w", err)
	}
	return list, nil
}

// Download fetches the attachment bytes from its download link.
func (c *Client) Download(ctx context.Context, att Attachment) ([]byte, error) {
	endpoint := c.baseURL + att.Links.Download
	c.logger.Debug("downloading attachment", map[string]interface{}{"url": endpoint, "title": att.Title})

	body, err := c.get(ctx, endpoint, "")
	if err != nil {
		return nil, fetcherrors.NewTransport("Failed to download attachment", err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxAttachmentBytes+1))
	if err != nil {
		return nil, fetcherrors.NewTransport("Failed to download attachment", err)
	}
	if len(data) > maxAttachmentBytes {
		// Never hand a truncated image to the extractor.
		return nil, fetcherrors.NewNoData(fmt.Sprintf("Attachment %s exceeds the %d MB download limit",
			att.Title, maxAttachmentBytes>>20))
	}
	c.logger.Info("downloaded attachment", map[string]interface{}{"title": att.Title, "bytes": len(data)})
	return data, nil
}

func (c *Client) get(ctx context.Context, endpoint, accept string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return resp.Body, nil
}
