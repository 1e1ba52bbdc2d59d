package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// httpDirectory resolves recipients against an external directory
// service: GET {base}/{id} returning the recipient as JSON.
type httpDirectory struct {
	base   string
	client *http.Client
}

func newHTTPDirectory(base string) *httpDirectory {
	return &httpDirectory{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *httpDirectory) Resolve(ctx context.Context, recipientID string) (notify.Recipient, error) {
	u := d.base + "/" + url.PathEscape(recipientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return notify.Recipient{}, fmt.Errorf("directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return notify.Recipient{}, notify.Transient(fmt.Errorf("directory lookup: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return notify.Recipient{}, notify.Permanent(fmt.Errorf("recipient %q not found in directory", recipientID))
	case resp.StatusCode >= 500:
		return notify.Recipient{}, notify.Transient(fmt.Errorf("directory returned %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return notify.Recipient{}, notify.Permanent(fmt.Errorf("directory returned %d", resp.StatusCode))
	}

	var recipient notify.Recipient
	if err := json.NewDecoder(resp.Body).Decode(&recipient); err != nil {
		return notify.Recipient{}, notify.Transient(fmt.Errorf("decode directory response: %w", err))
	}
	if recipient.ID == "" {
		recipient.ID = recipientID
	}
	return recipient, nil
}
