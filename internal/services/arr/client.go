// Package arr talks to the Sonarr and Radarr v3 APIs. One Client serves both
// services; only the resource path and the size-on-disk layout differ.
package arr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const requestRetries = 2

// Entry is a series or movie record in the companion catalog
type Entry struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	SizeOnDisk int64  `json:"sizeOnDisk"`

	// Sonarr reports size under statistics; normalized into SizeOnDisk on load.
	Statistics *struct {
		SizeOnDisk int64 `json:"sizeOnDisk"`
	} `json:"statistics,omitempty"`
}

// Client handles communication with a Sonarr or Radarr server
type Client struct {
	name       string
	resource   string
	serverURL  string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger

	// Catalog cache, loaded lazily on first access and invalidated entry by
	// entry after successful deletions. order preserves the listing order the
	// service returned, so title matching stays reproducible within a run.
	entries *cache.Cache
	order   []int64
	loaded  bool
}

// NewSonarr creates a client for the series catalog
func NewSonarr(serverURL, apiKey string, logger *logrus.Logger) (*Client, error) {
	return newClient("sonarr", "series", serverURL, apiKey, logger)
}

// NewRadarr creates a client for the movie catalog
func NewRadarr(serverURL, apiKey string, logger *logrus.Logger) (*Client, error) {
	return newClient("radarr", "movie", serverURL, apiKey, logger)
}

func newClient(name, resource, serverURL, apiKey string, logger *logrus.Logger) (*Client, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("%s server URL is required", name)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key is required", name)
	}

	return &Client{
		name:       name,
		resource:   resource,
		serverURL:  strings.TrimRight(serverURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		entries:    cache.New(cache.NoExpiration, 0),
	}, nil
}

// All returns the full catalog, fetching it on first access
func (c *Client) All(ctx context.Context) ([]Entry, error) {
	if !c.loaded {
		if err := c.load(ctx); err != nil {
			return nil, err
		}
	}

	result := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		if v, ok := c.entries.Get(cacheKey(id)); ok {
			result = append(result, v.(Entry))
		}
	}
	return result, nil
}

// FindByTitle looks up a catalog entry by title. Case-insensitive exact
// equality wins over containment; containment is checked in both directions
// and the first entry in catalog order wins. No match returns nil.
func (c *Client) FindByTitle(ctx context.Context, title string) (*Entry, error) {
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(title)
	for i := range all {
		if strings.ToLower(all[i].Title) == lower {
			return &all[i], nil
		}
	}
	for i := range all {
		entryTitle := strings.ToLower(all[i].Title)
		if strings.Contains(entryTitle, lower) || strings.Contains(lower, entryTitle) {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Delete removes an entry from the catalog, optionally deleting its files
// from disk. On success the entry is dropped from the cache so it cannot be
// matched again within the run.
func (c *Client) Delete(ctx context.Context, id int64, deleteFiles bool) error {
	c.logger.WithFields(logrus.Fields{
		"service":      c.name,
		"id":           id,
		"delete_files": deleteFiles,
	}).Info("Deleting catalog entry")

	deleteURL := fmt.Sprintf("%s/api/v3/%s/%d?deleteFiles=%t", c.serverURL, c.resource, id, deleteFiles)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	c.entries.Delete(cacheKey(id))
	return nil
}

// load fetches the catalog listing and populates the cache
func (c *Client) load(ctx context.Context) error {
	c.logger.WithField("service", c.name).Debug("Fetching catalog")

	var listing []Entry
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/v3/"+c.resource, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("X-Api-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			bodyBytes, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}

		listing = nil
		if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), requestRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("failed to fetch %s catalog: %w", c.name, err)
	}

	c.order = c.order[:0]
	for _, entry := range listing {
		if entry.SizeOnDisk == 0 && entry.Statistics != nil {
			entry.SizeOnDisk = entry.Statistics.SizeOnDisk
		}
		c.entries.Set(cacheKey(entry.ID), entry, cache.NoExpiration)
		c.order = append(c.order, entry.ID)
	}
	c.loaded = true

	c.logger.WithFields(logrus.Fields{
		"service": c.name,
		"count":   len(c.order),
	}).Info("Catalog loaded")
	return nil
}

func cacheKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
