// Package contentstore implements the external content-addressed fetch
// client from spec §6: GET /ipfs/<hash> returns a payload that, parsed by
// the ingest Protocol Adapter, yields the checkpoint's operations. It is
// the gap-fill and reorg-replay data source for the Recovery Subsystem.
package contentstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// Config controls the HTTP gateway client and its cache layers.
type Config struct {
	GatewayURL   string
	FetchTimeout time.Duration
	CacheDir     string
	CacheEntries int
	HotEntries   int // in-memory LRU in front of the disk cache
}

func (c Config) withDefaults() Config {
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 60 * time.Second
	}
	if c.CacheEntries <= 0 {
		c.CacheEntries = defaultCacheEntries
	}
	if c.HotEntries <= 0 {
		c.HotEntries = 256
	}
	return c
}

// Client fetches checkpoint payloads by hash, caching them both in-memory
// (golang-lru, hot path) and on disk (diskLRU) so repeated replay of the
// same checkpoint during reorg resolution does not re-hit the network.
type Client struct {
	cfg    Config
	http   *http.Client
	hot    *lru.Cache[string, []byte]
	disk   *diskLRU
	log    *logrus.Logger
}

// New constructs a Client. FetchTimeout bounds every gateway request per
// spec §5 Cancellation and timeouts (default 60s).
func New(cfg Config, log *logrus.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logrus.New()
	}
	disk, err := newDiskLRU(cfg.CacheDir, cfg.CacheEntries)
	if err != nil {
		return nil, fmt.Errorf("contentstore: cache: %w", err)
	}
	hot, err := lru.New[string, []byte](cfg.HotEntries)
	if err != nil {
		return nil, fmt.Errorf("contentstore: hot cache: %w", err)
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.FetchTimeout},
		hot:  hot,
		disk: disk,
		log:  log,
	}, nil
}

// Fetch returns the raw payload for hash, preferring the hot cache, then the
// disk cache, then the gateway. On a cache miss the fetched payload is
// stored in both caches before being returned.
func (c *Client) Fetch(ctx context.Context, hash string) ([]byte, error) {
	normalized, err := NormalizeHash(hash)
	if err != nil {
		return nil, fmt.Errorf("contentstore: %w", err)
	}

	if b, ok := c.hot.Get(normalized); ok {
		return b, nil
	}
	if b, ok := c.disk.get(normalized); ok {
		c.hot.Add(normalized, b)
		return b, nil
	}

	url := c.cfg.GatewayURL + "/ipfs/" + normalized
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contentstore: fetch %s: %w", normalized, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("contentstore: gateway %d for %s: %s", resp.StatusCode, normalized, string(b))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("contentstore: read body: %w", err)
	}

	_ = c.disk.put(normalized, data) // best-effort
	c.hot.Add(normalized, data)

	c.log.WithFields(logrus.Fields{"hash": normalized, "bytes": len(data)}).
		Info("contentstore: fetched checkpoint payload")
	return data, nil
}
