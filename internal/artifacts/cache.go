package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/zulandar/praktika/internal/models"
	"github.com/zulandar/praktika/internal/workflow"
)

// ErrCacheMiss is returned by Lookup when no successful result is cached.
var ErrCacheMiss = errors.New("artifacts: cache miss")

// CacheEntry records a successful job result for a digest.
type CacheEntry struct {
	Workflow   string    `json:"workflow"`
	Job        string    `json:"job"`
	Digest     string    `json:"digest"`
	Status     string    `json:"status"`
	RunID      string    `json:"run_id"`
	CommitSHA  string    `json:"commit_sha,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}

// Cache stores job results under the cache_s3_path setting.
type Cache struct {
	store *Store
}

// NewCache returns a job cache kept in store.
func NewCache(store *Store) *Cache {
	return &Cache{store: store}
}

// Key returns the S3 path of the cache entry for a job digest.
func (c *Cache) Key(workflowName, job, digest string) string {
	return path.Join(c.store.Settings.CacheS3Path, workflow.Normalize(workflowName), workflow.Normalize(job), digest+".json")
}

// Lookup returns the cached result for a job digest.
func (c *Cache) Lookup(workflowName, job, digest string) (*CacheEntry, error) {
	data, err := c.store.Get(c.Key(workflowName, job, digest))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	var e CacheEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("artifacts: decode cache entry: %w", err)
	}
	if e.Status != models.StatusSuccess || e.Digest != digest {
		return nil, ErrCacheMiss
	}
	return &e, nil
}

// Store records e. Only successful results are cached; others are ignored.
func (c *Cache) Store(e CacheEntry) error {
	if e.Status != models.StatusSuccess {
		return nil
	}
	if e.Digest == "" {
		return fmt.Errorf("artifacts: cache entry for %q has no digest", e.Job)
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("artifacts: encode cache entry: %w", err)
	}
	return c.store.PutBytes(c.Key(e.Workflow, e.Job, e.Digest), data)
}
