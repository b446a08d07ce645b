package cache

import (
	"context"
	"encoding/json"
	"time"

	"lexiscan.ai/cli/internal/application/ports"
)

const (
	keyIndex      = "cache.analysis_index"
	prefixPayload = "cache.analysis."

	// DefaultLimit bounds the number of cached analyses.
	DefaultLimit = 20
)

// Analysis is a full cached analysis payload.
type Analysis struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Kind      string          `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
	Body      json.RawMessage `json:"body"`
}

// Summary returns the lightweight listing row for this analysis.
func (a Analysis) Summary() ports.AnalysisSummary {
	return ports.AnalysisSummary{ID: a.ID, Title: a.Title, Kind: a.Kind, CreatedAt: a.CreatedAt}
}

// AnalysisCache is a bounded offline cache of analysis payloads plus an
// ordered id index, newest first. Payload keys are always a subset of the
// index; an index entry whose payload is missing reads as a miss.
type AnalysisCache struct {
	kv     ports.KeyValueStore
	logger ports.LoggingGateway
	limit  int
}

// NewAnalysisCache creates a cache bounded at DefaultLimit entries.
func NewAnalysisCache(kv ports.KeyValueStore, logger ports.LoggingGateway) *AnalysisCache {
	return &AnalysisCache{kv: kv, logger: logger, limit: DefaultLimit}
}

// NewAnalysisCacheWithLimit creates a cache with a custom bound, for tests.
func NewAnalysisCacheWithLimit(kv ports.KeyValueStore, logger ports.LoggingGateway, limit int) *AnalysisCache {
	return &AnalysisCache{kv: kv, logger: logger, limit: limit}
}

// Get returns the cached payload for id. Local lookup only; storage or parse
// failures read as a miss.
func (c *AnalysisCache) Get(ctx context.Context, id string) (*Analysis, bool) {
	raw, ok, err := c.kv.Get(ctx, prefixPayload+id)
	if err != nil || !ok {
		return nil, false
	}
	var a Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		c.logger.Log(ports.LogLevelWarn, "Discarding malformed cached analysis", map[string]interface{}{
			"id":    id,
			"error": err.Error(),
		})
		return nil, false
	}
	return &a, true
}

// Put caches a payload and moves its id to the front of the index, trimming
// to the bound and evicting payloads that fell off. The payload is written
// before the index so an interrupted Put leaves at worst an orphan payload,
// never an index entry without one.
func (c *AnalysisCache) Put(ctx context.Context, a Analysis, orderedIDs []string) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := c.kv.Set(ctx, prefixPayload+a.ID, raw); err != nil {
		return err
	}

	newIndex := make([]string, 0, len(orderedIDs)+1)
	newIndex = append(newIndex, a.ID)
	for _, id := range orderedIDs {
		if id != a.ID {
			newIndex = append(newIndex, id)
		}
	}
	if len(newIndex) > c.limit {
		newIndex = newIndex[:c.limit]
	}
	if err := c.writeIndex(ctx, newIndex); err != nil {
		return err
	}

	c.evictDropped(ctx, orderedIDs, newIndex)
	return nil
}

// Index returns the ordered cached ids, newest first.
func (c *AnalysisCache) Index(ctx context.Context) []string {
	raw, ok, err := c.kv.Get(ctx, keyIndex)
	if err != nil || !ok {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		c.logger.Log(ports.LogLevelWarn, "Discarding malformed analysis index", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return ids
}

// ListSummaries returns summaries for every readable cached payload, in
// index order. This is the offline fallback for the list view.
func (c *AnalysisCache) ListSummaries(ctx context.Context) []ports.AnalysisSummary {
	var summaries []ports.AnalysisSummary
	for _, id := range c.Index(ctx) {
		if a, ok := c.Get(ctx, id); ok {
			summaries = append(summaries, a.Summary())
		}
	}
	return summaries
}

// UpdateIndexOnly reorders and prunes the index after a successful network
// listing, without touching payload bodies. Payloads for ids no longer
// listed are evicted; listed ids with no cached payload simply read as
// misses later.
func (c *AnalysisCache) UpdateIndexOnly(ctx context.Context, ids []string) error {
	old := c.Index(ctx)
	if len(ids) > c.limit {
		ids = ids[:c.limit]
	}
	if err := c.writeIndex(ctx, ids); err != nil {
		return err
	}
	c.evictDropped(ctx, old, ids)
	return nil
}

// Remove drops one analysis from both the index and the payload set.
func (c *AnalysisCache) Remove(ctx context.Context, id string) error {
	old := c.Index(ctx)
	newIndex := make([]string, 0, len(old))
	for _, existing := range old {
		if existing != id {
			newIndex = append(newIndex, existing)
		}
	}
	if err := c.writeIndex(ctx, newIndex); err != nil {
		return err
	}
	return c.kv.Delete(ctx, prefixPayload+id)
}

func (c *AnalysisCache) writeIndex(ctx context.Context, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, keyIndex, raw)
}

func (c *AnalysisCache) evictDropped(ctx context.Context, old, current []string) {
	kept := make(map[string]bool, len(current))
	for _, id := range current {
		kept[id] = true
	}
	for _, id := range old {
		if kept[id] {
			continue
		}
		if err := c.kv.Delete(ctx, prefixPayload+id); err != nil {
			c.logger.Log(ports.LogLevelWarn, "Failed to evict cached analysis", map[string]interface{}{
				"id":    id,
				"error": err.Error(),
			})
		}
	}
}
