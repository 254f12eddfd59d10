// Package modelcache resolves client-supplied model names against the
// upstream backend's advertised catalog, refreshed in the background.
// Exactly one goroutine (the refresher) writes; request goroutines read
// the latest snapshot through an atomic pointer swap, never a lock.
package modelcache

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/openbridge/messages-gateway/pkg/openaiapi"
)

const (
	refreshInterval   = 60 * time.Second
	retryPollInterval = 5 * time.Second
	retryMinInterval  = 10 * time.Second
)

// Snapshot is an immutable point-in-time view of the upstream catalog.
type Snapshot struct {
	Models    []Model
	FetchedAt time.Time
}

// Model is one catalog entry, categorized for the 404 synthesis path.
type Model struct {
	ID       string
	Category Category
}

// Fetcher issues the GET /v1/models call. Satisfied by upstream.ModelFetcher.
type Fetcher interface {
	FetchModels(ctx context.Context) (*openaiapi.ModelsResponse, error)
}

// Cache holds the latest snapshot behind an atomic pointer and refreshes
// it on a fixed interval until its context is cancelled.
type Cache struct {
	snapshot atomic.Pointer[Snapshot]
	fetcher  Fetcher
	logger   Logger

	// retry paces out-of-band refresh attempts triggered by a prior
	// failure, so a persistently unreachable backend doesn't turn the
	// 5s retry poll into a tight hammer loop.
	retry   *rate.Limiter
	failing atomic.Bool
}

// Logger is the minimal logging surface the cache depends on, satisfied
// by *slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

// New returns a Cache with an empty snapshot; Resolve returns NotFound
// for everything until the first successful Refresh.
func New(fetcher Fetcher, logger Logger) *Cache {
	c := &Cache{
		fetcher: fetcher,
		logger:  logger,
		retry:   rate.NewLimiter(rate.Every(retryMinInterval), 1),
	}
	c.snapshot.Store(&Snapshot{})
	return c
}

// Run blocks, refreshing every 60s until ctx is cancelled. Between
// scheduled refreshes it also polls every 5s for a chance to retry sooner
// after a failure, gated by retry so a persistently down backend is
// polled at retryMinInterval rather than retryPollInterval. Intended to
// be started as its own goroutine from cmd/server/main.go.
func (c *Cache) Run(ctx context.Context) {
	c.Refresh(ctx)
	ticker := time.NewTicker(refreshInterval)
	retryTicker := time.NewTicker(retryPollInterval)
	defer ticker.Stop()
	defer retryTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		case <-retryTicker.C:
			if c.failing.Load() && c.retry.Allow() {
				c.Refresh(ctx)
			}
		}
	}
}

// Refresh fetches the catalog once and swaps it in on success. A failure
// is logged and the current snapshot is left untouched.
func (c *Cache) Refresh(ctx context.Context) {
	resp, err := c.fetcher.FetchModels(ctx)
	if err != nil {
		c.failing.Store(true)
		if c.logger != nil {
			c.logger.Warn("modelcache: refresh failed, keeping prior snapshot", "error", err)
		}
		return
	}
	c.failing.Store(false)
	models := make([]Model, 0, len(resp.Data))
	for _, entry := range resp.Data {
		models = append(models, Model{ID: entry.ID, Category: categorize(entry)})
	}
	c.snapshot.Store(&Snapshot{Models: models, FetchedAt: time.Now()})
}

// Snapshot returns the current catalog view.
func (c *Cache) Snapshot() Snapshot {
	return *c.snapshot.Load()
}

// Populated reports whether at least one successful refresh has occurred.
func (c *Cache) Populated() bool {
	return !c.snapshot.Load().FetchedAt.IsZero()
}

// NotFoundError is returned by Resolve when no model matches; it carries
// the current snapshot so the caller can render the 404 catalog.
type NotFoundError struct {
	Snapshot Snapshot
}

func (e *NotFoundError) Error() string { return "model not found in upstream catalog" }

// Resolve looks up name against the current snapshot: case-insensitive
// exact match first, then a case-insensitive prefix/suffix match with
// edit-distance tie-break, then lexicographic tie-break.
func Resolve(snap Snapshot, name string) (string, error) {
	lname := strings.ToLower(name)

	for _, m := range snap.Models {
		if strings.ToLower(m.ID) == lname {
			return m.ID, nil
		}
	}

	var candidates []string
	for _, m := range snap.Models {
		lid := strings.ToLower(trimPathSeparators(m.ID))
		ltarget := trimPathSeparators(lname)
		if strings.HasPrefix(lid, ltarget) || strings.HasSuffix(lid, ltarget) ||
			strings.HasPrefix(ltarget, lid) || strings.HasSuffix(ltarget, lid) {
			candidates = append(candidates, m.ID)
		}
	}
	if len(candidates) == 0 {
		return "", &NotFoundError{Snapshot: snap}
	}

	sort.Slice(candidates, func(i, j int) bool {
		di := editDistance(lname, strings.ToLower(candidates[i]))
		dj := editDistance(lname, strings.ToLower(candidates[j]))
		if di != dj {
			return di < dj
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0], nil
}

func trimPathSeparators(s string) string {
	return strings.Trim(s, "/:")
}

// editDistance is a standard Levenshtein distance, used only to tie-break
// among fuzzy candidates.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
