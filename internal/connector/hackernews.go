package connector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"pulseboard/internal/config"
	"pulseboard/internal/domain"
)

const (
	hnFirebaseSource  = "hn_firebase"
	hnFirebaseBaseURL = "https://hacker-news.firebaseio.com/v0"

	hnAlgoliaSource  = "hn_algolia"
	hnAlgoliaBaseURL = "https://hn.algolia.com/api/v1"

	// Per-item timeout for the fan-out item fetches; a slow item is
	// dropped, not retried.
	hnItemTimeout = 5 * time.Second

	defaultHNEndpoint = "topstories"
)

type hnItem struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
}

// HNFirebase reads a story-ID list (topstories, beststories, ...) and
// then fetches each item. Item fetches fan out concurrently with
// per-item failure isolation: a failed item is skipped, never failing
// the batch.
type HNFirebase struct {
	baseURL string
	client  *http.Client
}

var _ FeedConnector = (*HNFirebase)(nil)

// NewHNFirebase wires an optional HTTP client.
func NewHNFirebase(client *http.Client) *HNFirebase {
	if client == nil {
		client = newHTTPClient()
	}
	return &HNFirebase{baseURL: hnFirebaseBaseURL, client: client}
}

func (h *HNFirebase) Source() string { return hnFirebaseSource }

// Fetch loads the ID list, truncates it to the feed limit, and fetches
// the items concurrently.
func (h *HNFirebase) Fetch(ctx context.Context, cfg config.Feed) FetchResult {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultHNEndpoint
	}

	var ids []int64
	if err := getJSON(ctx, h.client, h.baseURL+"/"+endpoint+".json", nil, &ids); err != nil {
		return Fail(hnFirebaseSource, "%v", err)
	}

	if limit := cfg.MaxItems(); len(ids) > limit {
		ids = ids[:limit]
	}

	items := make([]*hnItem, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(slot int, id int64) {
			defer wg.Done()
			itemCtx, cancel := context.WithTimeout(ctx, hnItemTimeout)
			defer cancel()

			var item hnItem
			url := fmt.Sprintf("%s/item/%d.json", h.baseURL, id)
			if err := getJSON(itemCtx, h.client, url, nil, &item); err != nil {
				return
			}
			items[slot] = &item
		}(i, id)
	}
	wg.Wait()

	fetched := make([]hnItem, 0, len(items))
	for _, item := range items {
		if item != nil {
			fetched = append(fetched, *item)
		}
	}

	return Ok(hnFirebaseSource, fetched)
}

// Normalize keeps story-typed items and maps them to Story records.
func (h *HNFirebase) Normalize(cfg config.Feed, raw any) []domain.Story {
	items, ok := raw.([]hnItem)
	if !ok {
		return nil
	}

	now := time.Now().UTC()
	stories := make([]domain.Story, 0, len(items))
	for _, item := range items {
		if item.ID == 0 || item.Type != "story" || item.Title == "" {
			continue
		}

		var posted time.Time
		if item.Time > 0 {
			posted = time.Unix(item.Time, 0).UTC()
		}

		stories = append(stories, domain.Story{
			ID:          item.ID,
			Title:       item.Title,
			URL:         item.URL,
			Score:       item.Score,
			Comments:    item.Descendants,
			Author:      item.By,
			PostedAt:    posted,
			Source:      hnFirebaseSource,
			FeedID:      cfg.ID,
			RetrievedAt: now,
		})
	}

	sortStoriesDesc(stories)
	return stories
}

type algoliaHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
	Author      string `json:"author"`
	CreatedAt   string `json:"created_at"`
}

type algoliaResponse struct {
	Hits []algoliaHit `json:"hits"`
}

// HNAlgolia runs a search query against the Algolia HN index and maps
// the hit list directly, no per-item fetches.
type HNAlgolia struct {
	baseURL string
	client  *http.Client
}

var _ FeedConnector = (*HNAlgolia)(nil)

// NewHNAlgolia wires an optional HTTP client.
func NewHNAlgolia(client *http.Client) *HNAlgolia {
	if client == nil {
		client = newHTTPClient()
	}
	return &HNAlgolia{baseURL: hnAlgoliaBaseURL, client: client}
}

func (h *HNAlgolia) Source() string { return hnAlgoliaSource }

// Fetch runs the configured search query.
func (h *HNAlgolia) Fetch(ctx context.Context, cfg config.Feed) FetchResult {
	if cfg.Query == "" {
		return Fail(hnAlgoliaSource, "query required for HN Algolia connector")
	}

	params := url.Values{}
	params.Set("query", cfg.Query)
	params.Set("hitsPerPage", strconv.Itoa(cfg.MaxItems()))
	if cfg.Tags != "" {
		params.Set("tags", cfg.Tags)
	}

	var payload algoliaResponse
	if err := getJSON(ctx, h.client, h.baseURL+"/search?"+params.Encode(), nil, &payload); err != nil {
		return Fail(hnAlgoliaSource, "%v", err)
	}

	return Ok(hnAlgoliaSource, payload.Hits)
}

// Normalize maps hits to Story records. Unparseable object IDs skip
// the record; unparseable timestamps are tolerated and left unset.
func (h *HNAlgolia) Normalize(cfg config.Feed, raw any) []domain.Story {
	hits, ok := raw.([]algoliaHit)
	if !ok {
		return nil
	}

	now := time.Now().UTC()
	stories := make([]domain.Story, 0, len(hits))
	for _, hit := range hits {
		id, err := strconv.ParseInt(hit.ObjectID, 10, 64)
		if err != nil || hit.Title == "" {
			continue
		}

		var posted time.Time
		if t, err := time.Parse(time.RFC3339, hit.CreatedAt); err == nil {
			posted = t.UTC()
		}

		stories = append(stories, domain.Story{
			ID:          id,
			Title:       hit.Title,
			URL:         hit.URL,
			Score:       hit.Points,
			Comments:    hit.NumComments,
			Author:      hit.Author,
			PostedAt:    posted,
			Source:      hnAlgoliaSource,
			FeedID:      cfg.ID,
			RetrievedAt: now,
		})
	}

	sortStoriesDesc(stories)
	return stories
}
