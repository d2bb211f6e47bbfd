// Package research grounds agent answers in web search results.
package research

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Hit is one web search result.
type Hit struct {
	URI     string `json:"uri"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
}

// Searcher runs a single web query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

// maxResultsPerQuery is the Custom Search API page size limit.
const maxResultsPerQuery = 10

// GoogleSearcher queries a Google Programmable Search Engine.
type GoogleSearcher struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleSearcher creates a searcher bound to the engine cx.
func NewGoogleSearcher(ctx context.Context, apiKey, cx string) (*GoogleSearcher, error) {
	if apiKey == "" || cx == "" {
		return nil, errors.New("search API key and engine ID are required")
	}
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create customsearch service")
	}
	return &GoogleSearcher{svc: svc, cx: cx}, nil
}

// Search returns up to limit hits for query.
func (g *GoogleSearcher) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 || limit > maxResultsPerQuery {
		limit = maxResultsPerQuery
	}
	resp, err := g.svc.Cse.List().Cx(g.cx).Q(query).Num(int64(limit)).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "search failed for %q", query)
	}

	hits := make([]Hit, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Link == "" {
			continue
		}
		hits = append(hits, Hit{URI: item.Link, Title: item.Title, Snippet: item.Snippet})
	}
	return hits, nil
}
