// Package wiki finds encyclopedia articles through the MediaWiki action API.
package wiki

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/kvaesitso/kvs/internal/remote"
	"github.com/kvaesitso/kvs/internal/search"
)

const minQueryLen = 3

// Repository returns the best matching article for a query.
type Repository struct {
	fetcher *remote.Fetcher
	baseURL string
	source  string
}

// New creates a Repository for the wiki at baseURL, e.g.
// https://en.wikipedia.org.
func New(f *remote.Fetcher, baseURL string) *Repository {
	return &Repository{
		fetcher: f,
		baseURL: strings.TrimRight(baseURL, "/"),
		source:  "wikipedia",
	}
}

type queryResponse struct {
	Query struct {
		Pages []struct {
			PageID    int64  `json:"pageid"`
			Title     string `json:"title"`
			Extract   string `json:"extract"`
			FullURL   string `json:"fullurl"`
			Thumbnail *struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		} `json:"pages"`
	} `json:"query"`
}

// Search implements search.Repository. Without network access, or for
// queries shorter than three characters, it yields an empty list.
func (r *Repository) Search(ctx context.Context, query string, allowNetwork bool, emit func([]search.Article)) error {
	query = strings.TrimSpace(query)
	if !allowNetwork || !r.fetcher.Enabled() || utf8.RuneCountInString(query) < minQueryLen {
		emit(nil)
		return nil
	}

	var resp queryResponse
	if err := r.fetcher.GetJSON(ctx, r.queryURL(query), &resp); err != nil {
		return fmt.Errorf("search articles: %w", err)
	}

	out := []search.Article{}
	if pages := resp.Query.Pages; len(pages) > 0 && pages[0].PageID != 0 {
		p := pages[0]
		a := search.Article{
			Source:  r.source,
			PageID:  p.PageID,
			Label:   p.Title,
			Summary: strings.TrimSpace(p.Extract),
			URL:     p.FullURL,
		}
		if p.Thumbnail != nil {
			a.ImageURL = p.Thumbnail.Source
		}
		out = append(out, a)
	}
	emit(out)
	return nil
}

func (r *Repository) queryURL(q string) string {
	v := url.Values{}
	v.Set("action", "query")
	v.Set("format", "json")
	v.Set("formatversion", "2")
	v.Set("generator", "search")
	v.Set("gsrsearch", q)
	v.Set("gsrlimit", "1")
	v.Set("prop", "extracts|pageimages|info")
	v.Set("exintro", "1")
	v.Set("explaintext", "1")
	v.Set("exsentences", "3")
	v.Set("pithumbsize", "400")
	v.Set("inprop", "url")
	return r.baseURL + "/w/api.php?" + v.Encode()
}
