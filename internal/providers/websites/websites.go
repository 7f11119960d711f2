// Package websites turns a query that looks like a web address into a page
// preview.
package websites

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/kvaesitso/kvs/internal/remote"
	"github.com/kvaesitso/kvs/internal/search"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// domainRegexp matches host names such as example.com or sub.do-main.org.
// Labels may not start or end with a hyphen; the last label is letters only.
var domainRegexp = regexp.MustCompile(`^(?:\w(?:[-\w]*\w)?\.)+[a-zA-Z]+$`)

// Repository fetches the page a query points at.
type Repository struct {
	fetcher *remote.Fetcher
	logger  *zap.Logger
}

// New creates a Repository.
func New(f *remote.Fetcher, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{fetcher: f, logger: logger}
}

// Search implements search.Repository. It emits an empty list straight away,
// then the preview if the page could be loaded.
func (r *Repository) Search(ctx context.Context, query string, allowNetwork bool, emit func([]search.Website)) error {
	emit(nil)
	if !allowNetwork || !r.fetcher.Enabled() {
		return nil
	}
	target, ok := NormalizeURL(query)
	if !ok {
		return nil
	}

	body, err := r.fetcher.Get(ctx, target)
	if err != nil {
		// Unreachable pages are not a failure of the category.
		r.logger.Debug("website preview failed", zap.String("url", target), zap.Error(err))
		return nil
	}
	site, err := parsePage(target, body)
	if err != nil {
		r.logger.Debug("website parse failed", zap.String("url", target), zap.Error(err))
		return nil
	}
	emit([]search.Website{site})
	return nil
}

// NormalizeURL returns the URL a query refers to. http and https URLs are
// taken as they are; bare host names, optionally followed by a path, get an
// https scheme. Anything else is rejected.
func NormalizeURL(query string) (string, bool) {
	q := strings.TrimSpace(query)
	if q == "" || strings.ContainsAny(q, " \t\r\n") {
		return "", false
	}
	lower := strings.ToLower(q)
	for _, scheme := range []string{"http://", "https://"} {
		if strings.HasPrefix(lower, scheme) {
			if len(q) == len(scheme) {
				return "", false
			}
			return q, true
		}
	}
	if strings.Contains(q, "://") {
		return "", false
	}

	domain, path, _ := strings.Cut(q, "/")
	if !domainRegexp.MatchString(domain) {
		return "", false
	}
	if path == "" {
		return "https://" + domain, true
	}
	return "https://" + domain + "/" + path, true
}

// parsePage extracts the preview fields from an HTML document.
func parsePage(pageURL string, body []byte) (search.Website, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return search.Website{}, fmt.Errorf("parse url: %w", err)
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return search.Website{}, fmt.Errorf("parse html: %w", err)
	}

	var p page
	p.walk(doc)

	site := search.Website{
		URL:         pageURL,
		Label:       first(p.ogTitle, p.title, pageURL),
		Description: first(p.ogDescription, p.description),
		Color:       p.themeColor,
		ImageURL:    resolve(base, p.ogImage),
		FaviconURL:  resolve(base, first(p.touchIcon, p.itemImage, p.icon, p.anyIcon)),
	}
	return site, nil
}

type page struct {
	title         string
	ogTitle       string
	description   string
	ogDescription string
	ogImage       string
	themeColor    string
	touchIcon     string
	itemImage     string
	icon          string
	anyIcon       string
}

func (p *page) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Title:
			if p.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				p.title = strings.TrimSpace(n.FirstChild.Data)
			}
		case atom.Meta:
			p.meta(n)
		case atom.Link:
			p.link(n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

func (p *page) meta(n *html.Node) {
	content := strings.TrimSpace(attr(n, "content"))
	if content == "" {
		return
	}
	set := func(dst *string) {
		if *dst == "" {
			*dst = content
		}
	}
	switch strings.ToLower(attr(n, "property")) {
	case "og:title":
		set(&p.ogTitle)
	case "og:description":
		set(&p.ogDescription)
	case "og:image":
		set(&p.ogImage)
	}
	switch strings.ToLower(attr(n, "name")) {
	case "description":
		set(&p.description)
	case "theme-color":
		set(&p.themeColor)
	}
	if strings.EqualFold(attr(n, "itemprop"), "image") {
		set(&p.itemImage)
	}
}

func (p *page) link(n *html.Node) {
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" {
		return
	}
	rels := strings.Fields(strings.ToLower(attr(n, "rel")))
	switch {
	case slices.Contains(rels, "apple-touch-icon"):
		if p.touchIcon == "" {
			p.touchIcon = href
		}
	case slices.Contains(rels, "icon"):
		if p.icon == "" {
			p.icon = href
		}
	}
	if lower := strings.ToLower(href); p.anyIcon == "" &&
		(strings.HasSuffix(lower, ".ico") || strings.HasSuffix(lower, ".png")) {
		p.anyIcon = href
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
