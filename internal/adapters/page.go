package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

// PageFetcher scrapes Open Graph and schema.org tags from a video page
type PageFetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// NewPageFetcher creates a page scraper. maxBody caps how much HTML is parsed.
func NewPageFetcher(client *http.Client, userAgent string, maxBody int64) *PageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxBody <= 0 {
		maxBody = 5 << 20
	}
	return &PageFetcher{
		client:    client,
		userAgent: userAgent,
		maxBody:   maxBody,
	}
}

// Name identifies the backend in logs and metrics
func (p *PageFetcher) Name() string { return "page" }

// Fetch downloads the page and extracts its metadata
func (p *PageFetcher) Fetch(ctx context.Context, videoURL string) (types.VideoMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return types.VideoMetadata{}, fmt.Errorf("failed to build request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return types.VideoMetadata{}, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone, http.StatusForbidden, http.StatusUnauthorized:
		return types.VideoMetadata{}, fmt.Errorf("%w: page returned status %d", ErrVideoUnavailable, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.VideoMetadata{}, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, p.maxBody))
	if err != nil {
		return types.VideoMetadata{}, fmt.Errorf("failed to parse page: %w", err)
	}

	meta := ParsePage(doc)
	meta.URL = videoURL
	return meta, nil
}

// ParsePage extracts metadata from a parsed HTML document
func ParsePage(doc *goquery.Document) types.VideoMetadata {
	title := firstContent(doc, "meta[property='og:title']", "meta[name='title']", "meta[name='twitter:title']")
	if title == "" {
		title = normSpace(doc.Find("title").First().Text())
	}

	description := firstContent(doc,
		"meta[property='og:description']",
		"meta[name='description']",
		"meta[name='twitter:description']",
	)

	uploader := firstContent(doc,
		"[itemprop='author'] [itemprop='name']",
		"meta[name='author']",
		"meta[property='video:director']",
	)

	var tags []string
	doc.Find("meta[property='og:video:tag'], meta[property='video:tag']").Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			tags = append(tags, content)
		}
	})
	if keywords, ok := doc.Find("meta[name='keywords']").First().Attr("content"); ok {
		tags = append(tags, strings.Split(keywords, ",")...)
	}

	return types.VideoMetadata{
		Title:       title,
		Description: description,
		Uploader:    uploader,
		Tags:        dedupe(tags),
	}
}

func firstContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if v := normSpace(content); v != "" {
				return v
			}
		}
	}
	return ""
}

func normSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
