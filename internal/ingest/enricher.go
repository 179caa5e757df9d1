package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
	"github.com/samvad-hq/samvad-news-ingest/internal/logger"
	"github.com/samvad-hq/samvad-news-ingest/pkg/httpclient"
	"github.com/samvad-hq/samvad-news-ingest/pkg/providers"
)

const maxHTMLBodyBytes = 1 << 20 // 1 MiB

// Enricher fills gaps in a draft before it is stored.
type Enricher interface {
	Enrich(ctx context.Context, p providers.Provider, draft domain.Draft) domain.Draft
}

// PageMetaEnricher fetches the article page and backfills a missing image or
// description from its OG tags. Fields the provider supplied are never replaced.
type PageMetaEnricher struct {
	client httpclient.Client
	log    logger.Logger
}

// NewPageMetaEnricher constructs an enricher with the provided HTTP client (or default).
func NewPageMetaEnricher(client httpclient.Client, log logger.Logger) *PageMetaEnricher {
	if client == nil {
		client = providers.DefaultHTTPClient()
	}
	return &PageMetaEnricher{client: client, log: logger.Ensure(log)}
}

func (e *PageMetaEnricher) Enrich(ctx context.Context, p providers.Provider, draft domain.Draft) domain.Draft {
	if draft.ImageURL != nil && strings.TrimSpace(draft.Description) != "" {
		return draft
	}
	if !strings.HasPrefix(draft.URL, "http://") && !strings.HasPrefix(draft.URL, "https://") {
		return draft
	}

	meta, err := e.fetchMeta(ctx, p, draft.URL)
	if err != nil {
		e.log.WarnObj("article metadata scrape failed", "metadata_error", map[string]any{
			"provider_id": p.ID,
			"url":         draft.URL,
			"error":       err.Error(),
		})
		return draft
	}

	if draft.ImageURL == nil && meta.ImageURL != "" {
		img := resolveURL(meta.ImageURL, draft.URL)
		draft.ImageURL = &img
	}
	if strings.TrimSpace(draft.Description) == "" && meta.Description != "" {
		draft.Description = meta.Description
	}
	return draft
}

func (e *PageMetaEnricher) fetchMeta(ctx context.Context, p providers.Provider, pageURL string) (pageMeta, error) {
	resp, err := e.client.Get(ctx, pageURL, providers.Headers(p))
	if err != nil {
		return pageMeta{}, fmt.Errorf("http fetch: %w", err)
	}
	if resp.StatusCode() != 200 {
		return pageMeta{}, fmt.Errorf("status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}
	return parseMeta(body)
}

type pageMeta struct {
	Description string
	ImageURL    string
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	desc := extract(`meta[property="og:description"]`)
	if desc == "" {
		desc = extract(`meta[name="description"]`)
	}
	img := extract(`meta[property="og:image"]`)
	if img == "" {
		img = extract(`meta[name="twitter:image"]`)
	}
	return pageMeta{Description: desc, ImageURL: img}, nil
}

// resolveURL makes ref absolute against the page it was found on.
func resolveURL(ref, page string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	base, err := url.Parse(page)
	if err != nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}
