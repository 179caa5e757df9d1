package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

const unknownTitle = "Unknown"

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// fetchJSON performs the single outbound GET for a provider run.
func fetchJSON(ctx context.Context, client HTTPClient, p Provider, cred domain.Credential) ([]byte, error) {
	target, headers := RequestTarget(p, cred)

	resp, err := client.Get(ctx, target, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", domain.ErrUpstream, p.ID, err)
	}

	body := resp.Body()
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d body: %s", domain.ErrUpstream, p.ID, code, responseSnippet(body))
	}
	return body, nil
}

// invalidResponse reports a body that lacks the provider's top-level article array.
func invalidResponse(p Provider, err error) error {
	if err != nil {
		return fmt.Errorf("%w: invalid response from %s: %v", domain.ErrUpstream, p.Name, err)
	}
	return fmt.Errorf("%w: invalid response from %s", domain.ErrUpstream, p.Name)
}

func mappingError(title string, err error) domain.ItemError {
	if strings.TrimSpace(title) == "" {
		title = unknownTitle
	}
	return domain.ItemError{
		Title:   title,
		Message: fmt.Errorf("%w: %v", domain.ErrMapping, err).Error(),
	}
}

// bestEffortTitle digs a title out of a raw item that failed strict decoding.
func bestEffortTitle(raw json.RawMessage, paths ...[]string) string {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return unknownTitle
	}
	for _, path := range paths {
		var cur any = doc
		for _, key := range path {
			m, ok := cur.(map[string]any)
			if !ok {
				cur = nil
				break
			}
			cur = m[key]
		}
		if s, ok := cur.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return unknownTitle
}

// stripTags drops the markup of an HTML fragment. Text is kept byte for byte,
// so entities stay encoded whether or not the fragment had tags.
func stripTags(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return fragment
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Raw())
		}
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	nl2brReplacer = strings.NewReplacer("\r\n", "<br />\r\n", "\n", "<br />\n", "\r", "<br />\r")
	// Quotes use the &quot; and &#039; forms.
	specialCharsReplacer = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)
)

// wrapParagraph turns plain text into an escaped paragraph. Content that already
// starts with markup is returned as is.
func wrapParagraph(content string) string {
	if content == "" || strings.HasPrefix(strings.TrimSpace(content), "<") {
		return content
	}
	return "<p>" + nl2brReplacer.Replace(specialCharsReplacer.Replace(content)) + "</p>"
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp returns nil for a blank value and an error for an unparseable one.
func parseTimestamp(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc, nil
		}
	}
	return nil, fmt.Errorf("unparseable timestamp %q", raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonEmptyPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
