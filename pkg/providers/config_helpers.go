package providers

import (
	"net/url"
	"strings"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

// BuildRequestURL returns endpoint verbatim when it already carries a query string,
// otherwise endpoint with defaultQuery appended.
func BuildRequestURL(endpoint, defaultQuery string) string {
	endpoint = strings.TrimSpace(endpoint)
	if strings.Contains(endpoint, "?") || defaultQuery == "" {
		return endpoint
	}
	return endpoint + "?" + defaultQuery
}

// RequestTarget builds the final URL and headers for one provider call, placing the
// API key where the provider expects it.
func RequestTarget(p Provider, cred domain.Credential) (string, map[string]string) {
	target := BuildRequestURL(cred.EndpointURL, p.DefaultQuery)
	headers := Headers(p)

	switch p.KeyPlacement {
	case KeyInHeader:
		headers[p.KeyName] = cred.APIKey
	default:
		param := url.QueryEscape(p.KeyName) + "=" + url.QueryEscape(cred.APIKey)
		switch {
		case strings.HasSuffix(target, "?"), strings.HasSuffix(target, "&"):
			target += param
		case strings.Contains(target, "?"):
			target += "&" + param
		default:
			target += "?" + param
		}
	}
	return target, headers
}

// Headers builds the static request headers configured for a provider (skips empty values).
func Headers(p Provider) map[string]string {
	headers := make(map[string]string, len(p.Headers)+1)
	for k, v := range p.Headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		headers[key] = val
	}
	return headers
}
