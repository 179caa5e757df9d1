package domain

import (
	"strings"
	"time"
)

// Domain contains core models shared by providers, storage and the ingest pipeline.

// Credential is the endpoint + key registered for one provider.
type Credential struct {
	ProviderID  string `json:"provider_id" yaml:"provider_id" bson:"provider_id"`
	EndpointURL string `json:"endpoint_url" yaml:"endpoint_url" bson:"endpoint_url"`
	APIKey      string `json:"api_key" yaml:"api_key" bson:"api_key"`
}

// Source is a publisher. ExternalID is nil for providers that do not expose one.
type Source struct {
	ID         int64     `json:"id" bson:"id"`
	ExternalID *string   `json:"external_id,omitempty" bson:"external_id"`
	Name       string    `json:"name" bson:"name"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// Article is a persisted canonical article. URL is the dedup key.
type Article struct {
	ID          int64      `json:"id" bson:"id"`
	SourceID    int64      `json:"source_id" bson:"source_id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	Author      string     `json:"author" bson:"author"`
	URL         string     `json:"url" bson:"url"`
	ImageURL    *string    `json:"image_url,omitempty" bson:"image_url"`
	PublishedAt *time.Time `json:"published_at,omitempty" bson:"published_at"`
	Content     string     `json:"content" bson:"content"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// Draft is a mapped article that has not been persisted yet.
type Draft struct {
	Title            string
	Description      string
	Author           string
	URL              string
	ImageURL         *string
	PublishedAt      *time.Time
	Content          string
	SourceExternalID *string
	SourceName       string
}

// Article converts the draft into an article owned by sourceID.
func (d Draft) Article(sourceID int64) Article {
	return Article{
		SourceID:    sourceID,
		Title:       d.Title,
		Description: d.Description,
		Author:      d.Author,
		URL:         d.URL,
		ImageURL:    d.ImageURL,
		PublishedAt: d.PublishedAt,
		Content:     d.Content,
	}
}

// ItemError records why a single provider item was not stored.
type ItemError struct {
	Title   string `json:"title"`
	Message string `json:"error"`
}

// IngestionResult is the outcome of one provider run.
type IngestionResult struct {
	Success      bool        `json:"success"`
	StoredCount  int         `json:"stored_count"`
	SkippedCount int         `json:"skipped_count"`
	Errors       []ItemError `json:"errors"`
}

// OutcomeStatus classifies a provider outcome inside a batch.
type OutcomeStatus string

const (
	OutcomeSucceeded      OutcomeStatus = "succeeded"
	OutcomeNotImplemented OutcomeStatus = "not_implemented"
	OutcomeFailed         OutcomeStatus = "failed"
)

// ProviderOutcome is what happened to one requested provider id.
// ProviderID is the id as requested; ProviderName is set once it resolved.
type ProviderOutcome struct {
	ProviderID   string          `json:"provider_id"`
	ProviderName string          `json:"provider_name,omitempty"`
	Status       OutcomeStatus   `json:"status"`
	Result       IngestionResult `json:"result"`
	Err          error           `json:"-"`
}

// BatchSummary aggregates every provider outcome of one ingestion run.
type BatchSummary struct {
	StoredCount int               `json:"stored_count"`
	Successes   []string          `json:"successes"`
	Failures    []string          `json:"failures"`
	Outcomes    []ProviderOutcome `json:"outcomes"`
}

// SuccessMessage joins the success messages into one line.
func (s BatchSummary) SuccessMessage() string { return strings.Join(s.Successes, " ") }

// FailureMessage joins the failure messages into one line.
func (s BatchSummary) FailureMessage() string { return strings.Join(s.Failures, " ") }
