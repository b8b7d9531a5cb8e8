// Package docstore provides ensure-collection, insert-whole,
// insert-split, paged-read, and text-search operations against a
// DefraDB-compatible GraphQL-over-HTTP backend. One DefraDB document
// type (IngestDocument) backs every logical collection: its Collection
// field carries the logical collection name (the dotted path or "rpger"
// plus folder_path), since a real GraphQL schema is installed once, not
// per-book.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rpgvault/ingest/internal/ingesterr"
)

// ingestDocumentSchema is the DefraDB SDL for the single document type
// backing every logical collection.
const ingestDocumentSchema = `
type IngestDocument {
	collection: String
	folderPath: String
	game: String
	edition: String
	book: String
	kind: String
	isbn: String
	importDate: String
	page: Int
	ordinal: Int
	category: String
	text: String
	isWhole: Boolean
	sourceDigest: String
}
`

// Client is a DefraDB HTTP/GraphQL client.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a client against a DefraDB-compatible GraphQL endpoint.
func NewClient(url string) *Client {
	return &Client{
		url:        strings.TrimSuffix(url, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GQLRequest is a GraphQL request envelope.
type GQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// GQLResponse is a GraphQL response envelope.
type GQLResponse struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors []GQLError     `json:"errors,omitempty"`
}

// GQLError is one GraphQL error entry.
type GQLError struct {
	Message string `json:"message"`
}

// Error returns the first error message, or "" if there were none.
func (r *GQLResponse) Error() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// HealthCheck reports whether the document store is reachable, used by
// the Session API's health() verb.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/health-check", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ingesterr.New(ingesterr.KindStoreUnreachable, "docstore.health", c.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ingesterr.New(ingesterr.KindStoreUnreachable, "docstore.health", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	return nil
}

// Execute sends a GraphQL query/mutation and decodes the response.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (*GQLResponse, error) {
	body, err := json.Marshal(GQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("docstore: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/v0/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("docstore: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ingesterr.New(ingesterr.KindStoreUnreachable, "docstore.execute", c.url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("docstore: read response: %w", err)
	}

	var gql GQLResponse
	if err := json.Unmarshal(raw, &gql); err != nil {
		return nil, fmt.Errorf("docstore: decode response: %w (body: %s)", err, string(raw))
	}
	return &gql, nil
}

// AddSchema installs a GraphQL SDL schema fragment.
func (c *Client) AddSchema(ctx context.Context, schema string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/v0/schema", strings.NewReader(schema))
	if err != nil {
		return fmt.Errorf("docstore: build schema request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ingesterr.New(ingesterr.KindStoreUnreachable, "docstore.add_schema", c.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		// A schema that already exists is reported as a conflict, not a
		// reachability problem; callers treat EnsureSchema as idempotent.
		return ingesterr.New(ingesterr.KindStoreConflict, "docstore.add_schema", string(raw), nil)
	}
	return nil
}

// Create inserts a document into collection and returns its doc id.
func (c *Client) Create(ctx context.Context, collection string, input map[string]any) (string, error) {
	query := fmt.Sprintf(`mutation { create_%s(input: %s) { _docID } }`, collection, mapToGraphQLInput(input))
	resp, err := c.Execute(ctx, query, nil)
	if err != nil {
		return "", err
	}
	if msg := resp.Error(); msg != "" {
		return "", ingesterr.New(ingesterr.KindStoreUnreachable, "docstore.create", msg, nil)
	}
	key := "create_" + collection
	if docs, ok := resp.Data[key].([]any); ok && len(docs) > 0 {
		if doc, ok := docs[0].(map[string]any); ok {
			if id, ok := doc["_docID"].(string); ok {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("docstore: unexpected create response: %+v", resp.Data)
}

func mapToGraphQLInput(input map[string]any) string {
	parts := make([]string, 0, len(input))
	for k, v := range input {
		var val string
		switch t := v.(type) {
		case string:
			val = fmt.Sprintf("%q", t)
		case int, int64, float64:
			val = fmt.Sprintf("%v", t)
		case bool:
			val = fmt.Sprintf("%v", t)
		default:
			b, _ := json.Marshal(t)
			val = string(b)
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, val))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
