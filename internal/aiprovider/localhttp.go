package aiprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/rpgvault/ingest/internal/ingesterr"
	"github.com/rpgvault/ingest/internal/model"
)

// LocalHTTPProvider is the "local-http" variant: a plain JSON-over-HTTP
// client against a self-hosted OpenAI-compatible endpoint. A hand-rolled
// net/http client is enough here; an SDK wrapper buys nothing for a
// local endpoint with no auth or rate-limit handling.
type LocalHTTPProvider struct {
	baseURL string
	model   string
	client  *http.Client
	cache   *responseCache
}

// NewLocalHTTP builds the local-http provider.
func NewLocalHTTP(baseURL, model string, timeout time.Duration) *LocalHTTPProvider {
	return &LocalHTTPProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		cache:   newResponseCache(),
	}
}

func (p *LocalHTTPProvider) Name() string { return "local-http" }

type localChatRequest struct {
	Model       string             `json:"model"`
	Messages    []localChatMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

type localChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type localChatResponse struct {
	Choices []struct {
		Message localChatMessage `json:"message"`
	} `json:"choices"`
}

func (p *LocalHTTPProvider) chatJSON(ctx context.Context, system, user string, opts Options) ([]byte, error) {
	reqBody := localChatRequest{
		Model: p.model,
		Messages: []localChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("local-http: encode request: %w", err)
	}

	var out []byte
	err = retry.Do(func() error {
		cctx, cancel := context.WithTimeout(ctx, opts.timeout())
		defer cancel()

		req, err := http.NewRequestWithContext(cctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("local-http: unexpected status %d", resp.StatusCode)
		}

		var parsed localChatResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return err
		}
		if len(parsed.Choices) == 0 {
			return fmt.Errorf("local-http: empty choices")
		}
		out = []byte(parsed.Choices[0].Message.Content)
		return nil
	}, retryOpts(opts)...)
	if err != nil {
		return nil, ingesterr.New(ingesterr.KindAIUnreachable, "aiprovider.local-http", "chat completion failed", err)
	}
	return out, nil
}

func (p *LocalHTTPProvider) Identify(ctx context.Context, text string, contentKind model.ContentKind, opts Options) (model.Verdict, error) {
	key := cacheKey("identify", opts, text, string(contentKind))
	if opts.Cache {
		if v, ok := p.cache.get(key); ok {
			return v.(model.Verdict), nil
		}
	}
	raw, err := p.chatJSON(ctx, identifySystemPrompt, tokenBudget(text, opts.MaxTokens*4), opts)
	if err != nil {
		return model.Verdict{}, err
	}
	v, err := parseVerdict(raw, contentKind)
	if err != nil {
		return model.Verdict{}, err
	}
	if opts.Cache {
		p.cache.put(key, v)
	}
	return v, nil
}

func (p *LocalHTTPProvider) Categorize(ctx context.Context, sectionText string, allowedCategories []string, opts Options) (CategorizeResult, error) {
	key := cacheKey("categorize", opts, sectionText, strings.Join(allowedCategories, ","))
	if opts.Cache {
		if v, ok := p.cache.get(key); ok {
			return v.(CategorizeResult), nil
		}
	}
	user := fmt.Sprintf("Allowed categories: %v\n\nText:\n%s", allowedCategories, tokenBudget(sectionText, opts.MaxTokens*4))
	raw, err := p.chatJSON(ctx, categorizeSystemPrompt, user, opts)
	if err != nil {
		return CategorizeResult{}, err
	}
	r, err := parseCategory(raw)
	if err != nil {
		return CategorizeResult{}, err
	}
	if opts.Cache {
		p.cache.put(key, r)
	}
	return r, nil
}

func (p *LocalHTTPProvider) ExtractCharacters(ctx context.Context, novelText string, pass Pass, prior *model.CharacterGraph, opts Options) (*model.CharacterGraph, error) {
	return extractCharactersViaChat(ctx, p.chatJSON, novelText, pass, prior, opts)
}
