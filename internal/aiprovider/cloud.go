package aiprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pkoukk/tiktoken-go"

	"github.com/rpgvault/ingest/internal/ingesterr"
	"github.com/rpgvault/ingest/internal/model"
)

// identifySystemPrompt and categorizeSystemPrompt instruct the real
// providers to emit JSON matching the schemas in schema.go.
const (
	identifySystemPrompt = "You classify tabletop RPG source material and novels. " +
		"Respond with a single JSON object: kind, game, edition, book, book_title, " +
		"publisher, confidence (0-1), rationale. No prose outside the JSON."
	categorizeSystemPrompt = "You categorize a section of RPG text into exactly one of the " +
		"allowed categories. Respond with a single JSON object: category, confidence (0-1), rationale."
)

// tokenBudget trims text to fit within maxTokens using tiktoken-go's
// cl100k_base encoding before a chat call.
func tokenBudget(text string, maxTokens int) string {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil || maxTokens <= 0 {
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}

func retryOpts(opts Options) []retry.Option {
	return []retry.Option{
		retry.Attempts(uint(opts.Retries + 1)),
		retry.Delay(500 * time.Millisecond),
		retry.MaxJitter(100 * time.Millisecond), // ~20% jitter on the 500ms base
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
	}
}

// CloudAProvider is the "cloud-a" variant over the openai-go/v3 chat
// completions API.
type CloudAProvider struct {
	client openai.Client
	model  string
	cache  *responseCache
}

// NewCloudA builds the cloud-a provider.
func NewCloudA(apiKey, model_ string, timeout time.Duration) *CloudAProvider {
	if model_ == "" {
		model_ = "gpt-4o-mini"
	}
	c := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	return &CloudAProvider{client: c, model: model_, cache: newResponseCache()}
}

func (p *CloudAProvider) Name() string { return "cloud-a" }

func (p *CloudAProvider) chatJSON(ctx context.Context, system, user string, opts Options) ([]byte, error) {
	var out []byte
	err := retry.Do(func() error {
		cctx, cancel := context.WithTimeout(ctx, opts.timeout())
		defer cancel()

		resp, err := p.client.Chat.Completions.New(cctx, openai.ChatCompletionNewParams{
			Model: p.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(user),
			},
			Temperature: openai.Float(opts.Temperature),
			MaxTokens:   openai.Int(int64(opts.MaxTokens)),
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("cloud-a: empty choices")
		}
		out = []byte(resp.Choices[0].Message.Content)
		return nil
	}, retryOpts(opts)...)
	if err != nil {
		return nil, ingesterr.New(ingesterr.KindAIUnreachable, "aiprovider.cloud-a", "chat completion failed", err)
	}
	return out, nil
}

func (p *CloudAProvider) Identify(ctx context.Context, text string, contentKind model.ContentKind, opts Options) (model.Verdict, error) {
	key := cacheKey("identify", opts, text, string(contentKind))
	if opts.Cache {
		if v, ok := p.cache.get(key); ok {
			return v.(model.Verdict), nil
		}
	}
	trimmed := tokenBudget(text, opts.MaxTokens*4)
	raw, err := p.chatJSON(ctx, identifySystemPrompt, trimmed, opts)
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

func (p *CloudAProvider) Categorize(ctx context.Context, sectionText string, allowedCategories []string, opts Options) (CategorizeResult, error) {
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

func (p *CloudAProvider) ExtractCharacters(ctx context.Context, novelText string, pass Pass, prior *model.CharacterGraph, opts Options) (*model.CharacterGraph, error) {
	return extractCharactersViaChat(ctx, p.chatJSON, novelText, pass, prior, opts)
}

// CloudBProvider is the "cloud-b" variant over anthropic-sdk-go's
// Messages API. Its structured-output contract mirrors cloud-a exactly.
type CloudBProvider struct {
	client anthropic.Client
	model  string
	cache  *responseCache
}

// NewCloudB builds the cloud-b provider.
func NewCloudB(apiKey, model_ string, timeout time.Duration) *CloudBProvider {
	if model_ == "" {
		model_ = string(anthropic.ModelClaude3_5HaikuLatest)
	}
	c := anthropic.NewClient(
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	return &CloudBProvider{client: c, model: model_, cache: newResponseCache()}
}

func (p *CloudBProvider) Name() string { return "cloud-b" }

func (p *CloudBProvider) messageJSON(ctx context.Context, system, user string, opts Options) ([]byte, error) {
	var out []byte
	err := retry.Do(func() error {
		cctx, cancel := context.WithTimeout(ctx, opts.timeout())
		defer cancel()

		resp, err := p.client.Messages.New(cctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(p.model),
			MaxTokens:   int64(opts.MaxTokens),
			Temperature: anthropic.Float(opts.Temperature),
			System: []anthropic.TextBlockParam{
				{Text: system},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Content) == 0 {
			return fmt.Errorf("cloud-b: empty content")
		}
		out = []byte(resp.Content[0].Text)
		return nil
	}, retryOpts(opts)...)
	if err != nil {
		return nil, ingesterr.New(ingesterr.KindAIUnreachable, "aiprovider.cloud-b", "message call failed", err)
	}
	return out, nil
}

func (p *CloudBProvider) Identify(ctx context.Context, text string, contentKind model.ContentKind, opts Options) (model.Verdict, error) {
	key := cacheKey("identify", opts, text, string(contentKind))
	if opts.Cache {
		if v, ok := p.cache.get(key); ok {
			return v.(model.Verdict), nil
		}
	}
	trimmed := tokenBudget(text, opts.MaxTokens*4)
	raw, err := p.messageJSON(ctx, identifySystemPrompt, trimmed, opts)
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

func (p *CloudBProvider) Categorize(ctx context.Context, sectionText string, allowedCategories []string, opts Options) (CategorizeResult, error) {
	key := cacheKey("categorize", opts, sectionText, strings.Join(allowedCategories, ","))
	if opts.Cache {
		if v, ok := p.cache.get(key); ok {
			return v.(CategorizeResult), nil
		}
	}
	user := fmt.Sprintf("Allowed categories: %v\n\nText:\n%s", allowedCategories, tokenBudget(sectionText, opts.MaxTokens*4))
	raw, err := p.messageJSON(ctx, categorizeSystemPrompt, user, opts)
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

func (p *CloudBProvider) ExtractCharacters(ctx context.Context, novelText string, pass Pass, prior *model.CharacterGraph, opts Options) (*model.CharacterGraph, error) {
	return extractCharactersViaChat(ctx, p.messageJSON, novelText, pass, prior, opts)
}

// parseVerdict validates raw against the verdict schema and decodes it,
// mapping validation failures to ai_malformed.
func parseVerdict(raw []byte, contentKind model.ContentKind) (model.Verdict, error) {
	instance, err := validateJSON("verdict", raw)
	if err != nil {
		return model.Verdict{}, ingesterr.New(ingesterr.KindAIMalformed, "aiprovider.identify", "structured output failed schema validation", err)
	}

	v := model.Verdict{Kind: contentKind}
	if s, ok := instance["kind"].(string); ok && s != "" {
		v.Kind = model.ContentKind(s)
	}
	v.Game, _ = instance["game"].(string)
	v.Edition, _ = instance["edition"].(string)
	v.Book, _ = instance["book"].(string)
	v.BookTitle, _ = instance["book_title"].(string)
	v.Publisher, _ = instance["publisher"].(string)
	v.Rationale, _ = instance["rationale"].(string)
	if c, ok := instance["confidence"].(float64); ok {
		v.Confidence = c
	}
	return v, nil
}

func parseCategory(raw []byte) (CategorizeResult, error) {
	instance, err := validateJSON("category", raw)
	if err != nil {
		return CategorizeResult{}, ingesterr.New(ingesterr.KindAIMalformed, "aiprovider.categorize", "structured output failed schema validation", err)
	}
	var r CategorizeResult
	r.Category, _ = instance["category"].(string)
	r.Rationale, _ = instance["rationale"].(string)
	if c, ok := instance["confidence"].(float64); ok {
		r.Confidence = c
	}
	return r, nil
}

// characterSchemaExtraction describes one discovered/enhanced character in
// the chat-based extraction JSON contract shared by both cloud providers.
type characterSchemaExtraction struct {
	Characters []struct {
		Name         string   `json:"name"`
		PageMentions int      `json:"page_mentions"`
		Quotes       []string `json:"quotes"`
		Personality  []string `json:"personality"`
		Behavior     []string `json:"behavior"`
	} `json:"characters"`
}

// extractCharactersViaChat shares the discover/enhance chat protocol
// between cloud-a and cloud-b: both send the same prompts and expect the
// same JSON shape, differing only in which chat call does the work.
func extractCharactersViaChat(
	ctx context.Context,
	call func(ctx context.Context, system, user string, opts Options) ([]byte, error),
	novelText string,
	pass Pass,
	prior *model.CharacterGraph,
	opts Options,
) (*model.CharacterGraph, error) {
	system := "You analyze novel excerpts for character mentions. Respond with a single JSON " +
		"object: {\"characters\": [{\"name\", \"page_mentions\", \"quotes\", \"personality\", \"behavior\"}]}."
	user := fmt.Sprintf("Pass: %s\nPrior characters: %d\n\nText:\n%s", pass, priorCount(prior), tokenBudget(novelText, opts.MaxTokens*4))

	raw, err := call(ctx, system, user, opts)
	if err != nil {
		return nil, err
	}

	var parsed characterSchemaExtraction
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, ingesterr.New(ingesterr.KindAIMalformed, "aiprovider.extract_characters", "character JSON did not parse", err)
	}

	graph := prior
	if graph == nil {
		graph = &model.CharacterGraph{Relationships: map[string][]string{}}
	}
	for _, c := range parsed.Characters {
		rec := model.CharacterRecord{
			ID:           "char_" + c.Name,
			Name:         c.Name,
			PageMentions: c.PageMentions,
			Personality:  c.Personality,
			Behavior:     c.Behavior,
		}
		for _, q := range c.Quotes {
			rec.Quotes = append(rec.Quotes, model.CharacterQuote{Text: q})
		}
		graph.Characters = append(graph.Characters, rec)
	}
	return graph, nil
}

func priorCount(g *model.CharacterGraph) int {
	if g == nil {
		return 0
	}
	return len(g.Characters)
}
