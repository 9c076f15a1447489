package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderJina   = "jina"
	ProviderLocal  = "local"

	// Default models
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultLocalModel  = "local-hashing-v1"

	// Default endpoints
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultJinaBaseURL   = "https://api.jina.ai/v1"

	// Dimensions
	OpenAIDimension = 1536
	JinaDimension   = 1024
	LocalDimension  = 384

	// Upstream request limits (texts per request)
	OpenAIMaxBatch = 2048
	JinaMaxBatch   = 100

	// DefaultTimeout bounds a single upstream request
	DefaultTimeout = 30 * time.Second

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// Option customizes a remote provider
type Option func(*httpProvider)

// WithBaseURL points the provider at a different API root (proxies, tests)
func WithBaseURL(url string) Option {
	return func(p *httpProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithModel overrides the default model
func WithModel(model string) Option {
	return func(p *httpProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(p *httpProvider) { p.httpClient = client }
}

// WithKeyResolver resolves the API key on every request
func WithKeyResolver(resolver KeyResolver) Option {
	return func(p *httpProvider) { p.keys = resolver }
}

// WithRetryConfig overrides the retry policy
func WithRetryConfig(cfg RetryConfig) Option {
	return func(p *httpProvider) { p.retry = cfg }
}

// httpProvider implements the OpenAI-compatible /embeddings API shared by OpenAI and Jina
type httpProvider struct {
	name       string
	model      string
	baseURL    string
	dimension  int
	maxBatch   int
	keys       KeyResolver
	httpClient *http.Client
	cache      *Cache
	retry      RetryConfig
}

func newHTTPProvider(name, model, baseURL string, dimension, maxBatch int, apiKey, envVar string, cache *Cache, opts []Option) (*httpProvider, error) {
	p := &httpProvider{
		name:      name,
		model:     model,
		baseURL:   baseURL,
		dimension: dimension,
		maxBatch:  maxBatch,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		cache: cache,
		retry: DefaultRetryConfig(),
	}
	if apiKey != "" {
		p.keys = StaticKey(apiKey)
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.keys == nil {
		// Fall back to the environment, but fail fast when nothing is configured
		if key, _ := EnvKey(envVar)(context.Background()); key == "" {
			return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, envVar)
		}
		p.keys = EnvKey(envVar)
	}

	return p, nil
}

func (p *httpProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedCached(ctx, p.cache, texts, p.maxBatch, func(ctx context.Context, batch []string) ([][]float32, error) {
		vectors, err := retryWithBackoff(ctx, p.retry, func() ([][]float32, error) {
			return p.callAPI(ctx, batch)
		})
		if err != nil {
			return nil, fmt.Errorf("%s embeddings: %w", p.name, err)
		}
		return vectors, nil
	})
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

func (p *httpProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	apiKey, err := resolveAPIKey(ctx, p.keys)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(embeddingsRequest{Input: texts, Model: p.model})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrInvalidInput, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrInvalidInput, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d, check your API key", ErrAuthentication, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP 429, wait and try again", ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrTransport, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var apiResp embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}

	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrTransport, len(texts), len(apiResp.Data))
	}

	sort.SliceStable(apiResp.Data, func(i, j int) bool {
		return apiResp.Data[i].Index < apiResp.Data[j].Index
	})

	vectors := make([][]float32, len(apiResp.Data))
	for i, d := range apiResp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (p *httpProvider) Dimension() int {
	return p.dimension
}

func (p *httpProvider) Provider() string {
	return p.name
}

func (p *httpProvider) Model() string {
	return p.model
}

func (p *httpProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// OpenAIProvider implements Embedder using the OpenAI API
type OpenAIProvider struct {
	*httpProvider
}

// NewOpenAIProvider creates a new OpenAI embedder.
// An empty apiKey falls back to OPENAI_API_KEY unless a KeyResolver option is given.
func NewOpenAIProvider(apiKey string, cache *Cache, opts ...Option) (*OpenAIProvider, error) {
	p, err := newHTTPProvider(ProviderOpenAI, DefaultOpenAIModel, DefaultOpenAIBaseURL,
		OpenAIDimension, OpenAIMaxBatch, apiKey, EnvOpenAIAPIKey, cache, opts)
	if err != nil {
		return nil, err
	}
	return &OpenAIProvider{httpProvider: p}, nil
}

// JinaProvider implements Embedder using the Jina AI API
type JinaProvider struct {
	*httpProvider
}

// NewJinaProvider creates a new Jina AI embedder.
// An empty apiKey falls back to JINA_API_KEY unless a KeyResolver option is given.
func NewJinaProvider(apiKey string, cache *Cache, opts ...Option) (*JinaProvider, error) {
	p, err := newHTTPProvider(ProviderJina, DefaultJinaModel, DefaultJinaBaseURL,
		JinaDimension, JinaMaxBatch, apiKey, EnvJinaAPIKey, cache, opts)
	if err != nil {
		return nil, err
	}
	return &JinaProvider{httpProvider: p}, nil
}

// LocalProvider embeds offline by hashing word tokens into a fixed-size vector.
// Texts sharing vocabulary land near each other, which is enough for tests and
// air-gapped use; it is not a semantic model.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: DefaultLocalModel,
		cache: cache,
	}, nil
}

func (l *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedCached(ctx, l.cache, texts, 0, func(ctx context.Context, batch []string) ([][]float32, error) {
		vectors := make([][]float32, len(batch))
		for i, text := range batch {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			vectors[i] = hashEmbedding(text, LocalDimension)
		}
		return vectors, nil
	})
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// hashEmbedding builds a signed feature-hashing vector of the lower-cased word tokens
func hashEmbedding(text string, dim int) []float32 {
	vector := make([]float32, dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(dim))
		if sum&(1<<63) != 0 {
			vector[idx] -= 1
		} else {
			vector[idx] += 1
		}
	}

	return NormalizeVector(vector)
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
