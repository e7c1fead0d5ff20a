package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

const (
	defaultOllamaHost  = "http://localhost:11434"
	defaultOllamaModel = "qwen3-embedding:0.6b"
	ollamaTimeout      = 120 * time.Second

	// queryInstruction is prepended to query text so an asymmetric
	// embedding model distinguishes "what I'm searching for" from "what
	// was indexed", improving retrieval of code chunks for natural-
	// language queries.
	queryInstruction = "Represent this query for searching relevant code: "
)

// ollamaEmbedRequest is the Ollama /api/embed request body.
type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

// ollamaEmbedResponse is the Ollama /api/embed response body.
type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaEmbedder talks to a local Ollama server's /api/embed endpoint.
// Adapted from the teacher's internal/embed/ollama.go: kept the HTTP
// request shape, batch forward pass, and output normalization; dropped the
// thermal-throttling progressive-timeout machinery (tuned for a
// long-running indexing CLI on a specific laptop's GPU) since this server
// embeds on demand rather than racing a fixed wall-clock budget.
type OllamaEmbedder struct {
	host   string
	model  string
	client *http.Client

	once    sync.Once
	initErr error

	mu sync.Mutex // serializes round trips per the non-reentrancy allowance
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder builds an embedder bound to host/model, applying
// defaults when empty. The connection is not verified until the first
// call, behind a sync.Once.
func NewOllamaEmbedder(host, model string) *OllamaEmbedder {
	if host == "" {
		host = defaultOllamaHost
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaEmbedder{
		host:   host,
		model:  model,
		client: &http.Client{Timeout: ollamaTimeout},
	}
}

func (e *OllamaEmbedder) ensureWarm(ctx context.Context) error {
	e.once.Do(func() {
		_, e.initErr = e.doEmbed(ctx, []string{"warmup"})
	})
	return e.initErr
}

func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := e.ensureWarm(ctx); err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindEmbedError, "embed.ollama.EmbedQuery", err)
	}

	vecs, err := e.doEmbed(ctx, []string{queryInstruction + truncate(text)})
	if err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindEmbedError, "embed.ollama.EmbedQuery", err)
	}
	return vecs[0], nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.ensureWarm(ctx); err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindEmbedError, "embed.ollama.EmbedBatch", err)
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += DefaultBatchSize {
		end := min(start+DefaultBatchSize, len(texts))
		batch := make([]string, end-start)
		for i, t := range texts[start:end] {
			batch[i] = truncate(t)
		}

		vecs, err := e.doEmbed(ctx, batch)
		if err != nil {
			return nil, opensrcerr.Wrap(opensrcerr.KindEmbedError, "embed.ollama.EmbedBatch", err)
		}
		results = append(results, vecs...)
	}
	return results, nil
}

func (e *OllamaEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var input any = texts
	if len(texts) == 1 {
		input = texts[0]
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: input})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama embed: status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama embed: empty response")
	}

	out := make([][]float32, len(parsed.Embeddings))
	for i, emb := range parsed.Embeddings {
		v := make([]float32, len(emb))
		for j, f := range emb {
			v[j] = float32(f)
		}
		out[i] = normalizeVector(v)
	}
	return out, nil
}

func (e *OllamaEmbedder) Dimensions() int { return Dimensions }

// Available probes the server without consuming the warm-up sync.Once, so
// a down Ollama doesn't permanently poison the embedder.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

