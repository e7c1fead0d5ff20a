package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/dmmulroy/opensrc-mcp/internal/chunk"
	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

// Engine drives sources from fetched-on-disk to fully-indexed with a FIFO
// queue and a scheduler bounded by maxConcurrent. Runs are detached from
// the Enqueue caller's context: once a source is queued it indexes to
// completion (or failure) regardless of what happens to the request that
// enqueued it.
type Engine struct {
	files    FileSource
	chunker  Chunker
	embedder Embedder
	store    VectorStore

	batchSize int
	sem       *semaphore.Weighted

	mu     sync.Mutex
	states map[string]State
	queue  []string
}

// New builds an Engine. maxConcurrent and batchSize fall back to
// DefaultMaxConcurrentIndex/DefaultBatchSize when <= 0.
func New(files FileSource, chunker Chunker, embedder Embedder, store VectorStore, maxConcurrent, batchSize int) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentIndex
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Engine{
		files:     files,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		batchSize: batchSize,
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
		states:    make(map[string]State),
	}
}

// State reports a source's current position in the state machine. Sources
// never enqueued this process report StateUnknown even if they are
// persisted as indexed; callers that need the persisted truth should
// Enqueue, which checks the store.
func (e *Engine) State(source string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[source]; ok {
		return st
	}
	return StateUnknown
}

// Indexing lists every source currently queued or indexing in this
// process, for callers (QueryPlanner's unscoped semanticSearch) that need
// to tell "nothing indexed yet" apart from "nothing indexed yet, but a
// fetch is in flight".
func (e *Engine) Indexing() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for source, st := range e.states {
		if st == StateQueued || st == StateIndexing {
			out = append(out, source)
		}
	}
	return out
}

// Enqueue is idempotent: a source already indexed (per the store) or
// already queued/indexing is a no-op. Otherwise it is appended to the FIFO
// queue and the scheduler is kicked.
func (e *Engine) Enqueue(ctx context.Context, source string) error {
	if e.alreadyActive(source) {
		return nil
	}

	indexed, err := e.store.IsIndexed(ctx, source)
	if err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "index.Enqueue", err)
	}
	if indexed {
		e.mu.Lock()
		e.states[source] = StateIndexed
		e.mu.Unlock()
		return nil
	}

	e.mu.Lock()
	if e.states[source] == StateQueued || e.states[source] == StateIndexing {
		e.mu.Unlock()
		return nil
	}
	e.states[source] = StateQueued
	e.queue = append(e.queue, source)
	e.mu.Unlock()

	e.dispatch()
	return nil
}

func (e *Engine) alreadyActive(source string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.states[source]
	return st == StateQueued || st == StateIndexing
}

// dispatch pulls queued sources into indexing goroutines while semaphore
// capacity remains. It is safe to call repeatedly; it is a no-op once the
// queue is drained or every permit is held.
func (e *Engine) dispatch() {
	for {
		if !e.sem.TryAcquire(1) {
			return
		}

		e.mu.Lock()
		if len(e.queue) == 0 {
			e.mu.Unlock()
			e.sem.Release(1)
			return
		}
		source := e.queue[0]
		e.queue = e.queue[1:]
		e.states[source] = StateIndexing
		e.mu.Unlock()

		go e.runAndRelease(source)
	}
}

// runAndRelease runs a single source to completion on a background
// context (detached from whatever request triggered Enqueue), applies the
// failure policy, then frees a scheduler slot and re-checks the queue.
func (e *Engine) runAndRelease(source string) {
	ctx := context.Background()

	if err := e.run(ctx, source); err != nil {
		slog.Error("indexing failed", slog.String("source", source), slog.String("error", err.Error()))

		e.mu.Lock()
		e.states[source] = StateUnknown
		e.mu.Unlock()

		if delErr := e.store.DeleteSource(ctx, source); delErr != nil {
			slog.Error("failed to clean up partial index rows",
				slog.String("source", source), slog.String("error", delErr.Error()))
		}
	} else {
		e.mu.Lock()
		e.states[source] = StateIndexed
		e.mu.Unlock()
	}

	e.sem.Release(1)
	e.dispatch()
}

// run enumerates source's chunkable files, streams them through the
// chunker in batches of up to batchSize, embedding and inserting each full
// batch and yielding to the runtime in between so concurrent queries see
// at most one batch of staleness.
func (e *Engine) run(ctx context.Context, source string) error {
	paths, err := e.files.Files(ctx, source, "")
	if err != nil {
		return err
	}

	var batch []chunk.CodeChunk
	var totalChunks int

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		embeddings, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return opensrcerr.Wrap(opensrcerr.KindEmbedError, "index.run", err)
		}
		if err := e.store.InsertBatch(ctx, source, batch, embeddings); err != nil {
			return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "index.run", err)
		}
		totalChunks += len(batch)
		batch = batch[:0]
		runtime.Gosched()
		return nil
	}

	for _, path := range paths {
		if !isIndexable(path) {
			continue
		}

		content, err := e.files.Read(ctx, source, path)
		if err != nil {
			slog.Warn("skipping unreadable file", slog.String("source", source), slog.String("path", path))
			continue
		}

		chunks, err := e.chunker.Chunk(path, []byte(content))
		if err != nil {
			slog.Warn("chunk failed", slog.String("source", source), slog.String("path", path), slog.String("error", err.Error()))
			continue
		}

		for _, c := range chunks {
			batch = append(batch, c)
			if len(batch) >= e.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}

	if totalChunks > 0 {
		if err := e.store.Finalize(ctx); err != nil {
			return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "index.run", err)
		}
	}
	if err := e.store.MarkIndexed(ctx, source); err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "index.run", err)
	}
	return nil
}

// isIndexable applies the allow-list minus the ignore list: extension must
// be in allowedExtensions, the basename must not be in ignoredBasenames,
// and declaration/minified files are excluded regardless of extension.
func isIndexable(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if !allowedExtensions[ext] {
		return false
	}
	if strings.HasSuffix(path, ".d.ts") || strings.HasSuffix(path, ".min.js") {
		return false
	}
	if ignoredBasenames[filepath.Base(path)] {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if ignoredDirs[seg] {
			return false
		}
	}
	return true
}
