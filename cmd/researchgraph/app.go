package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/kataras/golog"
	lcllms "github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/config"
	"github.com/smallnest/researchgraph/graph"
	"github.com/smallnest/researchgraph/llms/anthropic"
	"github.com/smallnest/researchgraph/llms/openai"
	"github.com/smallnest/researchgraph/llms/rerank"
	"github.com/smallnest/researchgraph/log"
	"github.com/smallnest/researchgraph/rag"
	"github.com/smallnest/researchgraph/rag/loader"
	"github.com/smallnest/researchgraph/rag/splitter"
	"github.com/smallnest/researchgraph/research"
	"github.com/smallnest/researchgraph/store/file"
	"github.com/smallnest/researchgraph/store/memory"
	"github.com/smallnest/researchgraph/store/postgres"
	"github.com/smallnest/researchgraph/store/redis"
	"github.com/smallnest/researchgraph/store/sqlite"
	"github.com/smallnest/researchgraph/telemetry"
)

var errNoJournal = errors.New("no journal configured, set journal.path")

// app holds the configuration and the resources opened from it. Resources
// are opened lazily and released by close.
type app struct {
	cfg    config.Config
	logger log.Logger
	stdout io.Writer
	stderr io.Writer

	// completer, when set, replaces the configured provider.
	completer rag.Completer

	checkpoints research.CheckpointStore
	journal     *sqlite.Journal
	closers     []func() error
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		cfg:    config.Default(),
		logger: log.NoOpLogger{},
		stdout: stdout,
		stderr: stderr,
	}
}

func (a *app) configure(cfg config.Config) error {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	g := golog.New()
	g.SetOutput(a.stderr)
	gl := log.NewGologLogger(g)
	gl.SetLevel(level)

	a.cfg = cfg
	a.logger = gl
	log.SetDefaultLogger(gl)
	return nil
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) newCompleter() (rag.Completer, error) {
	c, err := a.providerCompleter()
	if err != nil {
		return nil, err
	}
	if !a.cfg.Cache.Enabled() {
		return c, nil
	}
	cached := redis.NewCachedCompleter(c,
		redis.Options{Addr: a.cfg.Cache.RedisAddr, TTL: a.cfg.Cache.TTL},
		redis.WithNamespace(a.cfg.LLM.Provider+"/"+a.cfg.LLM.Model),
		redis.WithCacheLogger(log.WithComponent(a.logger, "cache")),
	)
	return cached, nil
}

func (a *app) providerCompleter() (rag.Completer, error) {
	if a.completer != nil {
		return a.completer, nil
	}

	llm := a.cfg.LLM
	switch llm.Provider {
	case config.ProviderAnthropic:
		ac := anthropic.DefaultConfig()
		if llm.APIKey != "" {
			ac.APIKey = llm.APIKey
		}
		if llm.Model != "" {
			ac.Model = llm.Model
		}
		if llm.MaxTokens > 0 {
			ac.MaxTokens = int64(llm.MaxTokens)
		}
		ac.BaseURL = llm.BaseURL
		ac.Temperature = llm.Temperature
		return anthropic.NewCompleter(ac)

	case config.ProviderLangChain:
		opts := []lcopenai.Option{}
		if llm.APIKey != "" {
			opts = append(opts, lcopenai.WithToken(llm.APIKey))
		}
		if llm.Model != "" {
			opts = append(opts, lcopenai.WithModel(llm.Model))
		}
		if llm.BaseURL != "" {
			opts = append(opts, lcopenai.WithBaseURL(llm.BaseURL))
		}
		model, err := lcopenai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("langchain openai: %w", err)
		}
		callOpts := []lcllms.CallOption{lcllms.WithTemperature(llm.Temperature)}
		if llm.MaxTokens > 0 {
			callOpts = append(callOpts, lcllms.WithMaxTokens(llm.MaxTokens))
		}
		return rag.NewLangChainCompleter(model, callOpts...), nil

	default:
		return openai.NewCompleter(a.openAIOptions()...)
	}
}

func (a *app) openAIOptions() []openai.Option {
	llm := a.cfg.LLM
	opts := []openai.Option{openai.WithTemperature(float32(llm.Temperature))}
	if llm.APIKey != "" {
		opts = append(opts, openai.WithAPIKey(llm.APIKey))
	}
	if llm.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llm.BaseURL))
	}
	if llm.Model != "" {
		opts = append(opts, openai.WithModel(llm.Model))
	}
	if llm.MaxTokens > 0 {
		opts = append(opts, openai.WithMaxTokens(llm.MaxTokens))
	}
	return opts
}

func (a *app) newScorer() (rag.Scorer, error) {
	sc := a.cfg.Scorer
	switch sc.Kind {
	case config.ScorerEmbedding:
		opts := a.openAIOptions()
		if sc.APIKey != "" {
			opts = append(opts, openai.WithAPIKey(sc.APIKey))
		}
		if sc.URL != "" {
			opts = append(opts, openai.WithBaseURL(sc.URL))
		}
		if sc.EmbeddingModel != "" {
			opts = append(opts, openai.WithEmbeddingModel(sc.EmbeddingModel))
		}
		return openai.NewEmbeddingScorer(opts...)

	case config.ScorerHTTP:
		client, err := rerank.New(
			rerank.WithBaseURL(sc.URL),
			rerank.WithAPIKey(sc.APIKey),
			rerank.WithLogger(log.WithComponent(a.logger, "rerank")),
		)
		if err != nil {
			return nil, err
		}
		return rerank.NewScorer(client, false), nil

	default:
		return memory.KeywordScorer{}, nil
	}
}

func (a *app) newSearcher(ctx context.Context, corpus string) (rag.Searcher, error) {
	s := a.cfg.Search
	if corpus == "" {
		corpus = s.Corpus
	}

	switch s.Backend {
	case config.BackendPostgres:
		pg, err := postgres.NewSearcher(ctx, postgres.Options{ConnString: s.PostgresURL, TableName: s.Table})
		if err != nil {
			return nil, err
		}
		a.onClose(func() error { pg.Close(); return nil })
		if err := pg.InitSchema(ctx); err != nil {
			return nil, err
		}
		if corpus != "" {
			docs, err := a.loadCorpus(ctx, corpus)
			if err != nil {
				return nil, err
			}
			if err := pg.AddDocuments(ctx, docs); err != nil {
				return nil, err
			}
		}
		return pg, nil

	default:
		if corpus == "" {
			return nil, errors.New("no corpus given, use --corpus or search.corpus")
		}
		docs, err := a.loadCorpus(ctx, corpus)
		if err != nil {
			return nil, err
		}
		return memory.NewIndex(docs...), nil
	}
}

// loadCorpus reads a file or a directory tree and splits it into chunks.
func (a *app) loadCorpus(ctx context.Context, path string) ([]rag.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}

	var l rag.DocumentLoader
	if info.IsDir() {
		l = loader.NewDirectoryLoader(path, a.cfg.Search.Extensions...)
	} else {
		l = loader.NewTextLoader(path)
	}
	docs, err := l.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}

	chunks := splitter.NewSimpleTextSplitter(a.cfg.Search.ChunkSize, a.cfg.Search.ChunkOverlap).SplitDocuments(docs)
	a.logger.Info("loaded %d documents as %d chunks from %s", len(docs), len(chunks), path)
	return chunks, nil
}

func (a *app) checkpointStore(ctx context.Context) (research.CheckpointStore, error) {
	if a.checkpoints != nil {
		return a.checkpoints, nil
	}

	cp := a.cfg.Checkpoints
	var store research.CheckpointStore
	switch cp.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendMemory:
		store = memory.NewCheckpointStore()
	case config.BackendFile:
		fs, err := file.NewCheckpointStore(cp.Path)
		if err != nil {
			return nil, err
		}
		store = fs
	case config.BackendSQLite:
		ss, err := sqlite.NewCheckpointStore(sqlite.Options{Path: cp.Path})
		if err != nil {
			return nil, err
		}
		a.onClose(ss.Close)
		store = ss
	case config.BackendPostgres:
		ps, err := postgres.NewCheckpointStore(ctx, postgres.Options{ConnString: cp.URL})
		if err != nil {
			return nil, err
		}
		a.onClose(func() error { ps.Close(); return nil })
		if err := ps.InitSchema(ctx); err != nil {
			return nil, err
		}
		store = ps
	case config.BackendRedis:
		rs := redis.NewCheckpointStore(redis.Options{Addr: cp.URL, TTL: cp.TTL})
		a.onClose(rs.Close)
		store = rs
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cp.Backend)
	}

	a.checkpoints = store
	return store, nil
}

func (a *app) openJournal() (*sqlite.Journal, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	if a.cfg.Journal.Path == "" {
		return nil, errNoJournal
	}
	j, err := sqlite.NewJournal(sqlite.Options{Path: a.cfg.Journal.Path}, log.WithComponent(a.logger, "journal"))
	if err != nil {
		return nil, err
	}
	a.onClose(j.Close)
	a.journal = j
	return j, nil
}

func (a *app) tracer(ctx context.Context) (*graph.Tracer, error) {
	if !a.cfg.Tracing.Enabled {
		return nil, nil
	}

	out := a.stderr
	if path := a.cfg.Tracing.Output; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("trace output: %w", err)
		}
		a.onClose(f.Close)
		out = f
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{Output: out, PrettyPrint: a.cfg.Tracing.Pretty}, a.logger)
	if err != nil {
		return nil, err
	}
	a.onClose(func() error { return shutdown(context.Background()) })

	t := graph.NewTracer()
	t.AddHook(telemetry.NewTraceHook(nil))
	return t, nil
}

// pipeline builds a research pipeline from the configuration.
func (a *app) pipeline(ctx context.Context, corpus string) (*research.Pipeline, error) {
	completer, err := a.newCompleter()
	if err != nil {
		return nil, err
	}
	scorer, err := a.newScorer()
	if err != nil {
		return nil, err
	}
	searcher, err := a.newSearcher(ctx, corpus)
	if err != nil {
		return nil, err
	}

	opts := []research.Option{
		research.WithRetrieveTopK(a.cfg.Pipeline.RetrieveTopK),
		research.WithRerankTopK(a.cfg.Pipeline.RerankTopK),
		research.WithLogger(a.logger),
	}

	store, err := a.checkpointStore(ctx)
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, research.WithCheckpointStore(store))
	}

	if a.cfg.Journal.Path != "" {
		j, err := a.openJournal()
		if err != nil {
			return nil, err
		}
		opts = append(opts, research.WithSink(j))
	}

	t, err := a.tracer(ctx)
	if err != nil {
		return nil, err
	}
	if t != nil {
		opts = append(opts, research.WithTracer(t))
	}

	return research.New(research.Collaborators{
		Searcher:  searcher,
		Scorer:    scorer,
		Completer: completer,
	}, opts...)
}

// entryPrinter streams activity entries to w, one line each.
func entryPrinter(w io.Writer, format func(activity.Entry) string) activity.Sink {
	var mu sync.Mutex
	return activity.SinkFunc(func(e activity.Entry) {
		line := format(e)
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, line)
	})
}
