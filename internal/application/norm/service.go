package norm

import (
	"context"
	"path/filepath"
	"time"

	"github.com/capazme/VisuaLex-Beta/internal/domain/norm"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/browser"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/cache"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/render"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/scraper"
	"go.uber.org/zap"
)

// RegisterClient locates acts in the authoritative register.
type RegisterClient interface {
	FetchStructure(ctx context.Context, ref norm.ActReference) (norm.StructuralTree, string, error)
	ExtractArticleText(ctx context.Context, ref norm.ActReference) (string, error)
}

// CommentaryClient retrieves commentary for a canonical identifier.
// A nil result with a nil error means the corpus has no commentary.
type CommentaryClient interface {
	GetInfo(ctx context.Context, urn string) (*scraper.CommentaryInfo, error)
}

// BrowserPool hands out exclusive access to the shared rendering
// browser, one unit of work at a time.
type BrowserPool interface {
	WithHandle(ctx context.Context, fn func(h *browser.Handle) error) error
}

// PDFExporter renders the register page for a canonical identifier
// through an acquired browser handle.
type PDFExporter interface {
	RenderToFile(h *browser.Handle, urn string) (string, error)
}

// ArticleTextStore is an optional second-level store for extracted
// article text. Both methods are best-effort.
type ArticleTextStore interface {
	Get(ctx context.Context, key string) (text string, ok bool)
	Set(ctx context.Context, key, text string) error
}

// NormService orchestrates the resolution pipeline: validate the raw
// fields, locate the act, memoize the expensive lookups, record history
// and drive PDF export through the shared browser. All caching lives
// here; the clients underneath stay stateless.
type NormService struct {
	register   RegisterClient
	commentary CommentaryClient
	browsers   BrowserPool
	exporter   PDFExporter
	storage    *render.Storage
	ledger     norm.HistoryLedger
	textStore  ArticleTextStore
	logger     *zap.Logger

	resolveCache    *cache.Memoizer[ResolveResponse]
	articleCache    *cache.Memoizer[string]
	commentaryCache *cache.Memoizer[*scraper.CommentaryInfo]
}

// ServiceOption is a functional option for NormService configuration
type ServiceOption func(*serviceConfig)

type serviceConfig struct {
	ttl       time.Duration
	capacity  int
	textStore ArticleTextStore
	logger    *zap.Logger
}

// WithCacheTTL sets the time-to-live shared by the three caches
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(c *serviceConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheCapacity sets the per-cache entry limit
func WithCacheCapacity(capacity int) ServiceOption {
	return func(c *serviceConfig) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithTextStore plugs in a second-level article text store
func WithTextStore(store ArticleTextStore) ServiceOption {
	return func(c *serviceConfig) {
		c.textStore = store
	}
}

// WithServiceLogger sets the logger for the service
func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(c *serviceConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewNormService creates the orchestration service and its caches.
func NewNormService(
	register RegisterClient,
	commentary CommentaryClient,
	browsers BrowserPool,
	exporter PDFExporter,
	storage *render.Storage,
	ledger norm.HistoryLedger,
	opts ...ServiceOption,
) *NormService {
	cfg := serviceConfig{
		ttl:      cache.DefaultTTL,
		capacity: cache.DefaultCapacity,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &NormService{
		register:   register,
		commentary: commentary,
		browsers:   browsers,
		exporter:   exporter,
		storage:    storage,
		ledger:     ledger,
		textStore:  cfg.textStore,
		logger:     cfg.logger,
		resolveCache: cache.NewMemoizer[ResolveResponse]("resolve",
			cache.WithTTL[ResolveResponse](cfg.ttl),
			cache.WithCapacity[ResolveResponse](cfg.capacity),
			cache.WithLogger[ResolveResponse](cfg.logger)),
		articleCache: cache.NewMemoizer[string]("article",
			cache.WithTTL[string](cfg.ttl),
			cache.WithCapacity[string](cfg.capacity),
			cache.WithLogger[string](cfg.logger)),
		commentaryCache: cache.NewMemoizer[*scraper.CommentaryInfo]("commentary",
			cache.WithTTL[*scraper.CommentaryInfo](cfg.ttl),
			cache.WithCapacity[*scraper.CommentaryInfo](cfg.capacity),
			cache.WithLogger[*scraper.CommentaryInfo](cfg.logger)),
	}
}

// Resolve validates the raw fields, locates the act in the register and
// returns its canonical identifier and structural tree. Results are
// memoized; every successful call, cached or not, appends one history
// entry.
func (s *NormService) Resolve(ctx context.Context, req ReferenceRequest) (*ResolveResponse, error) {
	ref, err := toReference(req)
	if err != nil {
		return nil, err
	}

	res, err := s.resolveCache.GetOrCompute(ctx, referenceKey(ref), func(ctx context.Context) (ResolveResponse, error) {
		tree, sourceURL, err := s.register.FetchStructure(ctx, ref)
		if err != nil {
			return ResolveResponse{}, err
		}
		resolved := ref
		resolved.Act.SourceURL = sourceURL
		return ResolveResponse{
			Reference: resolved,
			URN:       norm.BuildURN(resolved),
			Tree:      tree,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.recordHistory(ctx, res.Reference, res.URN)

	return &res, nil
}

// GetArticleText extracts the text of the designated article of an
// already resolved act. An identifier addressing the whole act with no
// designator yields empty text. The in-process cache fronts the
// optional shared text store, which fronts the scrape itself; the
// cache key is the canonical identifier with the designator folded in.
func (s *NormService) GetArticleText(ctx context.Context, req ArticleRequest) (*ArticleTextResponse, error) {
	ref, err := norm.ParseURN(req.URN)
	if err != nil {
		return nil, err
	}
	if req.Article != "" {
		ref, err = norm.NewActReference(ref.Act, req.Article, ref.Version, ref.VersionDate)
		if err != nil {
			return nil, err
		}
	}
	urn := norm.BuildURN(ref)

	text, err := s.articleCache.GetOrCompute(ctx, urn, func(ctx context.Context) (string, error) {
		if s.textStore != nil {
			if stored, ok := s.textStore.Get(ctx, urn); ok {
				return stored, nil
			}
		}
		extracted, err := s.register.ExtractArticleText(ctx, ref)
		if err != nil {
			return "", err
		}
		if s.textStore != nil && extracted != "" {
			if err := s.textStore.Set(ctx, urn, extracted); err != nil {
				s.logger.Warn("article text store write failed", zap.String("key", urn), zap.Error(err))
			}
		}
		return extracted, nil
	})
	if err != nil {
		return nil, err
	}

	return &ArticleTextResponse{URN: urn, Text: text}, nil
}

// GetCommentary retrieves memoized commentary for a canonical
// identifier. A response with nil commentary is the cached "nothing
// there" outcome. Re-encoding the parsed identifier normalizes
// equivalent spellings (an explicit "current" version) onto one key.
func (s *NormService) GetCommentary(ctx context.Context, req IdentifierRequest) (*CommentaryResponse, error) {
	ref, err := norm.ParseURN(req.URN)
	if err != nil {
		return nil, err
	}
	urn := norm.BuildURN(ref)

	info, err := s.commentaryCache.GetOrCompute(ctx, urn, func(ctx context.Context) (*scraper.CommentaryInfo, error) {
		return s.commentary.GetInfo(ctx, urn)
	})
	if err != nil {
		return nil, err
	}

	return &CommentaryResponse{URN: urn, Commentary: info}, nil
}

// ListHistory returns every recorded resolution in order.
func (s *NormService) ListHistory(ctx context.Context) ([]HistoryEntryResponse, error) {
	entries, err := s.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntryResponse{
			ID:         e.ID,
			Reference:  e.Reference,
			URN:        e.URN,
			ResolvedAt: e.ResolvedAt,
		}
	}
	return out, nil
}

// ExportPDF renders the register page for a canonical identifier to a
// PDF artifact. An artifact that already exists for the same
// identifier is returned as-is without touching the browser.
func (s *NormService) ExportPDF(ctx context.Context, req IdentifierRequest) (*ExportResponse, error) {
	ref, err := norm.ParseURN(req.URN)
	if err != nil {
		return nil, err
	}
	urn := norm.BuildURN(ref)

	if path, ok := s.storage.Exists(urn); ok {
		s.logger.Debug("export served from existing artifact", zap.String("urn", urn))
		return exportResponse(urn, path), nil
	}

	var path string
	err = s.browsers.WithHandle(ctx, func(h *browser.Handle) error {
		// A concurrent export of the same identifier may have
		// rendered while this one waited for the browser.
		if existing, ok := s.storage.Exists(urn); ok {
			path = existing
			return nil
		}
		rendered, err := s.exporter.RenderToFile(h, urn)
		if err != nil {
			return err
		}
		path = rendered
		return nil
	})
	if err != nil {
		return nil, err
	}

	return exportResponse(urn, path), nil
}

func exportResponse(urn, path string) *ExportResponse {
	filename := filepath.Base(path)
	return &ExportResponse{
		URN:      urn,
		Filename: filename,
		PDFURL:   "/download/" + filename,
		Path:     path,
	}
}

// ArtifactPath maps a previously exported filename back to its path,
// refusing anything that escapes the download directory.
func (s *NormService) ArtifactPath(filename string) (string, bool) {
	if filename == "" || filename == "." || filename == ".." || filename != filepath.Base(filename) {
		return "", false
	}
	return filepath.Join(s.storage.Dir(), filename), true
}

// Close releases the cache sweepers.
func (s *NormService) Close() error {
	_ = s.resolveCache.Close()
	_ = s.articleCache.Close()
	_ = s.commentaryCache.Close()
	return nil
}

// recordHistory appends one ledger entry. The write is detached from
// the request context and never fails the request.
func (s *NormService) recordHistory(ctx context.Context, ref norm.ActReference, urn string) {
	entry := norm.NewHistoryEntry(ref, urn)
	if err := s.ledger.Append(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("history append failed",
			zap.String("urn", urn),
			zap.Error(err))
	}
}

// toReference runs the raw fields through the domain constructors.
func toReference(req ReferenceRequest) (norm.ActReference, error) {
	act, err := norm.NewAct(req.ActType, req.Date, req.ActNumber)
	if err != nil {
		return norm.ActReference{}, err
	}
	return norm.NewActReference(act, req.Article, req.Version, req.VersionDate)
}

// referenceKey derives the deterministic cache key for a reference.
// SourceURL is resolution state and deliberately left out.
func referenceKey(ref norm.ActReference) string {
	return cache.CanonicalKey(map[string]string{
		"act_type":     ref.Act.Type,
		"date":         ref.Act.Date,
		"act_number":   ref.Act.Number,
		"article":      ref.Article,
		"version":      ref.Version,
		"version_date": ref.VersionDate,
	})
}
