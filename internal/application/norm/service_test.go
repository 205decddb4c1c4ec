package norm

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/capazme/VisuaLex-Beta/internal/domain/norm"
	"github.com/capazme/VisuaLex-Beta/internal/domain/shared"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/browser"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/persistence"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/render"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegister struct {
	fetches  int64
	extracts int64
	fetchErr error
	text     string
}

func (f *fakeRegister) FetchStructure(ctx context.Context, ref norm.ActReference) (norm.StructuralTree, string, error) {
	atomic.AddInt64(&f.fetches, 1)
	if f.fetchErr != nil {
		return norm.StructuralTree{}, "", f.fetchErr
	}
	tree := norm.StructuralTree{Nodes: []norm.TreeNode{
		{Kind: norm.KindTitle, Label: "I", Children: []norm.TreeNode{
			{Kind: norm.KindArticle, Label: "1"},
			{Kind: norm.KindArticle, Label: "3"},
		}},
	}}
	return tree, "https://register.example/N2Ls?" + norm.BuildURN(ref), nil
}

func (f *fakeRegister) ExtractArticleText(ctx context.Context, ref norm.ActReference) (string, error) {
	atomic.AddInt64(&f.extracts, 1)
	if ref.WholeAct() {
		return "", nil
	}
	return f.text, nil
}

type fakeCommentary struct {
	calls int64
	info  *scraper.CommentaryInfo
	err   error
}

func (f *fakeCommentary) GetInfo(ctx context.Context, urn string) (*scraper.CommentaryInfo, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.info, f.err
}

type fakePool struct {
	mu    sync.Mutex
	units int64
}

// WithHandle serializes units of work the way the real manager does.
func (p *fakePool) WithHandle(ctx context.Context, fn func(h *browser.Handle) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	atomic.AddInt64(&p.units, 1)
	return fn(&browser.Handle{})
}

type fakeExporter struct {
	storage *render.Storage
	renders int64
	err     error
}

func (e *fakeExporter) RenderToFile(h *browser.Handle, urn string) (string, error) {
	atomic.AddInt64(&e.renders, 1)
	if e.err != nil {
		return "", e.err
	}
	return e.storage.Write(urn, []byte("%PDF-1.4 test"))
}

type fakeTextStore struct {
	data map[string]string
	sets int
}

func (s *fakeTextStore) Get(ctx context.Context, key string) (string, bool) {
	text, ok := s.data[key]
	return text, ok
}

func (s *fakeTextStore) Set(ctx context.Context, key, text string) error {
	s.data[key] = text
	s.sets++
	return nil
}

type harness struct {
	svc        *NormService
	register   *fakeRegister
	commentary *fakeCommentary
	pool       *fakePool
	exporter   *fakeExporter
	ledger     *persistence.InMemoryHistoryLedger
	storage    *render.Storage
}

func newHarness(t *testing.T, opts ...ServiceOption) *harness {
	t.Helper()
	storage, err := render.NewStorage(t.TempDir())
	require.NoError(t, err)

	h := &harness{
		register:   &fakeRegister{text: "Art. 3 Everyone has the right."},
		commentary: &fakeCommentary{},
		pool:       &fakePool{},
		ledger:     persistence.NewInMemoryHistoryLedger(),
		storage:    storage,
	}
	h.exporter = &fakeExporter{storage: storage}
	h.svc = NewNormService(h.register, h.commentary, h.pool, h.exporter, storage, h.ledger, opts...)
	t.Cleanup(func() { h.svc.Close() })
	return h
}

const (
	statuteURN      = "urn:nir:statute:1990-01-01;9~art3"
	wholeStatuteURN = "urn:nir:statute:1990-01-01;9"
)

func statuteRequest() ReferenceRequest {
	return ReferenceRequest{ActType: "Statute", Date: "1990-01-01", ActNumber: "9", Article: "3"}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, code, derr.Code)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves the canonical identifier and tree", func(t *testing.T) {
		h := newHarness(t)
		res, err := h.svc.Resolve(ctx, statuteRequest())
		require.NoError(t, err)

		assert.Equal(t, "urn:nir:statute:1990-01-01;9~art3", res.URN)
		assert.Equal(t, []string{"1", "3"}, res.Tree.Articles())
		assert.NotEmpty(t, res.Reference.Act.SourceURL)
		assert.Equal(t, "current", res.Reference.Version)
	})

	t.Run("memoizes by canonical fields", func(t *testing.T) {
		h := newHarness(t)
		first, err := h.svc.Resolve(ctx, statuteRequest())
		require.NoError(t, err)

		// Same reference with different field casing hits the cache.
		again, err := h.svc.Resolve(ctx, ReferenceRequest{
			ActType: "STATUTE", Date: "1990-01-01", ActNumber: "9", Article: "3",
		})
		require.NoError(t, err)

		assert.Equal(t, first.URN, again.URN)
		assert.EqualValues(t, 1, atomic.LoadInt64(&h.register.fetches))
	})

	t.Run("appends history on every successful call", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Resolve(ctx, statuteRequest())
		require.NoError(t, err)
		_, err = h.svc.Resolve(ctx, statuteRequest())
		require.NoError(t, err)

		entries, err := h.svc.ListHistory(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, entries[0].URN, entries[1].URN)
		assert.NotEqual(t, entries[0].ID, entries[1].ID)
	})

	t.Run("rejects an uncitable reference without touching the register", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Resolve(ctx, ReferenceRequest{ActType: "statute"})
		requireCode(t, err, shared.CodeInvalidReference)
		assert.Zero(t, atomic.LoadInt64(&h.register.fetches))

		entries, lerr := h.svc.ListHistory(ctx)
		require.NoError(t, lerr)
		assert.Empty(t, entries)
	})

	t.Run("does not cache failures", func(t *testing.T) {
		h := newHarness(t)
		h.register.fetchErr = shared.NewDomainError(shared.CodeExtractionFailed, "register down")

		_, err := h.svc.Resolve(ctx, statuteRequest())
		requireCode(t, err, shared.CodeExtractionFailed)

		h.register.fetchErr = nil
		res, err := h.svc.Resolve(ctx, statuteRequest())
		require.NoError(t, err)
		assert.Equal(t, "urn:nir:statute:1990-01-01;9~art3", res.URN)
		assert.EqualValues(t, 2, atomic.LoadInt64(&h.register.fetches))

		entries, err := h.svc.ListHistory(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "a failed resolution must not reach the ledger")
	})
}

func TestGetArticleText(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts once and serves repeats from cache", func(t *testing.T) {
		h := newHarness(t)
		res, err := h.svc.GetArticleText(ctx, ArticleRequest{URN: statuteURN})
		require.NoError(t, err)
		assert.Equal(t, statuteURN, res.URN)
		assert.Equal(t, "Art. 3 Everyone has the right.", res.Text)

		_, err = h.svc.GetArticleText(ctx, ArticleRequest{URN: statuteURN})
		require.NoError(t, err)
		assert.EqualValues(t, 1, atomic.LoadInt64(&h.register.extracts))
	})

	t.Run("identifier article and explicit designator share one entry", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.GetArticleText(ctx, ArticleRequest{URN: statuteURN})
		require.NoError(t, err)

		res, err := h.svc.GetArticleText(ctx, ArticleRequest{URN: wholeStatuteURN, Article: "3"})
		require.NoError(t, err)
		assert.Equal(t, statuteURN, res.URN)
		assert.EqualValues(t, 1, atomic.LoadInt64(&h.register.extracts))
	})

	t.Run("whole act identifier yields empty text", func(t *testing.T) {
		h := newHarness(t)
		res, err := h.svc.GetArticleText(ctx, ArticleRequest{URN: wholeStatuteURN})
		require.NoError(t, err)
		assert.Empty(t, res.Text)
	})

	t.Run("malformed identifier never reaches the register", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.GetArticleText(ctx, ArticleRequest{URN: "nir:statute:1990-01-01;9"})
		requireCode(t, err, shared.CodeMalformedIdentifier)
		assert.Zero(t, atomic.LoadInt64(&h.register.extracts))
	})

	t.Run("shared text store short-circuits the scrape", func(t *testing.T) {
		store := &fakeTextStore{data: map[string]string{}}
		h := newHarness(t, WithTextStore(store))

		res, err := h.svc.GetArticleText(ctx, ArticleRequest{URN: statuteURN})
		require.NoError(t, err)
		assert.Equal(t, 1, store.sets)

		// A fresh service shares only the text store, not the memoizer.
		h2 := &harness{register: &fakeRegister{text: "unused"}, commentary: &fakeCommentary{}, pool: &fakePool{}, ledger: persistence.NewInMemoryHistoryLedger()}
		storage, err := render.NewStorage(t.TempDir())
		require.NoError(t, err)
		h2.exporter = &fakeExporter{storage: storage}
		h2.svc = NewNormService(h2.register, h2.commentary, h2.pool, h2.exporter, storage, h2.ledger, WithTextStore(store))
		t.Cleanup(func() { h2.svc.Close() })

		res2, err := h2.svc.GetArticleText(ctx, ArticleRequest{URN: statuteURN})
		require.NoError(t, err)
		assert.Equal(t, res.Text, res2.Text)
		assert.Zero(t, atomic.LoadInt64(&h2.register.extracts))
	})
}

func TestGetCommentary(t *testing.T) {
	ctx := context.Background()

	t.Run("caches commentary by identifier", func(t *testing.T) {
		h := newHarness(t)
		h.commentary.info = &scraper.CommentaryInfo{Position: "Titolo I", Info: "Commento.", Link: "https://c.example/art3"}

		res, err := h.svc.GetCommentary(ctx, IdentifierRequest{URN: statuteURN})
		require.NoError(t, err)
		require.NotNil(t, res.Commentary)
		assert.Equal(t, "Commento.", res.Commentary.Info)

		_, err = h.svc.GetCommentary(ctx, IdentifierRequest{URN: statuteURN})
		require.NoError(t, err)
		assert.EqualValues(t, 1, atomic.LoadInt64(&h.commentary.calls))
	})

	t.Run("equivalent identifier spellings share one entry", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.GetCommentary(ctx, IdentifierRequest{URN: statuteURN})
		require.NoError(t, err)

		// An explicit current version decodes to the same reference.
		res, err := h.svc.GetCommentary(ctx, IdentifierRequest{URN: statuteURN + "!current"})
		require.NoError(t, err)
		assert.Equal(t, statuteURN, res.URN)
		assert.EqualValues(t, 1, atomic.LoadInt64(&h.commentary.calls))
	})

	t.Run("absence is a cacheable outcome, not an error", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.svc.GetCommentary(ctx, IdentifierRequest{URN: statuteURN})
		require.NoError(t, err)
		assert.Nil(t, res.Commentary)

		_, err = h.svc.GetCommentary(ctx, IdentifierRequest{URN: statuteURN})
		require.NoError(t, err)
		assert.EqualValues(t, 1, atomic.LoadInt64(&h.commentary.calls), "the absent result must come from cache")
	})

	t.Run("failures surface the commentary error code", func(t *testing.T) {
		h := newHarness(t)
		h.commentary.err = shared.NewDomainError(shared.CodeCommentaryFailed, "corpus unreachable")

		_, err := h.svc.GetCommentary(ctx, IdentifierRequest{URN: statuteURN})
		requireCode(t, err, shared.CodeCommentaryFailed)
	})
}

func TestExportPDF(t *testing.T) {
	ctx := context.Background()

	t.Run("renders once per identifier", func(t *testing.T) {
		h := newHarness(t)

		wantName := render.FilenameForURN(statuteURN)
		first, err := h.svc.ExportPDF(ctx, IdentifierRequest{URN: statuteURN})
		require.NoError(t, err)
		assert.Equal(t, wantName, first.Filename)
		assert.Equal(t, "/download/"+wantName, first.PDFURL)
		assert.FileExists(t, first.Path)

		again, err := h.svc.ExportPDF(ctx, IdentifierRequest{URN: statuteURN})
		require.NoError(t, err)
		assert.Equal(t, first.Path, again.Path)
		assert.EqualValues(t, 1, atomic.LoadInt64(&h.exporter.renders), "an existing artifact must not be re-rendered")
		assert.EqualValues(t, 1, atomic.LoadInt64(&h.pool.units), "the browser must not be touched for an existing artifact")
	})

	t.Run("concurrent exports of one identifier render at most once", func(t *testing.T) {
		h := newHarness(t)

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := h.svc.ExportPDF(ctx, IdentifierRequest{URN: statuteURN})
				assert.NoError(t, err)
				assert.NotNil(t, res)
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 1, atomic.LoadInt64(&h.exporter.renders),
			"exports racing for the browser must reuse the first artifact")
	})

	t.Run("render failure leaves no artifact behind", func(t *testing.T) {
		h := newHarness(t)
		h.exporter.err = shared.NewDomainError(shared.CodeRenderFailed, "print failed")

		_, err := h.svc.ExportPDF(ctx, IdentifierRequest{URN: statuteURN})
		requireCode(t, err, shared.CodeRenderFailed)

		_, exists := h.storage.Exists(statuteURN)
		assert.False(t, exists)

		// The next attempt retries the render rather than serving a stub.
		h.exporter.err = nil
		res, err := h.svc.ExportPDF(ctx, IdentifierRequest{URN: statuteURN})
		require.NoError(t, err)
		assert.FileExists(t, res.Path)
		assert.EqualValues(t, 2, atomic.LoadInt64(&h.exporter.renders))
	})

	t.Run("malformed identifiers never reach the browser", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.ExportPDF(ctx, IdentifierRequest{URN: "urn:lex:decree"})
		requireCode(t, err, shared.CodeMalformedIdentifier)
		assert.Zero(t, atomic.LoadInt64(&h.pool.units))
	})
}

func TestArtifactPath(t *testing.T) {
	h := newHarness(t)

	path, ok := h.svc.ArtifactPath(render.FilenameForURN(statuteURN))
	require.True(t, ok)
	assert.Contains(t, path, h.storage.Dir())

	for _, bad := range []string{"", ".", "..", "../secret.pdf", "a/b.pdf"} {
		_, ok := h.svc.ArtifactPath(bad)
		assert.False(t, ok, "filename %q must be rejected", bad)
	}
}

func TestCacheExpiryForcesRecomputation(t *testing.T) {
	h := newHarness(t, WithCacheTTL(30*time.Millisecond))
	ctx := context.Background()

	_, err := h.svc.Resolve(ctx, statuteRequest())
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, err = h.svc.Resolve(ctx, statuteRequest())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&h.register.fetches))
}
