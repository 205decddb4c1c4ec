package norm

import (
	"time"

	"github.com/capazme/VisuaLex-Beta/internal/domain/norm"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/scraper"
	"github.com/google/uuid"
)

// ReferenceRequest carries the raw reference fields as supplied by a
// caller. Validation happens in the domain constructors, not here; the
// binding tag only rejects a body with no act type at all.
type ReferenceRequest struct {
	ActType     string `json:"act_type" binding:"required"`
	Date        string `json:"date" binding:"omitempty,actdate"`
	ActNumber   string `json:"act_number"`
	Article     string `json:"article"`
	Version     string `json:"version"`
	VersionDate string `json:"version_date" binding:"omitempty,actdate"`
}

// ArticleRequest addresses article text by the canonical identifier a
// resolve returned. An explicit designator overrides one embedded in
// the identifier.
type ArticleRequest struct {
	URN     string `json:"urn" binding:"required"`
	Article string `json:"article"`
}

// IdentifierRequest addresses an already resolved act by its canonical
// identifier.
type IdentifierRequest struct {
	URN string `json:"urn" binding:"required"`
}

// ResolveResponse is the outcome of resolving a reference: the
// validated reference with its located source URL, the canonical
// identifier, and the act's structural tree.
type ResolveResponse struct {
	Reference norm.ActReference   `json:"reference"`
	URN       string              `json:"urn"`
	Tree      norm.StructuralTree `json:"tree"`
}

// ArticleTextResponse carries extracted article text.
type ArticleTextResponse struct {
	URN  string `json:"urn"`
	Text string `json:"text"`
}

// CommentaryResponse wraps commentary for a canonical identifier.
// Commentary is nil when the commented corpus has nothing for it.
type CommentaryResponse struct {
	URN        string                  `json:"urn"`
	Commentary *scraper.CommentaryInfo `json:"commentary"`
}

// HistoryEntryResponse is one resolution event from the ledger.
type HistoryEntryResponse struct {
	ID         uuid.UUID         `json:"id"`
	Reference  norm.ActReference `json:"reference"`
	URN        string            `json:"urn"`
	ResolvedAt time.Time         `json:"resolved_at"`
}

// ExportResponse names the rendered PDF artifact.
type ExportResponse struct {
	URN      string `json:"urn"`
	Filename string `json:"filename"`
	PDFURL   string `json:"pdf_url"`
	Path     string `json:"-"`
}
