package norm

import (
	"regexp"
	"strings"
	"time"

	"github.com/capazme/VisuaLex-Beta/internal/domain/shared"
)

// Citable field charsets mirror the identifier grammar in urn.go, so
// every constructor-valid reference encodes to an identifier that
// decodes back to the same fields. A number or article carrying a
// grammar separator would otherwise collide with a different
// reference's identifier.
var (
	labelCharset  = regexp.MustCompile(`^[a-z][a-z0-9.\-]*$`)
	numberCharset = regexp.MustCompile(`^[0-9A-Za-z.\-]+$`)
)

// DateLayout is the wire format for promulgation and version dates.
const DateLayout = "2006-01-02"

// Version labels. The vocabulary is open: any other label names a
// historical version and may carry a pinning date.
const (
	VersionCurrent  = "current"
	VersionOriginal = "original"
)

// uniqueActTypes are act types that exist exactly once in the register
// and are citable without a promulgation date or number.
var uniqueActTypes = map[string]bool{
	"constitution": true,
	"civil.code":   true,
	"penal.code":   true,
}

// Act represents a promulgated legal act as located in the register.
type Act struct {
	// Type is the act category (statute, decree, constitution, ...).
	// Open vocabulary, stored lowercase.
	Type string `json:"act_type"`
	// Date is the promulgation date (YYYY-MM-DD), empty for acts
	// such as the constitution that have none.
	Date string `json:"date,omitempty"`
	// Number is the act number within its promulgation date.
	Number string `json:"act_number,omitempty"`
	// SourceURL is filled in once the act is located in the
	// authoritative register. Never part of the canonical identity.
	SourceURL string `json:"source_url,omitempty"`
}

// NewAct validates and constructs an Act. An act is citable when its
// type is known and either a date+number pair, a source URL, or a
// unique act type pins it down.
func NewAct(actType, date, number string) (Act, error) {
	actType = strings.ToLower(strings.TrimSpace(actType))
	date = strings.TrimSpace(date)
	number = strings.TrimSpace(number)

	if actType == "" {
		return Act{}, shared.NewDomainError(shared.CodeInvalidReference, "act type is required")
	}
	if !labelCharset.MatchString(actType) {
		return Act{}, shared.NewDomainError(shared.CodeInvalidReference, "act type contains reserved characters")
	}
	if number != "" && !numberCharset.MatchString(number) {
		return Act{}, shared.NewDomainError(shared.CodeInvalidReference, "act number contains reserved characters")
	}
	if date != "" {
		if _, err := time.Parse(DateLayout, date); err != nil {
			return Act{}, shared.NewDomainError(shared.CodeInvalidReference, "promulgation date must be YYYY-MM-DD")
		}
	}
	act := Act{Type: actType, Date: date, Number: number}
	if !act.HasIdentity() {
		return Act{}, shared.NewDomainError(shared.CodeInvalidReference,
			"act identity requires a date and number pair, or a unique act type")
	}
	return act, nil
}

// HasIdentity reports whether the act can be located in the register.
func (a Act) HasIdentity() bool {
	if a.Type == "" {
		return false
	}
	if uniqueActTypes[a.Type] {
		return true
	}
	if a.SourceURL != "" {
		return true
	}
	return a.Date != "" && a.Number != ""
}

// ActReference is a specific article/version of an Act as requested by
// a caller. Its canonical identifier and structural tree are derived,
// never set independently of the fields here.
type ActReference struct {
	Act Act `json:"act"`
	// Article is the article designator; empty means the whole act.
	Article string `json:"article,omitempty"`
	// Version is the version label: "current", "original", or a
	// named historical version.
	Version string `json:"version"`
	// VersionDate pins a historical version to a date (YYYY-MM-DD).
	VersionDate string `json:"version_date,omitempty"`
}

// NewActReference validates and constructs an ActReference around an
// already-validated Act. An empty version defaults to "current".
func NewActReference(act Act, article, version, versionDate string) (ActReference, error) {
	article = strings.TrimSpace(article)
	version = strings.ToLower(strings.TrimSpace(version))
	versionDate = strings.TrimSpace(versionDate)

	if !act.HasIdentity() {
		if article != "" {
			return ActReference{}, shared.NewDomainError(shared.CodeInvalidReference,
				"article designator supplied without any act identity")
		}
		return ActReference{}, shared.ErrInvalidReference
	}
	if version == "" {
		version = VersionCurrent
	}
	if !labelCharset.MatchString(version) {
		return ActReference{}, shared.NewDomainError(shared.CodeInvalidReference, "version label contains reserved characters")
	}
	if article != "" && !numberCharset.MatchString(article) {
		return ActReference{}, shared.NewDomainError(shared.CodeInvalidReference, "article designator contains reserved characters")
	}
	if versionDate != "" {
		if version == VersionCurrent {
			return ActReference{}, shared.NewDomainError(shared.CodeInvalidReference,
				"the current version must not carry a pinning date")
		}
		if _, err := time.Parse(DateLayout, versionDate); err != nil {
			return ActReference{}, shared.NewDomainError(shared.CodeInvalidReference, "version date must be YYYY-MM-DD")
		}
	}
	return ActReference{
		Act:         act,
		Article:     article,
		Version:     version,
		VersionDate: versionDate,
	}, nil
}

// WholeAct reports whether the reference addresses the act as a whole.
func (r ActReference) WholeAct() bool {
	return r.Article == ""
}

// Equal compares two references on their citable fields. SourceURL is
// resolution state and excluded on purpose.
func (r ActReference) Equal(other ActReference) bool {
	return r.Act.Type == other.Act.Type &&
		r.Act.Date == other.Act.Date &&
		r.Act.Number == other.Act.Number &&
		r.Article == other.Article &&
		r.Version == other.Version &&
		r.VersionDate == other.VersionDate
}
