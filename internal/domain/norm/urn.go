package norm

import (
	"regexp"
	"strings"

	"github.com/capazme/VisuaLex-Beta/internal/domain/shared"
)

// The canonical identifier grammar, fixed here for the whole system:
//
//	"urn" ":" "nir" ":" act-type [":" [date ";"] [number]]
//	    ["~art" article] ["!" version ["@" version-date]]
//
// The authority segment is "nir" (norme-in-rete, the register the
// resolver targets). Absent optional fields omit their segment
// entirely; the "current" version omits its segment so the most common
// identifiers stay short, e.g.
//
//	urn:nir:statute:1990-01-01;9~art3
//	urn:nir:constitution~art21
//	urn:nir:decree:2020-03-17;18~art4!original
const urnPrefix = "urn:nir:"

var urnPattern = regexp.MustCompile(
	`^urn:nir:` +
		`([a-z][a-z0-9.\-]*)` + // act type
		`(?::(?:(\d{4}-\d{2}-\d{2});)?([0-9A-Za-z.\-]*))?` + // date ";" number
		`(?:~art([0-9A-Za-z.\-]+))?` + // article
		`(?:!([a-z][a-z0-9.\-]*)(?:@(\d{4}-\d{2}-\d{2}))?)?$`) // version @ date

// BuildURN encodes a reference into its canonical identifier. It never
// performs lookups; it only encodes the fields already present.
func BuildURN(r ActReference) string {
	var b strings.Builder
	b.WriteString(urnPrefix)
	b.WriteString(r.Act.Type)
	if r.Act.Date != "" || r.Act.Number != "" {
		b.WriteByte(':')
		if r.Act.Date != "" {
			b.WriteString(r.Act.Date)
			b.WriteByte(';')
		}
		b.WriteString(r.Act.Number)
	}
	if r.Article != "" {
		b.WriteString("~art")
		b.WriteString(r.Article)
	}
	if r.Version != "" && r.Version != VersionCurrent {
		b.WriteByte('!')
		b.WriteString(r.Version)
		if r.VersionDate != "" {
			b.WriteByte('@')
			b.WriteString(r.VersionDate)
		}
	}
	return b.String()
}

// ParseURN decodes a canonical identifier back into an ActReference.
// Strings outside the grammar fail with MALFORMED_IDENTIFIER; the
// decoded fields then pass through the same validation as direct
// construction, so ParseURN(BuildURN(r)) == r for every valid r.
func ParseURN(s string) (ActReference, error) {
	m := urnPattern.FindStringSubmatch(s)
	if m == nil {
		return ActReference{}, shared.NewDomainError(shared.CodeMalformedIdentifier,
			"identifier does not match the urn:nir grammar")
	}
	actType, date, number := m[1], m[2], m[3]
	article, version, versionDate := m[4], m[5], m[6]

	act, err := NewAct(actType, date, number)
	if err != nil {
		return ActReference{}, err
	}
	return NewActReference(act, article, version, versionDate)
}
