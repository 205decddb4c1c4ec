package norm

import (
	"testing"

	"github.com/capazme/VisuaLex-Beta/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRef(t *testing.T, actType, date, number, article, version, versionDate string) ActReference {
	t.Helper()
	act, err := NewAct(actType, date, number)
	require.NoError(t, err)
	ref, err := NewActReference(act, article, version, versionDate)
	require.NoError(t, err)
	return ref
}

func TestBuildURN(t *testing.T) {
	tests := []struct {
		name string
		ref  ActReference
		want string
	}{
		{
			name: "statute article with current version",
			ref:  mustRef(t, "statute", "1990-01-01", "9", "3", "current", ""),
			want: "urn:nir:statute:1990-01-01;9~art3",
		},
		{
			name: "whole statute",
			ref:  mustRef(t, "statute", "1990-01-01", "9", "", "", ""),
			want: "urn:nir:statute:1990-01-01;9",
		},
		{
			name: "constitution article omits date and number segments",
			ref:  mustRef(t, "constitution", "", "", "21", "", ""),
			want: "urn:nir:constitution~art21",
		},
		{
			name: "original version",
			ref:  mustRef(t, "decree", "2020-03-17", "18", "4", "original", ""),
			want: "urn:nir:decree:2020-03-17;18~art4!original",
		},
		{
			name: "date-pinned historical version",
			ref:  mustRef(t, "statute", "1942-03-16", "262", "2043", "consolidated", "2005-06-30"),
			want: "urn:nir:statute:1942-03-16;262~art2043!consolidated@2005-06-30",
		},
		{
			name: "article with suffix designator",
			ref:  mustRef(t, "statute", "1990-01-01", "9", "16-bis", "", ""),
			want: "urn:nir:statute:1990-01-01;9~art16-bis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildURN(tt.ref))
		})
	}
}

func TestURNRoundTrip(t *testing.T) {
	refs := []ActReference{
		mustRef(t, "statute", "1990-01-01", "9", "3", "current", ""),
		mustRef(t, "statute", "1990-01-01", "9", "", "", ""),
		mustRef(t, "constitution", "", "", "21", "", ""),
		mustRef(t, "constitution", "", "", "", "", ""),
		mustRef(t, "decree", "2020-03-17", "18", "4", "original", ""),
		mustRef(t, "statute", "1942-03-16", "262", "2043", "consolidated", "2005-06-30"),
		mustRef(t, "civil.code", "", "", "1321", "", ""),
	}

	for _, ref := range refs {
		urn := BuildURN(ref)
		t.Run(urn, func(t *testing.T) {
			parsed, err := ParseURN(urn)
			require.NoError(t, err)
			assert.True(t, parsed.Equal(ref), "parse(build(r)) != r: got %+v want %+v", parsed, ref)
		})
	}
}

func TestReservedCharactersCannotForgeIdentifiers(t *testing.T) {
	// A number like "9~art3" would encode to the identifier of a
	// different reference (number "9", article "3") and merge their
	// cache entries and artifacts. The constructors must refuse any
	// field that carries a grammar separator.
	_, err := NewAct("statute", "1990-01-01", "9~art3")
	assertDomainCode(t, err, shared.CodeInvalidReference)

	act, err := NewAct("statute", "1990-01-01", "9")
	require.NoError(t, err)
	_, err = NewActReference(act, "3!original", "", "")
	assertDomainCode(t, err, shared.CodeInvalidReference)
	_, err = NewActReference(act, "3", "consolidated@2005", "")
	assertDomainCode(t, err, shared.CodeInvalidReference)
}

func TestBuildURNDeterminism(t *testing.T) {
	// Identical field tuples must always encode identically.
	for i := 0; i < 10; i++ {
		ref := mustRef(t, "statute", "1990-01-01", "9", "3", "current", "")
		assert.Equal(t, "urn:nir:statute:1990-01-01;9~art3", BuildURN(ref))
	}
}

func TestParseURNRejectsMalformed(t *testing.T) {
	malformed := []string{
		"",
		"urn:nir:",
		"nir:statute:1990-01-01;9",
		"urn:lex:statute:1990-01-01;9",
		"urn:nir:statute:1990/01/01;9",
		"urn:nir:statute:1990-01-01;9~3",          // article without the art marker
		"urn:nir:statute:1990-01-01;9~art3!",      // dangling version marker
		"urn:nir:statute:1990-01-01;9~art3 extra", // trailing garbage
		"urn:nir:Statute:1990-01-01;9",            // uppercase type
	}

	for _, s := range malformed {
		t.Run(s, func(t *testing.T) {
			_, err := ParseURN(s)
			assertDomainCode(t, err, shared.CodeMalformedIdentifier)
		})
	}
}

func TestParseURNRejectsUncitable(t *testing.T) {
	// Grammar-valid but semantically empty identifiers fail reference
	// validation rather than the grammar.
	_, err := ParseURN("urn:nir:statute")
	assertDomainCode(t, err, shared.CodeInvalidReference)
}

func TestParseURNDefaultsVersion(t *testing.T) {
	ref, err := ParseURN("urn:nir:statute:1990-01-01;9~art3")
	require.NoError(t, err)
	assert.Equal(t, VersionCurrent, ref.Version)
	assert.Empty(t, ref.VersionDate)
}
