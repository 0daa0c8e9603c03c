package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citation-lookup-service/internal/domain"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase conversion", input: "Gabriel Alon", expected: "gabriel alon"},
		{name: "trim both ends", input: "  Alon  ", expected: "alon"},
		{name: "collapse tabs and newlines", input: "Gabriel\t\n  Alon", expected: "gabriel alon"},
		{name: "empty string", input: "", expected: ""},
		{name: "only whitespace", input: " \t\n ", expected: ""},
		{name: "unicode characters preserved", input: "Jürgen  Müller", expected: "jürgen müller"},
		{name: "no-break spaces collapse", input: "Van\u00a0 Der   Berg", expected: "van der berg"},
		{name: "ideographic and em spaces collapse", input: "Ada\u3000\u2003Lovelace", expected: "ada lovelace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestAuthorNameMatches(t *testing.T) {
	authors := []domain.Author{
		{AuthorID: "1", Name: "Michael Kamfonas"},
		{AuthorID: "2", Name: "Gabriel  Alon"},
	}

	tests := []struct {
		name     string
		authors  []domain.Author
		first    string
		last     string
		expected bool
	}{
		{name: "both hints on one author", authors: authors, first: "Gabriel", last: "Alon", expected: true},
		{name: "case and whitespace insensitive", authors: authors, first: " GABRIEL ", last: "alon", expected: true},
		{name: "first only", authors: authors, first: "michael", expected: true},
		{name: "last only", authors: authors, last: "Kamfonas", expected: true},
		{name: "substring match", authors: authors, first: "Gab", last: "Al", expected: true},
		{name: "hints split across authors", authors: authors, first: "Michael", last: "Alon", expected: false},
		{name: "no such author", authors: authors, first: "Ada", last: "Lovelace", expected: false},
		{name: "blank hints match vacuously", authors: authors, expected: true},
		{name: "blank hints match with no authors", authors: nil, expected: true},
		{name: "hint with no authors", authors: nil, last: "Alon", expected: false},
		{
			name:     "no-break space in author name",
			authors:  []domain.Author{{AuthorID: "3", Name: "Van\u00a0Der Berg"}},
			last:     "van der berg",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AuthorNameMatches(tt.authors, tt.first, tt.last))
		})
	}
}

func TestPickBestMatch(t *testing.T) {
	first := domain.PaperMatch{PaperID: "p1", Title: "Paper One", Authors: []domain.Author{{Name: "Jane Doe"}}}
	second := domain.PaperMatch{PaperID: "p2", Title: "Paper Two", Authors: []domain.Author{{Name: "Gabriel Alon"}}}
	third := domain.PaperMatch{PaperID: "p3", Title: "Paper Three", Authors: []domain.Author{{Name: "Gabriel Alon"}}}
	candidates := []domain.PaperMatch{first, second, third}

	t.Run("empty candidates fail with ErrEmptyResult", func(t *testing.T) {
		chosen, err := PickBestMatch(nil, "Gabriel", "Alon")

		require.ErrorIs(t, err, domain.ErrEmptyResult)
		assert.Equal(t, domain.ChosenPaper{}, chosen)

		_, err = PickBestMatch([]domain.PaperMatch{}, "", "")
		assert.ErrorIs(t, err, domain.ErrEmptyResult)
	})

	t.Run("blank names choose first candidate with filter flag", func(t *testing.T) {
		for _, c := range [][]domain.PaperMatch{candidates, {second}, {{PaperID: "x"}}} {
			chosen, err := PickBestMatch(c, "", "  ")

			require.NoError(t, err)
			assert.Equal(t, c[0], chosen.Match)
			assert.True(t, chosen.UsedAuthorFilter)
		}
	})

	t.Run("first candidate with matching author wins", func(t *testing.T) {
		chosen, err := PickBestMatch(candidates, "gabriel", "ALON")

		require.NoError(t, err)
		assert.Equal(t, "p2", chosen.Match.PaperID)
		assert.True(t, chosen.UsedAuthorFilter)
	})

	t.Run("no matching author falls back to first candidate", func(t *testing.T) {
		chosen, err := PickBestMatch(candidates, "Ada", "Lovelace")

		require.NoError(t, err)
		assert.Equal(t, "p1", chosen.Match.PaperID)
		assert.False(t, chosen.UsedAuthorFilter)
	})

	t.Run("chosen paper is always one of the candidates", func(t *testing.T) {
		hints := [][2]string{{"", ""}, {"Jane", ""}, {"", "Alon"}, {"nobody", "here"}}
		for _, h := range hints {
			chosen, err := PickBestMatch(candidates, h[0], h[1])
			require.NoError(t, err)
			assert.Contains(t, candidates, chosen.Match)
		}
	})
}
