package citations

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ss "github.com/helixir/citation-lookup-service/internal/papersources/semanticscholar"
)

func TestExtractCitingAuthorIDs(t *testing.T) {
	t.Run("deduplicates and sorts across shapes", func(t *testing.T) {
		var page ss.CitationsResponse
		require.NoError(t, json.Unmarshal([]byte(`{"data":[
			{"citingPaper":{"authors":[{"authorId":"30","name":"C"},{"authorId":"10","name":"A"}]}},
			{"paper":{"authors":[{"authorId":"10","name":"A"},{"authorId":"2","name":"B"}]}},
			{"authors":[{"authorId":"30","name":"C"}]},
			{"citingPaper":{"title":"no authors"}},
			{"citingPaper":{"authors":null}},
			{"citingPaper": { }, "paper": {"authors":[{"authorId":"9"}]}},
			{"citingPaper":{"authors":[{"authorId":null,"name":"Anonymous"},{"authorId":"","name":"Blank"}]}},
			null
		]}`), &page))

		ids := ExtractCitingAuthorIDs(page.Data)

		assert.Equal(t, []string{"10", "2", "30", "9"}, ids)
	})

	t.Run("empty input yields empty non-nil slice", func(t *testing.T) {
		ids := ExtractCitingAuthorIDs(nil)

		assert.NotNil(t, ids)
		assert.Empty(t, ids)
	})

	t.Run("never emits duplicates", func(t *testing.T) {
		records := make([]ss.CitationRecord, 0, 20)
		for i := 0; i < 20; i++ {
			records = append(records, ss.NewCitationRecord(ss.ShapeCitingPaper, &ss.CitingPaper{
				Authors: []ss.Author{{AuthorID: "a"}, {AuthorID: "b"}, {AuthorID: string(rune('c' + i%3))}},
			}))
		}

		ids := ExtractCitingAuthorIDs(records)

		seen := map[string]bool{}
		for _, id := range ids {
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
		assert.True(t, sort.StringsAreSorted(ids))
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
	})
}
