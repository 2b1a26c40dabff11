package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBook_ToggleLike_AddsThenRemoves(t *testing.T) {
	book := &Book{Likes: []string{"user-a"}}

	liked := book.ToggleLike("user-b")
	assert.True(t, liked)
	assert.Equal(t, []string{"user-a", "user-b"}, book.Likes)

	liked = book.ToggleLike("user-b")
	assert.False(t, liked)
	assert.Equal(t, []string{"user-a"}, book.Likes)
}

func TestBook_ToggleLike_PairIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.SliceOfNDistinct(rapid.StringMatching(`user-[a-z]{3}`), 0, 8, rapid.ID[string]).Draw(t, "likes")
		user := rapid.StringMatching(`user-[a-z]{3}`).Draw(t, "user")

		book := &Book{Likes: append([]string(nil), initial...)}
		wasLiked := book.LikedBy(user)

		book.ToggleLike(user)
		if book.LikedBy(user) == wasLiked {
			t.Fatalf("first toggle did not flip membership for %q", user)
		}
		book.ToggleLike(user)

		assert.ElementsMatch(t, initial, book.Likes)
		assertNoDuplicates(t, book.Likes)
	})
}

func TestBook_AppendComment_PreservesOrder(t *testing.T) {
	book := &Book{}
	now := time.Now()

	for i, id := range []string{"c1", "c2", "c3"} {
		ok := book.AppendComment(Comment{ID: id, Text: "text", CommentedAt: now.Add(time.Duration(-i) * time.Hour)})
		require.True(t, ok)
	}

	ids := make([]string, 0, len(book.Comments))
	for _, c := range book.Comments {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids)
}

func TestBook_AppendComment_RejectsDuplicateID(t *testing.T) {
	book := &Book{}
	require.True(t, book.AppendComment(Comment{ID: "c1", Text: "first"}))

	assert.False(t, book.AppendComment(Comment{ID: "c1", Text: "second"}))
	assert.Len(t, book.Comments, 1)
	assert.Equal(t, "first", book.Comments[0].Text)
}

func TestBook_AppendComment_DefaultsDisplayName(t *testing.T) {
	book := &Book{}
	book.AppendComment(Comment{ID: "c1", Text: "hi"})

	assert.Equal(t, AnonymousDisplayName, book.Comments[0].AuthorDisplayName)
}

func TestBook_EditComment(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	book := &Book{Comments: []Comment{{ID: "c1", Text: "Great read", CommentedAt: created}}}

	edited := time.Now()
	c, ok := book.EditComment("c1", "Loved it", edited)

	require.True(t, ok)
	assert.Equal(t, "Loved it", c.Text)
	assert.Equal(t, edited, c.CommentedAt)
	assert.Equal(t, "Loved it", book.Comments[0].Text)

	_, ok = book.EditComment("missing", "x", edited)
	assert.False(t, ok)
}

func TestBook_RemoveComment(t *testing.T) {
	book := &Book{Comments: []Comment{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}}

	assert.True(t, book.RemoveComment("c2"))
	assert.Equal(t, []Comment{{ID: "c1"}, {ID: "c3"}}, book.Comments)

	assert.False(t, book.RemoveComment("c2"))
	assert.Len(t, book.Comments, 2)
}

func TestBook_IncrementDownloads(t *testing.T) {
	book := &Book{DownloadCount: 41}
	assert.Equal(t, int64(42), book.IncrementDownloads())
}

func TestBook_IsOwnedBy(t *testing.T) {
	book := &Book{UploaderID: "user-1"}
	assert.True(t, book.IsOwnedBy("user-1"))
	assert.False(t, book.IsOwnedBy("user-2"))
	assert.False(t, (&Book{}).IsOwnedBy(""))
}

func assertNoDuplicates(t assert.TestingT, ids []string) {
	seen := make(map[string]bool, len(ids))
	for _, v := range ids {
		assert.False(t, seen[v], "duplicate id %q", v)
		seen[v] = true
	}
}
