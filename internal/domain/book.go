package domain

import (
	"slices"
	"strings"
	"time"
)

// AnonymousDisplayName is used for comments without a named author.
const AnonymousDisplayName = "Anonymous"

// Book is one shared document in the catalog.
type Book struct {
	Record
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Description   string    `json:"description"`
	Genres        []string  `json:"genres"`
	CoverImageURL string    `json:"coverImageUrl"`
	FileURL       string    `json:"fileUrl"`
	FileName      string    `json:"fileName"`
	FileType      string    `json:"fileType"`
	UploaderID    string    `json:"uploaderId"`
	Likes         []string  `json:"likes"`
	Comments      []Comment `json:"comments"`
	DownloadCount int64     `json:"downloadCount"`
	Approved      bool      `json:"approved"`
}

// Comment is owned by exactly one Book and has no lifecycle of its own.
type Comment struct {
	ID                string    `json:"id"`
	AuthorUserID      string    `json:"authorUserId,omitempty"`
	AuthorDisplayName string    `json:"authorDisplayName"`
	Text              string    `json:"text"`
	CommentedAt       time.Time `json:"commentedAt"`
}

// BookSummary is the reduced view used by the recently-visited list.
type BookSummary struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	CoverImageURL string   `json:"coverImageUrl"`
	Genres        []string `json:"genres"`
}

// Summary returns the title, cover and genres of the book.
func (b *Book) Summary() BookSummary {
	return BookSummary{
		ID:            b.ID,
		Title:         b.Title,
		CoverImageURL: b.CoverImageURL,
		Genres:        slices.Clone(b.Genres),
	}
}

// IsOwnedBy reports whether userID uploaded the book.
func (b *Book) IsOwnedBy(userID string) bool {
	return userID != "" && b.UploaderID == userID
}

// LikedBy reports whether userID is in the likes set.
func (b *Book) LikedBy(userID string) bool {
	return slices.Contains(b.Likes, userID)
}

// ToggleLike flips userID's membership in the likes set.
// Returns true if the book is liked after the call.
func (b *Book) ToggleLike(userID string) bool {
	if i := slices.Index(b.Likes, userID); i >= 0 {
		b.Likes = slices.Delete(b.Likes, i, i+1)
		return false
	}
	b.Likes = append(b.Likes, userID)
	return true
}

// HasComment reports whether a comment with id exists.
func (b *Book) HasComment(id string) bool {
	return b.commentIndex(id) >= 0
}

// AppendComment adds c to the end of the comment list.
// Returns false without modifying the book if c.ID is already used.
func (b *Book) AppendComment(c Comment) bool {
	if b.HasComment(c.ID) {
		return false
	}
	if strings.TrimSpace(c.AuthorDisplayName) == "" {
		c.AuthorDisplayName = AnonymousDisplayName
	}
	b.Comments = append(b.Comments, c)
	return true
}

// Comment returns a copy of the comment with id.
func (b *Book) Comment(id string) (Comment, bool) {
	i := b.commentIndex(id)
	if i < 0 {
		return Comment{}, false
	}
	return b.Comments[i], true
}

// EditComment replaces the text of comment id and stamps it with at.
// The original creation time is not kept.
func (b *Book) EditComment(id, text string, at time.Time) (Comment, bool) {
	i := b.commentIndex(id)
	if i < 0 {
		return Comment{}, false
	}
	b.Comments[i].Text = text
	b.Comments[i].CommentedAt = at
	return b.Comments[i], true
}

// RemoveComment deletes comment id, keeping the order of the rest.
// Returns false if no such comment exists.
func (b *Book) RemoveComment(id string) bool {
	i := b.commentIndex(id)
	if i < 0 {
		return false
	}
	b.Comments = slices.Delete(b.Comments, i, i+1)
	return true
}

// IncrementDownloads bumps the download counter and returns the new value.
func (b *Book) IncrementDownloads() int64 {
	b.DownloadCount++
	return b.DownloadCount
}

func (b *Book) commentIndex(id string) int {
	return slices.IndexFunc(b.Comments, func(c Comment) bool { return c.ID == id })
}
