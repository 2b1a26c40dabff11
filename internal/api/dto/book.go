package dto

import (
	"mime/multipart"

	"github.com/inkcircle/inkcircle-server/internal/domain"
	"github.com/inkcircle/inkcircle-server/internal/service"
)

// ListBooksInput holds the catalog filters.
type ListBooksInput struct {
	Search   string `query:"search" doc:"Case-insensitive substring over title, author and genres"`
	Title    string `query:"title" doc:"Exact title"`
	Author   string `query:"author" doc:"Case-insensitive author substring"`
	Genres   string `query:"genres" doc:"Comma-separated genres; matches any"`
	Approved string `query:"approved" doc:"Restrict to approved (true) or pending (false) books"`
}

// BookOutput wraps a single book for huma.
type BookOutput struct {
	Body *domain.Book
}

// CreatedBookOutput wraps a newly created book.
type CreatedBookOutput struct {
	Status int
	Body   *domain.Book
}

// BooksOutput wraps a book list for huma.
type BooksOutput struct {
	Body []*domain.Book
}

// BookFormInput is a multipart book create or update. Text fields are
// title, author, description, genres, fileUrl, fileName and coverImageUrl;
// file parts are file and coverImage.
type BookFormInput struct {
	RawBody multipart.Form
}

// UpdateBookFormInput targets an existing book.
type UpdateBookFormInput struct {
	ID      string `path:"id" doc:"Book ID"`
	RawBody multipart.Form
}

// LikesResponse is the like list after a toggle.
type LikesResponse struct {
	Liked bool     `json:"liked" doc:"Whether the caller now likes the book"`
	Likes []string `json:"likes" doc:"User IDs that like the book"`
}

// LikesOutput wraps the likes response for huma.
type LikesOutput struct {
	Body LikesResponse
}

// AddCommentRequest is the body of a new comment.
type AddCommentRequest struct {
	Text        string `json:"text" maxLength:"5000" doc:"Comment text"`
	DisplayName string `json:"displayName,omitempty" doc:"Name shown for anonymous comments"`
}

// AddCommentInput wraps the comment request for huma.
type AddCommentInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body AddCommentRequest
}

// EditCommentRequest is the body of a comment edit.
type EditCommentRequest struct {
	Text string `json:"text" maxLength:"5000" doc:"New comment text"`
}

// EditCommentInput wraps the comment edit for huma.
type EditCommentInput struct {
	ID        string `path:"id" doc:"Book ID"`
	CommentID string `path:"commentId" doc:"Comment ID"`
	Body      EditCommentRequest
}

// CommentPathInput addresses one comment.
type CommentPathInput struct {
	ID        string `path:"id" doc:"Book ID"`
	CommentID string `path:"commentId" doc:"Comment ID"`
}

// CommentOutput wraps a single comment.
type CommentOutput struct {
	Status int
	Body   domain.Comment
}

// CommentsResponse lists the comments left on a book.
type CommentsResponse struct {
	Comments []domain.Comment `json:"comments"`
}

// CommentsOutput wraps the comment list for huma.
type CommentsOutput struct {
	Body CommentsResponse
}

// DownloadResponse reports the new download count.
type DownloadResponse struct {
	DownloadCount int64 `json:"downloadCount"`
}

// DownloadOutput wraps the download response for huma.
type DownloadOutput struct {
	Body DownloadResponse
}

// ArchiveResponse reports the archive state of a book for the caller.
type ArchiveResponse struct {
	Archived        bool `json:"archived"`
	AlreadyArchived bool `json:"alreadyArchived"`
}

// ArchiveOutput wraps the archive response for huma.
type ArchiveOutput struct {
	Body ArchiveResponse
}

// VisitedOutput wraps a recently visited list.
type VisitedOutput struct {
	Body []service.VisitedBook
}

// RecentlyVisitedInput addresses a user's history. "me" means the caller.
type RecentlyVisitedInput struct {
	ID string `path:"id" doc:"User ID, or me"`
}

// ReviewRequest approves or rejects a pending book.
type ReviewRequest struct {
	Approved bool `json:"approved" doc:"Whether the book is visible in the catalog"`
}

// ReviewInput wraps the review request for huma.
type ReviewInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body ReviewRequest
}

// AuthorInput addresses an author's books.
type AuthorInput struct {
	Author string `path:"author" doc:"Author name, matched case-insensitively"`
}

// StatsOutput wraps the site statistics.
type StatsOutput struct {
	Body *service.Stats
}

// Books wraps a book list, encoding an empty list as [] rather than null.
func Books(books []*domain.Book) *BooksOutput {
	if books == nil {
		books = []*domain.Book{}
	}
	return &BooksOutput{Body: books}
}
