package domain

import (
	"slices"
	"time"
)

// MaxRecentlyVisited bounds the recently-visited list.
const MaxRecentlyVisited = 10

// Visit records that a user opened a book.
type Visit struct {
	BookID    string    `json:"bookId"`
	VisitedAt time.Time `json:"visitedAt"`
}

// RecordVisit moves bookID to the front of the recently-visited list.
//
// Any previous entry for the book is dropped, the new entry is pushed to the
// front, and the tail is cut so at most MaxRecentlyVisited entries remain.
// If the clock reads earlier than the current head, the head's time is used
// so the list stays sorted newest first.
func (u *User) RecordVisit(bookID string, at time.Time) []Visit {
	u.Recent = slices.DeleteFunc(u.Recent, func(v Visit) bool { return v.BookID == bookID })

	if len(u.Recent) > 0 && at.Before(u.Recent[0].VisitedAt) {
		at = u.Recent[0].VisitedAt
	}

	u.Recent = slices.Insert(u.Recent, 0, Visit{BookID: bookID, VisitedAt: at})
	if len(u.Recent) > MaxRecentlyVisited {
		u.Recent = u.Recent[:MaxRecentlyVisited]
	}
	return slices.Clone(u.Recent)
}

// RecentVisits returns the list sorted newest first and capped, whatever
// order it was stored in. Ties keep their stored order.
func (u *User) RecentVisits() []Visit {
	out := slices.Clone(u.Recent)
	slices.SortStableFunc(out, func(a, b Visit) int {
		return b.VisitedAt.Compare(a.VisitedAt)
	})
	if len(out) > MaxRecentlyVisited {
		out = out[:MaxRecentlyVisited]
	}
	return out
}
