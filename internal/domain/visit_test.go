package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func visitedIDs(visits []Visit) []string {
	out := make([]string, 0, len(visits))
	for _, v := range visits {
		out = append(out, v.BookID)
	}
	return out
}

func TestRecordVisit_DedupAndBump(t *testing.T) {
	u := &User{}
	base := time.Now()

	u.RecordVisit("A", base)
	u.RecordVisit("B", base.Add(time.Second))
	u.RecordVisit("C", base.Add(2*time.Second))
	assert.Equal(t, []string{"C", "B", "A"}, visitedIDs(u.Recent))

	got := u.RecordVisit("A", base.Add(3*time.Second))
	assert.Equal(t, []string{"A", "C", "B"}, visitedIDs(got))
}

func TestRecordVisit_BoundedToTen(t *testing.T) {
	u := &User{}
	base := time.Now()

	for i := range 12 {
		u.RecordVisit(fmt.Sprintf("book-%02d", i), base.Add(time.Duration(i)*time.Second))
	}

	assert.Len(t, u.Recent, MaxRecentlyVisited)
	want := []string{
		"book-11", "book-10", "book-09", "book-08", "book-07",
		"book-06", "book-05", "book-04", "book-03", "book-02",
	}
	assert.Equal(t, want, visitedIDs(u.Recent))
}

func TestRecordVisit_ClockSkewKeepsOrder(t *testing.T) {
	u := &User{}
	now := time.Now()

	u.RecordVisit("A", now)
	u.RecordVisit("B", now.Add(-time.Minute))

	assert.Equal(t, []string{"B", "A"}, visitedIDs(u.Recent))
	assert.False(t, u.Recent[0].VisitedAt.Before(u.Recent[1].VisitedAt))
}

func TestRecentVisits_ResortsAndCaps(t *testing.T) {
	base := time.Now()
	u := &User{}
	for i := range 12 {
		// Stored oldest first, as if written by an older client.
		u.Recent = append(u.Recent, Visit{BookID: fmt.Sprintf("b%d", i), VisitedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	got := u.RecentVisits()

	assert.Len(t, got, MaxRecentlyVisited)
	assert.Equal(t, "b11", got[0].BookID)
	assert.Equal(t, "b2", got[9].BookID)
	assert.Len(t, u.Recent, 12, "read side must not rewrite storage")
}

func TestRecordVisit_Invariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		visits := rapid.SliceOf(rapid.IntRange(0, 15)).Draw(t, "visits")
		offsets := rapid.SliceOfN(rapid.IntRange(-5, 60), len(visits), len(visits)).Draw(t, "offsets")

		u := &User{}
		clock := time.Now()
		var model []string

		for i, n := range visits {
			bookID := fmt.Sprintf("book-%d", n)
			clock = clock.Add(time.Duration(offsets[i]) * time.Second)
			u.RecordVisit(bookID, clock)

			// Reference model: filter, unshift, slice.
			next := []string{bookID}
			for _, m := range model {
				if m != bookID {
					next = append(next, m)
				}
			}
			if len(next) > MaxRecentlyVisited {
				next = next[:MaxRecentlyVisited]
			}
			model = next

			if len(u.Recent) > MaxRecentlyVisited {
				t.Fatalf("length %d exceeds capacity", len(u.Recent))
			}
			assertNoDuplicates(t, visitedIDs(u.Recent))
			for j := 1; j < len(u.Recent); j++ {
				if u.Recent[j-1].VisitedAt.Before(u.Recent[j].VisitedAt) {
					t.Fatalf("entries %d and %d out of order", j-1, j)
				}
			}
		}

		if len(visits) > 0 {
			assert.Equal(t, model, visitedIDs(u.Recent))
		}
	})
}
