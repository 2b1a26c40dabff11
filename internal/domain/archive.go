package domain

import "slices"

// Archive adds bookID to the user's archive.
// Returns false if it was already archived; the archive is left untouched.
func (u *User) Archive(bookID string) bool {
	if slices.Contains(u.Archived, bookID) {
		return false
	}
	u.Archived = append(u.Archived, bookID)
	return true
}

// Unarchive removes bookID from the archive.
// Returns false if the book was not present.
func (u *User) Unarchive(bookID string) bool {
	i := slices.Index(u.Archived, bookID)
	if i < 0 {
		return false
	}
	u.Archived = slices.Delete(u.Archived, i, i+1)
	return true
}

// HasArchived checks if bookID is in the archive.
func (u *User) HasArchived(bookID string) bool {
	return slices.Contains(u.Archived, bookID)
}
