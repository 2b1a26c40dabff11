package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_Archive_Idempotent(t *testing.T) {
	u := &User{}

	assert.True(t, u.Archive("book-1"))
	assert.False(t, u.Archive("book-1"))
	assert.Equal(t, []string{"book-1"}, u.Archived)
}

func TestUser_Unarchive(t *testing.T) {
	u := &User{Archived: []string{"book-1", "book-2"}}

	assert.True(t, u.Unarchive("book-1"))
	assert.Equal(t, []string{"book-2"}, u.Archived)

	assert.False(t, u.Unarchive("book-1"))
	assert.Equal(t, []string{"book-2"}, u.Archived)
}

func TestUser_ArchiveDoesNotTouchVisits(t *testing.T) {
	u := &User{Recent: []Visit{{BookID: "book-1"}}}

	u.Archive("book-2")
	u.Unarchive("book-2")

	assert.Equal(t, []Visit{{BookID: "book-1"}}, u.Recent)
}

func TestDefaultAvatarURL(t *testing.T) {
	assert.Equal(t, "https://api.dicebear.com/7.x/initials/svg?seed=J", DefaultAvatarURL("jane"))
	assert.Equal(t, "https://api.dicebear.com/7.x/initials/svg?seed=%C3%89", DefaultAvatarURL("élodie"))
	assert.Equal(t, "https://api.dicebear.com/7.x/initials/svg?seed=%3F", DefaultAvatarURL(""))

	for username, seed := range map[string]string{"&amp": "%26", "#tag": "%23", "+plus": "%2B", "?q": "%3F", " %x": "%25"} {
		assert.Equal(t, "https://api.dicebear.com/7.x/initials/svg?seed="+seed, DefaultAvatarURL(username), username)
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("member").Valid())
}
