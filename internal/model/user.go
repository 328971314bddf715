// Package model defines the data structures used throughout the application.
//
// Stored documents (User, Post, Comment) carry both json and bson tags: the same
// struct is decoded from MongoDB and scanned from SQLite, then shaped into the
// read models in view.go before it leaves the service layer.
package model

import "time"

// Defaults applied to new accounts.
const (
	DefaultBio        = "Passionate coder and tech enthusiast"
	DefaultProfileImg = "https://www.freeiconspng.com/uploads/msn-people-person-profile-user-icon--icon-search-engine-16.png"
	DefaultCoverImg   = "https://cdn.pixabay.com/photo/2015/07/28/22/01/office-865091_640.jpg"
)

// User represents a registered account.
//
// PasswordHash is empty for accounts created through Google sign-in, and GoogleID
// is empty for accounts created with a password. Both are hidden from JSON.
//
// Followers and Following are ordered id sets: the order is the order in which
// the edges were created. A user's own ID never appears in either set.
type User struct {
	ID           string    `json:"id"                   bson:"_id"`
	Username     string    `json:"username"             bson:"username"`
	Name         string    `json:"name"                 bson:"name"`
	PasswordHash string    `json:"-"                    bson:"password,omitempty"`
	GoogleID     string    `json:"-"                    bson:"googleId,omitempty"`
	Email        string    `json:"email,omitempty"      bson:"email,omitempty"`
	Bio          string    `json:"bio"                  bson:"bio"`
	ProfileImg   string    `json:"profileImg"           bson:"profileImg"`
	CoverImg     string    `json:"coverImg"             bson:"coverImg"`
	Followers    []string  `json:"followers"            bson:"followers"`
	Following    []string  `json:"following"            bson:"following"`
	CreatedAt    time.Time `json:"createdAt"            bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"            bson:"updatedAt"`
}

// ApplyDefaults fills the profile fields a new account starts with.
func (u *User) ApplyDefaults() {
	if u.Bio == "" {
		u.Bio = DefaultBio
	}
	if u.ProfileImg == "" {
		u.ProfileImg = DefaultProfileImg
	}
	if u.CoverImg == "" {
		u.CoverImg = DefaultCoverImg
	}
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Following == nil {
		u.Following = []string{}
	}
}

// IsFollowing reports whether u follows the user with the given id.
func (u *User) IsFollowing(id string) bool {
	for _, f := range u.Following {
		if f == id {
			return true
		}
	}
	return false
}

// Summary returns the fields shown next to posts and comments.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		ProfileImg: u.ProfileImg,
	}
}

// PublicProfile returns the fields anyone may see on a profile page.
func (u *User) PublicProfile() PublicProfile {
	followers := u.Followers
	if followers == nil {
		followers = []string{}
	}
	following := u.Following
	if following == nil {
		following = []string{}
	}
	return PublicProfile{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		Bio:        u.Bio,
		ProfileImg: u.ProfileImg,
		CoverImg:   u.CoverImg,
		Followers:  followers,
		Following:  following,
	}
}
