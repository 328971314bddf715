package model

import "time"

// UserSummary is the short form of a user shown next to posts, comments and
// follower lists.
type UserSummary struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	ProfileImg string `json:"profileImg,omitempty"`
}

// PublicProfile is what anyone can see about a user.
type PublicProfile struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	Name       string   `json:"name"`
	Bio        string   `json:"bio"`
	ProfileImg string   `json:"profileImg"`
	CoverImg   string   `json:"coverImg"`
	Followers  []string `json:"followers"`
	Following  []string `json:"following"`
}

// CommentView is a comment with its author resolved.
type CommentView struct {
	ID        string      `json:"id"`
	User      UserSummary `json:"user"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
}

// PostView is a post with its author and comment authors resolved.
type PostView struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Summary   string        `json:"summary"`
	Content   string        `json:"content"`
	Cover     string        `json:"cover"`
	Tags      []string      `json:"postTags"`
	Likes     []string      `json:"likes"`
	Views     int64         `json:"views"`
	Author    UserSummary   `json:"author"`
	Comments  []CommentView `json:"comments"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// FeedPage is one page of the post listing.
type FeedPage struct {
	TotalPages int        `json:"totalPages"`
	Posts      []PostView `json:"posts"`
}

// AuthorPosts is the profile page payload: the author plus all their posts.
type AuthorPosts struct {
	Author PublicProfile `json:"author"`
	Posts  []PostView    `json:"posts"`
}

// Identity is the caller identity carried by a session token.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}
