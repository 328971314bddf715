package model

import (
	"strings"
	"time"
)

// DefaultCover is used when a post is created without a cover image.
const DefaultCover = "https://www.sylff.org/wp-content/uploads/2016/04/noImage.jpg"

// Tag is one label of the fixed post category enumeration.
type Tag string

const (
	TagCode  Tag = "Code"
	TagWeb   Tag = "Web"
	TagMERN  Tag = "MERN"
	TagSQL   Tag = "SQL"
	TagOther Tag = "Other"
)

// TagAll is the feed filter value that expands to every tag.
const TagAll = "All"

// AllTags returns the tag enumeration in display order.
// A fresh slice is returned on every call so callers may modify it.
func AllTags() []string {
	return []string{string(TagCode), string(TagWeb), string(TagMERN), string(TagSQL), string(TagOther)}
}

// IsValidTag reports whether s is a member of the enumeration (exact match).
func IsValidTag(s string) bool {
	for _, t := range AllTags() {
		if t == s {
			return true
		}
	}
	return false
}

// SplitTags parses a comma-separated tag list, trimming blanks and dropping
// duplicates while keeping first-seen order.
func SplitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	seen := make(map[string]bool, len(parts))
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		tags = append(tags, p)
	}
	return tags
}

// Comment is embedded in a Post.
type Comment struct {
	ID        string    `json:"id"        bson:"_id"`
	UserID    string    `json:"user"      bson:"user"`
	Content   string    `json:"content"   bson:"content"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Post is a blog post document. Comments and Likes are embedded.
type Post struct {
	ID        string    `json:"id"        bson:"_id"`
	Title     string    `json:"title"     bson:"title"`
	Summary   string    `json:"summary"   bson:"summary"`
	Content   string    `json:"content"   bson:"content"`
	Cover     string    `json:"cover"     bson:"cover"`
	Tags      []string  `json:"postTags"  bson:"postTags"`
	Comments  []Comment `json:"comments"  bson:"comments"`
	Likes     []string  `json:"likes"     bson:"likes"`
	Views     int64     `json:"views"     bson:"views"`
	AuthorID  string    `json:"author"    bson:"author"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// FindComment returns the embedded comment with the given id, or nil.
func (p *Post) FindComment(id string) *Comment {
	for i := range p.Comments {
		if p.Comments[i].ID == id {
			return &p.Comments[i]
		}
	}
	return nil
}

// HasLike reports whether userID is in the like set.
func (p *Post) HasLike(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
