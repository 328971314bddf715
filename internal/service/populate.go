package service

import (
	"context"
	"fmt"

	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// populate resolves post and comment authors with one batch lookup and builds
// the read models. An author that no longer resolves is shown by id only.
func populate(ctx context.Context, users repository.UserRepository, posts []model.Post) ([]model.PostView, error) {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for i := range posts {
		add(posts[i].AuthorID)
		for _, c := range posts[i].Comments {
			add(c.UserID)
		}
	}

	resolved, err := users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service: resolving authors: %w", err)
	}
	byID := make(map[string]model.UserSummary, len(resolved))
	for i := range resolved {
		byID[resolved[i].ID] = resolved[i].Summary()
	}
	summary := func(id string) model.UserSummary {
		if s, ok := byID[id]; ok {
			return s
		}
		return model.UserSummary{ID: id}
	}

	views := make([]model.PostView, 0, len(posts))
	for i := range posts {
		p := &posts[i]

		comments := make([]model.CommentView, 0, len(p.Comments))
		for _, c := range p.Comments {
			comments = append(comments, model.CommentView{
				ID:        c.ID,
				User:      summary(c.UserID),
				Content:   c.Content,
				CreatedAt: c.CreatedAt,
			})
		}

		views = append(views, model.PostView{
			ID:        p.ID,
			Title:     p.Title,
			Summary:   p.Summary,
			Content:   p.Content,
			Cover:     p.Cover,
			Tags:      nonNilStrings(p.Tags),
			Likes:     nonNilStrings(p.Likes),
			Views:     p.Views,
			Author:    summary(p.AuthorID),
			Comments:  comments,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return views, nil
}

func populateOne(ctx context.Context, users repository.UserRepository, post *model.Post) (*model.PostView, error) {
	views, err := populate(ctx, users, []model.Post{*post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
