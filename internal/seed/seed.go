package seed

import (
	"context"
	"fmt"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
)

// Summary counts what a seeding run wrote.
type Summary struct {
	Editors  int
	Posts    int
	Views    int
	Comments int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d editors, %d posts, %d views, %d comments", s.Editors, s.Posts, s.Views, s.Comments)
}

// Run creates NumEditors editors and NumPosts posts spread across them, each
// with random visitor activity.
func (f *Factory) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	authors := make([]*models.User, 0, f.opts.NumEditors)
	for i := 0; i < f.opts.NumEditors; i++ {
		u, err := f.CreateEditor(ctx)
		if err != nil {
			return sum, fmt.Errorf("create editor: %w", err)
		}
		authors = append(authors, u)
		sum.Editors++
	}

	for i := 0; i < f.opts.NumPosts; i++ {
		author := "Staff"
		if len(authors) > 0 {
			author = authors[i%len(authors)].Username
		}
		post, err := f.CreatePost(ctx, author)
		if err != nil {
			return sum, fmt.Errorf("create post: %w", err)
		}
		sum.Posts++

		views, comments, err := f.AddActivity(ctx, post.ID)
		sum.Views += views
		sum.Comments += comments
		if err != nil {
			return sum, fmt.Errorf("activity for post %d: %w", post.ID, err)
		}
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("editors", sum.Editors),
		slog.Int("posts", sum.Posts),
		slog.Int("views", sum.Views),
		slog.Int("comments", sum.Comments),
	)
	return sum, nil
}
