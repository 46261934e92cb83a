// Package seed provides helpers to create demo data for the blog database.
// These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/visitor"

	"github.com/brianvoe/gofakeit/v6"
)

// Options configures the fake data generator.
type Options struct {
	NumEditors int
	NumPosts   int
	// MaxViews and MaxComments bound the per-post activity.
	MaxViews    int
	MaxComments int
	// MaxDays spreads post creation times over the last N days.
	MaxDays int
	// DefaultPassword is given to every generated editor.
	DefaultPassword string
	// Seed makes the output reproducible when non-zero.
	Seed int64
}

// DefaultOptions are used by cmd/seed when no flags are given.
func DefaultOptions() Options {
	return Options{
		NumEditors:      3,
		NumPosts:        20,
		MaxViews:        40,
		MaxComments:     6,
		MaxDays:         90,
		DefaultPassword: "password123",
	}
}

// Factory builds blog entities and writes them through the repositories so
// views and comments obey the same uniqueness rules as live traffic.
type Factory struct {
	posts repository.PostRepository
	users *service.UserService
	opts  Options
	rng   *rand.Rand
	faker *gofakeit.Faker
}

// NewFactory creates a Factory writing through posts and users.
func NewFactory(posts repository.PostRepository, users *service.UserService, opts Options) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// #nosec G404: acceptable for seeding
	return &Factory{
		posts: posts,
		users: users,
		opts:  opts,
		rng:   rand.New(rand.NewSource(seed)),
		faker: gofakeit.New(seed),
	}
}

// CreateEditor persists an editor with a fake username.
func (f *Factory) CreateEditor(ctx context.Context) (*models.User, error) {
	username := strings.ToLower(f.faker.Username()) + fmt.Sprintf("%d", f.faker.Number(100, 999))
	return f.users.CreateUser(ctx, service.CreateUserInput{
		Username: username,
		Password: f.opts.DefaultPassword,
		Role:     models.RoleEditor,
	})
}

// BuildPost constructs a post by author without persisting it.
func (f *Factory) BuildPost(author string, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Title:    strings.TrimSuffix(f.faker.Sentence(5), "."),
		Content:  "<p>" + f.faker.Paragraph(2, 4, 12, "</p><p>") + "</p>",
		Author:   author,
		ImageURL: fmt.Sprintf("/uploads/%s.jpg", f.faker.UUID()),
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	post.CreatedAt = time.Now().Add(-back)

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost persists a generated post.
func (f *Factory) CreatePost(ctx context.Context, author string, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if err := f.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// AddActivity records up to MaxViews views from fresh visitors and lets
// some of them comment. Returns the number of views and comments written.
func (f *Factory) AddActivity(ctx context.Context, postID uint) (views, comments int, err error) {
	nViews := 0
	if f.opts.MaxViews > 0 {
		nViews = f.rng.Intn(f.opts.MaxViews + 1)
	}
	nComments := 0
	if f.opts.MaxComments > 0 {
		nComments = f.rng.Intn(f.opts.MaxComments + 1)
	}

	for i := 0; i < nViews || i < nComments; i++ {
		token, err := visitor.NewToken()
		if err != nil {
			return views, comments, err
		}
		if i < nViews {
			if _, created, err := f.posts.RecordView(ctx, postID, token); err != nil {
				return views, comments, err
			} else if created {
				views++
			}
		}
		if i < nComments {
			c := f.BuildComment(token)
			if _, err := f.posts.AddComment(ctx, postID, c); err != nil {
				return views, comments, err
			}
			comments++
		}
	}
	return views, comments, nil
}

// BuildComment constructs a rated comment from visitorToken.
func (f *Factory) BuildComment(visitorToken string) *models.Comment {
	return &models.Comment{
		Username:     f.faker.FirstName(),
		Comment:      f.faker.Sentence(f.rng.Intn(15) + 3),
		Rating:       f.rng.Intn(models.MaxRating-models.MinRating+1) + models.MinRating,
		VisitorToken: visitorToken,
	}
}
