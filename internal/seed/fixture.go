package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"gopkg.in/yaml.v3"
)

// Fixture is a hand-written data set loaded from YAML.
type Fixture struct {
	Users []FixtureUser `yaml:"users"`
	Posts []FixturePost `yaml:"posts"`
}

type FixtureUser struct {
	Username string      `yaml:"username"`
	Password string      `yaml:"password"`
	Role     models.Role `yaml:"role"`
}

type FixturePost struct {
	Title    string           `yaml:"title"`
	Content  string           `yaml:"content"`
	Author   string           `yaml:"author"`
	ImageURL string           `yaml:"image_url"`
	ViewedBy []string         `yaml:"viewed_by"`
	Comments []FixtureComment `yaml:"comments"`
}

type FixtureComment struct {
	Username     string `yaml:"username"`
	Comment      string `yaml:"comment"`
	Rating       int    `yaml:"rating"`
	VisitorToken string `yaml:"visitor_token"`
}

// ParseFixture decodes YAML, rejecting unknown keys.
func ParseFixture(data []byte) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &fx, nil
}

// LoadFixture reads and parses the fixture at path.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFixture(data)
}

// Apply writes the fixture through the services so every record passes the
// same validation as API traffic. Existing usernames are skipped.
func (f *Factory) Apply(ctx context.Context, fx *Fixture) (Summary, error) {
	var sum Summary

	for _, u := range fx.Users {
		if _, err := f.users.GetUserByUsername(ctx, u.Username); err == nil {
			continue
		} else if !errors.Is(err, models.ErrNotFound) {
			return sum, err
		}
		if _, err := f.users.CreateUser(ctx, service.CreateUserInput{
			Username: u.Username,
			Password: u.Password,
			Role:     u.Role,
		}); err != nil {
			return sum, fmt.Errorf("user %q: %w", u.Username, err)
		}
		sum.Editors++
	}

	posts := service.NewPostService(f.posts)
	comments := service.NewCommentService(f.posts)
	for _, p := range fx.Posts {
		post, err := posts.CreatePost(ctx, service.CreatePostInput{
			Title:    p.Title,
			Content:  p.Content,
			Author:   p.Author,
			ImageURL: p.ImageURL,
		})
		if err != nil {
			return sum, fmt.Errorf("post %q: %w", p.Title, err)
		}
		sum.Posts++

		for _, token := range p.ViewedBy {
			if _, created, err := f.posts.RecordView(ctx, post.ID, token); err != nil {
				return sum, err
			} else if created {
				sum.Views++
			}
		}
		for _, c := range p.Comments {
			if _, err := comments.AddComment(ctx, service.AddCommentInput{
				PostID:       post.ID,
				Username:     c.Username,
				Comment:      c.Comment,
				Rating:       c.Rating,
				VisitorToken: c.VisitorToken,
			}); err != nil {
				return sum, fmt.Errorf("comment on %q: %w", p.Title, err)
			}
			sum.Comments++
		}
	}
	return sum, nil
}
