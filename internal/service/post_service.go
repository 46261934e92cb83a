package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

type PostService struct {
	postRepo repository.PostRepository
}

type CreatePostInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Author   string `json:"author"`
	ImageURL string `json:"image_url"`
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title, err := validation.RequireText("title", in.Title, validation.MaxTitleLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	content, err := validation.RequireText("content", in.Content, validation.MaxContentLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	author, err := validation.RequireText("author", in.Author, validation.MaxAuthorLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	imageURL, err := validation.RequireText("image_url", in.ImageURL, validation.MaxImageURLLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post := &models.Post{
		Title:    title,
		Content:  content,
		Author:   author,
		ImageURL: imageURL,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost applies the fields set in patch. Set fields must not be blank.
func (s *PostService) UpdatePost(ctx context.Context, id uint, patch models.PostPatch) (*models.Post, error) {
	if patch.Empty() {
		return nil, models.NewValidationError("At least one field is required")
	}

	check := func(field string, v *string, maxLen int) error {
		if v == nil {
			return nil
		}
		trimmed, err := validation.RequireText(field, *v, maxLen)
		if err != nil {
			return models.NewValidationError(err.Error())
		}
		*v = trimmed
		return nil
	}
	if err := check("title", patch.Title, validation.MaxTitleLength); err != nil {
		return nil, err
	}
	if err := check("content", patch.Content, validation.MaxContentLength); err != nil {
		return nil, err
	}
	if err := check("author", patch.Author, validation.MaxAuthorLength); err != nil {
		return nil, err
	}
	if err := check("image_url", patch.ImageURL, validation.MaxImageURLLength); err != nil {
		return nil, err
	}

	return s.postRepo.Update(ctx, id, patch)
}

func (s *PostService) DeletePost(ctx context.Context, id uint) error {
	return s.postRepo.Delete(ctx, id)
}

func (s *PostService) ListPosts(ctx context.Context, limit, offset int) ([]models.Post, error) {
	return s.postRepo.List(ctx, limit, offset)
}

func (s *PostService) PopularPosts(ctx context.Context, limit int) ([]models.Post, error) {
	return s.postRepo.Popular(ctx, limit)
}

// ViewPost returns the post and records the visitor's view. Repeat views by
// the same visitor leave the counter unchanged.
func (s *PostService) ViewPost(ctx context.Context, id uint, visitorToken string) (*models.Post, error) {
	if err := validation.ValidateVisitorToken(visitorToken); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	post, _, err := s.postRepo.RecordView(ctx, id, visitorToken)
	return post, err
}
