package service

import (
	"context"
	"errors"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

type CommentService struct {
	postRepo repository.PostRepository
}

// AddCommentInput is the body of POST /posts/{id}/comments.
type AddCommentInput struct {
	PostID   uint   `json:"-"`
	Username string `json:"username"`
	Comment  string `json:"comment"`
	Rating   int    `json:"rating" minimum:"1" maximum:"5"`
	// VisitorToken is read from the snake_case "visitor_token" key. When it
	// is absent the X-Visitor-Token header is used instead.
	VisitorToken string `json:"visitor_token"`
}

func NewCommentService(postRepo repository.PostRepository) *CommentService {
	return &CommentService{postRepo: postRepo}
}

func (s *CommentService) validate(in *AddCommentInput) error {
	username, err := validation.RequireText("username", in.Username, validation.MaxCommenterNameLength)
	if err != nil {
		return models.NewValidationError(err.Error())
	}
	comment, err := validation.RequireText("comment", in.Comment, validation.MaxCommentLength)
	if err != nil {
		return models.NewValidationError(err.Error())
	}
	if in.Rating == 0 {
		return models.NewValidationError("rating is required")
	}
	if err := validation.ValidateRating(in.Rating, models.MinRating, models.MaxRating); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateVisitorToken(in.VisitorToken); err != nil {
		return models.NewValidationError(err.Error())
	}
	in.Username = username
	in.Comment = comment
	return nil
}

// AddComment stores a visitor's rated comment. Each visitor token may comment
// on a given post once.
func (s *CommentService) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	if err := s.validate(&in); err != nil {
		observability.Comments.WithLabelValues("rejected").Inc()
		return nil, err
	}

	comment := &models.Comment{
		Username:     in.Username,
		Comment:      in.Comment,
		Rating:       in.Rating,
		VisitorToken: in.VisitorToken,
	}
	if _, err := s.postRepo.AddComment(ctx, in.PostID, comment); err != nil {
		if errors.Is(err, models.ErrDuplicateComment) {
			observability.Comments.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}

	observability.Comments.WithLabelValues("created").Inc()
	return comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	return s.postRepo.ListComments(ctx, postID)
}
