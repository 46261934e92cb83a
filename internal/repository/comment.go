package repository

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *postRepository) AddComment(ctx context.Context, id uint, comment *models.Comment) (post *models.Post, err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "AddComment", "comments")
	defer func() { done(err) }()

	comment.ID = 0
	comment.PostID = id

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePostExists(tx, id); err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(comment)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewDuplicateCommentError()
		}

		post, err = r.load(tx, id)
		return err
	})
	if err != nil {
		return nil, passThrough(err)
	}
	r.cache.InvalidatePosts(ctx)
	return post, nil
}

func (r *postRepository) ListComments(ctx context.Context, id uint) (comments []models.Comment, err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "ListComments", "comments")
	defer func() { done(err) }()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePostExists(tx, id); err != nil {
			return err
		}
		return tx.Where("post_id = ?", id).Order("created_at ASC, id ASC").Find(&comments).Error
	})
	if err != nil {
		return nil, passThrough(err)
	}
	return comments, nil
}
