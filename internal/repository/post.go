// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository persists the post aggregate: the post row, its viewedBy set
// and its comments. Every write that touches more than one table runs in a
// single transaction.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	// GetByID loads the full aggregate with comments and viewedBy.
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// List returns posts newest first.
	List(ctx context.Context, limit, offset int) ([]models.Post, error)
	// Popular returns posts ordered by views, most viewed first.
	Popular(ctx context.Context, limit int) ([]models.Post, error)
	Update(ctx context.Context, id uint, patch models.PostPatch) (*models.Post, error)
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
	// RecordView adds token to the post's viewedBy set and increments views
	// if and only if the token was not already present. created reports
	// whether this call added it.
	RecordView(ctx context.Context, id uint, token string) (post *models.Post, created bool, err error)
	// AddComment appends comment to the post. A second comment from the same
	// visitor token fails with DuplicateComment.
	AddComment(ctx context.Context, id uint, comment *models.Comment) (*models.Post, error)
	ListComments(ctx context.Context, id uint) ([]models.Comment, error)
}

type postRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewPostRepository creates a new post repository. c may be nil.
func NewPostRepository(db *gorm.DB, c *cache.Cache) PostRepository {
	if c == nil {
		c = cache.New(nil)
	}
	return &postRepository{db: db, cache: c}
}

func withComments(db *gorm.DB) *gorm.DB {
	return db.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	})
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "Create", "posts")
	defer func() { done(err) }()

	post.Views = 0
	post.ViewedBy = nil
	post.Comments = nil
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewStoreError(err)
	}
	r.cache.InvalidatePosts(ctx)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (post *models.Post, err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "GetByID", "posts")
	defer func() { done(err) }()

	return r.load(r.db.WithContext(ctx), id)
}

func (r *postRepository) load(db *gorm.DB, id uint) (*models.Post, error) {
	var p models.Post
	err := withComments(db).
		Preload("ViewedBy", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&p, id).Error
	if err != nil {
		return nil, lookupError(err, "Post", id)
	}
	p.ComputeAverageRating()
	return &p, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) (posts []models.Post, err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "List", "posts")
	defer func() { done(err) }()

	limit, offset = clampPage(limit, offset)
	listKey := func(gen int64) string { return cache.PostsListKey(gen, limit, offset) }
	err = r.cache.PostsAside(ctx, listKey, &posts, cache.PostsListTTL, func() error {
		return withComments(r.db.WithContext(ctx)).
			Order("created_at DESC, id DESC").
			Limit(limit).
			Offset(offset).
			Find(&posts).Error
	})
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	for i := range posts {
		posts[i].ComputeAverageRating()
	}
	return posts, nil
}

func (r *postRepository) Popular(ctx context.Context, limit int) (posts []models.Post, err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "Popular", "posts")
	defer func() { done(err) }()

	limit, _ = clampPage(limit, 0)
	popularKey := func(gen int64) string { return cache.PostsPopularKey(gen, limit) }
	err = r.cache.PostsAside(ctx, popularKey, &posts, cache.PostsPopularTTL, func() error {
		return withComments(r.db.WithContext(ctx)).
			Order("views DESC, created_at DESC, id DESC").
			Limit(limit).
			Find(&posts).Error
	})
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	for i := range posts {
		posts[i].ComputeAverageRating()
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, id uint, patch models.PostPatch) (post *models.Post, err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "Update", "posts")
	defer func() { done(err) }()

	if patch.Empty() {
		return nil, models.NewValidationError("No fields to update")
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{ID: id}).Updates(patch.Columns())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
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

func (r *postRepository) Delete(ctx context.Context, id uint) (err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "Delete", "posts")
	defer func() { done(err) }()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostView{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		return passThrough(err)
	}
	r.cache.InvalidatePosts(ctx)
	return nil
}

func (r *postRepository) Count(ctx context.Context) (n int64, err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "Count", "posts")
	defer func() { done(err) }()

	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error; err != nil {
		return 0, models.NewStoreError(err)
	}
	return n, nil
}

// RecordView relies on the unique (post_id, visitor_token) index: the insert
// is a no-op for a known token, and the counter moves only when it inserted.
// Concurrent first views from the same token therefore count once.
func (r *postRepository) RecordView(ctx context.Context, id uint, token string) (post *models.Post, created bool, err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "RecordView", "post_views")
	defer func() { done(err) }()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePostExists(tx, id); err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PostView{PostID: id, VisitorToken: token})
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1

		if created {
			if err := tx.Model(&models.Post{}).Where("id = ?", id).
				UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
				return err
			}
		}

		post, err = r.load(tx, id)
		return err
	})
	if err != nil {
		return nil, false, passThrough(err)
	}

	if created {
		observability.PostViews.WithLabelValues("new").Inc()
		r.cache.InvalidatePosts(ctx)
	} else {
		observability.PostViews.WithLabelValues("repeat").Inc()
	}
	return post, created, nil
}

func ensurePostExists(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}
