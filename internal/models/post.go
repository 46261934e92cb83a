// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Comment rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Post is the aggregate root for a blog entry. Views, comments and the set of
// visitors that have viewed it live in their own tables but are only ever
// written through the post.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"size:300;not null" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`
	Author   string `gorm:"size:128;not null" json:"author"`
	ImageURL string `gorm:"column:image_url;not null" json:"image_url"`
	// Views always equals the number of rows in post_views for this post.
	Views    int64      `gorm:"not null;default:0" json:"views"`
	ViewedBy []PostView `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Comments []Comment  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments"`
	// AverageRating is computed on read from Comments.
	AverageRating float64   `gorm:"-" json:"average_rating"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// VisitorTokens returns the viewedBy set in insertion order.
func (p *Post) VisitorTokens() []string {
	tokens := make([]string, 0, len(p.ViewedBy))
	for _, v := range p.ViewedBy {
		tokens = append(tokens, v.VisitorToken)
	}
	return tokens
}

// HasViewed reports whether token is already in the viewedBy set.
func (p *Post) HasViewed(token string) bool {
	for _, v := range p.ViewedBy {
		if v.VisitorToken == token {
			return true
		}
	}
	return false
}

// HasCommented reports whether token already owns a comment on this post.
func (p *Post) HasCommented(token string) bool {
	for _, c := range p.Comments {
		if c.VisitorToken == token {
			return true
		}
	}
	return false
}

// ComputeAverageRating fills AverageRating from the loaded comments.
func (p *Post) ComputeAverageRating() {
	if len(p.Comments) == 0 {
		p.AverageRating = 0
		return
	}
	total := 0
	for _, c := range p.Comments {
		total += c.Rating
	}
	p.AverageRating = float64(total) / float64(len(p.Comments))
}

// PostView is one entry of a post's viewedBy set. The unique index makes the
// insert the conditional step that guards the views counter.
type PostView struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	PostID       uint      `gorm:"not null;uniqueIndex:idx_post_views_post_visitor" json:"-"`
	VisitorToken string    `gorm:"size:128;not null;uniqueIndex:idx_post_views_post_visitor" json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// Comment is a visitor's rated comment. One per (post, visitor token).
type Comment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PostID       uint      `gorm:"not null;uniqueIndex:idx_comments_post_visitor" json:"post_id"`
	Username     string    `gorm:"size:64;not null" json:"username"`
	Comment      string    `gorm:"type:text;not null" json:"comment"`
	Rating       int       `gorm:"not null" json:"rating"`
	VisitorToken string    `gorm:"size:128;not null;uniqueIndex:idx_comments_post_visitor" json:"-"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// PostPatch is a partial update of a post. Nil fields are left unchanged.
type PostPatch struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Author   *string `json:"author"`
	ImageURL *string `json:"image_url"`
}

// Empty reports whether the patch changes nothing.
func (p PostPatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Author == nil && p.ImageURL == nil
}

// Columns maps the set fields to their column names.
func (p PostPatch) Columns() map[string]any {
	cols := make(map[string]any, 4)
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Content != nil {
		cols["content"] = *p.Content
	}
	if p.Author != nil {
		cols["author"] = *p.Author
	}
	if p.ImageURL != nil {
		cols["image_url"] = *p.ImageURL
	}
	return cols
}
