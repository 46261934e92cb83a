package seed

import (
	"context"
	"testing"

	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupFactory(t *testing.T, opts Options) (*Factory, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	users := service.NewUserService(repository.NewUserRepository(db))
	return NewFactory(repository.NewPostRepository(db, nil), users, opts), db
}

func TestFactory_Run(t *testing.T) {
	opts := DefaultOptions()
	opts.NumEditors = 2
	opts.NumPosts = 5
	opts.Seed = 42
	f, db := setupFactory(t, opts)

	sum, err := f.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Editors)
	assert.Equal(t, 5, sum.Posts)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	require.Len(t, posts, 5)

	var totalViews int64
	for _, p := range posts {
		var rows int64
		require.NoError(t, db.Model(&models.PostView{}).Where("post_id = ?", p.ID).Count(&rows).Error)
		assert.Equal(t, rows, p.Views, "views counter matches viewedBy for post %d", p.ID)
		totalViews += p.Views
	}
	assert.EqualValues(t, sum.Views, totalViews)

	var comments int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.EqualValues(t, sum.Comments, comments)
}

func TestFactory_BuildPost(t *testing.T) {
	f, _ := setupFactory(t, Options{Seed: 1, MaxDays: 10})
	p := f.BuildPost("alice", func(p *models.Post) { p.Title = "Fixed" })

	assert.Equal(t, "Fixed", p.Title)
	assert.Equal(t, "alice", p.Author)
	assert.NotEmpty(t, p.Content)
	assert.NotEmpty(t, p.ImageURL)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestFactory_BuildComment_RatingInRange(t *testing.T) {
	f, _ := setupFactory(t, Options{Seed: 7})
	for i := 0; i < 50; i++ {
		c := f.BuildComment("visitor_x")
		assert.GreaterOrEqual(t, c.Rating, models.MinRating)
		assert.LessOrEqual(t, c.Rating, models.MaxRating)
	}
}

const fixtureYAML = `
users:
  - username: alice
    password: secret1
    role: editor
  - username: boss
    password: secret1
    role: admin
posts:
  - title: Hello
    content: "<p>Hi</p>"
    author: alice
    image_url: /uploads/hello.png
    viewed_by: [visitor_a, visitor_b, visitor_a]
    comments:
      - username: Bob
        comment: Nice
        rating: 5
        visitor_token: visitor_a
`

func TestApplyFixture(t *testing.T) {
	f, db := setupFactory(t, Options{})
	fx, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)

	sum, err := f.Apply(context.Background(), fx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Editors: 2, Posts: 1, Views: 2, Comments: 1}, sum)

	var post models.Post
	require.NoError(t, db.First(&post).Error)
	assert.EqualValues(t, 2, post.Views)

	// Re-applying skips the existing users.
	sum, err = f.Apply(context.Background(), &Fixture{Users: fx.Users})
	require.NoError(t, err)
	assert.Zero(t, sum.Editors)
}

func TestParseFixture_UnknownField(t *testing.T) {
	_, err := ParseFixture([]byte("posts:\n  - title: x\n    tags: [a]\n"))
	assert.Error(t, err)
}
