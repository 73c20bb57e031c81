package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/devconnect/backend/internal/logger"
	"github.com/devconnect/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

var (
	skillPool = []string{
		"go", "typescript", "react", "python", "rust", "postgres", "redis",
		"kubernetes", "docker", "aws", "graphql", "terraform", "kafka",
		"elixir", "swift", "kotlin",
	}
	techPool = []string{
		"Go", "Gin", "React", "Next.js", "PostgreSQL", "Redis", "Docker",
		"TypeScript", "Tailwind", "gRPC", "WebSocket", "S3",
	}
	tagPool = []string{
		"golang", "webdev", "opensource", "devops", "databases", "frontend",
		"backend", "career", "learning", "showoff",
	}
	experienceLevels = []string{"Junior", "Mid-level", "Senior", "Staff", "Principal"}
)

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating follow graph...")
	if err := s.seedFollows(users, 8); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("Creating posts...")
	posts, err := s.seedPosts(users, 200)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	logger.Log.Info("Creating comments...")
	if err := s.seedComments(users, posts, 400); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	logger.Log.Info("Creating likes...")
	if err := s.seedLikes(users, posts); err != nil {
		return fmt.Errorf("failed to seed likes: %w", err)
	}

	logger.Log.Info("Creating projects...")
	if err := s.seedProjects(users, 80); err != nil {
		return fmt.Errorf("failed to seed projects: %w", err)
	}

	return nil
}

// SeedTest seeds the test database with a small fixed cast
func (s *Seeder) SeedTest() error {
	names := []string{"alice", "bob", "charlie", "diana", "eve"}

	var users []models.User
	for _, name := range names {
		var user models.User
		if err := s.db.First(&user, "username = ?", name).Error; err == nil {
			users = append(users, user)
			continue
		}
		user = models.User{
			ID:             "test-" + name,
			Username:       name,
			FirstName:      name,
			Email:          name + "@example.com",
			Bio:            gofakeit.HipsterSentence(),
			JobTitle:       "Software Engineer",
			Experience:     "Mid-level",
			ProfilePicture: fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", name),
			Skills:         models.StringArray{"go", "react"},
		}
		if err := s.db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create test user %s: %w", name, err)
		}
		users = append(users, user)
	}

	posts, err := s.seedPosts(users, 5)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}
	if err := s.seedComments(users, posts, 10); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}
	return nil
}

// Clean removes all seed data (use with caution!)
func (s *Seeder) Clean() error {
	tables := []string{
		"comment_likes", "post_likes", "comments", "posts",
		"projects", "follows", "users",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	var existing int64
	s.db.Model(&models.User{}).Where("email LIKE '%@example.com'").Count(&existing)
	if existing >= int64(count) {
		var users []models.User
		if err := s.db.Find(&users).Error; err != nil {
			return nil, err
		}
		logger.Log.Info("Found existing seed users, skipping creation",
			zap.Int("total", len(users)))
		return users, nil
	}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username := models.NormalizeUsername(gofakeit.Username())

		var clash models.User
		for {
			if err := s.db.First(&clash, "username = ?", username).Error; err == gorm.ErrRecordNotFound {
				break
			}
			username = models.NormalizeUsername(gofakeit.Username())
		}

		skillCount := rand.Intn(4) + 2
		skills := make(models.StringArray, 0, skillCount)
		seen := make(map[string]bool)
		for len(skills) < skillCount {
			skill := skillPool[rand.Intn(len(skillPool))]
			if !seen[skill] {
				seen[skill] = true
				skills = append(skills, skill)
			}
		}

		user := models.User{
			ID:             gofakeit.UUID(),
			Username:       username,
			FirstName:      gofakeit.FirstName(),
			LastName:       gofakeit.LastName(),
			Email:          fmt.Sprintf("%s@example.com", username),
			Bio:            gofakeit.HipsterSentence(),
			Location:       fmt.Sprintf("%s, %s", gofakeit.City(), gofakeit.Country()),
			JobTitle:       gofakeit.JobTitle(),
			Company:        gofakeit.Company(),
			Experience:     experienceLevels[rand.Intn(len(experienceLevels))],
			GithubURL:      fmt.Sprintf("https://github.com/%s", username),
			ProfilePicture: fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username),
			Skills:         skills,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedFollows(users []models.User, perUser int) error {
	if len(users) < 2 {
		return nil
	}
	for _, follower := range users {
		targets := rand.Intn(perUser) + 1
		picked := make(map[string]bool)
		for i := 0; i < targets; i++ {
			target := users[rand.Intn(len(users))]
			if target.ID == follower.ID || picked[target.ID] {
				continue
			}
			picked[target.ID] = true
			edge := models.Follow{FollowerID: follower.ID, FolloweeID: target.ID}
			err := s.db.Where("follower_id = ? AND followee_id = ?", follower.ID, target.ID).
				FirstOrCreate(&edge).Error
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func postBody() string {
	sentences := make([]string, rand.Intn(3)+1)
	for i := range sentences {
		sentences[i] = gofakeit.HipsterSentence()
	}
	return strings.Join(sentences, " ")
}

func (s *Seeder) seedPosts(users []models.User, count int) ([]models.Post, error) {
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]

		tagCount := rand.Intn(3)
		tags := make(models.StringArray, 0, tagCount)
		for j := 0; j < tagCount; j++ {
			tags = append(tags, tagPool[rand.Intn(len(tagPool))])
		}

		post := models.Post{
			UserID:  author.ID,
			Content: postBody(),
			Tags:    tags,
			Images:  models.StringArray{},
		}
		if post.Tags == nil {
			post.Tags = models.StringArray{}
		}
		if err := s.db.Create(&post).Error; err != nil {
			return nil, fmt.Errorf("failed to create post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) seedComments(users []models.User, posts []models.Post, count int) error {
	if len(posts) == 0 {
		return nil
	}
	for i := 0; i < count; i++ {
		post := posts[rand.Intn(len(posts))]
		author := users[rand.Intn(len(users))]

		comment := models.Comment{
			PostID:      post.ID,
			PostOwnerID: post.UserID,
			AuthorID:    author.ID,
			Author:      author.FirstName + " " + author.LastName,
			Avatar:      author.ProfilePicture,
			Username:    author.Username,
			Content:     gofakeit.HipsterSentence(),
		}
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&comment).Error; err != nil {
				return err
			}
			return tx.Model(&models.Post{}).Where("id = ?", post.ID).
				UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
		})
		if err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
	}
	return nil
}

// seedLikes gives roughly half the posts a handful of likes each, and likes
// some comments too. Counters move with the membership rows.
func (s *Seeder) seedLikes(users []models.User, posts []models.Post) error {
	for _, post := range posts {
		if rand.Float32() > 0.5 {
			continue
		}
		likerCount := rand.Intn(5) + 1
		picked := make(map[string]bool)
		for i := 0; i < likerCount; i++ {
			liker := users[rand.Intn(len(users))]
			if picked[liker.ID] {
				continue
			}
			picked[liker.ID] = true

			err := s.db.Transaction(func(tx *gorm.DB) error {
				like := models.PostLike{PostID: post.ID, UserID: liker.ID}
				if err := tx.Create(&like).Error; err != nil {
					return err
				}
				return tx.Model(&models.Post{}).Where("id = ?", post.ID).
					UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
			})
			if err != nil {
				return fmt.Errorf("failed to create post like: %w", err)
			}
		}
	}

	var comments []models.Comment
	if err := s.db.Find(&comments).Error; err != nil {
		return err
	}
	for _, comment := range comments {
		if rand.Float32() > 0.25 {
			continue
		}
		liker := users[rand.Intn(len(users))]
		err := s.db.Transaction(func(tx *gorm.DB) error {
			like := models.CommentLike{CommentID: comment.ID, UserID: liker.ID}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			return tx.Model(&models.Comment{}).Where("id = ?", comment.ID).
				UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
		})
		if err != nil {
			return fmt.Errorf("failed to create comment like: %w", err)
		}
	}
	return nil
}

func (s *Seeder) seedProjects(users []models.User, count int) error {
	for i := 0; i < count; i++ {
		owner := users[rand.Intn(len(users))]

		techCount := rand.Intn(4) + 1
		tech := make(models.StringArray, 0, techCount)
		seen := make(map[string]bool)
		for len(tech) < techCount {
			item := techPool[rand.Intn(len(techPool))]
			if !seen[item] {
				seen[item] = true
				tech = append(tech, item)
			}
		}

		name := gofakeit.AppName()
		project := models.Project{
			UserID:      owner.ID,
			Title:       name,
			Description: gofakeit.HipsterSentence(),
			Tech:        tech,
			GithubURL:   fmt.Sprintf("https://github.com/%s/%s", owner.Username, gofakeit.Username()),
			DemoURL:     gofakeit.URL(),
			Image:       fmt.Sprintf("https://picsum.photos/seed/%s/640/360", owner.Username),
		}
		if err := s.db.Create(&project).Error; err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
	}
	return nil
}
