package models

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringArray is a custom type for PostgreSQL text[] that implements Scanner and Valuer
type StringArray []string

// Scan implements the sql.Scanner interface for reading from database
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	// PostgreSQL returns text[] as a string like "{value1,value2,value3}"
	str, ok := value.(string)
	if !ok {
		if bytes, ok := value.([]byte); ok {
			str = string(bytes)
		} else {
			*a = nil
			return nil
		}
	}

	str = strings.TrimPrefix(str, "{")
	str = strings.TrimSuffix(str, "}")

	if str == "" {
		*a = []string{}
		return nil
	}

	// Split by comma (simple case - doesn't handle quoted values with commas)
	*a = strings.Split(str, ",")
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	if len(a) == 0 {
		return "{}", nil
	}
	return "{" + strings.Join(a, ",") + "}", nil
}

// User represents a DevConnect developer profile. The primary key is the
// identity reference issued by the external identity provider, not a
// locally generated id. JSON field names follow the client document shape.
type User struct {
	ID       string `gorm:"primaryKey" json:"uid"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`

	// Profile data written at signup and via edit-profile
	FirstName      string      `json:"firstName"`
	LastName       string      `json:"lastName"`
	Email          string      `json:"email"`
	Bio            string      `gorm:"type:text" json:"bio"`
	Location       string      `json:"location"`
	JobTitle       string      `json:"jobTitle"`
	Company        string      `json:"company"`
	Experience     string      `json:"experience"`
	GithubURL      string      `json:"githubUrl"`
	LinkedinURL    string      `json:"linkedinUrl"`
	PortfolioURL   string      `json:"portfolioUrl"`
	ProfilePicture string      `json:"profilePicture"`
	Skills         StringArray `gorm:"type:text[]" json:"skills"`

	// GORM fields
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Post represents authored content owned by exactly one profile
type Post struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"docId"`
	UserID string `gorm:"not null;index" json:"uid"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	Content string      `gorm:"type:text" json:"content"`
	Tags    StringArray `gorm:"type:text[]" json:"tags"`
	Images  StringArray `gorm:"type:text[]" json:"images"`

	// Cached engagement counters, maintained in the same transaction as the
	// membership rows they summarize
	LikeCount    int `gorm:"default:0" json:"-"`
	CommentCount int `gorm:"default:0" json:"-"`

	// GORM fields
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Comment is a child of exactly one Post. PostOwnerID duplicates the parent
// post's owner so a comment can be addressed by (owner, post, comment) the
// way the client stores it; the wire name "userId" comes from the relay
// payload contract.
type Comment struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID      string `gorm:"not null;index" json:"postId"`
	Post        Post   `gorm:"foreignKey:PostID" json:"-"`
	PostOwnerID string `gorm:"not null;index" json:"userId"`
	AuthorID    string `gorm:"not null;index" json:"authorId"`

	// Display metadata denormalized at emit time
	Author   string `json:"author"`
	Avatar   string `json:"avatar"`
	Username string `json:"username"`

	Content string `gorm:"type:text;not null" json:"content"`

	LikeCount int `gorm:"default:0" json:"-"`

	// GORM fields
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Project represents a showcased project; no social-interaction fields
// beyond authorship
type Project struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"not null;index" json:"uid"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	Title       string      `json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Tech        StringArray `gorm:"type:text[]" json:"tech"`
	GithubURL   string      `json:"githubUrl"`
	DemoURL     string      `json:"demoUrl"`
	Image       string      `json:"image"`

	// GORM fields
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Follow is one edge of the social graph. A row (A, B) means A follows B;
// both directions of the public followers/following arrays are derived from
// the same row, so the graph can never go asymmetric.
type Follow struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	FollowerID string `gorm:"not null;index" json:"followerUid"`
	FolloweeID string `gorm:"not null;index" json:"targetUid"`

	CreatedAt time.Time `json:"createdAt"`
}

// TableName ensures unique constraint: one edge per ordered pair
func (Follow) TableName() string {
	return "follows"
}

// PostLike is membership in a post's likes set
type PostLike struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID string `gorm:"not null;index" json:"postId"`
	UserID string `gorm:"not null;index" json:"userId"`

	CreatedAt time.Time `json:"createdAt"`
}

// TableName ensures unique constraint: one like per (post, liker) pair
func (PostLike) TableName() string {
	return "post_likes"
}

// CommentLike is membership in a comment's likes set
type CommentLike struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	CommentID string `gorm:"not null;index" json:"commentId"`
	UserID    string `gorm:"not null;index" json:"userId"`

	CreatedAt time.Time `json:"createdAt"`
}

// TableName ensures unique constraint: one like per (comment, liker) pair
func (CommentLike) TableName() string {
	return "comment_likes"
}

// NormalizeUsername lowercases and trims a username for case-insensitive
// uniqueness checks
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// BeforeCreate hooks for GORM

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	return nil
}

func (l *PostLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (l *CommentLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

// Helper function for UUID generation
func generateUUID() string {
	return uuid.New().String()
}
