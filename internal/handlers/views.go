package handlers

import (
	"github.com/devconnect/backend/internal/models"
	"gorm.io/gorm"
)

// The public JSON keeps the original client document shape: profiles carry
// followers/following/posts/projects arrays, posts carry likes/comments
// arrays, comments carry a likes array. All of them are derived from join
// tables at read time; the arrays are never stored.

type userView struct {
	models.User
	Followers []string `json:"followers"`
	Following []string `json:"following"`
	Posts     []string `json:"posts"`
	Projects  []string `json:"projects"`
}

type postView struct {
	models.Post
	Likes    []string `json:"likes"`
	Comments []string `json:"comments"`
}

type commentView struct {
	models.Comment
	Likes []string `json:"likes"`
}

// buildUserView assembles one profile's public shape
func buildUserView(db *gorm.DB, user models.User) (*userView, error) {
	view := &userView{
		User:      user,
		Followers: []string{},
		Following: []string{},
		Posts:     []string{},
		Projects:  []string{},
	}

	var edges []models.Follow
	if err := db.Where("follower_id = ? OR followee_id = ?", user.ID, user.ID).Find(&edges).Error; err != nil {
		return nil, err
	}
	for _, e := range edges {
		if e.FolloweeID == user.ID {
			view.Followers = append(view.Followers, e.FollowerID)
		}
		if e.FollowerID == user.ID {
			view.Following = append(view.Following, e.FolloweeID)
		}
	}

	if err := db.Model(&models.Post{}).Where("user_id = ?", user.ID).
		Order("created_at ASC").Pluck("id", &view.Posts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Project{}).Where("user_id = ?", user.ID).
		Order("created_at ASC").Pluck("id", &view.Projects).Error; err != nil {
		return nil, err
	}

	if view.Posts == nil {
		view.Posts = []string{}
	}
	if view.Projects == nil {
		view.Projects = []string{}
	}
	if view.User.Skills == nil {
		view.User.Skills = models.StringArray{}
	}
	return view, nil
}

// buildUserViews assembles the full listing without per-user queries
func buildUserViews(db *gorm.DB, users []models.User) ([]userView, error) {
	var edges []models.Follow
	if err := db.Find(&edges).Error; err != nil {
		return nil, err
	}
	followers := make(map[string][]string)
	following := make(map[string][]string)
	for _, e := range edges {
		followers[e.FolloweeID] = append(followers[e.FolloweeID], e.FollowerID)
		following[e.FollowerID] = append(following[e.FollowerID], e.FolloweeID)
	}

	var posts []models.Post
	if err := db.Select("id", "user_id").Order("created_at ASC").Find(&posts).Error; err != nil {
		return nil, err
	}
	postIDs := make(map[string][]string)
	for _, p := range posts {
		postIDs[p.UserID] = append(postIDs[p.UserID], p.ID)
	}

	var projects []models.Project
	if err := db.Select("id", "user_id").Order("created_at ASC").Find(&projects).Error; err != nil {
		return nil, err
	}
	projectIDs := make(map[string][]string)
	for _, p := range projects {
		projectIDs[p.UserID] = append(projectIDs[p.UserID], p.ID)
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		if u.Skills == nil {
			u.Skills = models.StringArray{}
		}
		views = append(views, userView{
			User:      u,
			Followers: orEmpty(followers[u.ID]),
			Following: orEmpty(following[u.ID]),
			Posts:     orEmpty(postIDs[u.ID]),
			Projects:  orEmpty(projectIDs[u.ID]),
		})
	}
	return views, nil
}

// buildPostViews derives likes and comment id arrays for a batch of posts
func buildPostViews(db *gorm.DB, posts []models.Post) ([]postView, error) {
	var likes []models.PostLike
	if err := db.Order("created_at ASC").Find(&likes).Error; err != nil {
		return nil, err
	}
	likers := make(map[string][]string)
	for _, l := range likes {
		likers[l.PostID] = append(likers[l.PostID], l.UserID)
	}

	var comments []models.Comment
	if err := db.Select("id", "post_id").Order("created_at ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	commentIDs := make(map[string][]string)
	for _, c := range comments {
		commentIDs[c.PostID] = append(commentIDs[c.PostID], c.ID)
	}

	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		if p.Tags == nil {
			p.Tags = models.StringArray{}
		}
		if p.Images == nil {
			p.Images = models.StringArray{}
		}
		views = append(views, postView{
			Post:     p,
			Likes:    orEmpty(likers[p.ID]),
			Comments: orEmpty(commentIDs[p.ID]),
		})
	}
	return views, nil
}

// buildCommentViews derives likes arrays for a batch of comments
func buildCommentViews(db *gorm.DB, comments []models.Comment) ([]commentView, error) {
	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}

	likers := make(map[string][]string)
	if len(ids) > 0 {
		var likes []models.CommentLike
		if err := db.Where("comment_id IN ?", ids).Order("created_at ASC").Find(&likes).Error; err != nil {
			return nil, err
		}
		for _, l := range likes {
			likers[l.CommentID] = append(likers[l.CommentID], l.UserID)
		}
	}

	views := make([]commentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, commentView{
			Comment: c,
			Likes:   orEmpty(likers[c.ID]),
		})
	}
	return views, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
