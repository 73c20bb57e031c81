// Package scrub implements the account-deletion reference scrub: removing a
// departing identity ref from every corner of the graph. Work is chunked
// into bounded transactions with no overall rollback; a failed run leaves a
// partially-scrubbed graph, and re-running finds fewer references each
// time, so the operation converges under retry.
package scrub

import (
	"context"

	"github.com/devconnect/backend/internal/database"
	"github.com/devconnect/backend/internal/logger"
	"github.com/devconnect/backend/internal/metrics"
	"github.com/devconnect/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultBatchSize = 200

// Scrubber removes all references to a departing user
type Scrubber struct {
	batchSize int
}

func NewScrubber() *Scrubber {
	return &Scrubber{batchSize: defaultBatchSize}
}

// Report counts the rows removed by one run
type Report struct {
	Follows      int64 `json:"follows"`
	PostLikes    int64 `json:"postLikes"`
	CommentLikes int64 `json:"commentLikes"`
	Comments     int64 `json:"comments"`
	Posts        int64 `json:"posts"`
	Projects     int64 `json:"projects"`
	Profile      int64 `json:"profile"`
}

// Run scrubs every reference to uid, leaves first: graph edges, likes the
// user placed, comments the user authored, then the user's own posts (with
// their comment trees), projects, and finally the profile row itself.
func (s *Scrubber) Run(ctx context.Context, uid string) (*Report, error) {
	db := database.DB.WithContext(ctx)
	report := &Report{}

	if err := s.scrubFollows(db, uid, report); err != nil {
		return report, err
	}
	if err := s.scrubPostLikes(db, uid, report); err != nil {
		return report, err
	}
	if err := s.scrubCommentLikes(db, uid, report); err != nil {
		return report, err
	}
	if err := s.scrubAuthoredComments(db, uid, report); err != nil {
		return report, err
	}
	if err := s.scrubOwnPosts(db, uid, report); err != nil {
		return report, err
	}

	res := db.Where("user_id = ?", uid).Unscoped().Delete(&models.Project{})
	if res.Error != nil {
		return report, res.Error
	}
	report.Projects = res.RowsAffected
	metrics.Get().ScrubRemovalsTotal.WithLabelValues("projects").Add(float64(res.RowsAffected))

	res = db.Where("id = ?", uid).Unscoped().Delete(&models.User{})
	if res.Error != nil {
		return report, res.Error
	}
	report.Profile = res.RowsAffected

	logger.Log.Info("scrub complete", zap.String("uid", uid))
	return report, nil
}

// scrubFollows removes both directions of the user's graph edges
func (s *Scrubber) scrubFollows(db *gorm.DB, uid string, report *Report) error {
	res := db.Where("follower_id = ? OR followee_id = ?", uid, uid).Delete(&models.Follow{})
	if res.Error != nil {
		return res.Error
	}
	report.Follows = res.RowsAffected
	metrics.Get().ScrubRemovalsTotal.WithLabelValues("follows").Add(float64(res.RowsAffected))
	return nil
}

// scrubPostLikes removes likes the user placed on other posts, keeping each
// post's cached counter in step within the same transaction
func (s *Scrubber) scrubPostLikes(db *gorm.DB, uid string, report *Report) error {
	for {
		var likes []models.PostLike
		if err := db.Where("user_id = ?", uid).Limit(s.batchSize).Find(&likes).Error; err != nil {
			return err
		}
		if len(likes) == 0 {
			return nil
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			ids := make([]string, 0, len(likes))
			for _, like := range likes {
				ids = append(ids, like.ID)
				if err := tx.Model(&models.Post{}).Where("id = ?", like.PostID).
					UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
					return err
				}
			}
			return tx.Where("id IN ?", ids).Delete(&models.PostLike{}).Error
		})
		if err != nil {
			return err
		}

		report.PostLikes += int64(len(likes))
		metrics.Get().ScrubRemovalsTotal.WithLabelValues("post_likes").Add(float64(len(likes)))
	}
}

// scrubCommentLikes removes likes the user placed on comments
func (s *Scrubber) scrubCommentLikes(db *gorm.DB, uid string, report *Report) error {
	for {
		var likes []models.CommentLike
		if err := db.Where("user_id = ?", uid).Limit(s.batchSize).Find(&likes).Error; err != nil {
			return err
		}
		if len(likes) == 0 {
			return nil
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			ids := make([]string, 0, len(likes))
			for _, like := range likes {
				ids = append(ids, like.ID)
				if err := tx.Model(&models.Comment{}).Where("id = ?", like.CommentID).
					UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
					return err
				}
			}
			return tx.Where("id IN ?", ids).Delete(&models.CommentLike{}).Error
		})
		if err != nil {
			return err
		}

		report.CommentLikes += int64(len(likes))
		metrics.Get().ScrubRemovalsTotal.WithLabelValues("comment_likes").Add(float64(len(likes)))
	}
}

// scrubAuthoredComments deletes comments the user wrote on other posts,
// with their likes, decrementing each parent post's comment_count
func (s *Scrubber) scrubAuthoredComments(db *gorm.DB, uid string, report *Report) error {
	for {
		var comments []models.Comment
		if err := db.Where("author_id = ?", uid).Limit(s.batchSize).Find(&comments).Error; err != nil {
			return err
		}
		if len(comments) == 0 {
			return nil
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			ids := make([]string, 0, len(comments))
			for _, comment := range comments {
				ids = append(ids, comment.ID)
				if err := tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
					UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentLike{}).Error; err != nil {
				return err
			}
			return tx.Where("id IN ?", ids).Unscoped().Delete(&models.Comment{}).Error
		})
		if err != nil {
			return err
		}

		report.Comments += int64(len(comments))
		metrics.Get().ScrubRemovalsTotal.WithLabelValues("comments").Add(float64(len(comments)))
	}
}

// scrubOwnPosts deletes the user's posts, cascading through each post's
// comment tree and likes
func (s *Scrubber) scrubOwnPosts(db *gorm.DB, uid string, report *Report) error {
	for {
		var postIDs []string
		if err := db.Model(&models.Post{}).Where("user_id = ?", uid).
			Limit(s.batchSize).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		if len(postIDs) == 0 {
			return nil
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			var commentIDs []string
			if err := tx.Model(&models.Comment{}).Where("post_id IN ?", postIDs).
				Pluck("id", &commentIDs).Error; err != nil {
				return err
			}
			if len(commentIDs) > 0 {
				if err := tx.Where("comment_id IN ?", commentIDs).
					Delete(&models.CommentLike{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", commentIDs).
					Unscoped().Delete(&models.Comment{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("post_id IN ?", postIDs).Delete(&models.PostLike{}).Error; err != nil {
				return err
			}
			return tx.Where("id IN ?", postIDs).Unscoped().Delete(&models.Post{}).Error
		})
		if err != nil {
			return err
		}

		report.Posts += int64(len(postIDs))
		metrics.Get().ScrubRemovalsTotal.WithLabelValues("posts").Add(float64(len(postIDs)))
	}
}
