package websocket

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/devconnect/backend/internal/cache"
	"github.com/devconnect/backend/internal/database"
	"github.com/devconnect/backend/internal/logger"
	"github.com/devconnect/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterRelayHandlers wires the comment-stream message types into the hub.
// All of them operate on post rooms: a client subscribes to the posts it has
// on screen and only receives comment traffic for those.
func RegisterRelayHandlers(hub *Hub, listing *cache.Listing) {
	hub.RegisterHandler(MessageTypeSubscribePost, handleSubscribePost)
	hub.RegisterHandler(MessageTypeUnsubscribePost, handleUnsubscribePost)
	hub.RegisterHandler(MessageTypeSendComment, func(client *Client, msg *Message) error {
		return handleSendComment(client, msg, listing)
	})
}

func handleSubscribePost(client *Client, msg *Message) error {
	var sub SubscribePayload
	if err := msg.ParsePayload(&sub); err != nil {
		return err
	}
	if sub.PostID == "" {
		client.SendError("invalid_subscription", "postId is required")
		return nil
	}

	// Subscribing to a post that does not exist is rejected outright rather
	// than leaving the client in a room that will never see traffic.
	var count int64
	if err := database.DB.Model(&models.Post{}).Where("id = ?", sub.PostID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		client.SendError("unknown_post", fmt.Sprintf("post %s not found", sub.PostID))
		return nil
	}

	client.hub.JoinRoom(sub.PostID, client)
	return client.Send(NewReply(msg, MessageTypeSystem, SystemPayload{
		Event: "subscribed",
		Data:  map[string]interface{}{"postId": sub.PostID},
	}))
}

func handleUnsubscribePost(client *Client, msg *Message) error {
	var sub SubscribePayload
	if err := msg.ParsePayload(&sub); err != nil {
		return err
	}
	if sub.PostID == "" {
		client.SendError("invalid_subscription", "postId is required")
		return nil
	}

	client.hub.LeaveRoom(sub.PostID, client)
	return nil
}

// handleSendComment persists a submitted comment and fans it out to the
// post's room. The broadcast happens only after the transaction commits, so
// every client that receives a comment can also fetch it over REST.
func handleSendComment(client *Client, msg *Message, listing *cache.Listing) error {
	var payload SendCommentPayload
	if err := msg.ParsePayload(&payload); err != nil {
		return err
	}

	if strings.TrimSpace(payload.Content) == "" {
		client.SendError("invalid_comment", "content is required")
		return nil
	}
	if payload.PostID == "" {
		client.SendError("invalid_comment", "postId is required")
		return nil
	}

	comment, err := PersistComment(client.UserID, &payload)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			client.SendError("unknown_post", fmt.Sprintf("post %s not found", payload.PostID))
			return nil
		}
		return err
	}

	listing.Invalidate(context.Background(), cache.KeyPosts)

	logger.Log.Info("comment relayed",
		zap.String("postId", comment.PostID),
		zap.String("commentId", comment.ID),
		zap.String("authorId", comment.AuthorID),
	)

	client.hub.SendToRoom(comment.PostID, NewMessage(MessageTypeReceiveComment, ReceiveCommentPayload{
		ID:          comment.ID,
		PostID:      comment.PostID,
		PostOwnerID: comment.PostOwnerID,
		AuthorID:    comment.AuthorID,
		Author:      comment.Author,
		Avatar:      comment.Avatar,
		Username:    comment.Username,
		Content:     comment.Content,
		Likes:       []string{},
		CreatedAt:   comment.CreatedAt.UnixMilli(),
	}))
	return nil
}

// PersistComment stores a comment and bumps the parent post's comment count
// in one transaction. The post owner is taken from the post row, not the
// payload, so a stale client snapshot cannot misfile the comment. Returns
// gorm.ErrRecordNotFound when the post does not exist; nothing is created
// in that case.
func PersistComment(authorID string, payload *SendCommentPayload) (*models.Comment, error) {
	var comment *models.Comment

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, "id = ?", payload.PostID).Error; err != nil {
			return err
		}

		comment = &models.Comment{
			PostID:      post.ID,
			PostOwnerID: post.UserID,
			AuthorID:    authorID,
			Author:      payload.Author,
			Avatar:      payload.Avatar,
			Username:    payload.Username,
			Content:     payload.Content,
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}

		return tx.Model(&models.Post{}).
			Where("id = ?", post.ID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}
