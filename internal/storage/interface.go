package storage

import (
	"context"
	"mime/multipart"
)

// ImageUploader defines the interface for image storage
// This interface allows for easy mocking in tests
type ImageUploader interface {
	UploadProfileImage(ctx context.Context, file multipart.File, header *multipart.FileHeader, userID string) (*UploadResult, error)
	UploadPostImage(ctx context.Context, file multipart.File, header *multipart.FileHeader, userID string) (*UploadResult, error)
	DeleteByPublicID(ctx context.Context, publicID string) error
}

// Ensure S3Uploader implements ImageUploader
var _ ImageUploader = (*S3Uploader)(nil)
