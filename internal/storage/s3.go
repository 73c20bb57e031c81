package storage

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader handles image uploads to AWS S3
type S3Uploader struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
}

// UploadResult contains the result of an S3 upload
type UploadResult struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Region string `json:"region"`
	Size   int64  `json:"size"`
}

// PublicID returns the stable identifier clients hold on to for later
// deletion. It is the object key without the file extension.
func (r *UploadResult) PublicID() string {
	return strings.TrimSuffix(r.Key, filepath.Ext(r.Key))
}

// NewS3Uploader creates a new S3 uploader
func NewS3Uploader(region, bucket, baseURL string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	return &S3Uploader{
		client:  client,
		bucket:  bucket,
		region:  region,
		baseURL: baseURL,
	}, nil
}

// ProfileImageKey returns the deterministic key for a user's profile
// picture. One key per user: re-uploading overwrites the previous image.
func ProfileImageKey(userID, extension string) string {
	if extension == "" {
		extension = ".jpg"
	}
	return fmt.Sprintf("profiles/profile_%s%s", userID, extension)
}

// PostImageKey returns a fresh key for a post image. Keys carry the
// uploader's id plus a timestamp and random suffix so concurrent uploads
// from one user never collide.
func PostImageKey(userID, extension string, now time.Time) string {
	if extension == "" {
		extension = ".jpg"
	}
	return fmt.Sprintf("posts/image_%s_%d_%d%s",
		userID, now.UnixMilli(), rand.Int63(), extension)
}

// UploadProfileImage stores a profile picture under the user's stable key,
// replacing any previous one.
func (u *S3Uploader) UploadProfileImage(ctx context.Context, file multipart.File, header *multipart.FileHeader, userID string) (*UploadResult, error) {
	data, ext, err := readImage(file, header)
	if err != nil {
		return nil, err
	}

	key := ProfileImageKey(userID, ext)
	return u.put(ctx, key, data, ext, map[string]string{
		"user-id":   userID,
		"file-type": "profile-image",
	})
}

// UploadPostImage stores a post image under a unique key.
func (u *S3Uploader) UploadPostImage(ctx context.Context, file multipart.File, header *multipart.FileHeader, userID string) (*UploadResult, error) {
	data, ext, err := readImage(file, header)
	if err != nil {
		return nil, err
	}

	key := PostImageKey(userID, ext, time.Now())
	return u.put(ctx, key, data, ext, map[string]string{
		"user-id":   userID,
		"file-type": "post-image",
	})
}

func (u *S3Uploader) put(ctx context.Context, key string, data []byte, extension string, metadata map[string]string) (*UploadResult, error) {
	metadata["upload-timestamp"] = time.Now().Format(time.RFC3339)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(imageContentType(extension)),
		CacheControl: aws.String("max-age=3600"),
		Metadata:     metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := fmt.Sprintf("%s/%s", strings.TrimSuffix(u.baseURL, "/"), key)

	return &UploadResult{
		Key:    key,
		URL:    publicURL,
		Bucket: u.bucket,
		Region: u.region,
		Size:   int64(len(data)),
	}, nil
}

// DeleteByPublicID removes the stored object a client-held public id refers
// to. The id must sit under one of the image prefixes; anything else is
// rejected so callers cannot delete arbitrary bucket contents.
func (u *S3Uploader) DeleteByPublicID(ctx context.Context, publicID string) error {
	if !strings.HasPrefix(publicID, "profiles/") && !strings.HasPrefix(publicID, "posts/") {
		return fmt.Errorf("invalid public id %q", publicID)
	}

	// Public ids drop the extension; try the common ones.
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(u.bucket),
			Key:    aws.String(publicID + ext),
		})
		if err != nil {
			return fmt.Errorf("failed to delete from S3: %w", err)
		}
	}
	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}

	return nil
}

func readImage(file multipart.File, header *multipart.FileHeader) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if imageContentType(ext) == "application/octet-stream" {
		return nil, "", fmt.Errorf("unsupported image type %q", ext)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(file); err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	return buf.Bytes(), ext, nil
}

// imageContentType returns the appropriate MIME type for image extensions
func imageContentType(extension string) string {
	switch strings.ToLower(extension) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
