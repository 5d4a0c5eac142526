// internal/services/storage_service.go
package services

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/internal/apperrors"
	"github.com/printforge/printforge-backend/internal/config"
	"github.com/printforge/printforge-backend/internal/utils"
)

// StorageService stores model files and metadata blobs in S3 and produces
// the opaque references the ledger records. Without AWS credentials it
// falls back to local-development URLs.
type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

type UploadResult struct {
	ContentRef  string `json:"content_ref"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	MimeType    string `json:"mime_type"`
	ContentHash string `json:"content_hash"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		// Return service without S3 for local development
		return &StorageService{config: config}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

// UploadModel stores an uploaded model file and returns the content
// reference for registration. The reference includes the content hash so
// the stored bytes can be verified against the registered asset later.
func (s *StorageService) UploadModel(file multipart.File, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	if options.MaxSize > 0 && header.Size > options.MaxSize {
		return nil, apperrors.InvalidArgument("file size %d bytes exceeds maximum %d bytes", header.Size, options.MaxSize)
	}

	if len(options.AllowedTypes) > 0 {
		fileExt := strings.ToLower(filepath.Ext(header.Filename))
		allowed := false
		for _, allowedType := range options.AllowedTypes {
			if fileExt == allowedType {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, apperrors.InvalidArgument("file type %s is not allowed", fileExt)
		}
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to read upload")
	}

	key := s.generateKey(header.Filename, options.Folder)
	contentType := header.Header.Get("Content-Type")
	hash := utils.HashBytes(fileBytes)

	if s.s3Client != nil {
		return s.uploadToS3(fileBytes, key, contentType, hash)
	}
	return s.uploadToLocal(fileBytes, key, contentType, hash), nil
}

// UploadMetadata stores a metadata JSON blob and returns its reference.
func (s *StorageService) UploadMetadata(blob []byte, folder string) (*UploadResult, error) {
	if len(blob) == 0 {
		return nil, apperrors.InvalidArgument("metadata blob must not be empty")
	}

	key := s.generateKey("metadata.json", folder)
	hash := utils.HashBytes(blob)

	if s.s3Client != nil {
		return s.uploadToS3(blob, key, "application/json", hash)
	}
	return s.uploadToLocal(blob, key, "application/json", hash), nil
}

func (s *StorageService) uploadToS3(fileBytes []byte, key, contentType, hash string) (*UploadResult, error) {
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileBytes))),
	}

	if _, err := s.s3Client.PutObject(params); err != nil {
		return nil, apperrors.Internal(err, "failed to upload to S3")
	}

	return &UploadResult{
		ContentRef:  s.getS3URL(key),
		Key:         key,
		Size:        int64(len(fileBytes)),
		MimeType:    contentType,
		ContentHash: hash,
	}, nil
}

func (s *StorageService) uploadToLocal(fileBytes []byte, key, contentType, hash string) *UploadResult {
	return &UploadResult{
		ContentRef:  fmt.Sprintf("http://localhost:8080/uploads/%s", key),
		Key:         key,
		Size:        int64(len(fileBytes)),
		MimeType:    contentType,
		ContentHash: hash,
	}
}

func (s *StorageService) DeleteFile(key string) error {
	if s.s3Client == nil {
		return nil
	}

	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return apperrors.Internal(err, "failed to delete file from S3")
	}
	return nil
}

// GeneratePresignedURL produces a time-limited GET link. The license handler
// calls this after a burn, keyed by the record's download key.
func (s *StorageService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return "", apperrors.Unavailable("object storage is not configured")
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", apperrors.Internal(err, "failed to generate presigned URL")
	}
	return url, nil
}

func (s *StorageService) GetDefaultUploadOptions(category string) UploadOptions {
	switch category {
	case "models":
		return UploadOptions{
			Folder:       "models",
			MaxSize:      200 * 1024 * 1024, // 200MB
			AllowedTypes: []string{".stl", ".obj", ".3mf", ".step", ".gcode", ".zip"},
		}
	case "previews":
		return UploadOptions{
			Folder:       "previews",
			MaxSize:      10 * 1024 * 1024, // 10MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".gif"},
		}
	default:
		return UploadOptions{
			Folder:       "general",
			MaxSize:      5 * 1024 * 1024, // 5MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".pdf", ".json"},
		}
	}
}

func (s *StorageService) generateKey(originalName, folder string) string {
	id := uuid.New()
	ext := filepath.Ext(originalName)

	timestamp := time.Now().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, id.String()[:8], ext)

	if folder != "" {
		return fmt.Sprintf("%s/%s", folder, filename)
	}
	return filename
}

func (s *StorageService) getS3URL(key string) string {
	if s.config.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.config.AWS.CloudFrontURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}
