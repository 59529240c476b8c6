package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/kendall-kelly/nafs-essence-api/utils"
)

// UploadedImage is a stored product image
type UploadedImage struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// ImageService handles product image upload and deletion
type ImageService interface {
	// UploadImage validates and uploads an image file
	UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (UploadedImage, error)

	// DeleteImage removes the image behind a product image URL. URLs that do not
	// point into our storage are left alone.
	DeleteImage(ctx context.Context, imageURL string) error
}

// S3ImageService implements ImageService using AWS S3 for storage
type S3ImageService struct {
	s3Service S3Interface
}

var imageServiceInstance ImageService

// InitImageService initializes the image service with S3 backend
func InitImageService(s3Service S3Interface) ImageService {
	imageServiceInstance = &S3ImageService{
		s3Service: s3Service,
	}
	return imageServiceInstance
}

// GetImageService returns the initialized image service instance
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance (primarily for testing)
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// UploadImage validates and uploads an image file to S3
func (s *S3ImageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (UploadedImage, error) {
	// Validate the image file
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return UploadedImage{}, err
	}

	// Upload to S3
	s3Key, err := s.s3Service.UploadFile(ctx, fileHeader)
	if err != nil {
		return UploadedImage{}, fmt.Errorf("failed to upload image: %w", err)
	}

	return UploadedImage{Key: s3Key, URL: s.s3Service.ObjectURL(s3Key)}, nil
}

// DeleteImage deletes an uploaded image from S3
func (s *S3ImageService) DeleteImage(ctx context.Context, imageURL string) error {
	imageKey, ok := s.s3Service.KeyFromURL(imageURL)
	if !ok {
		return nil
	}

	if err := s.s3Service.DeleteFile(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	return nil
}
