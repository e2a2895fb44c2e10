package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// StoredObject is what the blob host hands back for an uploaded image: a
// stable public URL and the key needed to delete it later.
type StoredObject struct {
	URL string
	Key string
}

type SpacesService struct {
	client    *s3.Client
	bucket    string
	region    string
	PhotoRoot string
}

func NewSpacesService(spacesKey, spacesSecret, region, bucket, photoRoot string) *SpacesService {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		panic(fmt.Sprintf("Unable to load Spaces config: %v", err))
	}

	client := s3.NewFromConfig(cfg)

	return &SpacesService{
		client:    client,
		bucket:    bucket,
		region:    region,
		PhotoRoot: strings.TrimPrefix(photoRoot, "/"),
	}
}

var extByContentType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// Store uploads raw image bytes under a fresh key and returns the public URL
// plus the key. Callers persist nothing before this succeeds.
func (s *SpacesService) Store(ctx context.Context, data []byte, folder, contentType string) (*StoredObject, error) {
	ext, ok := extByContentType[contentType]
	if !ok {
		ext = "bin"
	}

	key := fmt.Sprintf("%s/%s/%s.%s", s.PhotoRoot, folder, uuid.NewString(), ext)
	key = strings.TrimPrefix(key, "/")

	input := &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000"),
		ACL:          types.ObjectCannedACLPublicRead,
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to store blob: %w", err)
	}

	return &StoredObject{
		URL: fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", s.bucket, s.region, key),
		Key: key,
	}, nil
}

// Delete removes a stored blob by key. Callers treat failures as
// best-effort and only log them.
func (s *SpacesService) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

func (s *SpacesService) GetBucket() string {
	return s.bucket
}

func (s *SpacesService) GetRegion() string {
	return s.region
}
