package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/pawkit/pawkit/internal/server/config"
)

const presignValidity = 15 * time.Minute

// BackupService issues presigned PUT URLs so clients upload workspace
// exports straight to S3-compatible storage without the payload passing
// through the API.
type BackupService struct {
	config *sc.Config
}

func NewBackupService(config *sc.Config) *BackupService {
	return &BackupService{config: config}
}

func (s *BackupService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return s3.NewPresignClient(client), nil
}

// storageKey namespaces objects per workspace and day so retention policies
// can prune by prefix.
func storageKey(workspaceID, fileName string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("backups/%s/%04d/%02d/%02d/%s", workspaceID, d.Year(), d.Month(), d.Day(), fileName)
}

// GetPresignedPutUrl returns the object key and a URL the client can PUT the
// backup to within the validity window.
func (s *BackupService) GetPresignedPutUrl(ctx context.Context, workspaceID, fileName string) (string, string, error) {
	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := storageKey(workspaceID, fileName)

	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}
