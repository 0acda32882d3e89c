package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/detrash/recy-pipeline/src/utils/config"
	"github.com/detrash/recy-pipeline/src/utils/logger"
	"github.com/detrash/recy-pipeline/src/utils/task"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"
)

// ArtifactStore backed by S3. Credentials come from the default AWS chain
// (env, shared config, instance role).
type S3Store struct {
	config *config.Config
	log    *logrus.Entry
	client *s3.S3
}

func NewS3Store(config *config.Config) (self *S3Store, err error) {
	self = new(S3Store)
	self.config = config
	self.log = logger.NewSublogger("s3-store")

	awsConfig := aws.NewConfig().WithRegion(config.Storage.Region)
	if config.Storage.Endpoint != "" {
		// S3-compatible store in development, path-style avoids per-bucket DNS
		awsConfig = awsConfig.
			WithEndpoint(config.Storage.Endpoint).
			WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	self.client = s3.New(sess)

	return
}

func (self *S3Store) Put(ctx context.Context, bucket, key, contentType string, data []byte) (url string, err error) {
	uploadCtx, cancel := context.WithTimeout(ctx, self.config.Storage.UploadTimeout)
	defer cancel()

	err = task.NewRetry().
		WithContext(uploadCtx).
		WithMaxElapsedTime(self.config.Storage.MaxElapsedTime).
		WithMaxInterval(self.config.Storage.MaxInterval).
		WithOnError(func(err error, isDurationAcceptable bool) error {
			self.log.WithError(err).
				WithField("bucket", bucket).
				WithField("key", key).
				Error("Failed to upload object, retrying")
			return err
		}).
		Run(func() (err error) {
			_, err = self.client.PutObjectWithContext(uploadCtx, &s3.PutObjectInput{
				Bucket:      aws.String(bucket),
				Key:         aws.String(key),
				Body:        bytes.NewReader(data),
				ContentType: aws.String(contentType),
			})
			return
		})
	if err != nil {
		return "", err
	}

	return self.URL(bucket, key), nil
}

func (self *S3Store) URL(bucket, key string) string {
	if self.config.Storage.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", self.config.Storage.Endpoint, bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, self.config.Storage.Region, key)
}
