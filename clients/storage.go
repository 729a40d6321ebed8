package clients

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/livepeer/catalyst-api/log"
)

// OutputStore writes a finished clip file to wherever /output/{filename}
// should be served from. The local disk writer is the default; when an S3
// bucket is configured, the S3 sink is used in its place and clips are not
// written to the local output directory.
type OutputStore interface {
	Put(requestID, filename string, data io.Reader) error
}

// LocalOutputStore writes clip files under a local output directory, the
// same layout spec.md's filesystem section describes for output/.
type LocalOutputStore struct {
	Dir string
}

func NewLocalOutputStore(dir string) *LocalOutputStore {
	return &LocalOutputStore{Dir: dir}
}

func (l *LocalOutputStore) Put(requestID, filename string, data io.Reader) error {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir %q: %w", l.Dir, err)
	}
	dest := filepath.Join(l.Dir, filename)
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", dest, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("failed to write output file %q: %w", dest, err)
	}
	log.Log(requestID, "wrote output file", "path", dest)
	return nil
}

// S3 is the subset of the S3 API the output store needs, grounded on the
// teacher's clients/s3.go: a read/presign interface extended here with the
// write path the highlight clip output sink actually uses.
type S3 interface {
	PresignGet(bucket, key string) (string, error)
	GetObject(bucket, key string) (*s3.GetObjectOutput, error)
	Upload(bucket, key string, body io.Reader) error
}

type S3Client struct {
	svc      *s3.S3
	uploader *s3manager.Uploader
}

func NewS3Client(region string) (*S3Client, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return &S3Client{
		svc:      s3.New(sess),
		uploader: s3manager.NewUploader(sess),
	}, nil
}

func (c *S3Client) PresignGet(bucket, key string) (string, error) {
	req, _ := c.svc.GetObjectRequest(&s3.GetObjectInput{Bucket: &bucket, Key: &key})
	return req.Presign(60 * time.Minute)
}

func (c *S3Client) GetObject(bucket, key string) (*s3.GetObjectOutput, error) {
	return c.svc.GetObject(&s3.GetObjectInput{Bucket: &bucket, Key: &key})
}

func (c *S3Client) Upload(bucket, key string, body io.Reader) error {
	_, err := c.uploader.Upload(&s3manager.UploadInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   body,
	})
	return err
}

// S3OutputStore mirrors LocalOutputStore's contract but lands clips in a
// bucket instead, for deployments where output/ needs to be served from
// object storage rather than local disk.
type S3OutputStore struct {
	Client S3
	Bucket string
}

func NewS3OutputStore(client S3, bucket string) *S3OutputStore {
	return &S3OutputStore{Client: client, Bucket: bucket}
}

func (s *S3OutputStore) Put(requestID, filename string, data io.Reader) error {
	if err := s.Client.Upload(s.Bucket, filename, data); err != nil {
		return fmt.Errorf("failed to upload %q to bucket %q: %w", filename, s.Bucket, err)
	}
	log.Log(requestID, "uploaded output file to s3", "bucket", s.Bucket, "key", filename)
	return nil
}
