package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

const defaultProofPrefix = "payments"

var ErrEmptyProof = errors.New("payment proof has no data")

type Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	UsePathStyle  bool
	Prefix        string
}

func (c Config) validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("bucket is required"))
	}
	if c.Region == "" {
		errs = append(errs, errors.New("region is required"))
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		errs = append(errs, errors.New("access key and secret key are required"))
	}
	if c.PublicBaseURL == "" {
		errs = append(errs, errors.New("public base url is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("s3 config: %w", err)
	}
	return nil
}

// Proof is one payment screenshot on its way to the bucket.
type Proof struct {
	Plan        string
	Filename    string
	ContentType string
	Data        []byte
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ProofStore files payment screenshots by plan and day and hands back the
// public link the reviewer opens.
type ProofStore struct {
	bucket  string
	baseURL string
	prefix  string
	client  objectPutter
	now     func() time.Time
	newID   func() string
}

func NewProofStore(cfg Config) (*ProofStore, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	options := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return newProofStore(cfg, s3.New(options)), nil
}

func newProofStore(cfg Config, client objectPutter) *ProofStore {
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = defaultProofPrefix
	}
	return &ProofStore{
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		prefix:  prefix,
		client:  client,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Put uploads the proof publicly readable and returns its URL.
func (s *ProofStore) Put(ctx context.Context, proof Proof) (string, error) {
	if len(proof.Data) == 0 {
		return "", ErrEmptyProof
	}
	contentType := proof.ContentType
	if contentType == "" {
		contentType = DetectContentType(proof.Data)
	}

	key := s.keyFor(proof.Plan, contentType)
	input := &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(proof.Data),
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String("inline"),
		ACL:                types.ObjectCannedACLPublicRead,
		Metadata:           map[string]string{"plan": planFolder(proof.Plan)},
	}
	if proof.Filename != "" {
		input.Metadata["original-filename"] = path.Base(proof.Filename)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

// keyFor lays proofs out as <prefix>/<plan>/<yyyy-mm-dd>/<id><ext>.
func (s *ProofStore) keyFor(plan, contentType string) string {
	day := s.now().UTC().Format(time.DateOnly)
	return path.Join(s.prefix, planFolder(plan), day, s.newID()+proofExtension(contentType))
}

func planFolder(plan string) string {
	plan = strings.ToLower(strings.TrimSpace(plan))
	if plan == "" || strings.ContainsAny(plan, "/\\.") {
		return "unknown"
	}
	return plan
}

var proofExtensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

func proofExtension(contentType string) string {
	if ext, ok := proofExtensions[strings.ToLower(contentType)]; ok {
		return ext
	}
	return ".bin"
}
