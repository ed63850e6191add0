// Package publish uploads finished scene files to S3.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"

	"github.com/litescript/ls-planetarium/internal/errs"
)

// DefaultContentType is used when detection yields nothing.
const DefaultContentType = "application/octet-stream"

// PutObjectAPI is the part of the S3 client the publisher needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Target is an S3 location.
type Target struct {
	Bucket string
	Prefix string
}

// ParseTarget parses s3://bucket/prefix. The prefix may be empty.
func ParseTarget(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Scheme != "s3" {
		return Target{}, fmt.Errorf("%q: scheme must be s3", raw)
	}
	if u.Host == "" {
		return Target{}, fmt.Errorf("%q: missing bucket", raw)
	}
	return Target{Bucket: u.Host, Prefix: strings.Trim(u.Path, "/")}, nil
}

// Key returns the object key for a file name under the target prefix.
func (t Target) Key(name string) string {
	if t.Prefix == "" {
		return name
	}
	return path.Join(t.Prefix, name)
}

func (t Target) String() string {
	return "s3://" + t.Bucket + "/" + t.Prefix
}

// Artifact is a rendered scene ready for upload.
type Artifact struct {
	Name      string // Base file name, e.g. dome.scad
	Data      []byte
	StarCount int
}

// Receipt describes a finished upload.
type Receipt struct {
	URI         string
	ContentType string
	ETag        string
	Size        int
	Duration    time.Duration
}

// S3Publisher uploads artifacts with PutObject.
type S3Publisher struct {
	client PutObjectAPI
	target Target
}

// New creates a publisher backed by the default AWS credential chain.
func New(ctx context.Context, target Target) (*S3Publisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodePublishFailed, target.String(), "load AWS configuration")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return NewWithClient(s3.NewFromConfig(cfg), target), nil
}

// NewWithClient creates a publisher with a custom client, mainly for tests.
func NewWithClient(client PutObjectAPI, target Target) *S3Publisher {
	return &S3Publisher{client: client, target: target}
}

// Publish uploads a. The content type is sniffed from the data.
func (p *S3Publisher) Publish(ctx context.Context, a Artifact) (Receipt, error) {
	key := p.target.Key(a.Name)
	uri := "s3://" + p.target.Bucket + "/" + key

	contentType := DefaultContentType
	if mt := mimetype.Detect(a.Data); mt != nil {
		contentType = mt.String()
	}

	start := time.Now()
	out, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.target.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(a.Data),
		ContentLength: aws.Int64(int64(len(a.Data))),
		ContentType:   aws.String(contentType),
		Metadata: map[string]string{
			"star-count": strconv.Itoa(a.StarCount),
		},
	})
	if err != nil {
		return Receipt{}, errs.Wrap(err, errs.CodePublishFailed, uri, "upload scene")
	}

	r := Receipt{
		URI:         uri,
		ContentType: contentType,
		Size:        len(a.Data),
		Duration:    time.Since(start),
	}
	if out != nil && out.ETag != nil {
		r.ETag = *out.ETag
	}
	return r, nil
}
