package publish

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-planetarium/internal/errs"
)

type mockS3Client struct {
	PutObjectFunc func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func (m *mockS3Client) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	optFns ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, params, optFns...)
	}
	return &s3.PutObjectOutput{}, nil
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		raw     string
		want    Target
		wantErr bool
	}{
		{raw: "s3://domes/prints/2024", want: Target{Bucket: "domes", Prefix: "prints/2024"}},
		{raw: "s3://domes", want: Target{Bucket: "domes"}},
		{raw: "s3://domes/", want: Target{Bucket: "domes"}},
		{raw: "ftp://domes/x", wantErr: true},
		{raw: "s3:///prefix", wantErr: true},
		{raw: "domes/prefix", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTarget(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTarget_Key(t *testing.T) {
	assert.Equal(t, "dome.scad", Target{Bucket: "b"}.Key("dome.scad"))
	assert.Equal(t, "prints/dome.scad", Target{Bucket: "b", Prefix: "prints"}.Key("dome.scad"))
}

func TestPublish_UploadsWithMetadata(t *testing.T) {
	var got *s3.PutObjectInput
	var body string
	mock := &mockS3Client{
		PutObjectFunc: func(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			got = in
			b, err := io.ReadAll(in.Body)
			require.NoError(t, err)
			body = string(b)
			return &s3.PutObjectOutput{ETag: aws.String(`"abc123"`)}, nil
		},
	}

	data := []byte("// Planetarium dome\n\ndome_radius = 100;\n")
	p := NewWithClient(mock, Target{Bucket: "domes", Prefix: "prints"})

	r, err := p.Publish(context.Background(), Artifact{Name: "dome.scad", Data: data, StarCount: 42})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "domes", aws.ToString(got.Bucket))
	assert.Equal(t, "prints/dome.scad", aws.ToString(got.Key))
	assert.True(t, strings.HasPrefix(aws.ToString(got.ContentType), "text/plain"))
	assert.Equal(t, "42", got.Metadata["star-count"])
	assert.Equal(t, int64(len(data)), aws.ToInt64(got.ContentLength))
	assert.Equal(t, string(data), body)

	assert.Equal(t, "s3://domes/prints/dome.scad", r.URI)
	assert.Equal(t, `"abc123"`, r.ETag)
	assert.Equal(t, len(data), r.Size)
}

func TestPublish_WrapsFailure(t *testing.T) {
	cause := errors.New("access denied")
	mock := &mockS3Client{
		PutObjectFunc: func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return nil, cause
		},
	}

	_, err := NewWithClient(mock, Target{Bucket: "domes"}).Publish(context.Background(), Artifact{Name: "dome.scad"})
	require.Error(t, err)
	assert.True(t, errs.Has(err, errs.CodePublishFailed))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "s3://domes/dome.scad")
}
