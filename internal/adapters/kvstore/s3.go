package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the slice of the S3 client the table needs. Tests substitute
// a fake.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Table implements Table on a blob store with only get/put-by-name
// semantics. The object name is content-addressed: the SHA-256 hex digest
// of the canonical key encoding, under a fixed prefix. This lets a low-cost
// blob store stand in for a transactional table for workloads that need no
// cross-key atomicity.
type S3Table struct {
	client ObjectAPI
	bucket string
	prefix string
	keys   KeySchema
}

// S3Option applies a configuration option to an S3Table.
type S3Option func(*S3Table)

// WithObjectAPI overrides the S3 client, e.g. with a fake for tests or a
// client pointed at an S3-compatible endpoint.
func WithObjectAPI(client ObjectAPI) S3Option {
	return func(t *S3Table) {
		if client != nil {
			t.client = client
		}
	}
}

// NewS3Table creates a content-addressed table in bucket under prefix,
// identified by the given key attributes. Unless an ObjectAPI is supplied,
// the default AWS configuration chain is used to build the client.
func NewS3Table(ctx context.Context, bucket, prefix string, keys []string, opts ...S3Option) (*S3Table, error) {
	t := &S3Table{
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		keys:   KeySchema(keys),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		cfg, err := awscfg.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		t.client = s3.NewFromConfig(cfg)
	}
	return t, nil
}

// objectName derives the content-addressed object name for the item's key
// attributes.
func (t *S3Table) objectName(item Item) (string, error) {
	digest, err := t.keys.Digest(item)
	if err != nil {
		return "", err
	}
	return t.prefix + "/" + digest, nil
}

// GetItem fetches the object named by the key attributes of key. An absent
// object is ErrNotFound; any other storage failure propagates.
func (t *S3Table) GetItem(ctx context.Context, key Item) (Item, error) {
	name, err := t.objectName(key)
	if err != nil {
		return nil, err
	}

	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", name, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", name, err)
	}
	var item Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("s3 decode %s: %w", name, err)
	}
	return item, nil
}

// PutItem stores the full item, key attributes included, as an opaque blob
// under its content-addressed name.
func (t *S3Table) PutItem(ctx context.Context, item Item) error {
	name, err := t.objectName(item)
	if err != nil {
		return err
	}
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("serialize item for %s: %w", name, err)
	}
	if _, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(name),
		Body:   bytes.NewReader(body),
	}); err != nil {
		return fmt.Errorf("s3 put %s: %w", name, err)
	}
	return nil
}

// Scan is not available on a blob store: objects are named by key digest,
// and listing them cannot recover the items' key attributes.
func (t *S3Table) Scan(_ context.Context) ([]Item, error) {
	return nil, fmt.Errorf("s3 table %s/%s: %w", t.bucket, t.prefix, ErrScanUnsupported)
}

// isNoSuchKey recognizes the backend's not-found signal.
func isNoSuchKey(err error) bool {
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nsk)
}
