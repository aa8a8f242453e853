package kvstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObjectAPI is an in-memory stand-in for the S3 client.
type fakeObjectAPI struct {
	objects map[string][]byte
	getErr  error
	putErr  error

	lastPutKey string
}

func newFakeObjectAPI() *fakeObjectAPI {
	return &fakeObjectAPI{objects: make(map[string][]byte)}
}

func (f *fakeObjectAPI) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.objects[*params.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(body)))}, nil
}

func (f *fakeObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.lastPutKey = *params.Key
	f.objects[*params.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func setupS3(t *testing.T) (*S3Table, *fakeObjectAPI) {
	t.Helper()

	fake := newFakeObjectAPI()
	table, err := NewS3Table(context.Background(), "scores", "claims", []string{"team", "flag"},
		WithObjectAPI(fake))
	require.NoError(t, err)
	return table, fake
}

func TestS3TableRoundTrip(t *testing.T) {
	ctx := context.Background()
	table, fake := setupS3(t)

	t.Run("get on an unset key returns not found", func(t *testing.T) {
		_, err := table.GetItem(ctx, Item{"team": 1, "flag": "f"})
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("put followed by get returns the stored record", func(t *testing.T) {
		require.NoError(t, table.PutItem(ctx, Item{"team": 1, "flag": "f", "last_seen": 12.5}))

		got, err := table.GetItem(ctx, Item{"team": 1, "flag": "f"})
		require.NoError(t, err)
		assert.Equal(t, 12.5, got["last_seen"])
		assert.Equal(t, "f", got["flag"])
	})

	t.Run("object names are content-addressed under the prefix", func(t *testing.T) {
		digest, err := KeySchema{"team", "flag"}.Digest(Item{"team": 1, "flag": "f"})
		require.NoError(t, err)
		assert.Equal(t, "claims/"+digest, fake.lastPutKey)
	})

	t.Run("re-putting the same key overwrites the same object", func(t *testing.T) {
		require.NoError(t, table.PutItem(ctx, Item{"team": 1, "flag": "f", "last_seen": 99.0}))
		assert.Len(t, fake.objects, 1)

		got, err := table.GetItem(ctx, Item{"team": 1, "flag": "f"})
		require.NoError(t, err)
		assert.Equal(t, 99.0, got["last_seen"])
	})
}

func TestS3TableErrors(t *testing.T) {
	ctx := context.Background()
	table, fake := setupS3(t)

	t.Run("incomplete keys fail validation before any request", func(t *testing.T) {
		err := table.PutItem(ctx, Item{"team": 1})
		assert.True(t, errors.Is(err, ErrMissingKeys))

		var missing *MissingKeysError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, []string{"flag"}, missing.Missing)
	})

	t.Run("non-not-found storage failures propagate", func(t *testing.T) {
		fake.getErr = errors.New("connection reset")
		_, err := table.GetItem(ctx, Item{"team": 1, "flag": "f"})
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("put failures propagate", func(t *testing.T) {
		fake.putErr = errors.New("access denied")
		err := table.PutItem(ctx, Item{"team": 1, "flag": "f"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access denied")
	})

	t.Run("scan is rejected by the blob backend", func(t *testing.T) {
		_, err := table.Scan(ctx)
		assert.True(t, errors.Is(err, ErrScanUnsupported))
	})
}
