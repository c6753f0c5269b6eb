package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	driveport_errors "driveport/pkg/errors"
	"driveport/pkg/logger"
)

type fakeS3 struct {
	expired bool // every call fails with ExpiredToken
	calls   atomic.Int64
}

func (f *fakeS3) err() error {
	if f.expired {
		return &smithy.GenericAPIError{Code: "ExpiredToken", Message: "token expired"}
	}
	return nil
}

func (f *fakeS3) ListObjectsV2(context.Context, *s3.ListObjectsV2Input, ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.calls.Add(1)
	if err := f.err(); err != nil {
		return nil, err
	}
	return &s3.ListObjectsV2Output{KeyCount: aws.Int32(1)}, nil
}

func (f *fakeS3) HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.calls.Add(1)
	if err := f.err(); err != nil {
		return nil, err
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls.Add(1)
	if err := f.err(); err != nil {
		return nil, err
	}
	return &s3.GetObjectOutput{}, nil
}

func (f *fakeS3) PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls.Add(1)
	if err := f.err(); err != nil {
		return nil, err
	}
	return &s3.PutObjectOutput{}, nil
}

// newTestGateway wires a gateway whose client factory hands out the
// given clients in order.
func newTestGateway(t *testing.T, clients ...*fakeS3) (*S3Gateway, *atomic.Int64) {
	t.Helper()
	var builds atomic.Int64
	g := &S3Gateway{
		cfg: Config{Region: "us-east-1", Bucket: "test"},
		log: logger.NewNop(),
	}
	g.newClient = func(context.Context) (s3API, error) {
		n := builds.Add(1)
		require.LessOrEqual(t, int(n), len(clients), "unexpected client rebuild")
		return clients[n-1], nil
	}
	client, err := g.newClient(context.Background())
	require.NoError(t, err)
	g.client = client
	return g, &builds
}

func TestAuthExpiredRefreshesOnceAndRetries(t *testing.T) {
	stale := &fakeS3{expired: true}
	fresh := &fakeS3{}
	g, builds := newTestGateway(t, stale, fresh)

	id, err := g.FindFolder(context.Background(), "", "Upload")
	require.NoError(t, err)
	assert.Equal(t, "Upload/", id)
	assert.EqualValues(t, 2, builds.Load())
	assert.EqualValues(t, 1, stale.calls.Load())
	assert.EqualValues(t, 1, fresh.calls.Load())
}

func TestAuthExpiredAfterRefreshEscalates(t *testing.T) {
	stale := &fakeS3{expired: true}
	stillStale := &fakeS3{expired: true}
	g, builds := newTestGateway(t, stale, stillStale)

	_, err := g.FindFolder(context.Background(), "", "Upload")
	require.Error(t, err)
	assert.ErrorIs(t, err, driveport_errors.ErrTransfer)
	assert.ErrorIs(t, err, driveport_errors.ErrAuthExpired)
	assert.EqualValues(t, 2, builds.Load())
}

func TestConcurrentCallersShareOneRefresh(t *testing.T) {
	stale := &fakeS3{expired: true}
	fresh := &fakeS3{}
	g, builds := newTestGateway(t, stale, fresh)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.FindFolder(context.Background(), "", "Upload")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Initial build plus exactly one refresh, no matter how many
	// callers observed the stale client.
	assert.EqualValues(t, 2, builds.Load())
}

func TestNonAuthErrorsAreNotRetried(t *testing.T) {
	failing := &fakeS3{}
	g, builds := newTestGateway(t, failing)

	// NotFound from FindFolder comes from an empty listing, not an
	// API error; it must not trigger a refresh.
	failing.expired = false
	_, err := g.FindFolder(context.Background(), "", "Upload")
	require.NoError(t, err)
	assert.EqualValues(t, 1, builds.Load())
}
