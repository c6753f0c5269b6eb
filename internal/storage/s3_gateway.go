// Package storage implements the drive.Gateway over an S3-compatible
// object store. Folders are "/"-delimited key prefixes; creating a
// folder writes a zero-byte marker object; the statistics sheet is a
// CSV object rewritten on append.
package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"driveport/internal/drive"
	driveport_errors "driveport/pkg/errors"
	"driveport/pkg/logger"
)

type Config struct {
	Region   string
	Bucket   string
	Endpoint string

	// Credentials returns the current access key, secret and session
	// token. Called at startup and again on every credential refresh,
	// so rotated session tokens are picked up without a restart.
	Credentials func(ctx context.Context) (access, secret, token string, err error)
}

// StaticCredentials adapts fixed credentials to the Config hook.
func StaticCredentials(access, secret, token string) func(context.Context) (string, string, string, error) {
	return func(context.Context) (string, string, string, error) {
		return access, secret, token, nil
	}
}

type s3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Gateway is a drive.Gateway backed by S3. Every remote call runs
// through an interceptor that absorbs one auth-expired condition with
// a guarded refresh-and-retry.
type S3Gateway struct {
	cfg       Config
	log       *logger.Logger
	newClient func(ctx context.Context) (s3API, error)

	mu     sync.Mutex
	gen    uint64
	client s3API
}

func NewS3Gateway(ctx context.Context, cfg Config, log *logger.Logger) (*S3Gateway, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}
	if cfg.Credentials == nil {
		return nil, errors.New("s3 credentials hook is required")
	}

	g := &S3Gateway{cfg: cfg, log: log}
	g.newClient = g.buildClient
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, err
	}
	g.client = client
	return g, nil
}

func (g *S3Gateway) buildClient(ctx context.Context) (s3API, error) {
	access, secret, token, err := g.cfg.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(g.cfg.Region))
	if access != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(access, secret, token)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if g.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(g.cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// do runs fn, absorbing a single auth-expired failure. Concurrent
// callers that observe the same stale client wait on the mutex and
// reuse the one refresh instead of triggering their own.
func (g *S3Gateway) do(ctx context.Context, fn func(client s3API) error) error {
	g.mu.Lock()
	client, gen := g.client, g.gen
	g.mu.Unlock()

	err := fn(client)
	if err == nil || !isAuthExpired(err) {
		return err
	}

	g.log.Warnf("storage authorization expired, refreshing credentials")
	client, err = g.refresh(ctx, gen)
	if err != nil {
		return fmt.Errorf("%w: credential refresh: %v", driveport_errors.ErrTransfer, err)
	}

	if err := fn(client); err != nil {
		if isAuthExpired(err) {
			return fmt.Errorf("%w: %w after refresh: %v", driveport_errors.ErrTransfer, driveport_errors.ErrAuthExpired, err)
		}
		return err
	}
	return nil
}

func (g *S3Gateway) refresh(ctx context.Context, seen uint64) (s3API, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != seen {
		// Someone else already refreshed while we waited.
		return g.client, nil
	}
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, err
	}
	g.client = client
	g.gen++
	return client, nil
}

func isAuthExpired(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "ExpiredToken", "ExpiredTokenException", "InvalidToken", "TokenRefreshRequired":
		return true
	}
	return false
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return false
}

func (g *S3Gateway) FindFolder(ctx context.Context, parentID, name string) (string, error) {
	prefix := parentID + name + "/"
	var found bool
	err := g.do(ctx, func(client s3API) error {
		out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(g.cfg.Bucket),
			Prefix:  aws.String(prefix),
			MaxKeys: aws.Int32(1),
		})
		if err != nil {
			return err
		}
		found = out.KeyCount != nil && *out.KeyCount > 0
		return nil
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", driveport_errors.ErrNotFound
	}
	return prefix, nil
}

func (g *S3Gateway) ListFolders(ctx context.Context, parentID string) ([]drive.Folder, error) {
	var folders []drive.Folder
	err := g.do(ctx, func(client s3API) error {
		folders = folders[:0]
		var token *string
		for {
			out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            aws.String(g.cfg.Bucket),
				Prefix:            aws.String(parentID),
				Delimiter:         aws.String("/"),
				ContinuationToken: token,
			})
			if err != nil {
				return err
			}
			for _, cp := range out.CommonPrefixes {
				id := aws.ToString(cp.Prefix)
				name := strings.TrimSuffix(strings.TrimPrefix(id, parentID), "/")
				if name != "" {
					folders = append(folders, drive.Folder{ID: id, Name: name})
				}
			}
			if out.IsTruncated == nil || !*out.IsTruncated {
				return nil
			}
			token = out.NextContinuationToken
		}
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}

func (g *S3Gateway) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	id := parentID + name + "/"
	err := g.do(ctx, func(client s3API) error {
		_, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(g.cfg.Bucket),
			Key:    aws.String(id),
			Body:   bytes.NewReader(nil),
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (g *S3Gateway) Put(ctx context.Context, localPath, folderID, name string) (string, error) {
	key := folderID + name
	contentType := mime.TypeByExtension(strings.ToLower(path.Ext(name)))

	err := g.do(ctx, func(client s3API) error {
		_, err := client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(g.cfg.Bucket),
			Key:    aws.String(key),
		})
		switch {
		case err == nil:
			g.log.Infof("replacing existing object %s", key)
		case isNotFound(err):
		default:
			return err
		}

		f, err := os.Open(localPath)
		if err != nil {
			return err
		}
		defer f.Close()

		in := &s3.PutObjectInput{
			Bucket: aws.String(g.cfg.Bucket),
			Key:    aws.String(key),
			Body:   f,
		}
		if contentType != "" {
			in.ContentType = aws.String(contentType)
		}
		_, err = client.PutObject(ctx, in)
		return err
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (g *S3Gateway) EnsureSheet(ctx context.Context, folderID, name string, header []string) (string, error) {
	key := folderID + name
	err := g.do(ctx, func(client s3API) error {
		_, err := client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(g.cfg.Bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(header); err != nil {
			return err
		}
		w.Flush()
		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(g.cfg.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(buf.Bytes()),
			ContentType: aws.String("text/csv"),
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// AppendRow rewrites the sheet object with the row at the end. Not
// atomic against concurrent appenders; batches for one user are
// serialized and cross-user collisions only lose a statistics row.
func (g *S3Gateway) AppendRow(ctx context.Context, sheetID string, row []string) error {
	return g.do(ctx, func(client s3API) error {
		out, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(g.cfg.Bucket),
			Key:    aws.String(sheetID),
		})
		if err != nil {
			if isNotFound(err) {
				return driveport_errors.ErrNotFound
			}
			return err
		}
		existing, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			return err
		}

		buf := bytes.NewBuffer(existing)
		w := csv.NewWriter(buf)
		if err := w.Write(row); err != nil {
			return err
		}
		w.Flush()

		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(g.cfg.Bucket),
			Key:         aws.String(sheetID),
			Body:        bytes.NewReader(buf.Bytes()),
			ContentType: aws.String("text/csv"),
		})
		return err
	})
}
