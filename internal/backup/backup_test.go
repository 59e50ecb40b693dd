package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminosmc/luminos-community/internal/lock"
	"github.com/luminosmc/luminos-community/internal/repository"
	"github.com/luminosmc/luminos-community/internal/store"
	"github.com/luminosmc/luminos-community/internal/store/memory"
)

func seededStore(t *testing.T) store.RecordStore {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Put(ctx, repository.CollectionRoles, "owner", []byte(`{"id":"owner","name":"Owner"}`)))
	require.NoError(t, s.Put(ctx, repository.CollectionPosts, "p1", []byte(`{"id":"p1","title":"Hello world"}`)))
	require.NoError(t, s.Put(ctx, repository.CollectionPosts, "p2", []byte(`{"id":"p2","title":"Second post"}`)))
	return s
}

func fixedClock(svc *Service, t time.Time) {
	svc.now = func() time.Time { return t }
}

func TestService_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := seededStore(t)
	exp := NewService(src, nil, nil, zerolog.Nop())

	snap, err := exp.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, SnapshotVersion, snap.Version)
	require.Len(t, snap.Collections[repository.CollectionPosts], 2)
	require.Len(t, snap.Collections[repository.CollectionRoles], 1)

	dst := memory.New()
	imp := NewService(dst, nil, lock.NewNoOpLocker(), zerolog.Nop())
	res, err := imp.Import(ctx, snap, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Written)

	raw, err := dst.Get(ctx, repository.CollectionPosts, "p2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"p2","title":"Second post"}`, string(raw))
}

func TestService_ImportReplace(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	svc := NewService(s, nil, nil, zerolog.Nop())

	snap := &Snapshot{
		Version: SnapshotVersion,
		Collections: map[string][]Record{
			repository.CollectionPosts: {{ID: "p1", Value: []byte(`{"id":"p1","title":"Restored"}`)}},
		},
	}

	t.Run("merge keeps extra records", func(t *testing.T) {
		_, err := svc.Import(ctx, snap, ImportOptions{})
		require.NoError(t, err)
		n, err := s.Count(ctx, repository.CollectionPosts)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("replace drops extra records", func(t *testing.T) {
		res, err := svc.Import(ctx, snap, ImportOptions{Replace: true})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Deleted)

		n, err := s.Count(ctx, repository.CollectionPosts)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		// Collections absent from the snapshot are untouched.
		n, err = s.Count(ctx, repository.CollectionRoles)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestService_ImportRejects(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := NewService(s, nil, nil, zerolog.Nop())

	tests := []struct {
		name    string
		snap    *Snapshot
		wantErr error
	}{
		{
			name:    "future version",
			snap:    &Snapshot{Version: 99},
			wantErr: ErrUnsupportedVersion,
		},
		{
			name: "unknown collection",
			snap: &Snapshot{Version: SnapshotVersion, Collections: map[string][]Record{
				repository.CollectionPosts: {{ID: "p1", Value: []byte(`{}`)}},
				"buckets":                  {{ID: "b1", Value: []byte(`{}`)}},
			}},
			wantErr: ErrUnknownCollection,
		},
		{
			name: "invalid json",
			snap: &Snapshot{Version: SnapshotVersion, Collections: map[string][]Record{
				repository.CollectionPosts: {{ID: "p1", Value: []byte(`{nope`)}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(ctx, tt.snap, ImportOptions{})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}

	// Nothing was written by the rejected imports.
	names, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestService_ImportHonoursRestoreLock(t *testing.T) {
	ctx := context.Background()
	locker := lock.NewMemoryLocker()

	ok, err := locker.Acquire(ctx, lock.Keys.Restore(), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	svc := NewService(memory.New(), nil, locker, zerolog.Nop())
	cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err = svc.Import(cctx, &Snapshot{Version: SnapshotVersion}, ImportOptions{})
	assert.Error(t, err)
}

func TestService_BackupRestoreFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dest, err := NewFileDestination(dir)
	require.NoError(t, err)

	src := seededStore(t)
	svc := NewService(src, dest, nil, zerolog.Nop())

	fixedClock(svc, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	first, err := svc.Backup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snapshot-20260301-120000.json", first)

	fixedClock(svc, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	second, err := svc.Backup(ctx)
	require.NoError(t, err)

	names, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second, first}, names, "newest first")

	dst := memory.New()
	restorer := NewService(dst, dest, nil, zerolog.Nop())
	res, err := restorer.Restore(ctx, first, ImportOptions{Replace: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Written)

	_, err = restorer.Restore(ctx, "../etc/passwd", ImportOptions{})
	assert.True(t, errors.Is(err, ErrInvalidName))

	require.NoError(t, svc.Delete(ctx, first))
	names, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second}, names)
}

// fakeS3 is an in-memory stand-in for the S3 client.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket := aws.ToString(in.Bucket) + "/"
	var keys []string
	for k := range f.objects {
		key, ok := strings.CutPrefix(k, bucket)
		if ok && strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestS3Destination(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	dest := NewS3Destination(client, "backups", "/luminos/")

	require.NoError(t, dest.Save(ctx, "snapshot-a.json", strings.NewReader(`{"version":1}`)))
	require.NoError(t, dest.Save(ctx, "other.json", strings.NewReader(`{}`)))
	_, stored := client.objects["backups/luminos/snapshot-a.json"]
	assert.True(t, stored, "object key carries the prefix")

	names, err := dest.List(ctx, NamePrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"snapshot-a.json"}, names)

	rc, err := dest.Load(ctx, "snapshot-a.json")
	require.NoError(t, err)
	raw, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1}`, string(raw))

	_, err = dest.Load(ctx, "missing.json")
	assert.Error(t, err)

	require.NoError(t, dest.Delete(ctx, "snapshot-a.json"))
	names, err = dest.List(ctx, NamePrefix)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestS3Destination_BackupRestore(t *testing.T) {
	ctx := context.Background()
	dest := NewS3Destination(newFakeS3(), "backups", "")

	svc := NewService(seededStore(t), dest, nil, zerolog.Nop())
	name, err := svc.Backup(ctx)
	require.NoError(t, err)

	dst := memory.New()
	res, err := NewService(dst, dest, nil, zerolog.Nop()).Restore(ctx, name, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Written)
}
