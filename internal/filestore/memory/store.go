// Package memory provides an in-process filestore.Store. Objects live in a
// map and vanish with the process; it backs local runs and tests.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dataquerypro/dataquery/internal/errs"
	"github.com/dataquerypro/dataquery/internal/filestore"
)

func init() {
	filestore.Register(filestore.ProviderMemory, func(context.Context, *filestore.Config) (filestore.Store, error) {
		return New(), nil
	})
}

type entry struct {
	data []byte
	info filestore.ObjectInfo
}

// Store is a map-backed filestore.Store, safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]entry
	now     func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		buckets: make(map[string]map[string]entry),
		now:     time.Now,
	}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *Store) EnsureBucket(_ context.Context, bucket string) error {
	if bucket == "" {
		return errs.New(errs.ErrKindInvalidInput, "bucket name is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string]entry)
	}
	return nil
}

func (s *Store) ListObjects(_ context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objs, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "bucket %q does not exist", bucket)
	}

	keys := make([]string, 0, len(objs))
	for k := range objs {
		if strings.HasPrefix(k, opts.Prefix) && k > opts.Marker {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var (
		out  []filestore.ObjectInfo
		dirs = map[string]bool{}
	)
	for _, k := range keys {
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
		if !opts.Recursive {
			if i := strings.Index(k[len(opts.Prefix):], "/"); i >= 0 {
				dir := k[:len(opts.Prefix)+i+1]
				if !dirs[dir] {
					dirs[dir] = true
					out = append(out, filestore.ObjectInfo{Key: dir, Size: -1, IsDir: true})
				}
				continue
			}
		}
		out = append(out, objs[k].info)
	}
	return out, nil
}

func (s *Store) GetObject(_ context.Context, bucket, key string) (filestore.Object, error) {
	e, err := s.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	info := e.info
	return &object{Reader: bytes.NewReader(e.data), info: &info}, nil
}

func (s *Store) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*filestore.ObjectInfo, error) {
	if key == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "object key is empty")
	}

	src := r
	if size >= 0 {
		src = io.LimitReader(r, size)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read object body", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "put object canceled", err)
	}

	sum := md5.Sum(data)
	info := filestore.ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  contentType,
		ETag:         hex.EncodeToString(sum[:]),
		LastModified: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	objs, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "bucket %q does not exist", bucket)
	}
	objs[key] = entry{data: data, info: info}

	out := info
	return &out, nil
}

func (s *Store) RemoveObject(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	objs, ok := s.buckets[bucket]
	if !ok {
		return errs.Newf(errs.ErrKindNotFound, "bucket %q does not exist", bucket)
	}
	delete(objs, key)
	return nil
}

func (s *Store) lookup(bucket, key string) (entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objs, ok := s.buckets[bucket]
	if !ok {
		return entry{}, errs.Newf(errs.ErrKindNotFound, "bucket %q does not exist", bucket)
	}
	e, ok := objs[key]
	if !ok {
		return entry{}, errs.Newf(errs.ErrKindNotFound, "object %q does not exist", key)
	}
	return e, nil
}

type object struct {
	*bytes.Reader
	info *filestore.ObjectInfo
}

func (o *object) Close() error                { return nil }
func (o *object) Info() *filestore.ObjectInfo { return o.info }
