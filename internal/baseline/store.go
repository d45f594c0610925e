// Package baseline persists the accepted schema of each connection as a JSON
// document in a filestore bucket, one object per connection.
package baseline

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/dataquerypro/dataquery/internal/errs"
	"github.com/dataquerypro/dataquery/internal/filestore"
	"github.com/dataquerypro/dataquery/internal/schema"
)

const (
	keyPrefix   = "schemas/"
	keySuffix   = ".json"
	contentType = "application/json"
)

// Store reads and writes baselines.
type Store struct {
	files  filestore.Store
	bucket string
}

// New returns a Store writing to bucket. Call Init once before use so the
// bucket exists.
func New(files filestore.Store, bucket string) *Store {
	return &Store{files: files, bucket: bucket}
}

// Init creates the bucket if needed.
func (s *Store) Init(ctx context.Context) error {
	return s.files.EnsureBucket(ctx, s.bucket)
}

// Key returns the object key holding the baseline of connectionID.
func Key(connectionID string) string {
	return keyPrefix + connectionID + keySuffix
}

// Load returns the stored baseline. It returns an errs NotFound error when
// the connection has none yet.
func (s *Store) Load(ctx context.Context, connectionID string) (*schema.Schema, error) {
	if err := validateID(connectionID); err != nil {
		return nil, err
	}

	data, err := filestore.ReadAll(ctx, s.files, s.bucket, Key(connectionID))
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "no baseline for connection "+connectionID, err)
		}
		return nil, err
	}

	var out schema.Schema
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "corrupt baseline for connection "+connectionID, err)
	}
	if out.ConnectionID == "" {
		out.ConnectionID = connectionID
	}
	return &out, nil
}

// Save stores s as the baseline of its connection. Diff flags are cleared
// first: a baseline only ever holds accepted state.
func (s *Store) Save(ctx context.Context, sc schema.Schema) error {
	if err := validateID(sc.ConnectionID); err != nil {
		return err
	}

	data, err := json.Marshal(sc.Accepted())
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to encode baseline", err)
	}

	_, err = s.files.PutObject(ctx, s.bucket, Key(sc.ConnectionID), bytes.NewReader(data), int64(len(data)), contentType)
	return err
}

// Delete removes the baseline of connectionID. Deleting a missing baseline
// succeeds.
func (s *Store) Delete(ctx context.Context, connectionID string) error {
	if err := validateID(connectionID); err != nil {
		return err
	}
	return s.files.RemoveObject(ctx, s.bucket, Key(connectionID))
}

// List returns the IDs of all connections that have a baseline.
func (s *Store) List(ctx context.Context) ([]string, error) {
	objs, err := s.files.ListObjects(ctx, s.bucket, filestore.ListOptions{Prefix: keyPrefix, Recursive: true})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(objs))
	for _, o := range objs {
		if o.IsDir || !strings.HasSuffix(o.Key, keySuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(o.Key, keyPrefix), keySuffix))
	}
	return ids, nil
}

func validateID(id string) error {
	if id == "" {
		return errs.New(errs.ErrKindInvalidInput, "connection id is required")
	}
	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return errs.Newf(errs.ErrKindInvalidInput, "invalid connection id %q", id)
	}
	return nil
}
