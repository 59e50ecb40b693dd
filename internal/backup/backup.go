// Package backup exports the record store to a snapshot document and imports it back.
// Snapshots are written to a Destination: a local directory or an S3 bucket.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/lock"
	"github.com/luminosmc/luminos-community/internal/repository"
	"github.com/luminosmc/luminos-community/internal/store"
)

// SnapshotVersion is the format version written by Export.
const SnapshotVersion = 1

// NamePrefix prefixes every snapshot written by Backup.
const NamePrefix = "snapshot-"

var (
	// ErrUnsupportedVersion indicates the snapshot was written by an incompatible format.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")

	// ErrUnknownCollection indicates the snapshot names a collection the site does not use.
	ErrUnknownCollection = errors.New("unknown collection in snapshot")

	// ErrInvalidName indicates a snapshot name that is not a plain file name.
	ErrInvalidName = errors.New("invalid snapshot name")
)

// Record is a single stored document.
type Record struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

// Snapshot is a point-in-time copy of every collection.
type Snapshot struct {
	Version     int                 `json:"version"`
	CreatedAt   time.Time           `json:"created_at"`
	Collections map[string][]Record `json:"collections"`
}

// Destination stores snapshot documents by name.
type Destination interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// ImportOptions controls Import.
type ImportOptions struct {
	// Replace deletes records of an imported collection that the snapshot
	// does not contain. Without it records are only added or overwritten.
	Replace bool
}

// ImportResult counts what Import changed.
type ImportResult struct {
	Written int `json:"written"`
	Deleted int `json:"deleted"`
}

// Service exports and imports snapshots.
type Service struct {
	store  store.RecordStore
	dest   Destination
	locker lock.Locker
	now    func() time.Time
	logger zerolog.Logger
}

// NewService creates a new backup Service. dest may be nil when only
// Export and Import are used.
func NewService(s store.RecordStore, dest Destination, locker lock.Locker, logger zerolog.Logger) *Service {
	if locker == nil {
		locker = lock.NewNoOpLocker()
	}
	return &Service{
		store:  s,
		dest:   dest,
		locker: locker,
		now:    time.Now,
		logger: logger.With().Str("service", "backup").Logger(),
	}
}

// Export copies every collection into a snapshot.
func (s *Service) Export(ctx context.Context) (*Snapshot, error) {
	names, err := s.store.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	snap := &Snapshot{
		Version:     SnapshotVersion,
		CreatedAt:   s.now().UTC(),
		Collections: make(map[string][]Record, len(names)),
	}
	for _, name := range names {
		records, err := s.store.List(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", name, err)
		}
		out := make([]Record, 0, len(records))
		for _, r := range records {
			out = append(out, Record{ID: r.ID, Value: json.RawMessage(r.Value)})
		}
		snap.Collections[name] = out
	}

	s.logger.Debug().Int("collections", len(snap.Collections)).Msg("snapshot exported")
	return snap, nil
}

// Import writes the snapshot into the store under the restore lock.
// Collections are checked before anything is written.
func (s *Service) Import(ctx context.Context, snap *Snapshot, opts ImportOptions) (*ImportResult, error) {
	if err := validate(snap); err != nil {
		return nil, err
	}

	res := &ImportResult{}
	err := lock.WithLock(ctx, s.locker, lock.Keys.Restore(), 5*time.Minute, 10, time.Second, func(ctx context.Context) error {
		names := make([]string, 0, len(snap.Collections))
		for name := range snap.Collections {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := s.importCollection(ctx, name, snap.Collections[name], opts, res); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("written", res.Written).
		Int("deleted", res.Deleted).
		Bool("replace", opts.Replace).
		Msg("snapshot imported")
	return res, nil
}

func (s *Service) importCollection(ctx context.Context, name string, records []Record, opts ImportOptions, res *ImportResult) error {
	if opts.Replace {
		keep := make(map[string]struct{}, len(records))
		for _, r := range records {
			keep[r.ID] = struct{}{}
		}
		existing, err := s.store.List(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", name, err)
		}
		for _, r := range existing {
			if _, ok := keep[r.ID]; ok {
				continue
			}
			if err := s.store.Delete(ctx, name, r.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("failed to delete %s/%s: %w", name, r.ID, err)
			}
			res.Deleted++
		}
	}

	for _, r := range records {
		if err := s.store.Put(ctx, name, r.ID, []byte(r.Value)); err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", name, r.ID, err)
		}
		res.Written++
	}
	return nil
}

func validate(snap *Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	known := make(map[string]struct{})
	for _, c := range repository.Collections() {
		known[c] = struct{}{}
	}
	for name, records := range snap.Collections {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCollection, name)
		}
		for _, r := range records {
			if r.ID == "" {
				return fmt.Errorf("record without id in %s", name)
			}
			if !json.Valid(r.Value) {
				return fmt.Errorf("invalid JSON for %s/%s", name, r.ID)
			}
		}
	}
	return nil
}

// =============================================================================
// Destination operations
// =============================================================================

// Backup exports the store and saves the snapshot. It returns the snapshot name.
func (s *Service) Backup(ctx context.Context) (string, error) {
	snap, err := s.Export(ctx)
	if err != nil {
		return "", err
	}

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	name := NamePrefix + snap.CreatedAt.Format("20060102-150405") + ".json"
	if err := s.dest.Save(ctx, name, bytes.NewReader(raw)); err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("failed to save snapshot")
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.Info().Str("name", name).Int("bytes", len(raw)).Msg("snapshot saved")
	return name, nil
}

// Restore loads a saved snapshot and imports it.
func (s *Service) Restore(ctx context.Context, name string, opts ImportOptions) (*ImportResult, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	rc, err := s.dest.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer rc.Close()

	var snap Snapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", name, err)
	}
	return s.Import(ctx, &snap, opts)
}

// List returns the saved snapshot names, newest first.
func (s *Service) List(ctx context.Context) ([]string, error) {
	names, err := s.dest.List(ctx, NamePrefix)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Delete removes a saved snapshot.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return s.dest.Delete(ctx, name)
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
