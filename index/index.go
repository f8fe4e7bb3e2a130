// Package index maps content signatures to the files that hold them.
package index

import (
	"context"
	"sort"

	"github.com/nrtkbb/fsrecon/logging"
	"github.com/nrtkbb/fsrecon/models"
	"github.com/nrtkbb/fsrecon/scanner"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Index is a signature index over one tree. Each bucket keeps every record
// with that signature in insertion order; records are never overwritten.
type Index struct {
	buckets map[models.Signature][]models.FileRecord
	byPath  map[string]models.FileRecord
}

func New() *Index {
	return &Index{
		buckets: make(map[models.Signature][]models.FileRecord),
		byPath:  make(map[string]models.FileRecord),
	}
}

// Build walks root and indexes every readable regular file. Unreadable files
// are skipped and returned as read failures.
func Build(ctx context.Context, fsys afero.Fs, root string, opts scanner.Options) (*Index, []models.ReadFailure, error) {
	tracer := otel.Tracer("fsrecon/index")
	ctx, span := tracer.Start(ctx, "index.Build")
	defer span.End()

	logger := logging.GetLogger("index")
	done := logging.LogOperationStart(logger, "build "+root)
	defer done()

	idx := New()
	failures, err := scanner.Walk(ctx, fsys, root, opts, func(r models.FileRecord) error {
		idx.Add(r)
		return nil
	})
	span.SetAttributes(
		attribute.String("root", root),
		attribute.Int("files", len(idx.byPath)),
		attribute.Int("signatures", len(idx.buckets)),
		attribute.Int("read_failures", len(failures)),
	)
	if err != nil {
		span.RecordError(err)
		return nil, failures, err
	}
	return idx, failures, nil
}

// Add appends r to its signature bucket. A record already indexed under the
// same path is replaced.
func (i *Index) Add(r models.FileRecord) {
	if _, exists := i.byPath[r.Path]; exists {
		i.Remove(r.Path)
	}
	i.buckets[r.Signature] = append(i.buckets[r.Signature], r)
	i.byPath[r.Path] = r
}

// Remove drops the record at path, if any, and reports whether one existed.
func (i *Index) Remove(path string) bool {
	r, ok := i.byPath[path]
	if !ok {
		return false
	}
	delete(i.byPath, path)

	bucket := lo.Reject(i.buckets[r.Signature], func(other models.FileRecord, _ int) bool {
		return other.Path == path
	})
	if len(bucket) == 0 {
		delete(i.buckets, r.Signature)
	} else {
		i.buckets[r.Signature] = bucket
	}
	return true
}

// Lookup returns the records holding sig, in insertion order.
func (i *Index) Lookup(sig models.Signature) []models.FileRecord {
	return i.buckets[sig]
}

func (i *Index) Contains(sig models.Signature) bool {
	_, ok := i.buckets[sig]
	return ok
}

// RecordAt returns the record indexed at path.
func (i *Index) RecordAt(path string) (models.FileRecord, bool) {
	r, ok := i.byPath[path]
	return r, ok
}

// Representative picks the record that stands for sig when a tree holds the
// same content more than once: the one with the lexically smallest path.
func (i *Index) Representative(sig models.Signature) (models.FileRecord, bool) {
	bucket := i.buckets[sig]
	if len(bucket) == 0 {
		return models.FileRecord{}, false
	}
	return lo.MinBy(bucket, func(a, b models.FileRecord) bool {
		return a.Path < b.Path
	}), true
}

// Len returns the number of indexed files.
func (i *Index) Len() int {
	return len(i.byPath)
}

// Signatures returns every distinct signature, sorted.
func (i *Index) Signatures() []models.Signature {
	sigs := lo.Keys(i.buckets)
	sort.Slice(sigs, func(a, b int) bool { return sigs[a] < sigs[b] })
	return sigs
}

// Duplicates returns every bucket holding more than one record, ordered by
// signature. Members keep insertion order.
func (i *Index) Duplicates() []models.DuplicateGroup {
	var groups []models.DuplicateGroup
	for _, sig := range i.Signatures() {
		bucket := i.buckets[sig]
		if len(bucket) < 2 {
			continue
		}
		groups = append(groups, models.DuplicateGroup{
			Signature: sig,
			Records:   append([]models.FileRecord(nil), bucket...),
		})
	}
	return groups
}

// FindDuplicates indexes root and returns its duplicate groups.
func FindDuplicates(ctx context.Context, fsys afero.Fs, root string, opts scanner.Options) ([]models.DuplicateGroup, []models.ReadFailure, error) {
	idx, failures, err := Build(ctx, fsys, root, opts)
	if err != nil {
		return nil, failures, err
	}
	return idx.Duplicates(), failures, nil
}
