// Package categories totals file sizes by extension group.
package categories

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/nrtkbb/fsrecon/config"
	"github.com/nrtkbb/fsrecon/logging"
	"github.com/nrtkbb/fsrecon/models"
	"github.com/nrtkbb/fsrecon/scanner"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Fallback receives every file whose extension no category claims.
const Fallback = "other"

// Table maps extensions to category names. The first category listing an
// extension wins.
type Table struct {
	names []string
	byExt map[string]string
}

func NewTable(cats []config.Category) *Table {
	t := &Table{byExt: make(map[string]string)}
	for _, c := range cats {
		if c.Name == Fallback || lo.Contains(t.names, c.Name) {
			continue
		}
		t.names = append(t.names, c.Name)
		for _, ext := range c.Extensions {
			ext = strings.ToLower(strings.TrimPrefix(ext, "."))
			if _, taken := t.byExt[ext]; !taken {
				t.byExt[ext] = c.Name
			}
		}
	}
	return t
}

// Names returns the category names in table order, fallback last.
func (t *Table) Names() []string {
	return append(append([]string{}, t.names...), Fallback)
}

// Classify returns the category for a file name. The extension is whatever
// follows the last dot, lowercased; a name without a dot is its own
// extension.
func (t *Table) Classify(name string) string {
	if cat, ok := t.byExt[extension(name)]; ok {
		return cat
	}
	return Fallback
}

func extension(name string) string {
	name = filepath.Base(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

// Sum walks root and totals file counts and sizes per category. Every
// category of the table appears in the result, in table order, even when
// empty.
func Sum(ctx context.Context, fsys afero.Fs, root string, table *Table) ([]models.CategoryTotal, []models.ReadFailure, error) {
	ctx, span := otel.Tracer("fsrecon/categories").Start(ctx, "Sum")
	defer span.End()

	logger := logging.GetLogger("categories")
	defer logging.LogOperationStart(logger, "sum")()

	names := table.Names()
	totals := make(map[string]*models.CategoryTotal, len(names))
	for _, n := range names {
		totals[n] = &models.CategoryTotal{Name: n}
	}

	opts := scanner.DefaultOptions()
	opts.SkipHash = true
	failures, err := scanner.Walk(ctx, fsys, root, opts, func(rec models.FileRecord) error {
		t := totals[table.Classify(rec.Name)]
		t.Files++
		t.Bytes += rec.Size
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, failures, err
	}

	result := lo.Map(names, func(n string, _ int) models.CategoryTotal { return *totals[n] })
	for _, t := range result {
		logger.Info().
			Str("category", t.Name).
			Int64("files", t.Files).
			Str("size", units.HumanSize(float64(t.Bytes))).
			Msg("Category total")
	}
	span.SetAttributes(attribute.Int("read_failures", len(failures)))
	return result, failures, nil
}
