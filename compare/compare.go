package compare

import (
	"context"

	"github.com/nrtkbb/fsrecon/index"
	"github.com/nrtkbb/fsrecon/logging"
	"github.com/nrtkbb/fsrecon/models"
	"github.com/nrtkbb/fsrecon/scanner"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Comparator classifies the files of an incoming tree against a canonical
// tree by content signature.
//
// Membership is decided by signature alone; sizes are not re-checked. Two
// files with different bytes are assumed never to share a SHA-256 digest.
type Comparator struct {
	FS      afero.Fs
	Options scanner.Options
}

func New(fsys afero.Fs, opts scanner.Options) *Comparator {
	return &Comparator{FS: fsys, Options: opts}
}

// Compare indexes canonicalRoot, then walks incomingRoot once, sorting each
// incoming file into Present or New. The canonical index is returned so the
// caller can migrate against it without walking canonical again.
func (c *Comparator) Compare(ctx context.Context, canonicalRoot, incomingRoot string) (*models.Comparison, *index.Index, error) {
	tracer := otel.Tracer("fsrecon/compare")
	ctx, span := tracer.Start(ctx, "Compare")
	defer span.End()

	logger := logging.GetLogger("compare")

	canonical, failures, err := index.Build(ctx, c.FS, canonicalRoot, c.Options)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	result := &models.Comparison{
		Present:             []models.Match{},
		New:                 []models.FileRecord{},
		CanonicalDuplicates: canonical.Duplicates(),
		ReadFailures:        failures,
	}
	for _, group := range result.CanonicalDuplicates {
		logger.Info().
			Str("signature", string(group.Signature)).
			Strs("paths", group.Paths()).
			Msg("Canonical tree holds duplicate content")
	}

	incomingFailures, err := scanner.Walk(ctx, c.FS, incomingRoot, c.Options, func(r models.FileRecord) error {
		if rep, ok := canonical.Representative(r.Signature); ok {
			result.Present = append(result.Present, models.Match{Incoming: r, Canonical: rep})
		} else {
			result.New = append(result.New, r)
		}
		return nil
	})
	result.ReadFailures = append(result.ReadFailures, incomingFailures...)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	span.SetAttributes(
		attribute.Int("present", len(result.Present)),
		attribute.Int("new", len(result.New)),
		attribute.Int("canonical_duplicates", len(result.CanonicalDuplicates)),
		attribute.Int("read_failures", len(result.ReadFailures)),
	)
	logger.Info().
		Int("present", len(result.Present)).
		Int("new", len(result.New)).
		Int("skipped", len(result.ReadFailures)).
		Msg("Comparison finished")

	return result, canonical, nil
}
