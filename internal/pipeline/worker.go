package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docsite/internal/classify"
	"github.com/dgallion1/docsite/internal/parser"
	"github.com/dgallion1/docsite/internal/site"
	"github.com/dgallion1/docsite/internal/sitestore"
)

// SiteStore is the persistence the worker needs.
type SiteStore interface {
	FindByHash(ctx context.Context, hash string) (string, bool, error)
	Put(ctx context.Context, s *sitestore.Site) error
}

// Worker processes a single conversion job.
type Worker struct {
	store SiteStore
	stats *ConversionStats
	log   *slog.Logger
	opts  parser.Options
}

func NewWorker(store SiteStore, stats *ConversionStats, log *slog.Logger, opts parser.Options) *Worker {
	return &Worker{store: store, stats: stats, log: log, opts: opts}
}

// Process runs decode, dedup, classification and storage for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	data := job.FileData()
	// Release the upload once processing ends.
	defer job.SetFileData(nil)

	run := &conversionRun{
		conv:  Conversion{Format: "unknown", Phases: make(map[Phase]time.Duration, len(phases))},
		start: time.Now(),
	}
	defer func() {
		if w.stats != nil {
			w.stats.Record(run.conv, run.failedIn)
		}
	}()

	// Phase 1: Decode
	job.SetStatus(StatusDecoding, "decoding")
	p, err := parser.Detect(job.Filename, data, w.opts)
	if err != nil {
		w.fail(log, job, run, PhaseDecode, err)
		return
	}
	run.conv.Format = parser.FormatName(p)
	s, err := p.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		w.fail(log, job, run, PhaseDecode, fmt.Errorf("decode %s: %w", run.conv.Format, err))
		return
	}
	job.SetParagraphs(len(s.Paragraphs))
	job.SetContentHash(ContentHashHex([]byte(s.CanonicalText())))
	run.mark(PhaseDecode)
	log.Info("decoded document", "format", run.conv.Format, "paragraphs", len(s.Paragraphs), "images", len(s.Images))

	// Phase 1.5: Dedup check
	if !job.Force {
		existing, found, err := w.findDuplicate(ctx, log, job)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if found {
			log.Info("duplicate document, skipping", "existing_site_id", existing)
			job.SetSiteID(existing)
			job.SetStatus(StatusDupSkipped, "dedup")
			run.conv.Outcome = StatusDupSkipped
			return
		}
	}

	// Phase 2: Classify and assemble
	job.SetStatus(StatusClassifying, "classifying")
	run.restart()
	model, err := site.Build(s)
	if err != nil {
		if errors.Is(err, classify.ErrEmptyStream) {
			err = fmt.Errorf("document has no content: %w", err)
		}
		w.fail(log, job, run, PhaseClassify, err)
		return
	}
	items := 0
	for _, sec := range model.Sections {
		items += len(sec.Items)
	}
	job.SetModelCounts(len(model.Sections), items)
	run.mark(PhaseClassify)

	// Phase 3: Store
	job.SetStatus(StatusStoring, "storing")
	run.restart()
	rec := &sitestore.Site{
		ID:          NewID(),
		ContentHash: job.Snapshot().ContentHash,
		Filename:    job.Filename,
		CreatedAt:   time.Now(),
		Model:       model,
	}
	if err := withRetry(ctx, log, "store site", func() error {
		return w.store.Put(ctx, rec)
	}); err != nil {
		w.fail(log, job, run, PhaseStore, fmt.Errorf("store site: %w", err))
		return
	}
	job.SetSiteID(rec.ID)
	run.mark(PhaseStore)
	run.conv.Outcome = StatusCompleted

	log.Info("conversion complete",
		"site_id", rec.ID,
		"sections", len(model.Sections),
		"items", items,
		"duration_ms", run.conv.Total().Milliseconds(),
	)
	job.SetStatus(StatusCompleted, "done")
}

// conversionRun times the phases of one Process call.
type conversionRun struct {
	conv     Conversion
	start    time.Time
	failedIn Phase
}

func (r *conversionRun) mark(p Phase) { r.conv.Phases[p] = time.Since(r.start) }

// restart begins timing the next phase; the dedup lookup is not counted.
func (r *conversionRun) restart() { r.start = time.Now() }

func (w *Worker) findDuplicate(ctx context.Context, log *slog.Logger, job *Job) (string, bool, error) {
	var (
		id    string
		found bool
	)
	hash := job.Snapshot().ContentHash
	err := withRetry(ctx, log, "find by hash", func() error {
		var err error
		id, found, err = w.store.FindByHash(ctx, hash)
		return err
	})
	return id, found, err
}

func (w *Worker) fail(log *slog.Logger, job *Job, run *conversionRun, phase Phase, err error) {
	run.mark(phase)
	run.conv.Outcome, run.failedIn = StatusFailed, phase
	log.Error("conversion failed", "phase", phase, "format", run.conv.Format, "error", err)
	job.AddError(err.Error())
	job.SetStatus(StatusFailed, failedPhase[phase])
}

// failedPhase maps a timed phase to the job phase label it fails in.
var failedPhase = map[Phase]string{
	PhaseDecode:   "decoding",
	PhaseClassify: "classifying",
	PhaseStore:    "storing",
}
