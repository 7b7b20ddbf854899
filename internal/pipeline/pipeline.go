package pipeline

import (
	"context"
	"encoding/json"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/TimBim12345/SME/internal/export"
	"github.com/TimBim12345/SME/internal/generator"
	"github.com/TimBim12345/SME/internal/models"
	"github.com/TimBim12345/SME/internal/publish"
	"github.com/TimBim12345/SME/internal/reference"
	"github.com/TimBim12345/SME/internal/sampling"
	"github.com/TimBim12345/SME/internal/statistics"
)

// DefaultOutputFile is the dataset file name the visualization loads
const DefaultOutputFile = "companies.json"

// Options contains configuration options for the pipeline
type Options struct {
	ReferenceDir string
	OutputPath   string
	// CSVPath and XLSXPath are optional extra outputs
	CSVPath   string
	XLSXPath  string
	Generator generator.Config
	// StoreTimeout bounds the persistence step
	StoreTimeout time.Duration
}

// DefaultOptions returns the default pipeline options
func DefaultOptions() Options {
	return Options{
		ReferenceDir: "data",
		OutputPath:   filepath.Join("data", DefaultOutputFile),
		Generator:    generator.DefaultConfig(),
		StoreTimeout: 2 * time.Minute,
	}
}

// Store persists runs. *db.Database implements it.
type Store interface {
	InsertRun(ctx context.Context, run *models.GenerationRun) error
	InsertGroups(ctx context.Context, runID string, groups []models.CompanyGroup) error
	InsertStatistics(ctx context.Context, runID string, statsJSON []byte) error
	UpdateRunStatus(ctx context.Context, runID string, status models.RunStatus, totalCompanies int64) error
}

// Notifier announces completed runs. *publish.Publisher implements it.
type Notifier interface {
	PublishRun(ctx context.Context, summary publish.RunSummary) error
}

// Pipeline runs load -> generate -> aggregate -> write -> persist -> publish
type Pipeline struct {
	options    Options
	loader     *reference.Loader
	aggregator *statistics.Aggregator
	store      Store
	notifier   Notifier
	progress   generator.ProgressFunc
	mu         sync.Mutex
}

// NewPipeline creates a pipeline. store and notifier may be nil.
func NewPipeline(options Options, store Store, notifier Notifier) *Pipeline {
	return &Pipeline{
		options:    options,
		loader:     reference.NewLoader(nil),
		aggregator: statistics.NewAggregator(nil, 0),
		store:      store,
		notifier:   notifier,
		progress:   generator.LogProgress,
	}
}

// WithProgress replaces the generator progress callback
func (p *Pipeline) WithProgress(fn generator.ProgressFunc) *Pipeline {
	p.progress = fn
	return p
}

// Options returns the pipeline configuration
func (p *Pipeline) Options() Options {
	return p.options
}

// Run executes one generation. Runs are serialized. Outputs are staged
// first and only moved into place once every step, including
// persistence, has succeeded.
func (p *Pipeline) Run(ctx context.Context) (*models.Dataset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	cfg := p.options.Generator
	rng, seed := sampling.NewSource(cfg.Seed)
	cfg.Seed = seed

	run := &models.GenerationRun{
		ID:           uuid.New().String(),
		CreatedAt:    start.UTC(),
		Status:       models.RunProcessing,
		TargetGroups: cfg.TargetGroups,
		Seed:         seed,
	}
	log.Printf("Starting run %s: %d groups, %d companies, seed %d",
		run.ID, cfg.TargetGroups, cfg.TotalCompanies, seed)

	if p.store != nil {
		if err := p.store.InsertRun(ctx, run); err != nil {
			return nil, errors.Wrap(err, "failed to record run")
		}
	}

	dataset, err := p.build(ctx, run, rng, cfg)
	if err != nil {
		p.markFailed(run.ID)
		return nil, err
	}

	staged, err := p.stageOutputs(dataset)
	if err != nil {
		p.markFailed(run.ID)
		return nil, err
	}

	if p.store != nil {
		if err := p.persist(ctx, run.ID, dataset); err != nil {
			discard(staged)
			p.markFailed(run.ID)
			return nil, err
		}
	}

	if err := commit(staged); err != nil {
		p.markFailed(run.ID)
		return nil, err
	}

	elapsed := time.Since(start)
	log.Printf("Run %s completed in %s: %d groups, %d companies",
		run.ID, elapsed.Round(time.Millisecond), dataset.Metadata.TotalGroups, dataset.Metadata.TotalCompanies)

	if p.notifier != nil {
		if err := p.notifier.PublishRun(ctx, publish.NewRunSummary(dataset, elapsed)); err != nil {
			// Non-critical
			log.Printf("Warning: failed to publish run %s: %v", run.ID, err)
		}
	}

	return dataset, nil
}

func (p *Pipeline) build(ctx context.Context, run *models.GenerationRun, rng sampling.Source, cfg generator.Config) (*models.Dataset, error) {
	ref, err := p.loader.LoadAll(p.options.ReferenceDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load reference data")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups, err := generator.NewGenerator(rng, ref, cfg).WithProgress(p.progress).Generate()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate groups")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats, err := p.aggregator.Compute(groups)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute statistics")
	}

	return &models.Dataset{
		Metadata: models.DatasetMetadata{
			GeneratedAt:    run.CreatedAt.Format("2006-01-02"),
			TotalCompanies: stats.TotalCompanies,
			TotalGroups:    len(groups),
			Description:    models.DatasetDescription,
			RunID:          run.ID,
			Seed:           cfg.Seed,
		},
		RevenueCategories: models.DefaultRevenueCategories(),
		Companies:         groups,
		Statistics:        stats,
		Reference:         ref,
	}, nil
}

// LoadLatest reads the dataset last written to OutputPath along with the
// reference data in ReferenceDir
func (p *Pipeline) LoadLatest() (*models.Dataset, error) {
	d, err := export.ReadDataset(p.options.OutputPath)
	if err != nil {
		return nil, err
	}
	ref, err := p.loader.LoadAll(p.options.ReferenceDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load reference data")
	}
	d.Reference = ref
	return d, nil
}

// stageOutputs writes every output next to its destination. Nothing is
// replaced until commit.
func (p *Pipeline) stageOutputs(d *models.Dataset) ([]*export.Staged, error) {
	var staged []*export.Staged

	s, err := export.StageDataset(p.options.OutputPath, d)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write dataset")
	}
	staged = append(staged, s)

	if p.options.CSVPath != "" {
		s, err := export.StageCSVFile(p.options.CSVPath, d.Companies)
		if err != nil {
			discard(staged)
			return nil, errors.Wrap(err, "failed to write csv export")
		}
		staged = append(staged, s)
	}

	if p.options.XLSXPath != "" {
		s, err := export.StageStatisticsWorkbook(p.options.XLSXPath, d)
		if err != nil {
			discard(staged)
			return nil, errors.Wrap(err, "failed to write statistics workbook")
		}
		staged = append(staged, s)
	}
	return staged, nil
}

func commit(staged []*export.Staged) error {
	for i, s := range staged {
		if err := s.Commit(); err != nil {
			discard(staged[i+1:])
			return err
		}
		log.Printf("Output written to %s", s.Path())
	}
	return nil
}

func discard(staged []*export.Staged) {
	for _, s := range staged {
		s.Discard()
	}
}

func (p *Pipeline) persist(ctx context.Context, runID string, d *models.Dataset) error {
	if p.options.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.options.StoreTimeout)
		defer cancel()
	}

	if err := p.store.InsertGroups(ctx, runID, d.Companies); err != nil {
		return errors.Wrap(err, "failed to store groups")
	}
	statsJSON, err := json.Marshal(d.Statistics)
	if err != nil {
		return errors.Wrap(err, "failed to encode statistics")
	}
	if err := p.store.InsertStatistics(ctx, runID, statsJSON); err != nil {
		return errors.Wrap(err, "failed to store statistics")
	}
	if err := p.store.UpdateRunStatus(ctx, runID, models.RunCompleted, d.Metadata.TotalCompanies); err != nil {
		return errors.Wrap(err, "failed to complete run")
	}
	return nil
}

func (p *Pipeline) markFailed(runID string) {
	if p.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.store.UpdateRunStatus(ctx, runID, models.RunFailed, 0); err != nil {
		log.Printf("Error marking run %s failed: %v", runID, err)
	}
}
