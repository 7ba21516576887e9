package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/kbprep/internal/core/domain"
	"github.com/custodia-labs/kbprep/internal/core/ports/driven"
	"github.com/custodia-labs/kbprep/internal/core/ports/driving"
	"github.com/custodia-labs/kbprep/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineService = (*Pipeline)(nil)

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithInspector enables local preflight before ingestion.
func WithInspector(inspector driven.DocumentInspector) PipelineOption {
	return func(p *Pipeline) {
		p.inspector = inspector
	}
}

// WithProgressSettings overrides the simulated progress cadence.
func WithProgressSettings(settings domain.ProgressSettings) PipelineOption {
	return func(p *Pipeline) {
		p.progress = settings
	}
}

// WithIDGenerator overrides the chunk identifier source.
func WithIDGenerator(newID func() string) PipelineOption {
	return func(p *Pipeline) {
		if newID != nil {
			p.newID = newID
		}
	}
}

// Pipeline owns the chunk collection and drives the
// uploading → reviewing → processing state machine.
//
// All state transitions happen under mu. Network calls and observer
// callbacks never run under mu. Every transition bumps generation; work
// that started under an older generation has its results discarded.
type Pipeline struct {
	ingester  driven.Ingester
	submitter driven.Submitter
	inspector driven.DocumentInspector
	progress  domain.ProgressSettings
	newID     func() string

	mu          sync.Mutex
	phase       domain.Phase
	collection  domain.Collection
	fileName    string
	percent     int
	uploading   bool
	generation  uint64
	sim         *ProgressSimulator
	cancelRun   context.CancelFunc
	closed      bool
	queue       []domain.PipelineEvent
	wake        chan struct{}
	stop        chan struct{}
	dispatched  chan struct{}
	closeOnce   sync.Once
	observerMu  sync.RWMutex
	observers   []observer
	nextObserve int
}

type observer struct {
	id int
	fn func(domain.PipelineEvent)
}

// NewPipeline creates a pipeline in the uploading phase.
func NewPipeline(ingester driven.Ingester, submitter driven.Submitter, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		ingester:   ingester,
		submitter:  submitter,
		progress:   domain.DefaultProgressSettings(),
		newID:      uuid.NewString,
		phase:      domain.PhaseUploading,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		dispatched: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	go p.dispatch()
	return p
}

// Snapshot returns a read-only copy of the current state.
func (p *Pipeline) Snapshot() domain.PipelineSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return domain.PipelineSnapshot{
		Phase:    p.phase,
		FileName: p.fileName,
		Chunks:   p.collection.Chunks(),
		Progress: p.percent,
		Busy:     p.uploading || p.phase == domain.PhaseProcessing,
	}
}

// SelectFiles ingests the first path and ignores the rest.
func (p *Pipeline) SelectFiles(ctx context.Context, paths []string, onProgress func(percent int)) error {
	if len(paths) == 0 {
		return domain.ErrNoFile
	}
	if len(paths) > 1 {
		logger.Warn("%d files selected, only %s will be uploaded", len(paths), filepath.Base(paths[0]))
	}
	return p.Upload(ctx, paths[0], onProgress)
}

// Upload ingests the file at path. On success the pipeline moves to the
// reviewing phase with a fresh collection. On failure it stays in the
// uploading phase and the returned error wraps domain.ErrIngestionFailed.
func (p *Pipeline) Upload(ctx context.Context, path string, onProgress func(percent int)) error {
	if path == "" {
		return domain.ErrNoFile
	}

	p.mu.Lock()
	switch {
	case p.closed:
		p.mu.Unlock()
		return domain.ErrCancelled
	case p.phase != domain.PhaseUploading:
		p.mu.Unlock()
		return fmt.Errorf("upload while %s: %w", p.phase, domain.ErrPhaseLocked)
	case p.uploading:
		p.mu.Unlock()
		return domain.ErrBusy
	}
	p.uploading = true
	p.percent = 0
	gen := p.generation
	p.mu.Unlock()

	logger.Section("Upload")
	logger.Debug("uploading %s", path)

	result, err := p.ingest(ctx, path, gen, onProgress)

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		logger.Debug("discarding upload result for %s: pipeline was reset", path)
		return domain.ErrCancelled
	}
	p.uploading = false

	if err != nil {
		p.percent = 0
		p.enqueueLocked(domain.PipelineEvent{Kind: domain.EventIngestionFailed, Err: err})
		p.mu.Unlock()
		logger.Warn("ingestion failed: %v", err)
		return err
	}

	p.collection = domain.NewCollection(result.chunks, p.newID)
	p.fileName = result.name
	p.transitionLocked(domain.PhaseReviewing)
	count := p.collection.Len()
	p.mu.Unlock()

	logger.Info("ingested %s: %d chunks", result.name, count)
	return nil
}

type ingestion struct {
	name   string
	chunks []domain.RawChunk
}

// ingest runs preflight and the remote call. It does not touch pipeline
// state except through the generation-checked progress callback.
func (p *Pipeline) ingest(
	ctx context.Context,
	path string,
	gen uint64,
	onProgress func(percent int),
) (*ingestion, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIngestionFailed, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrIngestionFailed, path)
	}

	file := domain.SourceFile{
		Path: path,
		Name: filepath.Base(path),
		Size: info.Size(),
	}

	if p.inspector != nil {
		pdfInfo, err := p.inspector.Inspect(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIngestionFailed, err)
		}
		logger.Debug("preflight ok: %d pages, encrypted=%t", pdfInfo.PageCount, pdfInfo.Encrypted)
	}

	progress := func(percent int) {
		p.mu.Lock()
		if gen != p.generation || !p.uploading {
			p.mu.Unlock()
			return
		}
		p.percent = percent
		p.enqueueLocked(domain.PipelineEvent{Kind: domain.EventUploadProgress, Progress: percent})
		p.mu.Unlock()

		if onProgress != nil {
			onProgress(percent)
		}
	}

	result, err := p.ingester.Ingest(ctx, file, progress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIngestionFailed, err)
	}
	if result == nil || !result.OK {
		return nil, fmt.Errorf("%w: service did not accept %s", domain.ErrIngestionFailed, file.Name)
	}

	return &ingestion{name: file.Name, chunks: result.Chunks}, nil
}

// UpdateChunk replaces the content of the chunk with id.
// Unknown ids are ignored. Only allowed while reviewing.
func (p *Pipeline) UpdateChunk(id, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.phase.AllowsEdits() {
		return fmt.Errorf("update while %s: %w", p.phase, domain.ErrPhaseLocked)
	}
	if !p.collection.Contains(id) {
		logger.Debug("update ignored: no chunk %s", id)
		return nil
	}

	p.collection = p.collection.Update(id, content)
	p.enqueueLocked(domain.PipelineEvent{Kind: domain.EventChunkUpdated, ChunkID: id})
	return nil
}

// DeleteChunk removes the chunk with id.
// Unknown ids are ignored. Only allowed while reviewing.
func (p *Pipeline) DeleteChunk(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.phase.AllowsEdits() {
		return fmt.Errorf("delete while %s: %w", p.phase, domain.ErrPhaseLocked)
	}
	if !p.collection.Contains(id) {
		logger.Debug("delete ignored: no chunk %s", id)
		return nil
	}

	p.collection = p.collection.Delete(id)
	p.enqueueLocked(domain.PipelineEvent{Kind: domain.EventChunkDeleted, ChunkID: id})
	return nil
}

// StartProcessing moves to the processing phase, submits a snapshot of the
// collection and runs simulated progress alongside it.
//
// The returned channel receives exactly one value and is then closed:
// nil once submission succeeded and simulated progress completed, an error
// wrapping domain.ErrSubmissionFailed if submission failed, or
// domain.ErrCancelled if the run was superseded by Reset or Close.
func (p *Pipeline) StartProcessing(ctx context.Context) (<-chan error, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, domain.ErrCancelled
	}
	if p.phase != domain.PhaseReviewing {
		phase := p.phase
		p.mu.Unlock()
		return nil, fmt.Errorf("process while %s: %w", phase, domain.ErrPhaseLocked)
	}

	snapshot := p.collection.TransportForm()

	// The run outlives the caller's request; only Reset and Close end it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.transitionLocked(domain.PhaseProcessing)
	gen := p.generation

	sim := NewProgressSimulator(p.progress, func(percent int) {
		p.onSimulatedProgress(gen, percent)
	})
	p.sim = sim
	p.cancelRun = cancel
	p.mu.Unlock()

	logger.Section("Processing")
	logger.Debug("submitting %d chunks", len(snapshot))

	outcome := make(chan error, 1)
	sim.Start(runCtx)
	go p.process(runCtx, gen, snapshot, sim, outcome)

	return outcome, nil
}

// process joins the real submission and the simulated progress.
func (p *Pipeline) process(
	ctx context.Context,
	gen uint64,
	snapshot []domain.TransportChunk,
	sim *ProgressSimulator,
	outcome chan<- error,
) {
	defer close(outcome)

	if err := p.submitter.Submit(ctx, snapshot); err != nil {
		sim.Stop()
		outcome <- p.failProcessing(gen, err)
		return
	}

	sim.Finish()
	<-sim.Done()
	if sim.Err() != nil {
		outcome <- domain.ErrCancelled
		return
	}

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		outcome <- domain.ErrCancelled
		return
	}
	p.enqueueLocked(domain.PipelineEvent{Kind: domain.EventProcessingComplete, Progress: 100})
	p.clearLocked()
	p.mu.Unlock()

	logger.Info("embedding generation complete")
	outcome <- nil
}

// failProcessing returns to the reviewing phase with the collection intact.
func (p *Pipeline) failProcessing(gen uint64, cause error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		return domain.ErrCancelled
	}

	err := fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, cause)
	p.detachRunLocked()
	p.transitionLocked(domain.PhaseReviewing)
	p.enqueueLocked(domain.PipelineEvent{Kind: domain.EventSubmissionFailed, Err: err})
	logger.Warn("submission failed: %v", cause)
	return err
}

func (p *Pipeline) onSimulatedProgress(gen uint64, percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		return
	}
	p.percent = percent
	p.enqueueLocked(domain.PipelineEvent{Kind: domain.EventProcessingProgress, Progress: percent})
}

// Reset discards the collection and returns to the uploading phase.
// Allowed from any phase. An in-flight submission is cancelled and its
// result discarded.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	sim, cancel := p.sim, p.cancelRun
	p.clearLocked()
	p.mu.Unlock()

	p.teardown(sim, cancel)
	logger.Debug("pipeline reset")
}

// clearLocked empties the collection and moves to uploading.
func (p *Pipeline) clearLocked() {
	p.detachRunLocked()
	p.collection = domain.Collection{}
	p.fileName = ""
	p.uploading = false
	p.transitionLocked(domain.PhaseUploading)
}

// detachRunLocked forgets the current processing run without stopping it.
// Callers stop it after releasing mu.
func (p *Pipeline) detachRunLocked() {
	p.sim = nil
	p.cancelRun = nil
}

// transitionLocked switches phase and invalidates in-flight work.
func (p *Pipeline) transitionLocked(phase domain.Phase) {
	p.phase = phase
	p.percent = 0
	p.generation++
	p.enqueueLocked(domain.PipelineEvent{Kind: domain.EventPhaseChanged})
}

func (p *Pipeline) teardown(sim *ProgressSimulator, cancel context.CancelFunc) {
	if cancel != nil {
		cancel()
	}
	if sim != nil {
		sim.Stop()
	}
}

// Subscribe registers fn to receive every event in publication order.
// Observers run on a single dispatch goroutine and may call back into
// the pipeline.
func (p *Pipeline) Subscribe(fn func(domain.PipelineEvent)) func() {
	p.observerMu.Lock()
	defer p.observerMu.Unlock()

	p.nextObserve++
	id := p.nextObserve
	p.observers = append(p.observers, observer{id: id, fn: fn})

	return func() {
		p.observerMu.Lock()
		defer p.observerMu.Unlock()
		for i, o := range p.observers {
			if o.id == id {
				p.observers = append(p.observers[:i], p.observers[i+1:]...)
				return
			}
		}
	}
}

// Close cancels in-flight work, stops the simulator and the dispatcher.
// Queued events are delivered before Close returns.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.generation++
		sim, cancel := p.sim, p.cancelRun
		p.detachRunLocked()
		p.mu.Unlock()

		p.teardown(sim, cancel)
		close(p.stop)
		<-p.dispatched
	})
}

// enqueueLocked stamps ev with the current state and queues it.
func (p *Pipeline) enqueueLocked(ev domain.PipelineEvent) {
	ev.Phase = p.phase
	ev.FileName = p.fileName
	ev.ChunkCount = p.collection.Len()
	p.queue = append(p.queue, ev)

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pipeline) dispatch() {
	defer close(p.dispatched)

	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.stop:
			p.drain()
			return
		}
	}
}

func (p *Pipeline) drain() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		ev := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.observerMu.RLock()
		observers := make([]observer, len(p.observers))
		copy(observers, p.observers)
		p.observerMu.RUnlock()

		for _, o := range observers {
			o.fn(ev)
		}
	}
}
