package invoice

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aperalta/factura-monday/internal/extraction"
)

// processingFailedMessage is the generic user-facing message attached to a
// record when its extraction fails, matching the UI locale.
const processingFailedMessage = "Fallo al procesar"

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// BatchFile is one accepted file from a user selection, ready to queue.
type BatchFile struct {
	Name        string
	Data        []byte
	ContentType string
	StoredFile  string
}

// job is one queued file awaiting extraction
type job struct {
	index       int
	data        []byte
	contentType string
	fileName    string
	generation  uint64
}

// Processor drives the global extraction queue. Files are processed strictly
// sequentially, one at a time, in submission order: this bounds load on the
// extraction service and keeps status transitions observable in order. A
// second batch submitted mid-flight queues behind the first.
type Processor struct {
	store      *Store
	extractor  extraction.Extractor
	timeSource TimeSource

	mu         sync.Mutex
	queue      []job
	inFlight   bool
	generation uint64

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewProcessor creates a Processor and starts its worker goroutine
func NewProcessor(store *Store, extractor extraction.Extractor) *Processor {
	return NewProcessorWithDeps(store, extractor, &defaultTimeSource{})
}

// NewProcessorWithDeps creates a Processor with a custom time source for testing
func NewProcessorWithDeps(store *Store, extractor extraction.Extractor, timeSource TimeSource) *Processor {
	p := &Processor{
		store:      store,
		extractor:  extractor,
		timeSource: timeSource,
		wake:       make(chan struct{}, 1),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go p.run()
	return p
}

// Enqueue appends one PENDING record per file, preserving file order, and
// queues the files for extraction. It never rejects a submission while busy;
// new work simply lands behind the in-flight batch.
func (p *Processor) Enqueue(files []BatchFile) (int, error) {
	if len(files) == 0 {
		return 0, fmt.Errorf("no files to enqueue")
	}

	today := p.timeSource.Now().Format("2006-01-02")
	records := make([]*Record, 0, len(files))
	for _, f := range files {
		records = append(records, &Record{
			FileName:       f.Name,
			Status:         StatusPending,
			ReceivedDate:   today,
			Classification: ClassificationAlau,
			StoredFile:     f.StoredFile,
			ContentType:    f.ContentType,
		})
	}
	start := p.store.Append(records...)

	p.mu.Lock()
	for i, f := range files {
		p.queue = append(p.queue, job{
			index:       start + i,
			data:        f.Data,
			contentType: f.ContentType,
			fileName:    f.Name,
			generation:  p.generation,
		})
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}

	return start, nil
}

// Busy reports whether any file is queued or in flight. Collaborators use it
// to disable further submission UI; the processor itself keeps queueing.
func (p *Processor) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight || len(p.queue) > 0
}

// Reset discards the queue and invalidates any in-flight extraction. A started
// extraction still runs to completion, but its result is dropped silently
// instead of landing on a stale index.
func (p *Processor) Reset() {
	p.mu.Lock()
	p.generation++
	p.queue = nil
	p.mu.Unlock()
}

// Close stops the worker goroutine and waits for it to exit. An in-flight
// extraction finishes first.
func (p *Processor) Close() error {
	close(p.quit)
	<-p.done
	return nil
}

func (p *Processor) run() {
	defer close(p.done)
	for {
		select {
		case <-p.quit:
			return
		case <-p.wake:
		}

		for {
			p.mu.Lock()
			if len(p.queue) == 0 {
				p.mu.Unlock()
				break
			}
			j := p.queue[0]
			p.queue = p.queue[1:]
			p.inFlight = true
			p.mu.Unlock()

			p.process(j)

			p.mu.Lock()
			p.inFlight = false
			p.mu.Unlock()
		}
	}
}

// process runs one file through extraction and records the outcome. A failure
// is contained to this file; the batch moves on.
func (p *Processor) process(j job) {
	if p.stale(j.generation) {
		return
	}

	if err := p.store.MarkProcessing(j.index); err != nil {
		slog.Warn("Skipping queued file", "file", j.fileName, "error", err)
		return
	}

	data, err := p.extractor.ExtractInvoice(j.data, j.contentType)

	// The session may have been reset while the extraction was running; the
	// resolved result belongs to a discarded record then.
	if p.stale(j.generation) {
		return
	}

	if err != nil {
		slog.Error("Failed to extract invoice",
			"file", j.fileName,
			"content_type", j.contentType,
			"error", err,
		)
		if err := p.store.Fail(j.index, processingFailedMessage); err != nil {
			slog.Warn("Could not record extraction failure", "file", j.fileName, "error", err)
		}
		return
	}

	if err := p.store.Complete(j.index, data); err != nil {
		slog.Warn("Could not record extraction result", "file", j.fileName, "error", err)
	}
}

func (p *Processor) stale(generation uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return generation != p.generation
}
