package echo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// ErrWorkerClosed is returned when submitting to a closed Worker
var ErrWorkerClosed = errors.New("echo worker closed")

// DefaultQueueSize is the submission queue length used when none is configured
const DefaultQueueSize = 16

// Outcome is what a Worker delivers for one submission
type Outcome struct {
	Result  *EchoDetectionResult
	Elapsed time.Duration
}

// Executor runs completion callbacks off the worker goroutine
type Executor func(func())

// Worker runs detections on one background goroutine so that callers on a
// real-time audio thread never block on FFT work. Jobs run in submission order.
// Once a job is queued it always runs; callers cancel by ignoring the outcome.
type Worker struct {
	detector  *Detector
	metrics   *Metrics
	executor  Executor
	queueSize int
	logger    logging.Logger

	jobs chan job
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

type job struct {
	ctx       context.Context
	primary   []float32
	secondary []float32
	deliver   func(Outcome)
}

// WorkerOption customizes a Worker
type WorkerOption func(*Worker)

// WithQueueSize bounds how many submissions may wait before Submit blocks
func WithQueueSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

// WithExecutor sets where SubmitFunc callbacks run. The default starts a goroutine per callback.
func WithExecutor(e Executor) WorkerOption {
	return func(w *Worker) {
		if e != nil {
			w.executor = e
		}
	}
}

// WithMetrics records detection metrics
func WithMetrics(m *Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

const workerComponent = "echo_worker"

// WithWorkerLogger sets the worker logger. Entries keep the worker's
// component field.
func WithWorkerLogger(logger logging.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger.WithFields(logging.Fields{"component": workerComponent})
		}
	}
}

// NewWorker starts a worker for detector
func NewWorker(detector *Detector, opts ...WorkerOption) *Worker {
	w := &Worker{
		detector:  detector,
		queueSize: DefaultQueueSize,
		executor:  func(f func()) { go f() },
		logger: logging.WithFields(logging.Fields{
			"component": workerComponent,
		}),
		done: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.jobs = make(chan job, w.queueSize)
	go w.loop()

	w.logger.Debug("Echo worker started", logging.Fields{
		"queue_size": w.queueSize,
	})

	return w
}

// Submit queues a detection and returns a channel that receives exactly one
// Outcome and is then closed. ctx only bounds the wait for queue space.
func (w *Worker) Submit(ctx context.Context, primary, secondary []float32) (<-chan Outcome, error) {
	ch := make(chan Outcome, 1)
	err := w.enqueue(ctx, job{
		primary:   primary,
		secondary: secondary,
		deliver: func(o Outcome) {
			ch <- o
			close(ch)
		},
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// SubmitFunc queues a detection and calls fn with the outcome on the worker's executor
func (w *Worker) SubmitFunc(ctx context.Context, primary, secondary []float32, fn func(Outcome)) error {
	return w.enqueue(ctx, job{
		primary:   primary,
		secondary: secondary,
		deliver: func(o Outcome) {
			w.executor(func() { fn(o) })
		},
	})
}

// Close stops accepting work, finishes every queued job and waits for the
// worker goroutine to exit. It is safe to call more than once.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()

	<-w.done
}

func (w *Worker) enqueue(ctx context.Context, j job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrWorkerClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	j.ctx = context.WithoutCancel(ctx)
	w.metrics.queueDelta(ctx, 1)

	select {
	case w.jobs <- j:
		return nil
	case <-ctx.Done():
		w.metrics.queueDelta(j.ctx, -1)
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		start := time.Now()
		result := w.detector.Detect(j.primary, j.secondary)
		elapsed := time.Since(start)

		w.metrics.queueDelta(j.ctx, -1)
		w.metrics.RecordDetection(j.ctx, result.Verdict(), elapsed)

		j.deliver(Outcome{Result: result, Elapsed: elapsed})
	}

	w.logger.Debug("Echo worker stopped")
}
