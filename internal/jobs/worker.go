package jobs

import (
	"context"
	"log"
	"time"
)

// Processor drains whatever work is currently pending. Implementations
// must be safe to call again after returning an error.
type Processor interface {
	ProcessPending(ctx context.Context) error
}

// Worker polls a Processor on a fixed interval until stopped. Documents
// uploaded between ticks wait at most one poll interval before ingestion
// begins.
type Worker struct {
	processor    Processor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(processor Processor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop. It blocks until the context is cancelled
// or Stop is called, so callers run it in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("Ingestion worker started with poll interval: %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Ingestion worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("Ingestion worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.processor.ProcessPending(ctx); err != nil {
				log.Printf("Error processing pending documents: %v", err)
			}
		}
	}
}

// Stop signals the loop to exit and waits for the in-flight tick to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("Ingestion worker shutdown complete")
}
