package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dealmungchi/bestdeal/internal/finder"
	"github.com/dealmungchi/bestdeal/internal/observability"
	"github.com/dealmungchi/bestdeal/logger"
	"github.com/dealmungchi/bestdeal/pkg/errors"
	"github.com/dealmungchi/bestdeal/services/publisher"
	"github.com/dealmungchi/bestdeal/services/requests"
)

// Finder answers one request
type Finder interface {
	Find(ctx context.Context, req finder.Request) *finder.Report
}

// Worker handles the search and publishing process
type Worker struct {
	finder      Finder
	source      requests.Source
	publisher   publisher.Publisher
	concurrency int
	retryDelay  time.Duration
	log         *logger.Logger
}

// NewWorker creates a new worker. concurrency bounds how many requests are
// searched at once.
func NewWorker(f Finder, source requests.Source, pub publisher.Publisher, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		finder:      f,
		source:      source,
		publisher:   pub,
		concurrency: concurrency,
		retryDelay:  time.Second,
		log:         logger.ForWorker(),
	}
}

// Run processes requests until ctx is cancelled and waits for in-flight
// requests before returning.
func (w *Worker) Run(ctx context.Context) {
	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	w.log.Info().Int("concurrency", w.concurrency).Msg("Worker started")
	for ctx.Err() == nil {
		messages, err := w.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			w.log.Error().Err(err).Msg("Failed to read requests")
			w.sleep(ctx)
			continue
		}

		for _, msg := range messages {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				w.log.Info().Msg("Worker stopping")
				return
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				w.handle(ctx, msg)
			}()
		}
	}
	w.log.Info().Msg("Worker stopping")
}

// handle searches one request, publishes its report and acknowledges it.
// A request whose report could not be published stays pending and is
// claimed again when the request source restarts.
func (w *Worker) handle(ctx context.Context, msg requests.Message) {
	log := w.log.WithFields(logger.Fields{
		"request": msg.Request.ID,
		"chat_id": msg.Request.ChatID,
	})

	start := time.Now()
	rep := w.finder.Find(ctx, msg.Request)
	if ctx.Err() != nil {
		log.Warn().Msg("Request interrupted by shutdown")
		return
	}

	if err := w.publish(ctx, rep); err != nil {
		log.WithError(err).Error().Msg("Failed to publish report")
		return
	}

	if err := w.source.Ack(ctx, msg.ID); err != nil {
		log.WithError(err).Error().Msg("Failed to acknowledge request")
	}

	// Trim all streams after publishing
	if err := w.publisher.TrimStreams(ctx); err != nil {
		logger.LogError("StreamTrimming", err, "failed to trim report streams")
	}

	log.Info().
		Str("status", string(rep.Status)).
		Dur("elapsed", time.Since(start)).
		Msg("Request handled")
}

func (w *Worker) publish(ctx context.Context, rep *finder.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return errors.NewPublisher(rep.Source, "failed to encode report", err)
	}
	if err := w.publisher.Publish(ctx, publisher.ReportKey, data); err != nil {
		return err
	}
	observability.ReportsPublished.WithLabelValues(string(rep.Status)).Inc()
	return nil
}

func (w *Worker) sleep(ctx context.Context) {
	timer := time.NewTimer(w.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
