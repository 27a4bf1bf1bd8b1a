package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"mcp-gateway/internal/canonical"
	"mcp-gateway/internal/domain/entity"
	"mcp-gateway/internal/domain/repository"
	"mcp-gateway/internal/logging"
)

// Recorder accepts completed interactions for best-effort persistence.
type Recorder interface {
	Record(ctx context.Context, userID, message, response string, fetched entity.Context) bool
}

// InteractionRecorder persists interactions in the background. Record never
// blocks: a full queue drops the interaction. Store failures are logged and
// not retried.
type InteractionRecorder struct {
	store       repository.InteractionStore
	queue       chan *entity.Interaction
	saveTimeout time.Duration
	wg          sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	saved   atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// RecorderStats counts outcomes since start.
type RecorderStats struct {
	Saved   int64 `json:"saved"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
	Queued  int   `json:"queued"`
}

func NewInteractionRecorder(store repository.InteractionStore, workers, queueSize int, saveTimeout time.Duration) *InteractionRecorder {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	r := &InteractionRecorder{
		store:       store,
		queue:       make(chan *entity.Interaction, queueSize),
		saveTimeout: saveTimeout,
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Record snapshots the interaction and hands it to the workers. It returns
// false when the interaction was not queued.
func (r *InteractionRecorder) Record(ctx context.Context, userID, message, response string, fetched entity.Context) bool {
	logger := logging.From(ctx)

	snapshot, err := canonical.JSON(fetched)
	if err != nil {
		r.failed.Add(1)
		logger.Error("failed to serialize interaction context", "error", err, "user_id", userID)
		return false
	}

	interaction := &entity.Interaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Response:  response,
		Context:   string(snapshot),
		Timestamp: time.Now().UTC(),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		logger.Warn("recorder closed, dropping interaction", "user_id", userID)
		return false
	}

	select {
	case r.queue <- interaction:
		return true
	default:
		r.dropped.Add(1)
		logger.Warn("persistence queue full, dropping interaction", "user_id", userID, "id", interaction.ID)
		return false
	}
}

func (r *InteractionRecorder) Stats() RecorderStats {
	return RecorderStats{
		Saved:   r.saved.Load(),
		Failed:  r.failed.Load(),
		Dropped: r.dropped.Load(),
		Queued:  len(r.queue),
	}
}

// Close stops accepting interactions and waits until queued ones are written
// or ctx is done.
func (r *InteractionRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "recorder drain interrupted", goerr.V("queued", len(r.queue)))
	}
}

func (r *InteractionRecorder) worker() {
	defer r.wg.Done()
	for interaction := range r.queue {
		r.save(interaction)
	}
}

func (r *InteractionRecorder) save(interaction *entity.Interaction) {
	logger := logging.Default()
	defer func() {
		if rec := recover(); rec != nil {
			r.failed.Add(1)
			logger.Error("panic while storing interaction", "panic", fmt.Sprint(rec), "id", interaction.ID)
		}
	}()

	// The request context is gone by now.
	ctx := context.Background()
	if r.saveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.saveTimeout)
		defer cancel()
	}

	if err := r.store.SaveInteraction(ctx, interaction); err != nil {
		r.failed.Add(1)
		logger.Error("error storing interaction", "error", err, "id", interaction.ID, "user_id", interaction.UserID)
		return
	}
	r.saved.Add(1)
	logger.Debug("interaction stored", "id", interaction.ID, "user_id", interaction.UserID)
}
