// Package snapshot serves on-demand still images from NVR channels through
// a one-shot capture process, with a short TTL cache to absorb the bursts
// of snapshot requests home-automation apps produce when a view opens.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/hikbridge/internal/events"
	"github.com/smazurov/hikbridge/internal/ffmpeg"
	"github.com/smazurov/hikbridge/internal/logging"
	"github.com/smazurov/hikbridge/internal/metrics"
	"github.com/smazurov/hikbridge/internal/process"
)

const (
	// cacheTTL is how long a captured image stays fresh.
	cacheTTL = 3 * time.Second
	// captureTimeout bounds one capture before the process is killed.
	captureTimeout = 10 * time.Second
)

// ErrEmptyCapture reports a capture that exited cleanly but produced no
// image data.
var ErrEmptyCapture = errors.New("snapshot capture produced no data")

// ProcessError reports a capture process that exited with a failure code.
type ProcessError struct {
	ExitCode int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("snapshot process exited with code %d", e.ExitCode)
}

// SourceFunc builds the capture input arguments for a channel.
type SourceFunc func(channelID int) []string

type cacheEntry struct {
	data     []byte
	captured time.Time
}

// Fetcher captures and caches channel snapshots.
type Fetcher struct {
	ffmpegPath string
	source     SourceFunc
	bus        *events.Bus
	logger     *slog.Logger

	ttl     time.Duration
	timeout time.Duration
	spawn   func(process.Options) (*process.Handle, error)

	mu    sync.Mutex
	cache map[int]cacheEntry
}

// NewFetcher creates a snapshot fetcher.
func NewFetcher(ffmpegPath string, source SourceFunc, bus *events.Bus) *Fetcher {
	return &Fetcher{
		ffmpegPath: ffmpegPath,
		source:     source,
		bus:        bus,
		logger:     logging.GetLogger("snapshot"),
		ttl:        cacheTTL,
		timeout:    captureTimeout,
		spawn:      process.Spawn,
		cache:      make(map[int]cacheEntry),
	}
}

// SetSpawner replaces the capture process spawner. Test hook.
func (f *Fetcher) SetSpawner(spawn func(process.Options) (*process.Handle, error)) {
	f.spawn = spawn
}

// Snapshot returns a JPEG for the channel, serving from cache within the
// TTL. Width and height hint the capture scale; they do not key the cache.
func (f *Fetcher) Snapshot(ctx context.Context, channelID, width, height int) ([]byte, error) {
	f.mu.Lock()
	entry, ok := f.cache[channelID]
	f.mu.Unlock()

	if ok && time.Since(entry.captured) < f.ttl {
		metrics.CountSnapshot("cached")
		f.publish(channelID, len(entry.data), true)
		return entry.data, nil
	}

	data, err := f.capture(ctx, channelID, width, height)
	if err != nil {
		metrics.CountSnapshot("error")
		return nil, err
	}

	f.mu.Lock()
	f.cache[channelID] = cacheEntry{data: data, captured: time.Now()}
	f.mu.Unlock()

	metrics.CountSnapshot("captured")
	f.publish(channelID, len(data), false)
	return data, nil
}

func (f *Fetcher) capture(ctx context.Context, channelID, width, height int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := ffmpeg.BuildSnapshotArgs(f.source(channelID), width, height)
	handle, err := f.spawn(process.Options{
		Name:          fmt.Sprintf("snapshot-%d", channelID),
		Binary:        f.ffmpegPath,
		Args:          args,
		Logger:        f.logger,
		Parser:        ffmpeg.ParseLogLine,
		CaptureStdout: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start snapshot capture: %w", err)
	}

	status := handle.Wait(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		f.logger.Warn("Snapshot capture timed out", "channel", channelID)
		return nil, fmt.Errorf("snapshot capture: %w", ctxErr)
	}
	if status.Code != 0 {
		f.logger.Warn("Snapshot capture failed",
			"channel", channelID, "exit_code", status.Code)
		return nil, &ProcessError{ExitCode: status.Code}
	}

	data := handle.Stdout()
	if len(data) == 0 {
		return nil, ErrEmptyCapture
	}
	return data, nil
}

func (f *Fetcher) publish(channelID, size int, cached bool) {
	f.bus.Publish(events.SnapshotCapturedEvent{
		ChannelID: channelID,
		Bytes:     size,
		Cached:    cached,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
