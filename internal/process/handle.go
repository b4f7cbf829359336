// Package process supervises external transcoder processes. Each Handle
// owns exactly one spawned OS process: stderr is streamed line by line
// through a log parser into slog, stdout is optionally captured, and exit
// is signalled by closing Done. Termination is unconditional SIGKILL;
// transcoders hold no state worth a graceful shutdown.
package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
)

// LogParser extracts a level name and message from one line of process
// output. A nil parser logs every line at info.
type LogParser func(line string) (level, msg string)

// ExitStatus describes how a supervised process ended. Code is -1 when the
// process died to a signal (including our own SIGKILL).
type ExitStatus struct {
	Code int
	Err  error
}

// Options configure one supervised process.
type Options struct {
	// Name labels log records for this process.
	Name   string
	Binary string
	Args   []string
	// Logger receives supervisor records. Required.
	Logger *slog.Logger
	// OutputLogger receives the process's own output lines; falls back to
	// Logger when nil.
	OutputLogger *slog.Logger
	Parser       LogParser
	// CaptureStdout buffers stdout for retrieval after exit instead of
	// discarding it. Used for one-shot captures that write to stdout.
	CaptureStdout bool
}

// Handle supervises one spawned OS process.
type Handle struct {
	opts   Options
	cmd    *exec.Cmd
	logger *slog.Logger

	mu     sync.Mutex
	stdout bytes.Buffer

	done     chan struct{}
	status   ExitStatus
	killOnce sync.Once
}

// Spawn starts the process and begins draining its output. On error no
// process is left running.
func Spawn(opts Options) (*Handle, error) {
	h := &Handle{
		opts:   opts,
		logger: opts.Logger.With("process", opts.Name),
		done:   make(chan struct{}),
	}

	h.cmd = exec.Command(opts.Binary, opts.Args...)
	// Own process group so Kill reaps any children the tool forks
	h.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stderr, err := h.cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	var stdout io.ReadCloser
	if opts.CaptureStdout {
		stdout, err = h.cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
		}
	}

	if err := h.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", opts.Binary, err)
	}

	h.logger.Debug("Process started", "pid", h.cmd.Process.Pid, "binary", opts.Binary)

	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		h.streamStderr(stderr)
	}()

	if stdout != nil {
		readers.Add(1)
		go func() {
			defer readers.Done()
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, err := io.Copy(&h.stdout, stdout); err != nil {
				h.logger.Warn("Error reading stdout", "error", err)
			}
		}()
	}

	go func() {
		readers.Wait()
		err := h.cmd.Wait()
		h.status = ExitStatus{Code: exitCodeFromError(err), Err: err}
		close(h.done)
	}()

	return h, nil
}

// PID returns the spawned process id.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// Done is closed once the process has exited and its output is drained.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// ExitStatus is valid only after Done is closed.
func (h *Handle) ExitStatus() ExitStatus {
	return h.status
}

// Stdout returns captured stdout. Call after Done is closed.
func (h *Handle) Stdout() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stdout.Bytes()
}

// Kill terminates the process group with SIGKILL. Idempotent; safe to call
// after the process has already exited.
func (h *Handle) Kill() {
	h.killOnce.Do(func() {
		pid := h.cmd.Process.Pid
		h.logger.Debug("Killing process", "pid", pid)
		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			// Group kill can fail if the leader already exited; fall back
			// to the process itself.
			_ = h.cmd.Process.Kill()
		}
	})
}

// Wait blocks until the process exits or the context expires. Context
// expiry kills the process and then waits for the exit to land, so the
// returned status is always final.
func (h *Handle) Wait(ctx context.Context) ExitStatus {
	select {
	case <-h.done:
	case <-ctx.Done():
		h.Kill()
		<-h.done
	}
	return h.status
}

func (h *Handle) streamStderr(r io.Reader) {
	logger := h.opts.OutputLogger
	if logger == nil {
		logger = h.logger
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		level, msg := "info", line
		if h.opts.Parser != nil {
			level, msg = h.opts.Parser(line)
		}

		switch level {
		case "panic", "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "verbose", "debug", "trace":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}
	if err := scanner.Err(); err != nil {
		h.logger.Warn("Error reading stderr", "error", err)
	}
}

// exitCodeFromError maps a Wait error to an exit code: 0 for success, the
// child's code for a normal exit, -1 for a signalled exit, 1 otherwise.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
