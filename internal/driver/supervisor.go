package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"petit-panthere/pkg/panthere"
)

const defaultShutdownTimeout = 5 * time.Second

// RunOption mutates Run behavior.
type RunOption func(*runConfig)

type runConfig struct {
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// WithShutdownTimeout bounds how long Run waits for drivers after cancellation.
func WithShutdownTimeout(timeout time.Duration) RunOption {
	return func(cfg *runConfig) {
		if timeout > 0 {
			cfg.shutdownTimeout = timeout
		}
	}
}

// WithRunLogger configures lifecycle logging.
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(cfg *runConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Run starts every runtime's driver concurrently with handler and blocks until
// ctx is canceled or one driver fails. A failing driver cancels the others.
// Cancellation is a clean exit.
func Run(ctx context.Context, runtimes []Runtime, handler panthere.EventHandler, options ...RunOption) error {
	if handler == nil {
		return fmt.Errorf("run drivers: nil handler")
	}
	if len(runtimes) == 0 {
		return fmt.Errorf("run drivers: no drivers configured")
	}

	cfg := runConfig{
		shutdownTimeout: defaultShutdownTimeout,
		logger:          slog.Default(),
	}
	for _, option := range options {
		option(&cfg)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	driverErr := make(chan error, 1)
	done := make(chan struct{})
	var workers sync.WaitGroup
	for _, runtime := range runtimes {
		if runtime.Driver == nil {
			continue
		}
		workers.Add(1)
		go func(runtime Runtime) {
			defer workers.Done()
			cfg.logger.Info("driver started", "driver", runtime.Name, "platform", runtime.Platform)
			err := runSafely("driver "+runtime.Name+" Start", func() error {
				return runtime.Driver.Start(runCtx, handler)
			})
			if err == nil || isContextCancellation(err) {
				cfg.logger.Info("driver stopped", "driver", runtime.Name)
				return
			}
			select {
			case driverErr <- fmt.Errorf("run driver %s: %w", runtime.Name, err):
			default:
			}
		}(runtime)
	}
	go func() {
		workers.Wait()
		close(done)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-driverErr:
		runErr = err
	case <-done:
	}

	cancel()
	select {
	case <-done:
	case <-time.After(cfg.shutdownTimeout):
		cfg.logger.Warn("drivers did not stop before shutdown timeout", "timeout", cfg.shutdownTimeout)
	}

	return runErr
}

// runSafely executes fn and converts panics into returned errors tagged with scope.
func runSafely(scope string, fn func() error) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		err = fmt.Errorf("%s: panic recovered: %v", scope, recovered)
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", scope, err)
	}

	return nil
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
