// Package kernel implements the dispatcher and execution coordinator:
// the concurrent state machine that relays
// shell/control requests, execution lifecycle events, streamed outputs,
// and debug-adapter traffic between the front-end and the embedding
// contract (package language).
package kernel

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"jupyterkernel/language"
	"jupyterkernel/socket"
)

// Kernel is the top-level running instance: bound sockets, the
// dispatcher, and the embedding contract it drives.
type Kernel struct {
	spec       socket.ConnectionSpec
	sockets    *socket.Sockets
	dispatcher *Dispatcher
	logFile    io.Closer
}

// Option configures a Kernel. Options take effect when passed to Start;
// NewKernel does not apply the options it is given.
type Option func(*options)

type options struct {
	kernel          language.Kernel
	incrementSilent bool
	logPath         string
	historyDSN      string
}

// WithLanguageKernel overrides the default karl embedding contract. Used
// by tests and by any future language plugin that wants to reuse the
// dispatcher without karl's lexer/parser/interpreter.
func WithLanguageKernel(k language.Kernel) Option {
	return func(o *options) { o.kernel = k }
}

// WithIncrementSilent configures whether execution_count advances for
// silent:true execute_request messages.
func WithIncrementSilent(v bool) Option {
	return func(o *options) { o.incrementSilent = v }
}

// WithLogPath overrides where the kernel's log is redirected; an empty
// path leaves the process logger untouched (used by tests).
func WithLogPath(path string) Option {
	return func(o *options) { o.logPath = path }
}

// WithHistoryDSN backs history_request/history_reply with a Postgres
// table reached through the pgx driver instead of the default in-memory
// ring buffer, so history survives a kernel restart.
func WithHistoryDSN(dsn string) Option {
	return func(o *options) { o.historyDSN = dsn }
}

// NewKernel reads and parses the connection file at configPath and
// prepares a Kernel ready to Start. It does not bind sockets yet: bind
// failures are fatal and are surfaced from Start so the CLI layer can
// choose the process exit code.
func NewKernel(configPath string, opts ...Option) (*Kernel, error) {
	spec, err := socket.LoadConnectionSpec(configPath)
	if err != nil {
		return nil, err
	}
	return &Kernel{spec: spec}, nil
}

func (k *Kernel) resolveOptions(opts []Option) *options {
	o := &options{incrementSilent: true, logPath: defaultLogPath()}
	for _, apply := range opts {
		apply(o)
	}
	if o.kernel == nil {
		o.kernel = language.NewKarlKernel()
	}
	return o
}

// defaultLogPath redirects the process logger to a file so
// stdout/stderr stay free for the cell output capture, rooted under
// KERNEL_CONFIG_DIR when set.
func defaultLogPath() string {
	if dir := os.Getenv("KERNEL_CONFIG_DIR"); dir != "" {
		return dir + "/kernel.log"
	}
	return os.TempDir() + "/jupyterkernel.log"
}

// Start binds the five sockets, wires the dispatcher and the embedding
// contract, and blocks until a shutdown_request is served. A bind
// failure is fatal and returned immediately.
func (k *Kernel) Start(opts ...Option) error {
	o := k.resolveOptions(opts)

	if o.logPath != "" {
		if f, err := os.OpenFile(o.logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err == nil {
			log.SetOutput(f)
			k.logFile = f
		} else {
			fmt.Fprintf(os.Stderr, "kernel: could not open log file %s: %v\n", o.logPath, err)
		}
	}

	log.Printf("kernel: starting, connection spec: %+v", k.spec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sockets, err := socket.Bind(ctx, k.spec)
	if err != nil {
		return fmt.Errorf("kernel: %w", err)
	}
	k.sockets = sockets

	k.dispatcher = NewDispatcher(sockets, o.kernel)
	k.dispatcher.coordinator.SetIncrementSilent(o.incrementSilent)

	if o.historyDSN != "" {
		store, err := NewSQLHistoryStore(ctx, o.historyDSN)
		if err != nil {
			log.Printf("kernel: history store disabled, falling back to in-memory: %v", err)
		} else {
			k.dispatcher.coordinator.SetHistoryStore(store)
		}
	}

	k.dispatcher.Run(ctx)

	log.Printf("kernel: listening shell=%d iopub=%d control=%d stdin=%d hb=%d",
		k.spec.ShellPort, k.spec.IOPubPort, k.spec.ControlPort, k.spec.StdinPort, k.spec.HBPort)

	<-k.dispatcher.Shutdown()

	// Shutdown is best-effort: pending replies are abandoned, sockets
	// are closed once the shutdown_reply has already gone out.
	sockets.Close()
	if k.logFile != nil {
		_ = k.logFile.Close()
	}
	return nil
}

// Stop forces the kernel to tear down without a front-end-initiated
// shutdown_request, used by tests and by an embedding CLI wanting to
// stop the kernel from a signal handler.
func (k *Kernel) Stop() {
	if k.sockets != nil {
		k.sockets.Close()
	}
}
