package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Transport carries UCI lines to and from an engine.
type Transport interface {
	// WriteLine sends one command line. The newline is added by the transport.
	WriteLine(line string) error

	// Lines returns the engine's output, one line per value.
	// The channel is closed when the engine exits.
	Lines() <-chan string

	// Close terminates the engine.
	Close() error
}

// Process is a Transport backed by an engine subprocess speaking UCI on
// stdin/stdout.
type Process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string

	mu     sync.Mutex
	closed bool
	exited chan struct{}
}

// Compile-time check that Process implements Transport.
var _ Transport = (*Process)(nil)

// StartProcess launches the engine binary at path.
func StartProcess(path string, args ...string) (*Process, error) {
	cmd := exec.Command(path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening engine stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting engine %s: %w", path, err)
	}

	p := &Process{
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan string, 64),
		exited: make(chan struct{}),
	}
	go p.readLoop(stdout)
	return p, nil
}

// readLoop forwards stdout until EOF and then reaps the process. Wait
// closes the pipe, so it must not run before the reads are done.
func (p *Process) readLoop(r io.Reader) {
	defer close(p.lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.lines <- scanner.Text()
	}
	// Drain whatever the scanner gave up on so the engine never blocks
	// writing to a full pipe.
	_, _ = io.Copy(io.Discard, r)
	_ = p.cmd.Wait()
	close(p.exited)
}

// WriteLine implements Transport.
func (p *Process) WriteLine(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	_, err := io.WriteString(p.stdin, line+"\n")
	return err
}

// Lines implements Transport.
func (p *Process) Lines() <-chan string {
	return p.lines
}

// Close asks the engine to quit and kills it if it has not exited within
// a second.
func (p *Process) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	_, _ = io.WriteString(p.stdin, "quit\n")
	_ = p.stdin.Close()
	p.mu.Unlock()

	select {
	case <-p.exited:
		return nil
	case <-time.After(time.Second):
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("killing engine: %w", err)
		}
		return nil
	}
}
