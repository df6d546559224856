// Package toolchain turns generated assembly into a native executable by
// running the system assembler and linker.
package toolchain

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Toolchain names the external programs used for one target.
type Toolchain struct {
	Target    string
	Assembler string
	Linker    string

	// Logf, when set, receives each command line and every line the tools
	// print.
	Logf func(format string, args ...any)

	// WaitDelay bounds how long a tool's output is still read after it
	// exits or its context is done; zero means DefaultWaitDelay.
	WaitDelay time.Duration
}

// DefaultWaitDelay covers children such as ld under clang that can keep the
// output pipes open after the tool itself is gone.
const DefaultWaitDelay = 5 * time.Second

// ToolError reports a tool that could not start or exited unsuccessfully.
type ToolError struct {
	Tool   string
	Args   []string
	Err    error
	Stderr []string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Tool, strings.Join(e.Args, " "), e.Err)
	if len(e.Stderr) > 0 {
		msg += "\n" + strings.Join(e.Stderr, "\n")
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// New returns the default toolchain for a compiler target name.
func New(target string) (*Toolchain, error) {
	switch target {
	case "darwin-arm64":
		return &Toolchain{Target: target, Assembler: "as", Linker: "clang"}, nil
	case "linux-arm64":
		return &Toolchain{Target: target, Assembler: "as", Linker: "ld"}, nil
	}
	return nil, fmt.Errorf("no toolchain for target %q", target)
}

func (tc *Toolchain) logf(format string, args ...any) {
	if tc.Logf != nil {
		tc.Logf(format, args...)
	}
}

// AssembleArgs returns the assembler arguments for asmPath → objPath.
func (tc *Toolchain) AssembleArgs(asmPath, objPath string) []string {
	return []string{"-o", objPath, asmPath}
}

// LinkArgs returns the linker arguments for objPath → exePath.
func (tc *Toolchain) LinkArgs(objPath, exePath string) []string {
	return []string{"-o", exePath, objPath}
}

// Assemble runs the assembler.
func (tc *Toolchain) Assemble(ctx context.Context, asmPath, objPath string) error {
	return tc.run(ctx, tc.Assembler, tc.AssembleArgs(asmPath, objPath)...)
}

// Link runs the linker.
func (tc *Toolchain) Link(ctx context.Context, objPath, exePath string) error {
	return tc.run(ctx, tc.Linker, tc.LinkArgs(objPath, exePath)...)
}

// Build assembles then links. The link step is skipped when assembly fails.
func (tc *Toolchain) Build(ctx context.Context, asmPath, objPath, exePath string) error {
	if err := tc.Assemble(ctx, asmPath, objPath); err != nil {
		return err
	}
	return tc.Link(ctx, objPath, exePath)
}

// run executes one tool, forwarding its output to Logf while it runs.
func (tc *Toolchain) run(ctx context.Context, name string, args ...string) error {
	tc.logf("$ %s %s", name, strings.Join(args, " "))

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	defer outR.Close()
	defer errR.Close()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = outW
	cmd.Stderr = errW
	cmd.WaitDelay = tc.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	if err := cmd.Start(); err != nil {
		return &ToolError{Tool: name, Args: args, Err: err}
	}

	var errLines []string
	var eg errgroup.Group
	eg.Go(func() error {
		_, err := tc.drain(name, outR)
		return err
	})
	eg.Go(func() error {
		lines, err := tc.drain(name, errR)
		errLines = lines
		return err
	})

	// Wait returns once the copies into the pipes finish or WaitDelay
	// expires; closing the writers then ends both drains.
	waitErr := cmd.Wait()
	outW.Close()
	errW.Close()
	copyErr := eg.Wait()

	if waitErr != nil {
		return &ToolError{Tool: name, Args: args, Err: waitErr, Stderr: errLines}
	}
	if copyErr != nil {
		return fmt.Errorf("reading %s output: %w", name, copyErr)
	}
	return nil
}

func (tc *Toolchain) drain(name string, r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		lines = append(lines, line)
		tc.logf("%s: %s", name, line)
	}
	if err := sc.Err(); err != nil {
		// Discard the rest so writes into the pipe still complete.
		_, _ = io.Copy(io.Discard, r)
		return lines, err
	}
	return lines, nil
}
