package buildsys

import (
	"context"
	"fmt"
	"strings"
)

// Compiler captures the external compilation step a variant build drives.
// Implementations write class files to Invocation.OutputDir, and must treat an
// empty source set as a no-op rather than a failure.
type Compiler interface {
	Compile(ctx context.Context, inv *Invocation) error
}

// Invocation describes one run of the external compiler.
type Invocation struct {
	SourceDir string
	Classpath []string
	Release   int // target platform release; 0 leaves it to the tool
	Flags     []string
	OutputDir string
}

// ToolError reports a failed external tool run. Output holds the tool's
// diagnostic text.
type ToolError struct {
	Tool   string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	if msg := strings.TrimSpace(e.Output); msg != "" {
		return fmt.Sprintf("%s: %s", e.Tool, msg)
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(ctx context.Context, inv *Invocation) error

func (f CompilerFunc) Compile(ctx context.Context, inv *Invocation) error {
	return f(ctx, inv)
}
