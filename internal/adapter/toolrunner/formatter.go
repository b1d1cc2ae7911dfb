// Package toolrunner implements the formatter and test-runner ports by
// shelling out to the tools configured for the target repository.
package toolrunner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Formatter pipes file content through a per-extension formatter command.
// Commands read the file body on stdin and write the formatted body to
// stdout (e.g. "gofmt", "black -q -", "prettier --stdin-filepath").
type Formatter struct {
	// commands maps file extension (without dot) to a shell command line.
	commands map[string]string
}

// NewFormatter creates a Formatter from an extension-to-command map.
func NewFormatter(commands map[string]string) *Formatter {
	return &Formatter{commands: commands}
}

// Format runs the configured formatter for relPath's extension. Content is
// returned unchanged when no formatter is configured for the extension.
// A formatter that fails is an error: unformattable content usually means
// the generated code is syntactically broken.
func (f *Formatter) Format(ctx context.Context, relPath, content string) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(relPath), ".")
	cmdLine, ok := f.commands[ext]
	if !ok || cmdLine == "" {
		return content, nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdLine)
	cmd.Stdin = strings.NewReader(content)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("format %s: %s: %w", relPath, strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}
