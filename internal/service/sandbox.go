package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// sandboxSkip names directory entries never copied into a sandbox.
var sandboxSkip = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
}

// copyTree copies the working tree at src into dst so tests can run against
// proposed changes without touching the real tree.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(dst, 0o755)
		}
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			if sandboxSkip[part] {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(p, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}

// writeSandboxFile writes content to relPath under root, creating parents.
// relPath must stay inside root.
func writeSandboxFile(root, relPath, content string) error {
	target := filepath.Join(root, filepath.FromSlash(relPath))
	cleanRoot := filepath.Clean(root) + string(filepath.Separator)
	if !strings.HasPrefix(filepath.Clean(target)+string(filepath.Separator), cleanRoot) &&
		filepath.Clean(target) != filepath.Clean(root) {
		return fmt.Errorf("path %q escapes the working tree", relPath)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", relPath, err)
	}
	return os.WriteFile(target, []byte(content), 0o644)
}
