package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/flowgraph/internal/cli"
)

func trimExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeResult writes v as JSON to path, or to w when path is empty.
func writeResult(w io.Writer, path string, v any) error {
	if path == "" {
		return cli.WriteJSON(w, v)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := cli.WriteJSON(f, v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
