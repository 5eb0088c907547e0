// Package journal implements the append-only JSON-lines writers and the
// atomic (write-temp-then-rename) document writer spec.md §6 requires for
// the event log, per-node event log, anomaly log, and snapshot/diff
// documents.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package journal

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/chronomesh/chronomesh/cmn/cos"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Writer appends one JSON object per line to a file, serializing concurrent
// appenders. Failure policy (spec.md §4.2/§7): callers treat every error
// this returns as best-effort -- log it, bump a metric, never abort the
// caller's operation.
type Writer struct {
	mu   sync.Mutex
	path string
	f    *os.File
	bw   *bufio.Writer
}

func NewWriter(path string) (*Writer, error) {
	if path == "" {
		return &Writer{}, nil // no-op writer: callers still get a nil-safe Append
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, cos.NewErrIO("mkdir "+filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, cos.NewErrIO("open "+path, err)
	}
	return &Writer{path: path, f: f, bw: bufio.NewWriter(f)}, nil
}

// Append marshals v as one JSON line and flushes it immediately -- this is
// a simulator, not a high-throughput store, so durability per call beats
// buffering.
func (w *Writer) Append(v any) error {
	if w == nil || w.f == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal journal record")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.bw.Write(b); err != nil {
		return cos.NewErrIO("append "+w.path, err)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return cos.NewErrIO("append "+w.path, err)
	}
	if err := w.bw.Flush(); err != nil {
		return cos.NewErrIO("append "+w.path, err)
	}
	return nil
}

func (w *Writer) Close() error {
	if w == nil || w.f == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.bw.Flush()
	return w.f.Close()
}

// PersistDoc writes v as an indented JSON document to path, atomically:
// write to path+".tmp", fsync, then rename over the destination. Matches
// the teacher's cos.CreateFile + os.Rename pattern (reb/ec.go, fs/deleted.go).
func PersistDoc(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cos.NewErrIO("mkdir "+filepath.Dir(path), err)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot document")
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return cos.NewErrIO("create "+tmp, err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return cos.NewErrIO("write "+tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return cos.NewErrIO("sync "+tmp, err)
	}
	if err := f.Close(); err != nil {
		return cos.NewErrIO("close "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return cos.NewErrIO("rename "+tmp+" -> "+path, err)
	}
	return nil
}

// LoadDoc reads and unmarshals a document previously written by PersistDoc.
// A missing file is not an error: the caller (snapshot_and_diff) treats it
// as "no prior snapshot".
func LoadDoc(path string, v any) (found bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, cos.NewErrIO("read "+path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return true, errors.Wrap(err, "unmarshal "+path)
	}
	return true, nil
}
