// Package nlog - chronomesh logger, provides severity levels, timestamping,
// and optional file output shared by every package in this module.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevChar = [...]byte{sevInfo: 'I', sevWarn: 'W', sevErr: 'E'}

type nlog struct {
	mw   sync.Mutex
	file *os.File
}

var (
	nlogs        [3]*nlog
	toStderr     = true
	alsoToStderr bool
	logDir       string
	title        string
)

func init() {
	for sev := range nlogs {
		nlogs[sev] = &nlog{}
	}
}

// SetLogDirRole points subsequent log lines at a directory on disk. Info
// lines then go to the files only (and to stderr as well if any file fails
// to open); warning and error lines always go to stderr too. Role is the
// process role ("orchestrator", "node", ...) and is folded into the
// per-severity file name.
func SetLogDirRole(dir, role string) {
	logDir = dir
	if dir == "" {
		return
	}
	toStderr = false
	for sev := range nlogs {
		fpath := filepath.Join(dir, fmt.Sprintf("chronomesh.%s.%s.log", role, sevName(severity(sev))))
		f, err := os.OpenFile(fpath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			alsoToStderr = true
			continue
		}
		nlogs[sev].file = f
	}
}

func SetTitle(s string) { title = s }

func sevName(sev severity) string {
	switch sev {
	case sevWarn:
		return "WARNING"
	case sevErr:
		return "ERROR"
	default:
		return "INFO"
	}
}

func log(sev severity, depth int, format string, args ...any) {
	line := format1(sev, depth+1, format, args...)
	n := nlogs[sev]
	n.mw.Lock()
	if n.file != nil {
		n.file.WriteString(line)
	}
	if toStderr || alsoToStderr || sev >= sevWarn {
		os.Stderr.WriteString(line)
	}
	n.mw.Unlock()
}

func format1(sev severity, depth int, format string, args ...any) string {
	var b strings.Builder
	b.WriteByte(sevChar[sev])
	b.WriteByte(' ')
	b.WriteString(time.Now().Format("15:04:05.000000"))
	b.WriteByte(' ')
	if _, fn, ln, ok := runtime.Caller(depth + 1); ok {
		if idx := strings.LastIndexByte(fn, '/'); idx >= 0 {
			fn = fn[idx+1:]
		}
		b.WriteString(fn)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(ln))
		b.WriteByte(' ')
	}
	if format == "" {
		fmt.Fprintln(&b, args...)
	} else {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	return b.String()
}

// Flush syncs every open log file to disk; exit is a hint that the process
// is about to terminate and files should be closed as well.
func Flush(exit ...bool) {
	ex := len(exit) > 0 && exit[0]
	for _, n := range nlogs {
		n.mw.Lock()
		if n.file != nil {
			n.file.Sync()
			if ex {
				n.file.Close()
				n.file = nil
			}
		}
		n.mw.Unlock()
	}
}
