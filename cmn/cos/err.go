// Package cos provides common low-level types and utilities shared across
// chronomesh packages.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"errors"
	"fmt"
	"os"
	"sync"
	ratomic "sync/atomic"

	"github.com/chronomesh/chronomesh/cmn/nlog"
)

type (
	ErrUnknownNode struct {
		id string
	}
	ErrUnknownRegion struct {
		id string
	}
	ErrDuplicateNode struct {
		id string
	}
	ErrIO struct {
		op  string
		err error
	}
	Errs struct {
		errs []error
		cnt  int64
		mu   sync.Mutex
	}
)

//
// ErrUnknownNode
//

func NewErrUnknownNode(id string) *ErrUnknownNode { return &ErrUnknownNode{id} }
func (e *ErrUnknownNode) Error() string           { return fmt.Sprintf("node %q does not exist", e.id) }

func IsErrUnknownNode(err error) bool {
	var target *ErrUnknownNode
	return errors.As(err, &target)
}

//
// ErrUnknownRegion
//

func NewErrUnknownRegion(id string) *ErrUnknownRegion { return &ErrUnknownRegion{id} }
func (e *ErrUnknownRegion) Error() string {
	return fmt.Sprintf("region %q does not exist", e.id)
}

func IsErrUnknownRegion(err error) bool {
	var target *ErrUnknownRegion
	return errors.As(err, &target)
}

//
// ErrDuplicateNode
//

func NewErrDuplicateNode(id string) *ErrDuplicateNode { return &ErrDuplicateNode{id} }
func (e *ErrDuplicateNode) Error() string {
	return fmt.Sprintf("node %q is already registered", e.id)
}

func IsErrDuplicateNode(err error) bool {
	var target *ErrDuplicateNode
	return errors.As(err, &target)
}

//
// ErrIO - best-effort journal/persist failures; never surfaced to a send's caller,
// only counted (see stats) and logged.
//

func NewErrIO(op string, err error) *ErrIO { return &ErrIO{op: op, err: err} }
func (e *ErrIO) Error() string             { return fmt.Sprintf("%s: %v", e.op, e.err) }
func (e *ErrIO) Unwrap() error             { return e.err }

func IsErrIO(err error) bool {
	var target *ErrIO
	return errors.As(err, &target)
}

//
// Errs - accumulates up to maxErrs distinct errors without failing the caller
//

const maxErrs = 4

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			e.mu.Unlock()
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
		ratomic.StoreInt64(&e.cnt, int64(len(e.errs)))
	}
	e.mu.Unlock()
}

func (e *Errs) Cnt() int { return int(ratomic.LoadInt64(&e.cnt)) }

func (e *Errs) JoinErr() (cnt int, err error) {
	if cnt = e.Cnt(); cnt > 0 {
		e.mu.Lock()
		err = errors.Join(e.errs...)
		e.mu.Unlock()
	}
	return
}

//
// Abnormal termination - used by cmd/chronomesh only
//

const fatalPrefix = "FATAL ERROR: "

func ExitLogf(f string, a ...any) {
	msg := fmt.Sprintf(fatalPrefix+f, a...)
	nlog.ErrorDepth(1, msg)
	nlog.Flush(true)
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
