package hk_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/chronomesh/chronomesh/hk"
)

var _ = Describe("Registry", func() {
	It("ticks a registered task repeatedly until ctx is cancelled", func() {
		r := hk.NewRegistry()
		var calls int32
		r.Reg("tick", 10*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })

		ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
		defer cancel()
		Expect(r.Run(ctx)).To(Succeed())
		Expect(atomic.LoadInt32(&calls)).To(BeNumerically(">=", 2))
	})

	It("survives a panicking task", func() {
		r := hk.NewRegistry()
		var ok int32
		r.Reg("boom", 5*time.Millisecond, func() { panic("kaboom") })
		r.Reg("fine", 5*time.Millisecond, func() { atomic.AddInt32(&ok, 1) })

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		Expect(r.Run(ctx)).To(Succeed())
		Expect(atomic.LoadInt32(&ok)).To(BeNumerically(">", 0))
	})

	It("Unreg stops a task before Run returns", func() {
		r := hk.NewRegistry()
		var calls int32
		r.Reg("stoppable", 5*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })
		r.Unreg("stoppable")

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(r.Run(ctx)).To(Succeed())
		Expect(atomic.LoadInt32(&calls)).To(BeZero())
	})
})
