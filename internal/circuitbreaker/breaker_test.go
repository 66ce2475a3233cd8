package circuitbreaker_test

import (
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/variant-edge/internal/circuitbreaker"
)

var _ = Describe("CircuitBreaker", func() {
	var cb *circuitbreaker.CircuitBreaker

	BeforeEach(func() {
		cb = circuitbreaker.NewCircuitBreaker(3, 50*time.Millisecond)
	})

	It("should start closed", func() {
		Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		Expect(cb.Allow()).To(BeTrue())
	})

	Context("when in CLOSED state", func() {
		It("should stay closed below the threshold", func() {
			cb.RecordFailure()
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Allow()).To(BeTrue())
		})

		It("should open at the threshold", func() {
			for i := 0; i < 3; i++ {
				cb.RecordFailure()
			}
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			Expect(cb.Allow()).To(BeFalse())
		})

		It("should reset the failure count on success", func() {
			cb.RecordFailure()
			cb.RecordFailure()
			cb.RecordSuccess()
			cb.RecordFailure()
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Context("when in OPEN state", func() {
		BeforeEach(func() {
			for i := 0; i < 3; i++ {
				cb.RecordFailure()
			}
		})

		It("should admit one probe after the reset timeout", func() {
			time.Sleep(60 * time.Millisecond)

			Expect(cb.Allow()).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
			Expect(cb.Allow()).To(BeFalse())
		})

		It("should close when the probe succeeds", func() {
			time.Sleep(60 * time.Millisecond)
			Expect(cb.Allow()).To(BeTrue())

			cb.RecordSuccess()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Allow()).To(BeTrue())
		})

		It("should reopen when the probe fails", func() {
			time.Sleep(60 * time.Millisecond)
			Expect(cb.Allow()).To(BeTrue())

			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			Expect(cb.Allow()).To(BeFalse())
		})

		It("should admit a new probe after a released one", func() {
			time.Sleep(60 * time.Millisecond)
			Expect(cb.Allow()).To(BeTrue())

			cb.Release()
			Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
			Expect(cb.Allow()).To(BeTrue())
			Expect(cb.Allow()).To(BeFalse())
		})

		It("should admit exactly one concurrent probe", func() {
			time.Sleep(60 * time.Millisecond)

			var admitted atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if cb.Allow() {
						admitted.Add(1)
					}
				}()
			}
			wg.Wait()

			Expect(admitted.Load()).To(Equal(int32(1)))
		})
	})

	Describe("State.String", func() {
		DescribeTable("names every state",
			func(s circuitbreaker.State, want string) {
				Expect(s.String()).To(Equal(want))
			},
			Entry("closed", circuitbreaker.StateClosed, "CLOSED"),
			Entry("open", circuitbreaker.StateOpen, "OPEN"),
			Entry("half-open", circuitbreaker.StateHalfOpen, "HALF-OPEN"),
			Entry("unknown", circuitbreaker.State(42), "UNKNOWN"),
		)
	})
})
