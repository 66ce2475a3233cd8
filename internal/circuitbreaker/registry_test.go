package circuitbreaker_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/variant-edge/internal/circuitbreaker"
)

var _ = Describe("Registry", func() {
	var registry *circuitbreaker.Registry

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(2, 30*time.Second)
	})

	It("should create a closed breaker for an unknown host", func() {
		cb := registry.GetBreaker("a.example")
		Expect(cb).NotTo(BeNil())
		Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
	})

	It("should return the same breaker for the same host", func() {
		Expect(registry.GetBreaker("a.example")).To(BeIdenticalTo(registry.GetBreaker("a.example")))
	})

	It("should keep hosts independent", func() {
		a := registry.GetBreaker("a.example")
		a.RecordFailure()
		a.RecordFailure()

		Expect(a.State()).To(Equal(circuitbreaker.StateOpen))
		Expect(registry.GetBreaker("b.example").State()).To(Equal(circuitbreaker.StateClosed))
	})

	It("should create one breaker under concurrent lookups", func() {
		var wg sync.WaitGroup
		got := make([]*circuitbreaker.CircuitBreaker, 50)
		for i := range got {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				got[i] = registry.GetBreaker("a.example")
			}(i)
		}
		wg.Wait()

		for _, cb := range got {
			Expect(cb).To(BeIdenticalTo(got[0]))
		}
	})

	It("should report states per host", func() {
		registry.GetBreaker("a.example")
		b := registry.GetBreaker("b.example")
		b.RecordFailure()
		b.RecordFailure()

		Expect(registry.Stats()).To(Equal(map[string]circuitbreaker.State{
			"a.example": circuitbreaker.StateClosed,
			"b.example": circuitbreaker.StateOpen,
		}))
	})
})
