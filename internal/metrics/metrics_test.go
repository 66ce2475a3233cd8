package metrics_test

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/variant-edge/internal/metrics"
)

const originA = "https://a.example/"

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("IncrementRequests", func() {
		It("should count requests", func() {
			m.IncrementRequests()
			m.IncrementRequests()

			Expect(m.Snapshot("stream").TotalRequests).To(Equal(int64(2)))
		})
	})

	Describe("RecordSelection", func() {
		It("should count selections per origin and sticky hits", func() {
			m.RecordSelection(originA, true)
			m.RecordSelection(originA, false)
			m.RecordSelection("https://b.example/", false)

			snap := m.Snapshot("stream")
			Expect(snap.Origins[originA].Selections).To(Equal(int64(2)))
			Expect(snap.Origins["https://b.example/"].Selections).To(Equal(int64(1)))
			Expect(snap.StickyRequests).To(Equal(int64(1)))
		})
	})

	Describe("RecordFailure", func() {
		It("should count failures per stage", func() {
			m.RecordFailure(metrics.StageVariants)
			m.RecordFailure(metrics.StageVariants)
			m.RecordFailure(metrics.StageOrigin)

			snap := m.Snapshot("stream")
			Expect(snap.Failures).To(Equal(map[string]int64{
				metrics.StageVariants: 2,
				metrics.StageOrigin:   1,
			}))
		})
	})

	Describe("RecordResponse", func() {
		It("should record response time and status code", func() {
			m.RecordResponse(originA, 100*time.Millisecond, 200)
			m.RecordResponse(originA, 200*time.Millisecond, 200)

			origin := m.Snapshot("stream").Origins[originA]
			Expect(origin.AvgResponse).To(Equal(150 * time.Millisecond))
			Expect(origin.StatusCodes[200]).To(Equal(int64(2)))
		})

		It("should calculate percentiles", func() {
			for i := 1; i <= 100; i++ {
				m.RecordResponse(originA, time.Duration(i)*time.Millisecond, 200)
			}

			origin := m.Snapshot("stream").Origins[originA]
			Expect(origin.P50Response).To(BeNumerically("~", 50*time.Millisecond, 1*time.Millisecond))
			Expect(origin.P95Response).To(BeNumerically("~", 95*time.Millisecond, 1*time.Millisecond))
			Expect(origin.P99Response).To(BeNumerically("~", 99*time.Millisecond, 1*time.Millisecond))
		})

		It("should keep only the latest 1000 samples", func() {
			for i := 1; i <= 1500; i++ {
				m.RecordResponse(originA, time.Duration(i)*time.Millisecond, 200)
			}

			origin := m.Snapshot("stream").Origins[originA]
			Expect(origin.AvgResponse).To(BeNumerically(">", 500*time.Millisecond))
			Expect(origin.StatusCodes[200]).To(Equal(int64(1500)))
		})
	})

	Describe("origin limit", func() {
		It("should fold origins beyond the limit into one series", func() {
			for i := 0; i < metrics.MaxOrigins+50; i++ {
				origin := fmt.Sprintf("https://v%d.example/", i)
				m.RecordSelection(origin, false)
				m.RecordResponse(origin, time.Millisecond, 200)
			}

			snap := m.Snapshot("stream")
			Expect(snap.Origins).To(HaveLen(metrics.MaxOrigins + 1))
			Expect(snap.Origins).To(HaveKey("https://v0.example/"))
			Expect(snap.Origins).NotTo(HaveKey(fmt.Sprintf("https://v%d.example/", metrics.MaxOrigins)))

			overflow := snap.Origins[metrics.OverflowOrigin]
			Expect(overflow.Selections).To(Equal(int64(50)))
			Expect(overflow.StatusCodes[200]).To(Equal(int64(50)))
		})

		It("should keep recording origins already tracked", func() {
			for i := 0; i < metrics.MaxOrigins; i++ {
				m.RecordSelection(fmt.Sprintf("https://v%d.example/", i), false)
			}
			m.RecordSelection("https://v0.example/", true)

			Expect(m.Snapshot("stream").Origins["https://v0.example/"].Selections).To(Equal(int64(2)))
		})
	})

	Describe("Snapshot", func() {
		It("should carry the engine name and uptime", func() {
			time.Sleep(5 * time.Millisecond)
			snap := m.Snapshot("dom")
			Expect(snap.Engine).To(Equal("dom"))
			Expect(snap.Uptime).To(BeNumerically(">", 0))
		})

		It("should handle empty metrics", func() {
			snap := m.Snapshot("stream")
			Expect(snap.TotalRequests).To(BeZero())
			Expect(snap.Origins).To(BeEmpty())
			Expect(snap.Failures).To(BeEmpty())
		})

		It("should not share maps with later updates", func() {
			m.RecordResponse(originA, time.Millisecond, 200)
			snap := m.Snapshot("stream")

			m.RecordResponse(originA, time.Millisecond, 200)
			m.RecordFailure(metrics.StageOrigin)

			Expect(snap.Origins[originA].StatusCodes[200]).To(Equal(int64(1)))
			Expect(snap.Failures).To(BeEmpty())
		})
	})
})
