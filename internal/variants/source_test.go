package variants_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/variant-edge/internal/variants"
	"github.com/angeloszaimis/variant-edge/pkg/logger"
)

var _ = Describe("Source", func() {
	var (
		api    *httptest.Server
		status int
		body   string
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		status = http.StatusOK
		body = `{"variants":["https://a.example/","https://b.example/"]}`

		api = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(body))
		}))
	})

	AfterEach(func() {
		api.Close()
	})

	Describe("Fetch", func() {
		It("should return the variants in order", func() {
			src := variants.NewSource(api.URL, logger.Discard())

			list, err := src.Fetch(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(Equal(variants.List{"https://a.example/", "https://b.example/"}))
		})

		It("should fetch fresh on every call", func() {
			src := variants.NewSource(api.URL, logger.Discard())

			_, err := src.Fetch(ctx)
			Expect(err).NotTo(HaveOccurred())

			body = `{"variants":["https://c.example/"]}`
			list, err := src.Fetch(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(Equal(variants.List{"https://c.example/"}))
		})

		It("should report SourceUnavailable on error status", func() {
			status = http.StatusInternalServerError
			src := variants.NewSource(api.URL, logger.Discard())

			_, err := src.Fetch(ctx)
			Expect(err).To(MatchError(variants.ErrSourceUnavailable))
		})

		It("should report SourceUnavailable when the endpoint is down", func() {
			url := api.URL
			api.Close()
			src := variants.NewSource(url, logger.Discard())

			_, err := src.Fetch(ctx)
			Expect(err).To(MatchError(variants.ErrSourceUnavailable))
		})

		It("should report SourceUnavailable when the client times out", func() {
			slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			}))
			defer slow.Close()

			src := variants.NewSource(slow.URL, logger.Discard(),
				variants.WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))

			_, err := src.Fetch(ctx)
			Expect(err).To(MatchError(variants.ErrSourceUnavailable))
		})

		It("should report MalformedResponse for oversized bodies", func() {
			body = `{"variants":["` + strings.Repeat("x", 100) + `"]}`
			src := variants.NewSource(api.URL, logger.Discard(), variants.WithMaxBytes(32))

			_, err := src.Fetch(ctx)
			Expect(err).To(MatchError(variants.ErrMalformedResponse))
		})

		It("should report MalformedResponse for invalid JSON", func() {
			body = `<html>not json</html>`
			src := variants.NewSource(api.URL, logger.Discard())

			_, err := src.Fetch(ctx)
			Expect(err).To(MatchError(variants.ErrMalformedResponse))
		})
	})

	Describe("Decode", func() {
		DescribeTable("rejects documents that break the schema",
			func(doc string) {
				_, err := variants.Decode([]byte(doc))
				Expect(err).To(MatchError(variants.ErrMalformedResponse))
			},
			Entry("not an object", `["https://a.example/"]`),
			Entry("missing field", `{"urls":["https://a.example/"]}`),
			Entry("null field", `{"variants":null}`),
			Entry("field is a string", `{"variants":"https://a.example/"}`),
			Entry("field is an object", `{"variants":{"0":"https://a.example/"}}`),
			Entry("non-string item", `{"variants":["https://a.example/",2]}`),
			Entry("null item", `{"variants":[null]}`),
			Entry("empty list", `{"variants":[]}`),
			Entry("truncated", `{"variants":["https://a.example/"`),
		)

		It("should ignore unrelated fields", func() {
			list, err := variants.Decode([]byte(`{"version":2,"variants":["https://a.example/"]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
		})
	})
})
