//go:build ignore

// Loadtest fires concurrent requests at the edge and reports how the
// variant cookie is distributed, plus latency percentiles per variant.
//
// Usage:
//
//	go run scripts/loadtest.go -url http://localhost:8080 -concurrency 10 -requests 1000
//	go run scripts/loadtest.go -url http://localhost:8080 -sticky 1 -requests 200
//
// Without -sticky every request arrives cookieless and the counts should be
// close to uniform. With -sticky k every request carries variant=k and every
// response must echo k.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type variantStats struct {
	Count     int32
	Latencies []time.Duration
}

type summary struct {
	Target        string           `json:"target"`
	Requests      int              `json:"requests"`
	Concurrency   int              `json:"concurrency"`
	Failures      int32            `json:"failures"`
	Mismatches    int32            `json:"sticky_mismatches"`
	DurationMS    int64            `json:"duration_ms"`
	ThroughputRPS float64          `json:"throughput_rps"`
	Variants      map[string]int32 `json:"variants"`
	StatusCodes   map[int]int32    `json:"status_codes"`
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080", "edge URL")
		concurrency = flag.Int("concurrency", 10, "number of concurrent workers")
		requests    = flag.Int("requests", 100, "total number of requests to send")
		cookieName  = flag.String("cookie", "variant", "variant cookie name")
		sticky      = flag.Int("sticky", -1, "send this variant index on every request")
		timeout     = flag.Duration("timeout", 10*time.Second, "per-request timeout")
		outJSON     = flag.String("out", "", "write JSON summary to this file (optional)")
	)
	flag.Parse()

	client := &http.Client{Timeout: *timeout}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var failures, mismatches int32

	stats := make(map[string]*variantStats)
	statusCodes := make(map[int]int32)
	var mu sync.Mutex

	start := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				req, err := http.NewRequest(http.MethodGet, *url, nil)
				if err != nil {
					atomic.AddInt32(&failures, 1)
					continue
				}
				if *sticky >= 0 {
					req.AddCookie(&http.Cookie{Name: *cookieName, Value: strconv.Itoa(*sticky)})
				}

				began := time.Now()
				resp, err := client.Do(req)
				dur := time.Since(began)
				if err != nil {
					atomic.AddInt32(&failures, 1)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				variant := "(none)"
				for _, c := range resp.Cookies() {
					if c.Name == *cookieName {
						variant = c.Value
					}
				}
				if *sticky >= 0 && variant != strconv.Itoa(*sticky) {
					atomic.AddInt32(&mismatches, 1)
				}

				mu.Lock()
				statusCodes[resp.StatusCode]++
				vs, ok := stats[variant]
				if !ok {
					vs = &variantStats{}
					stats[variant] = vs
				}
				vs.Count++
				vs.Latencies = append(vs.Latencies, dur)
				mu.Unlock()
			}
		}()
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	elapsed := time.Since(start)

	report := summary{
		Target:        *url,
		Requests:      *requests,
		Concurrency:   *concurrency,
		Failures:      failures,
		Mismatches:    mismatches,
		DurationMS:    elapsed.Milliseconds(),
		ThroughputRPS: float64(*requests) / elapsed.Seconds(),
		Variants:      make(map[string]int32, len(stats)),
		StatusCodes:   statusCodes,
	}

	fmt.Println("--- Variant Load Test Summary ---")
	fmt.Printf("Target: %s\n", *url)
	fmt.Printf("Requests: %d  Concurrency: %d  Failures: %d\n", *requests, *concurrency, failures)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", elapsed, report.ThroughputRPS)

	fmt.Println("\nStatus codes:")
	var codes []int
	for k := range statusCodes {
		codes = append(codes, k)
	}
	sort.Ints(codes)
	for _, k := range codes {
		fmt.Printf("  %d -> %d\n", k, statusCodes[k])
	}

	fmt.Println("\nVariant distribution:")
	var keys []string
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vs := stats[k]
		report.Variants[k] = vs.Count

		sort.Slice(vs.Latencies, func(i, j int) bool { return vs.Latencies[i] < vs.Latencies[j] })
		p := func(pct float64) time.Duration {
			return vs.Latencies[int(float64(len(vs.Latencies)-1)*pct)]
		}
		fmt.Printf("  %s=%s -> %d (%.1f%%)  p50=%v p95=%v p99=%v\n",
			*cookieName, k, vs.Count, 100*float64(vs.Count)/float64(*requests), p(0.50), p(0.95), p(0.99))
	}

	if *sticky >= 0 {
		fmt.Printf("\nSticky mismatches: %d\n", mismatches)
	}

	if *outJSON != "" {
		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if failures > 0 || mismatches > 0 {
		os.Exit(2)
	}
}
