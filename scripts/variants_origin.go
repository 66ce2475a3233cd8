//go:build ignore

// Variants_origin is a local stand-in for the variants API and its pages,
// used to run the edge end to end without network access.
//
// Usage:
//
//	go run scripts/variants_origin.go -port 8081 -variants 2
//	VARIANTS_ENDPOINT=http://localhost:8081/api/variants go run ./cmd
//
// It serves /api/variants with a {"variants": [...]} document and
// /variants/{n} with a page carrying every element the edge rewrites.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angeloszaimis/variant-edge/pkg/logger"
)

var page = template.Must(template.New("variant").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>Variant {{.}}</title>
  </head>
  <body>
    <h1 id="title">Variant {{.}}</h1>
    <p id="description">This is variant {{.}} of the take home project!</p>
    <a id="url" href="https://cloudflare.com">Return to cloudflare.com</a>
  </body>
</html>
`))

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	count := flag.Int("variants", 2, "number of variant pages to advertise")
	flag.Parse()

	log := logger.New("info", false, "dev", nil)
	base := fmt.Sprintf("http://localhost:%d", *port)

	r := chi.NewRouter()
	r.Get("/api/variants", func(w http.ResponseWriter, _ *http.Request) {
		urls := make([]string, *count)
		for i := range urls {
			urls[i] = fmt.Sprintf("%s/variants/%d", base, i+1)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]string{"variants": urls})
	})
	r.Get("/variants/{n}", func(w http.ResponseWriter, req *http.Request) {
		n, err := strconv.Atoi(chi.URLParam(req, "n"))
		if err != nil || n < 1 || n > *count {
			http.NotFound(w, req)
			return
		}

		log.Info("Serving variant", slog.Int("variant", n), slog.String("from", req.RemoteAddr))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		page.Execute(w, n)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Info("Starting variants origin", slog.String("addr", addr), slog.Int("variants", *count))
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Error("Server failed", slog.Any("err", err))
		os.Exit(1)
	}
}
