package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/angeloszaimis/variant-edge/internal/cookie"
	"github.com/angeloszaimis/variant-edge/internal/metrics"
	"github.com/angeloszaimis/variant-edge/internal/origin"
	"github.com/angeloszaimis/variant-edge/internal/rewrite"
	"github.com/angeloszaimis/variant-edge/internal/selector"
	"github.com/angeloszaimis/variant-edge/internal/variants"
)

// Headers that describe a single connection and must not be forwarded.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

type VariantHandler struct {
	logger           *slog.Logger
	source           *variants.Source
	selector         *selector.Selector
	fetcher          *origin.Fetcher
	engine           rewrite.Engine
	cookies          *cookie.Writer
	metricsCollector *metrics.Collector
}

func NewVariantHandler(
	logger *slog.Logger,
	source *variants.Source,
	sel *selector.Selector,
	fetcher *origin.Fetcher,
	engine rewrite.Engine,
	cookies *cookie.Writer,
	collector *metrics.Collector,
) *VariantHandler {
	return &VariantHandler{
		logger:           logger,
		source:           source,
		selector:         sel,
		fetcher:          fetcher,
		engine:           engine,
		cookies:          cookies,
		metricsCollector: collector,
	}
}

func (h *VariantHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.logger
	if id := middleware.GetReqID(r.Context()); id != "" {
		log = log.With(slog.String("request_id", id))
	}

	h.metricsCollector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived})

	list, err := h.source.Fetch(r.Context())
	if err == nil && len(list) == 0 {
		err = fmt.Errorf("%w: empty variant list", variants.ErrMalformedResponse)
	}
	if err != nil {
		h.fail(w, log, metrics.StageVariants, err)
		return
	}

	sel := h.selector.Select(r, len(list))
	target := list[sel.Index]

	log.Debug("Selected variant",
		slog.Int("index", sel.Index),
		slog.Bool("sticky", sel.Sticky),
		slog.String("origin", target))

	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:   metrics.EventVariantSelected,
		Origin: target,
		Sticky: sel.Sticky,
	})

	start := time.Now()

	res, err := h.fetcher.Fetch(r.Context(), target)
	if err != nil {
		h.fail(w, log, metrics.StageOrigin, err)
		return
	}
	defer res.Body.Close()

	rewriting := isHTML(res.Header.Get("Content-Type"))

	copyHeaders(w.Header(), res.Header)
	if rewriting {
		w.Header().Del("Content-Length")
	}
	h.cookies.Apply(w.Header(), sel.Index)
	w.WriteHeader(res.StatusCode)

	if rewriting {
		err = h.engine.Transform(w, res.Body)
	} else {
		_, err = io.Copy(w, res.Body)
	}
	if err != nil {
		log.Warn("Response body interrupted",
			slog.String("origin", target),
			slog.Bool("rewriting", rewriting),
			slog.Any("err", err))
		h.metricsCollector.Emit(metrics.MetricEvent{Type: metrics.EventPipelineFailed, Stage: metrics.StageRewrite})
	}

	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Origin:     target,
		Duration:   time.Since(start),
		StatusCode: res.StatusCode,
	})
}

func (h *VariantHandler) fail(w http.ResponseWriter, log *slog.Logger, stage string, err error) {
	status := statusFor(err)

	log.Error("Variant pipeline failed",
		slog.String("stage", stage),
		slog.Int("status", status),
		slog.Any("err", err))

	h.metricsCollector.Emit(metrics.MetricEvent{Type: metrics.EventPipelineFailed, Stage: stage})
	http.Error(w, http.StatusText(status), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, variants.ErrSourceUnavailable),
		errors.Is(err, variants.ErrMalformedResponse),
		errors.Is(err, origin.ErrOriginUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func copyHeaders(dst, src http.Header) {
	drop := make(map[string]struct{}, len(hopByHopHeaders))
	for _, name := range hopByHopHeaders {
		drop[name] = struct{}{}
	}
	for _, v := range src.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				drop[http.CanonicalHeaderKey(name)] = struct{}{}
			}
		}
	}

	for name, values := range src {
		if _, ok := drop[name]; ok {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

// isHTML reports whether a body with this Content-Type gets rewritten.
// A missing Content-Type is treated as HTML.
func isHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
