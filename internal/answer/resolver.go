package answer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// answersTotal counts resolutions by source; "none" means escalation.
var answersTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agent_answers_total",
		Help: "Answer resolutions by source (quick, khisima, none).",
	},
	[]string{"source"},
)

func init() {
	prometheus.MustRegister(answersTotal)
}

// Searcher is a remote answer stage.
type Searcher interface {
	Lookup(ctx context.Context, query string) (Result, error)
}

// Resolver runs the answer stages in order and returns the first hit.
type Resolver struct {
	Site Searcher
	Log  zerolog.Logger
}

// NewResolver returns a resolver using site as its second stage. site may be
// nil.
func NewResolver(site Searcher) *Resolver {
	return &Resolver{Site: site, Log: log.Logger}
}

// Resolve never fails: stage errors are logged and treated as no match.
func (r *Resolver) Resolve(ctx context.Context, query string) Result {
	ctx, span := otel.Tracer("answer/Resolver").Start(ctx, "Resolve")
	defer span.End()

	res := r.resolve(ctx, query)
	src := "none"
	if res.OK() {
		src = string(res.Source)
	}
	span.SetAttributes(attribute.String("answer.source", src))
	answersTotal.WithLabelValues(src).Inc()
	return res
}

func (r *Resolver) resolve(ctx context.Context, query string) Result {
	if res := Quick(query); res.OK() {
		return res
	}
	if r.Site != nil {
		res, err := r.Site.Lookup(ctx, query)
		if err != nil {
			trace.SpanFromContext(ctx).RecordError(err)
			r.Log.Debug().Err(err).Msg("site search failed")
			return NotFound()
		}
		if res.OK() {
			return res
		}
	}
	return NotFound()
}
