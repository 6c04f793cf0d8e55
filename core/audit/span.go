// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"context"
	"encoding/base64"
	"runtime/trace"
	"strconv"
	"time"

	"github.com/docker/go-units"
	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Span represents an HTTP request in flight.
type Span struct {
	// only these fields are set automatically
	task     *trace.Task
	start    time.Time
	duration time.Duration
	metric   *servertiming.Metric

	Destination TrafficDestination
	RequestID   string
	Method      string
	URL         string
	Route       string // name of the matched route, if any
	StatusCode  int
	Size        int
	Error       error
}

// TrafficDestination describes the logical destination of an HTTP request.
type TrafficDestination string

// Constants for traffic destinations.
const (
	ToUser TrafficDestination = "user"
)

func (span Span) ServerTimingName() string {
	// base64 without trailing '=' match the syntax
	return string(span.Destination) + "$" + span.Method + "$" + base64.RawURLEncoding.EncodeToString([]byte(span.URL))
}

func (span *Span) Begin(ctx context.Context) context.Context {
	span.start = time.Now()

	ctx, span.task = trace.NewTask(ctx, "http."+string(span.Destination))
	if servertimingContext := servertiming.FromContext(ctx); servertimingContext != nil {
		span.metric = servertimingContext.NewMetric(span.ServerTimingName())
		span.metric.Extra = make(map[string]string)
		span.metric.Extra["start"] = strconv.FormatFloat(float64(span.start.UnixNano())/float64(time.Millisecond), 'f', -1, 64)
	}

	return ctx
}

// End stops the span clock. Calling End more than once is a no-op.
func (span *Span) End() {
	if span.task != nil {
		span.duration = time.Since(span.start)
		span.task.End()

		if span.metric != nil {
			span.metric.Duration = span.duration
		}

		span.task = nil
	}
}

// Duration reports how long the span ran. It is zero until End is called.
func (span Span) Duration() time.Duration {
	return span.duration
}

// Log writes the span as a single structured log line.
//
// Server errors are logged at error level so they survive a production log level.
func (span Span) Log() {
	var event *zerolog.Event
	if span.StatusCode >= 500 {
		event = log.Error()
	} else {
		event = log.Debug()
	}

	event.Str("sys", "http")
	event.Str("method", span.Method)
	event.Str("url", span.URL)
	event.Int("status_code", span.StatusCode)
	event.Str("len", units.HumanSize(float64(span.Size)))
	event.Dur("dur", span.duration)
	event.Str("destination", string(span.Destination))
	event.Str("request_id", span.RequestID)

	if span.Route != "" {
		event.Str("route", span.Route)
	}

	if span.Error != nil {
		event.Err(span.Error)
	}

	event.Send()
}
