// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package gate

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"codeberg.org/refill/refill/core/lrucache"
	"codeberg.org/refill/refill/server/request_context"
	"codeberg.org/refill/refill/server/utils"
)

// Limiters holds the token buckets of all throttled routes.
type Limiters = lrucache.LRUCache[*rate.Limiter]

// NewLimiters returns a bucket store holding at most size buckets.
func NewLimiters(size int) (*Limiters, error) {
	return lrucache.NewLRUCache[*rate.Limiter](size)
}

type throttle struct {
	limit   int
	window  time.Duration
	buckets *Limiters
	now     func() time.Time
}

// Throttle allows limit requests per window for each route and client.
//
// Clients are told apart by user ID when signed in, by IP address otherwise.
// Buckets refill continuously, so a client that used up its allowance can make
// another request after window/limit.
func Throttle(buckets *Limiters, limit int, window time.Duration) Gate {
	return &throttle{limit: limit, window: window, buckets: buckets, now: time.Now}
}

func (g *throttle) Name() string {
	return fmt.Sprintf("throttle:%d,%s", g.limit, shortDuration(g.window))
}

// shortDuration formats 1m0s as 1m and 1h0m0s as 1h.
func shortDuration(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}

	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}

	return s
}

func (g *throttle) Check(r *http.Request) error {
	limiter := g.buckets.GetOrAdd(g.key(r), func() *rate.Limiter {
		return rate.NewLimiter(rate.Every(g.window/time.Duration(g.limit)), g.limit)
	})

	now := g.now()

	reservation := limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)

		return tooManyAttempts(delay)
	}

	return nil
}

func (g *throttle) key(r *http.Request) string {
	rc := request_context.FromRequest(r)

	client := "ip:" + utils.ClientIP(r)
	if rc.User != nil {
		client = "user:" + rc.User.ID.String()
	}

	return rc.RouteName + "|" + client
}
