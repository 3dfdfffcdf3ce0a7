package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/time/rate"

	"tripnav/internal/metrics"
	"tripnav/internal/model"
	"tripnav/internal/store"
)

// Runner drives one estimation batch: enumerate directed pairs for an
// area, estimate each through a bounded worker pool behind a rate limiter,
// and upsert the resulting transport records (plus mirrored reverse rows).
type Runner struct {
	Store       store.Store
	Estimator   Estimator
	Cache       Cache // optional
	Limiter     *rate.Limiter
	Concurrency int

	// Depot, when named, adds origin-to-destination legs to every batch so
	// the outbound depot table is estimated alongside the area-internal one.
	Depot model.Destination
	// Places, when set, enables catalog collection (Collect).
	Places *PlacesClient
}

func NewRunner(s store.Store, est Estimator, cache Cache, concurrency int, perSecond float64) *Runner {
	if concurrency <= 0 {
		concurrency = 8
	}
	if perSecond <= 0 {
		perSecond = 2
	}
	return &Runner{
		Store:       s,
		Estimator:   est,
		Cache:       cache,
		Limiter:     rate.NewLimiter(rate.Limit(perSecond), concurrency),
		Concurrency: concurrency,
	}
}

type pair struct {
	from, to model.Destination
}

// pairsFor enumerates the directed pairs worth estimating: one outbound
// leg from the depot to every destination, then both orders of every two
// destinations, minus hotel-to-hotel legs (never traveled) and minus the
// reverse of a pair already queued; the reverse row is mirrored from the
// estimate instead of re-estimated. A depot with an empty name means no
// origin legs are wanted.
func pairsFor(depot model.Destination, dests []model.Destination) []pair {
	queued := map[[2]int]bool{}
	var out []pair
	if depot.Name != "" {
		for _, d := range dests {
			queued[[2]int{depot.ID, d.ID}] = true
			out = append(out, pair{from: depot, to: d})
		}
	}
	for _, a := range dests {
		for _, b := range dests {
			if a.ID == b.ID {
				continue
			}
			if a.IsHotel && b.IsHotel {
				continue
			}
			if queued[[2]int{b.ID, a.ID}] {
				continue
			}
			queued[[2]int{a.ID, b.ID}] = true
			out = append(out, pair{from: a, to: b})
		}
	}
	return out
}

type estimated struct {
	pair     pair
	est      Estimate
	cacheHit bool
	fallback bool
}

// Run executes one batch for an area. Individual estimation failures never
// abort the batch; they record the default estimate.
func (r *Runner) Run(ctx context.Context, area string) (model.IngestSummary, error) {
	dests, err := r.Store.GetDestinations(ctx, area)
	if err != nil {
		return model.IngestSummary{}, fmt.Errorf("ingest: load %q: %w", area, err)
	}
	pairs := pairsFor(r.Depot, dests)
	summary := model.IngestSummary{Area: area, Pairs: len(pairs)}
	if len(pairs) == 0 {
		return summary, nil
	}

	jobs := make(chan pair)
	results := make(chan estimated)
	var wg sync.WaitGroup
	for i := 0; i < r.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				results <- r.estimateOne(ctx, p)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, p := range pairs {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var recs []model.TransportRecord
	for res := range results {
		switch {
		case res.cacheHit:
			summary.CacheHits++
			metrics.IngestEstimates.WithLabelValues("cache_hit").Inc()
		case res.fallback:
			summary.Fallbacks++
			metrics.IngestEstimates.WithLabelValues("fallback").Inc()
		default:
			summary.Estimated++
			metrics.IngestEstimates.WithLabelValues("estimated").Inc()
		}
		recs = append(recs, model.TransportRecord{
			StartDestinationID: res.pair.from.ID,
			EndDestinationID:   res.pair.to.ID,
			Fare:               res.est.Fare,
			Method:             res.est.Method,
			TimeMinutes:        res.est.TimeMinutes,
		})
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	recs = withReverse(recs)
	stored, err := r.Store.UpsertTransport(ctx, recs)
	if err != nil {
		return summary, fmt.Errorf("ingest: store %q: %w", area, err)
	}
	summary.Stored = stored
	return summary, nil
}

func (r *Runner) estimateOne(ctx context.Context, p pair) estimated {
	if r.Cache != nil {
		if est, ok := r.Cache.Get(ctx, p.from.ID, p.to.ID); ok {
			return estimated{pair: p, est: est, cacheHit: true}
		}
	}
	if err := r.Limiter.Wait(ctx); err != nil {
		return estimated{pair: p, est: DefaultEstimate, fallback: true}
	}
	est, err := r.Estimator.Estimate(ctx, p.from, p.to)
	if err != nil {
		log.Printf("ingest estimate %d->%d failed, using defaults: %v", p.from.ID, p.to.ID, err)
		return estimated{pair: p, est: DefaultEstimate, fallback: true}
	}
	if r.Cache != nil {
		r.Cache.Put(ctx, p.from.ID, p.to.ID, est)
	}
	return estimated{pair: p, est: est}
}

// withReverse mirrors each record in the opposite direction unless that
// direction was estimated on its own.
func withReverse(recs []model.TransportRecord) []model.TransportRecord {
	existing := map[[2]int]bool{}
	for _, r := range recs {
		existing[[2]int{r.StartDestinationID, r.EndDestinationID}] = true
	}
	out := recs
	for _, r := range recs {
		rev := [2]int{r.EndDestinationID, r.StartDestinationID}
		if existing[rev] {
			continue
		}
		existing[rev] = true
		out = append(out, model.TransportRecord{
			StartDestinationID: r.EndDestinationID,
			EndDestinationID:   r.StartDestinationID,
			Fare:               r.Fare,
			Method:             r.Method,
			TimeMinutes:        r.TimeMinutes,
		})
	}
	return out
}
