package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	stderrors "carematch-engine/internal/common/errors"
	"carematch-engine/internal/common/logger"
	"carematch-engine/internal/common/metrics"
	"carematch-engine/internal/models"
)

// Pair names one (candidate, source) fetch to perform.
type Pair struct {
	CandidateID string
	Source      string
}

// Orchestrator fans candidate enrichment out across the registered
// source clients. Concurrency is bounded by a semaphore shared across
// jobs, each fetch runs under its own timeout, and every outcome lands
// in the job's tracker. One slow or dead source never blocks the rest.
type Orchestrator struct {
	clients map[string]SourceClient
	sem     chan struct{}
	timeout time.Duration
	log     logger.Logger

	// mergeMu serializes bundle writes; payloads for one candidate land
	// in the same map from different goroutines.
	mergeMu sync.Mutex
}

// NewOrchestrator builds an orchestrator over the given clients.
// maxInFlight bounds concurrent fetches across all candidates and
// sources; perSourceTimeout caps each individual fetch.
func NewOrchestrator(clients []SourceClient, maxInFlight int, perSourceTimeout time.Duration, log logger.Logger) *Orchestrator {
	if maxInFlight <= 0 {
		maxInFlight = 16
	}
	if perSourceTimeout <= 0 {
		perSourceTimeout = 5 * time.Second
	}
	byName := make(map[string]SourceClient, len(clients))
	for _, c := range clients {
		byName[c.Name()] = c
	}
	return &Orchestrator{
		clients: byName,
		sem:     make(chan struct{}, maxInFlight),
		timeout: perSourceTimeout,
		log:     log,
	}
}

// Sources lists the registered source names.
func (o *Orchestrator) Sources() []string {
	names := make([]string, 0, len(o.clients))
	for name := range o.clients {
		names = append(names, name)
	}
	return names
}

// EnrichAll fetches every registered source for every candidate. It
// blocks until all fetches have completed or given up; failures are
// recorded in the tracker and left as missing placeholders in the
// candidate bundles rather than surfaced as errors.
func (o *Orchestrator) EnrichAll(ctx context.Context, candidates []models.Candidate, tracker *Tracker) {
	pairs := make([]Pair, 0, len(candidates)*len(o.clients))
	for _, c := range candidates {
		for name := range o.clients {
			pairs = append(pairs, Pair{CandidateID: c.ID, Source: name})
		}
	}
	o.EnrichPairs(ctx, candidates, pairs, tracker)
}

// EnrichPairs fetches only the named (candidate, source) pairs. The
// retry scheduler uses this to re-attempt missing pairs without
// re-fetching data that already succeeded.
func (o *Orchestrator) EnrichPairs(ctx context.Context, candidates []models.Candidate, pairs []Pair, tracker *Tracker) {
	byID := make(map[string]*models.Candidate, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}

	candidateIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		candidateIDs = append(candidateIDs, c.ID)
	}
	tracker.Seed(candidateIDs, o.Sources())

	var wg sync.WaitGroup
	for _, pair := range pairs {
		candidate, ok := byID[pair.CandidateID]
		if !ok {
			continue
		}
		client, ok := o.clients[pair.Source]
		if !ok {
			tracker.RecordFailure(pair.CandidateID, pair.Source, "source not registered", 0)
			continue
		}

		wg.Add(1)
		go func(candidate *models.Candidate, client SourceClient) {
			defer wg.Done()

			select {
			case o.sem <- struct{}{}:
				defer func() { <-o.sem }()
			case <-ctx.Done():
				tracker.RecordFailure(candidate.ID, client.Name(), ctx.Err().Error(), 0)
				return
			}

			o.fetchOne(ctx, candidate, client, tracker)
		}(candidate, client)
	}
	wg.Wait()
}

// fetchOne runs a single fetch under the per-source timeout and records
// its outcome. A panicking client is treated as a fetch failure.
func (o *Orchestrator) fetchOne(ctx context.Context, candidate *models.Candidate, client SourceClient, tracker *Tracker) {
	source := client.Name()
	fetchCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			elapsed := time.Since(start)
			metrics.SourceFetchesTotal.WithLabelValues(source, "panic").Inc()
			tracker.RecordFailure(candidate.ID, source, fmt.Sprintf("source client panic: %v", r), elapsed)
			o.log.Error("source client panicked", map[string]interface{}{
				"source":      source,
				"candidateId": candidate.ID,
				"panic":       fmt.Sprintf("%v", r),
			})
		}
	}()

	payload, err := client.Fetch(fetchCtx, *candidate)
	elapsed := time.Since(start)
	metrics.SourceFetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())

	if err != nil {
		stdErr := o.classify(err, fetchCtx, source, candidate.ID)
		metrics.SourceFetchesTotal.WithLabelValues(source, "failure").Inc()
		reason := stdErr.Error()
		if stdErr.Details != "" {
			reason = fmt.Sprintf("%s (%s)", reason, stdErr.Details)
		}
		tracker.RecordFailure(candidate.ID, source, reason, elapsed)
		o.log.Warn("source fetch failed", map[string]interface{}{
			"source":      source,
			"candidateId": candidate.ID,
			"errorCode":   string(stdErr.Code),
			"elapsedMs":   elapsed.Milliseconds(),
		})
		return
	}

	payload.Source = source
	payload.Missing = false
	if payload.FetchedAt.IsZero() {
		payload.FetchedAt = time.Now().UTC()
	}

	o.mergeMu.Lock()
	if candidate.Enrichment == nil {
		candidate.Enrichment = models.NewEnrichmentBundle(o.Sources())
	}
	candidate.Enrichment.Merge(payload)
	o.mergeMu.Unlock()

	metrics.SourceFetchesTotal.WithLabelValues(source, "success").Inc()
	tracker.RecordSuccess(candidate.ID, source, elapsed)
	o.log.Debug("source fetch succeeded", map[string]interface{}{
		"source":      source,
		"candidateId": candidate.ID,
		"elapsedMs":   elapsed.Milliseconds(),
	})
}

func (o *Orchestrator) classify(err error, fetchCtx context.Context, source, candidateID string) *stderrors.StandardError {
	if fetchCtx.Err() == context.DeadlineExceeded {
		return stderrors.NewSourceTimeoutError(source, candidateID)
	}
	return stderrors.NewSourceFetchFailedError(source, candidateID, err)
}
