// Package candidates loads and filters the facility pool a report job
// scores against.
package candidates

import (
	"context"
	"encoding/json"
	"time"

	stderrors "carematch-engine/internal/common/errors"
	"carematch-engine/internal/common/logger"
	"carematch-engine/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"database/sql"
)

const (
	poolCachePrefix = "candidates:pool:"
	poolCacheTTL    = 10 * time.Minute
)

// Repository reads facility pools from Postgres with a Redis
// read-through cache in front. The cache stores the unfiltered pool;
// profile filters are applied per request.
type Repository struct {
	db    *sql.DB
	cache *redis.Client
	log   logger.Logger
}

// NewRepository builds a repository. cache may be nil, in which case
// every load hits Postgres.
func NewRepository(db *sql.DB, cache *redis.Client, log logger.Logger) *Repository {
	return &Repository{db: db, cache: cache, log: log}
}

const poolQuery = `
SELECT id, name, postcode, lat, lon, weekly_price, care_levels, registry_rating
FROM facilities
WHERE pool_ref = $1 AND active = true
ORDER BY id`

// LoadPool returns the filtered candidate pool for a profile. Hard
// constraints are applied before scoring: facilities priced beyond
// reach, outside the search area, or without the required care level
// never enter the ranking.
func (r *Repository) LoadPool(ctx context.Context, poolRef string, profile models.ApplicantProfile) ([]models.Candidate, error) {
	pool, err := r.loadCached(ctx, poolRef)
	if err != nil {
		return nil, err
	}
	return Filter(pool, profile), nil
}

func (r *Repository) loadCached(ctx context.Context, poolRef string) ([]models.Candidate, error) {
	key := poolCachePrefix + poolRef

	if r.cache != nil {
		if data, err := r.cache.Get(ctx, key).Result(); err == nil {
			var pool []models.Candidate
			if err := json.Unmarshal([]byte(data), &pool); err == nil {
				return pool, nil
			}
			// Corrupt cache entry; fall through to the database.
			r.cache.Del(ctx, key)
		}
	}

	pool, err := r.queryPool(ctx, poolRef)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if data, err := json.Marshal(pool); err == nil {
			if err := r.cache.Set(ctx, key, string(data), poolCacheTTL).Err(); err != nil {
				r.log.WithError(err).Warn("pool cache write failed", map[string]interface{}{"poolRef": poolRef})
			}
		}
	}
	return pool, nil
}

func (r *Repository) queryPool(ctx context.Context, poolRef string) ([]models.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, poolQuery, poolRef)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("facility pool", err)
	}
	defer rows.Close()

	var pool []models.Candidate
	for rows.Next() {
		var (
			c          models.Candidate
			rating     sql.NullString
			careLevels pq.StringArray
		)
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Location.Postcode, &c.Location.Lat, &c.Location.Lon,
			&c.WeeklyPrice, &careLevels, &rating,
		); err != nil {
			return nil, stderrors.NewQueryExecutionFailedError("facility pool scan", err)
		}
		c.CareLevels = careLevels
		if rating.Valid {
			c.RegistryRating = rating.String
		}
		pool = append(pool, c)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("facility pool rows", err)
	}
	return pool, nil
}

// Filter applies the profile's hard constraints to a pool. Facilities
// that merely score poorly stay in; only outright non-viable ones drop.
func Filter(pool []models.Candidate, profile models.ApplicantProfile) []models.Candidate {
	radius := profile.RadiusKM
	if radius <= 0 {
		radius = models.DefaultRadiusKM
	}

	var out []models.Candidate
	for _, c := range pool {
		if profile.BudgetWeekly > 0 && c.WeeklyPrice > profile.BudgetWeekly*1.1 {
			continue
		}
		if len(c.CareLevels) > 0 && !c.SupportsCareLevel(profile.RequiredCareLevel) {
			continue
		}
		if profile.Location.Lat != 0 || profile.Location.Lon != 0 {
			if c.Location.Lat != 0 || c.Location.Lon != 0 {
				if profile.Location.DistanceKM(c.Location) > radius*1.5 {
					continue
				}
			}
		}
		out = append(out, c)
	}
	return out
}
