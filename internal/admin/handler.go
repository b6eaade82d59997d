// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/filedrive-app/filedrive/internal/core"
)

// Handler serves operator-facing statistics. Everything here sits
// behind the admin role check.
type Handler struct {
	db         core.DBTX
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	dbPing     func(ctx context.Context) error
	redisPing  func(ctx context.Context) error
}

type HandlerConfig struct {
	DB         core.DBTX
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	DBPing     func(ctx context.Context) error
	RedisPing  func(ctx context.Context) error
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		db:         cfg.DB,
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		dbPing:     cfg.DBPing,
		redisPing:  cfg.RedisPing,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/stats", h.Overview)
		r.Get("/stats/db", h.DatabaseStats)
		r.Get("/stats/redis", h.RedisStats)
		r.Get("/stats/files", h.FileStats)
		r.Get("/stats/runtime", h.RuntimeStats)
	})
}

// Overview bundles every stats endpoint into one response.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	files, err := h.countFiles(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, OverviewResponse{
		Database: ComponentStatus[*DBPoolStats]{
			Healthy: probe(ctx, h.dbPing),
			Stats:   h.poolStats(),
		},
		Redis: ComponentStatus[*RedisPoolStats]{
			Healthy: probe(ctx, h.redisPing),
			Stats:   h.cacheStats(),
		},
		Files:   *files,
		Runtime: collectRuntime(),
	})
}

func (h *Handler) DatabaseStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.poolStats())
}

func (h *Handler) RedisStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.cacheStats())
}

// FileStats reports registry-wide counts, including the sweep backlog.
func (h *Handler) FileStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.countFiles(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, stats)
}

func (h *Handler) RuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, collectRuntime())
}

// probe treats an absent ping func as healthy so partial wiring in
// tests does not report a degraded component.
func probe(ctx context.Context, ping func(context.Context) error) bool {
	if ping == nil {
		return true
	}
	return ping(ctx) == nil
}

func (h *Handler) countFiles(ctx context.Context) (*FileCounts, error) {
	query := `
		SELECT
			COUNT(*)                                          AS total,
			COUNT(*) FILTER (WHERE should_delete)             AS marked,
			(SELECT COUNT(*) FROM favorites)                  AS favorites,
			(SELECT COUNT(*) FROM organizations)              AS organizations
		FROM files`

	var counts FileCounts
	if err := h.db.GetContext(ctx, &counts, query); err != nil {
		return nil, err
	}

	return &counts, nil
}

func (h *Handler) poolStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	s := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration.String(),
		MaxIdleClosed:      s.MaxIdleClosed,
		MaxIdleTimeClosed:  s.MaxIdleTimeClosed,
		MaxLifetimeClosed:  s.MaxLifetimeClosed,
	}
}

func (h *Handler) cacheStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	s := h.redisStats()
	return &RedisPoolStats{
		Hits:       s.Hits,
		Misses:     s.Misses,
		Timeouts:   s.Timeouts,
		TotalConns: s.TotalConns,
		IdleConns:  s.IdleConns,
		StaleConns: s.StaleConns,
	}
}

func collectRuntime() RuntimeInfo {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     mem.Alloc,
		MemSys:       mem.Sys,
		NumGC:        mem.NumGC,
	}
}

type OverviewResponse struct {
	Database ComponentStatus[*DBPoolStats]    `json:"database"`
	Redis    ComponentStatus[*RedisPoolStats] `json:"redis"`
	Files    FileCounts                       `json:"files"`
	Runtime  RuntimeInfo                      `json:"runtime"`
}

type ComponentStatus[S any] struct {
	Healthy bool `json:"healthy"`
	Stats   S    `json:"stats,omitempty"`
}

type FileCounts struct {
	Total         int `db:"total"         json:"total"`
	Marked        int `db:"marked"        json:"marked_for_deletion"`
	Favorites     int `db:"favorites"     json:"favorites"`
	Organizations int `db:"organizations" json:"organizations"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
	MaxIdleClosed      int64  `json:"max_idle_closed"`
	MaxIdleTimeClosed  int64  `json:"max_idle_time_closed"`
	MaxLifetimeClosed  int64  `json:"max_lifetime_closed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
