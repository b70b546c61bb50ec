package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"venueops-platform/internal/alerts"
	"venueops-platform/internal/auth"
	"venueops-platform/internal/detect"
	"venueops-platform/internal/ledger"
	"venueops-platform/internal/rbac"
	"venueops-platform/internal/reports"
	"venueops-platform/internal/stats"
	"venueops-platform/pkg/logger"
	"venueops-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth    *auth.Manager
	Engine  *detect.Engine
	Sink    detect.Sink
	Cache   detect.Cache
	Guard   SweepGuard
	Ledger  *ledger.Service
	Alerts  *alerts.Service
	Reports *reports.Generator
}

// SweepGuard serializes detection sweeps per club. A nil guard means
// "no serialization" (single-process deployments, tests).
type SweepGuard interface {
	Acquire(ctx context.Context, clubID string) (bool, error)
	Release(ctx context.Context, clubID string)
}

// RedisSweepGuard backs SweepGuard with the shared redis concurrency
// cap (limit 1). The TTL releases the slot if a sweep dies mid-run.
type RedisSweepGuard struct {
	Client *redis.Client
	TTL    time.Duration
}

func (g RedisSweepGuard) key(clubID string) string { return "detect:sweep:guard:" + clubID }

func (g RedisSweepGuard) Acquire(ctx context.Context, clubID string) (bool, error) {
	ttl := g.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return utils.AcquireConcurrencyCap(ctx, g.Client, g.key(clubID), 1, ttl)
}

func (g RedisSweepGuard) Release(ctx context.Context, clubID string) {
	_ = utils.ReleaseConcurrencyCap(ctx, g.Client, g.key(clubID))
}

// RedisCacheClient adapts the shared redis client to the sweep cache.
type RedisCacheClient struct {
	Client *redis.Client
}

func (r RedisCacheClient) Get(ctx context.Context, key string) (string, error) {
	v, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (r RedisCacheClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	ClubID string `json:"club_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.ClubID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, club_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.ClubID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Detection ---

type runDetectionRequest struct {
	WindowDays int    `json:"window_days"`
	EmployeeID string `json:"employee_id"`
	SessionID  string `json:"session_id"`
}

// RunDetection triggers a synchronous sweep for the caller's club. At
// most one sweep per club runs at a time; a concurrent request gets 409.
func (h Handlers) RunDetection(c *gin.Context) {
	clubID, err := auth.ClubID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "club_id required"})
		return
	}
	var req runDetectionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}

	ctx := logger.With(c.Request.Context(), logger.FromGin(c))
	if h.Guard != nil {
		ok, err := h.Guard.Acquire(ctx, clubID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "sweep guard unavailable"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a sweep is already running for this club"})
			return
		}
		defer h.Guard.Release(ctx, clubID)
	}

	result, err := h.Engine.DetectAnomalies(ctx, clubID, detect.SweepOptions{
		WindowDays: req.WindowDays,
		EmployeeID: req.EmployeeID,
		SessionID:  req.SessionID,
	})
	if err != nil {
		if errors.Is(err, detect.ErrInvalidSweep) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sweep failed"})
		return
	}

	outcome, err := h.Sink.Persist(ctx, result)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "persisting findings failed"})
		return
	}
	h.Cache.Store(ctx, result, time.Now().UTC())

	c.JSON(http.StatusOK, gin.H{
		"club_id":  result.ClubID,
		"findings": result.Findings,
		"summary":  result.Summary,
		"outcome":  outcome,
	})
}

// SweepSummary returns the cached summary of the last completed sweep,
// if any. Dashboard polls hit this instead of re-running analyzers.
func (h Handlers) SweepSummary(c *gin.Context) {
	clubID, err := auth.ClubID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "club_id required"})
		return
	}
	cached, ok := h.Cache.Load(c.Request.Context(), clubID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no completed sweep"})
		return
	}
	c.JSON(http.StatusOK, cached)
}

// --- Audit ---

func (h Handlers) ListAudit(c *gin.Context) {
	clubID, err := auth.ClubID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "club_id required"})
		return
	}
	from, to, ok := timeRange(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 0)
	offset := intQuery(c, "offset", 0)

	entries, err := h.Ledger.List(c.Request.Context(), clubID, from, to, limit, offset)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit read failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h Handlers) VerifyAudit(c *gin.Context) {
	clubID, err := auth.ClubID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "club_id required"})
		return
	}
	from, to, ok := timeRange(c)
	if !ok {
		return
	}
	verification, err := h.Ledger.VerifyChain(c.Request.Context(), clubID, from, to)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "chain verification failed"})
		return
	}
	c.JSON(http.StatusOK, verification)
}

// --- Alerts ---

func (h Handlers) ListAlerts(c *gin.Context) {
	clubID, err := auth.ClubID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "club_id required"})
		return
	}
	role, _ := auth.Role(c.Request.Context())
	from, to, ok := timeRange(c)
	if !ok {
		return
	}

	f := alerts.Filter{
		Status:   alerts.Status(c.Query("status")),
		Severity: stats.Severity(c.Query("severity")),
		Type:     alerts.Type(c.Query("type")),
		From:     from,
		To:       to,
		Limit:    intQuery(c, "limit", 0),
		Offset:   intQuery(c, "offset", 0),
		// Owner-only alerts stay hidden from managers and floor staff.
		IncludeOwnerOnly: rbac.IsOwner(role),
	}
	out, err := h.Alerts.List(c.Request.Context(), clubID, f)
	if err != nil {
		if errors.Is(err, alerts.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "alert read failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": out})
}

func (h Handlers) AcknowledgeAlert(c *gin.Context) {
	h.transitionAlert(c, func(ctx context.Context, clubID, id, userID string) (alerts.Alert, error) {
		return h.Alerts.Acknowledge(ctx, clubID, id)
	})
}

type resolveAlertRequest struct {
	Resolution string `json:"resolution"`
}

func (h Handlers) ResolveAlert(c *gin.Context) {
	var req resolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	h.transitionAlert(c, func(ctx context.Context, clubID, id, userID string) (alerts.Alert, error) {
		return h.Alerts.Resolve(ctx, clubID, id, userID, req.Resolution)
	})
}

type dismissAlertRequest struct {
	Reason string `json:"reason"`
}

func (h Handlers) DismissAlert(c *gin.Context) {
	var req dismissAlertRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	h.transitionAlert(c, func(ctx context.Context, clubID, id, userID string) (alerts.Alert, error) {
		return h.Alerts.Dismiss(ctx, clubID, id, userID, req.Reason)
	})
}

func (h Handlers) transitionAlert(c *gin.Context, apply func(ctx context.Context, clubID, id, userID string) (alerts.Alert, error)) {
	clubID, err := auth.ClubID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "club_id required"})
		return
	}
	userID, _ := auth.UserID(c.Request.Context())
	id := c.Param("alert_id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "alert_id required"})
		return
	}

	out, err := apply(c.Request.Context(), clubID, id, userID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, out)
	case errors.Is(err, alerts.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "alert not found"})
	case errors.Is(err, alerts.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, alerts.ErrResolutionRequired), errors.Is(err, alerts.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "alert update failed"})
	}
}

// --- Reports ---

func (h Handlers) ListReports(c *gin.Context) {
	clubID, err := auth.ClubID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "club_id required"})
		return
	}
	f := reports.Filter{
		Analysis: reports.AnalysisType(c.Query("analysis_type")),
		From:     c.Query("from"),
		To:       c.Query("to"),
		Limit:    intQuery(c, "limit", 0),
		Offset:   intQuery(c, "offset", 0),
	}
	out, err := h.Reports.List(c.Request.Context(), clubID, f)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report read failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": out})
}

type generateReportRequest struct {
	Date string `json:"date"` // YYYY-MM-DD; defaults to yesterday (UTC)
}

func (h Handlers) GenerateReport(c *gin.Context) {
	clubID, err := auth.ClubID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "club_id required"})
		return
	}
	var req generateReportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	day := time.Now().UTC().AddDate(0, 0, -1)
	if req.Date != "" {
		day, err = time.Parse(time.DateOnly, req.Date)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
	}

	ctx := logger.With(c.Request.Context(), logger.FromGin(c))
	rep, err := h.Reports.Generate(ctx, clubID, day)
	if err != nil {
		if errors.Is(err, reports.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report generation failed"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h Handlers) MarkReportViewed(c *gin.Context) {
	clubID, err := auth.ClubID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "club_id required"})
		return
	}
	id := c.Param("report_id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "report_id required"})
		return
	}
	rep, err := h.Reports.MarkViewed(c.Request.Context(), clubID, id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, rep)
	case errors.Is(err, reports.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "report not found"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report update failed"})
	}
}

// --- helpers ---

func timeRange(c *gin.Context) (from, to time.Time, ok bool) {
	var err error
	if v := c.Query("from"); v != "" {
		from, err = time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return time.Time{}, time.Time{}, false
		}
	}
	if v := c.Query("to"); v != "" {
		to, err = time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return time.Time{}, time.Time{}, false
		}
	}
	return from, to, true
}

func intQuery(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// Convenience middleware bundles.

func RequireClubAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireClub(), rbac.RequireAnyRole(roles...)}
}
