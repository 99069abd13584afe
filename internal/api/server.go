package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goroute/internal/cache"
	"github.com/TimurManjosov/goroute/internal/clicks"
	"github.com/TimurManjosov/goroute/internal/engine"
	"github.com/TimurManjosov/goroute/internal/rules"
	"github.com/TimurManjosov/goroute/internal/store"
	"github.com/TimurManjosov/goroute/internal/telemetry"
)

// Server wires the public redirect endpoint and the admin ruleset API onto a
// single chi router.
type Server struct {
	store          store.Store
	cache          *cache.Cache
	redirects      *engine.Router
	clicks         *clicks.Counter
	log            zerolog.Logger
	adminAPIKey    string
	rateLimitPerIP int
}

func NewServer(repo store.Store, c *cache.Cache, redirects *engine.Router, counter *clicks.Counter, log zerolog.Logger, adminKey string, rateLimitPerIP int) *Server {
	return &Server{
		store:          repo,
		cache:          c,
		redirects:      redirects,
		clicks:         counter,
		log:            log,
		adminAPIKey:    adminKey,
		rateLimitPerIP: rateLimitPerIP,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)
	r.Use(middleware.Timeout(10 * time.Second))

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// public: the redirect itself
	r.Group(func(r chi.Router) {
		if s.rateLimitPerIP > 0 {
			r.Use(httprate.LimitByIP(s.rateLimitPerIP, time.Minute))
		}
		r.Get("/r/{identifier}", s.handleRedirect)
	})

	// admin (protected): ruleset CRUD and click stats
	r.Route("/v1/rulesets", func(r chi.Router) {
		r.Use(s.authAdmin)
		r.Get("/", s.handleListRuleSets)
		r.Post("/", s.handleCreateRuleSet)
		r.Get("/{id}", s.handleGetRuleSet)
		r.Put("/{id}", s.handleUpdateRuleSet)
		r.Delete("/{id}", s.handleDeleteRuleSet)
		r.Get("/{id}/clicks", s.handleClicks)
		r.Post("/{id}/rules", s.handleAddRule)
		r.Put("/{id}/rules/order", s.handleReorderRules)
		r.Delete("/{id}/rules/{ruleID}", s.handleDeleteRule)
	})

	return r
}

// ---- public handler ----

func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	v := visitorFromRequest(r)

	url, err := s.redirects.Route(r.Context(), identifier, v)
	if err != nil {
		NotFoundError(w, r, "no ruleset for identifier")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// visitorFromRequest extracts the routing inputs from an incoming request.
// middleware.RealIP has already rewritten RemoteAddr from X-Real-IP or
// X-Forwarded-For when a proxy set them.
func visitorFromRequest(r *http.Request) *rules.Visitor {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return &rules.Visitor{
		IP:      ip,
		Referer: r.Referer(),
		Params:  r.URL.RawQuery,
	}
}

// ---- admin handlers ----

func (s *Server) handleListRuleSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.store.ListRuleSets(r.Context())
	if err != nil {
		InternalError(w, r, "failed to list rulesets")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rulesets": sets})
}

func (s *Server) handleCreateRuleSet(w http.ResponseWriter, r *http.Request) {
	var params store.RuleSetParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return
	}
	if fields := validateRuleSetParams(params); len(fields) > 0 {
		ValidationError(w, r, "invalid ruleset", fields)
		return
	}

	rs, err := s.store.CreateRuleSet(r.Context(), params)
	if errors.Is(err, store.ErrConflict) {
		ConflictError(w, r, "nickname or stub already in use")
		return
	}
	if err != nil {
		InternalError(w, r, "failed to create ruleset")
		return
	}
	writeJSON(w, http.StatusCreated, rs)
}

func (s *Server) handleGetRuleSet(w http.ResponseWriter, r *http.Request) {
	// Accepts a stub or a numeric id, same as the redirect endpoint.
	rs, err := s.store.GetRuleSet(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		NotFoundError(w, r, "ruleset not found")
		return
	}
	if err != nil {
		InternalError(w, r, "failed to load ruleset")
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleUpdateRuleSet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var params store.RuleSetParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return
	}
	if fields := validateRuleSetParams(params); len(fields) > 0 {
		ValidationError(w, r, "invalid ruleset", fields)
		return
	}

	// Grab the pre-update snapshot so the old stub's cache entry can be
	// dropped when the stub changes.
	before, _ := s.store.GetRuleSet(r.Context(), strconv.FormatInt(id, 10))

	rs, err := s.store.UpdateRuleSet(r.Context(), id, params)
	if errors.Is(err, store.ErrNotFound) {
		NotFoundError(w, r, "ruleset not found")
		return
	}
	if errors.Is(err, store.ErrConflict) {
		ConflictError(w, r, "nickname or stub already in use")
		return
	}
	if err != nil {
		InternalError(w, r, "failed to update ruleset")
		return
	}

	s.invalidate(r, before)
	s.invalidate(r, rs)
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleDeleteRuleSet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	before, _ := s.store.GetRuleSet(r.Context(), strconv.FormatInt(id, 10))

	if err := s.store.DeleteRuleSet(r.Context(), id); err != nil {
		InternalError(w, r, "failed to delete ruleset")
		return
	}
	s.invalidate(r, before)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var params store.RuleParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return
	}
	if err := rules.ValidateRule(rules.Rule{Key: params.Key, Op: params.Op, Value: params.Value}); err != nil {
		BadRequestError(w, r, ErrCodeInvalidRule, err.Error())
		return
	}

	rule, err := s.store.AddRule(r.Context(), id, params)
	if errors.Is(err, store.ErrNotFound) {
		NotFoundError(w, r, "ruleset not found")
		return
	}
	if err != nil {
		InternalError(w, r, "failed to add rule")
		return
	}

	s.invalidateByID(r, id)
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	ruleID, ok := parseID(w, r, "ruleID")
	if !ok {
		return
	}

	err := s.store.DeleteRule(r.Context(), id, ruleID)
	if errors.Is(err, store.ErrNotFound) {
		NotFoundError(w, r, "ruleset not found")
		return
	}
	if err != nil {
		InternalError(w, r, "failed to delete rule")
		return
	}

	s.invalidateByID(r, id)
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	RuleIDs []int64 `json:"rule_ids"`
}

func (s *Server) handleReorderRules(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return
	}

	err := s.store.ReorderRules(r.Context(), id, req.RuleIDs)
	if errors.Is(err, store.ErrNotFound) {
		NotFoundError(w, r, "ruleset not found")
		return
	}
	if err != nil {
		// Anything else is a bad permutation from the caller.
		BadRequestError(w, r, ErrCodeValidation, err.Error())
		return
	}

	s.invalidateByID(r, id)
	w.WriteHeader(http.StatusNoContent)
}

type clicksResponse struct {
	RuleSetID int64  `json:"ruleset_id"`
	RuleID    int64  `json:"rule_id,omitempty"`
	Day       string `json:"day,omitempty"`
	SegmentID int64  `json:"segment_id,omitempty"`
	Clicks    int64  `json:"clicks"`
}

func (s *Server) handleClicks(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	q := r.URL.Query()
	day := q.Get("day") // empty means today
	var segmentID, ruleID int64
	if v := q.Get("segment"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			BadRequestError(w, r, ErrCodeInvalidID, "segment must be an integer")
			return
		}
		segmentID = n
	}
	if v := q.Get("rule"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			BadRequestError(w, r, ErrCodeInvalidID, "rule must be an integer")
			return
		}
		ruleID = n
	}

	var (
		count int64
		err   error
	)
	if ruleID > 0 {
		count, err = s.clicks.RuleClicks(r.Context(), id, ruleID, day)
	} else {
		count, err = s.clicks.RulesetClicks(r.Context(), id, day, segmentID)
	}
	if err != nil {
		InternalError(w, r, "failed to read click counters")
		return
	}

	writeJSON(w, http.StatusOK, clicksResponse{
		RuleSetID: id,
		RuleID:    ruleID,
		Day:       day,
		SegmentID: segmentID,
		Clicks:    count,
	})
}

// ---- middleware & helpers ----

func (s *Server) authAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if got == "" {
			UnauthorizedError(w, r, "missing bearer token")
			return
		}
		// constant-time compare
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminAPIKey)) != 1 {
			ForbiddenError(w, r, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func validateRuleSetParams(params store.RuleSetParams) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(params.Nickname) == "" {
		fields["nickname"] = "nickname is required"
	}
	if strings.TrimSpace(params.FallbackURL) == "" {
		fields["fallback_url"] = "fallback URL is required"
	}
	return fields
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		BadRequestError(w, r, ErrCodeInvalidID, param+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// invalidate drops the cache entries a ruleset is reachable under, so admin
// edits take effect immediately instead of after TTL expiry.
func (s *Server) invalidate(r *http.Request, rs *rules.RuleSet) {
	if rs == nil {
		return
	}
	s.cache.Invalidate(r.Context(), rs.Stub)
	s.cache.Invalidate(r.Context(), strconv.FormatInt(rs.ID, 10))
}

func (s *Server) invalidateByID(r *http.Request, id int64) {
	rs, err := s.store.GetRuleSet(r.Context(), strconv.FormatInt(id, 10))
	if err != nil {
		s.cache.Invalidate(r.Context(), strconv.FormatInt(id, 10))
		return
	}
	s.invalidate(r, rs)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
