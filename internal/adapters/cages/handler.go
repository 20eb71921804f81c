// Package cages exposes the cage lineage queries and lifecycle transitions over
// HTTP.
package cages

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"cagecore/internal/core"
	"cagecore/pkg/domain"

	"github.com/gorilla/mux"
)

// Service is the slice of core.Service the handler needs.
type Service interface {
	ResolveType(ctx context.Context, cageID string) (domain.CageType, error)
	GetInfo(ctx context.Context, cageID string) (domain.CageInfo, error)
	FindAncestorsLimit(ctx context.Context, cageID string, maxHops int) ([]domain.CageInfo, error)
	BuildDescendantTreeDepth(ctx context.Context, cageID string, maxDepth int) ([]domain.LineageNode, error)
	LineageForest(ctx context.Context) ([]domain.LineageTree, error)
	Lineage(ctx context.Context, cageID string, direction domain.LineageDirection) (domain.LineageView, error)
	Archive(ctx context.Context, req core.TransitionRequest) (core.TransitionResult, error)
	Restore(ctx context.Context, req core.TransitionRequest) (core.TransitionResult, error)
	PermanentDelete(ctx context.Context, req core.TransitionRequest) (core.TransitionResult, error)
}

// ActorResolver identifies the caller of a request. Session handling lives
// outside this package.
type ActorResolver interface {
	ResolveActor(r *http.Request) (domain.Actor, error)
}

// ActorResolverFunc adapts a function to ActorResolver.
type ActorResolverFunc func(r *http.Request) (domain.Actor, error)

// ResolveActor implements ActorResolver.
func (f ActorResolverFunc) ResolveActor(r *http.Request) (domain.Actor, error) { return f(r) }

// Header names read by HeaderActorResolver.
const (
	ActorHeader = "X-Cagecore-Actor"
	RoleHeader  = "X-Cagecore-Role"
)

// HeaderActorResolver trusts identity headers set by an authenticating proxy.
var HeaderActorResolver = ActorResolverFunc(func(r *http.Request) (domain.Actor, error) {
	actor := domain.Actor{ID: r.Header.Get(ActorHeader), Role: domain.Role(r.Header.Get(RoleHeader))}
	if actor.ID == "" || !actor.Role.Valid() {
		return domain.Actor{}, errors.New("missing actor identity")
	}
	return actor, nil
})

// Handler routes cage requests to the service.
type Handler struct {
	Service Service
	Actors  ActorResolver
	router  *mux.Router
}

// NewHandler constructs a cage HTTP handler.
func NewHandler(svc Service, actors ActorResolver) *Handler {
	h := &Handler{Service: svc, Actors: actors}
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/lineage/forest", h.handleForest).Methods(http.MethodGet)
	api.HandleFunc("/cages/{id}/type", h.handleType).Methods(http.MethodGet)
	api.HandleFunc("/cages/{id}/info", h.handleInfo).Methods(http.MethodGet)
	api.HandleFunc("/cages/{id}/ancestors", h.handleAncestors).Methods(http.MethodGet)
	api.HandleFunc("/cages/{id}/descendants", h.handleDescendants).Methods(http.MethodGet)
	api.HandleFunc("/cages/{id}/lineage", h.handleLineage).Methods(http.MethodGet)
	api.HandleFunc("/cages/{id}/{action:archive|restore|delete}", h.handleTransition).Methods(http.MethodPost)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "endpoint not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "cage service not configured")
		return
	}
	h.router.ServeHTTP(w, r)
}

func (h *Handler) handleType(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	typ, err := h.Service.ResolveType(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cage_id": id, "type": typ, "short": typ.Short()})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.Service.GetInfo(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cage": info})
}

func (h *Handler) handleAncestors(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "max", 0)
	if !ok {
		return
	}
	chain, err := h.Service.FindAncestorsLimit(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ancestors": chain})
}

func (h *Handler) handleDescendants(w http.ResponseWriter, r *http.Request) {
	depth, ok := intParam(w, r, "depth", -1)
	if !ok {
		return
	}
	nodes, err := h.Service.BuildDescendantTreeDepth(r.Context(), mux.Vars(r)["id"], depth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"descendants": nodes})
}

func (h *Handler) handleLineage(w http.ResponseWriter, r *http.Request) {
	direction := domain.LineageDirection(r.URL.Query().Get("direction"))
	view, err := h.Service.Lineage(r.Context(), mux.Vars(r)["id"], direction)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lineage": view})
}

func (h *Handler) handleForest(w http.ResponseWriter, r *http.Request) {
	forest, err := h.Service.LineageForest(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"forest": forest})
}

type transitionBody struct {
	Confirm bool `json:"confirm"`
}

// handleTransition reads confirmation from the JSON body only; query strings
// never confirm a transition.
func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	if h.Actors == nil {
		writeError(w, http.StatusInternalServerError, "actor resolver not configured")
		return
	}
	actor, err := h.Actors.ResolveActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var body transitionBody
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	vars := mux.Vars(r)
	req := core.TransitionRequest{CageID: vars["id"], Actor: actor, Confirmed: body.Confirm}

	var result core.TransitionResult
	switch core.Action(vars["action"]) {
	case core.ActionArchive:
		result, err = h.Service.Archive(r.Context(), req)
	case core.ActionRestore:
		result, err = h.Service.Restore(r.Context(), req)
	case core.ActionDelete:
		result, err = h.Service.PermanentDelete(r.Context(), req)
	default:
		writeError(w, http.StatusNotFound, "endpoint not found")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func intParam(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name+" parameter")
		return 0, false
	}
	return n, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	var opErr *domain.OperationError
	if errors.As(err, &opErr) {
		writeError(w, status, opErr.Error())
		return
	}
	writeError(w, status, "the operation could not be completed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
