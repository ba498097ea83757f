// Package httpapi is the HTTP surface of the procurement service.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"procurio.org/internal/audit"
	"procurio.org/internal/auth"
	"procurio.org/internal/identity"
	"procurio.org/internal/obs"
	"procurio.org/internal/procure"
	"procurio.org/internal/stream"
)

// ReadyProbe reports whether the backing store is reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the procurement service.
type API struct {
	mux        *http.ServeMux
	svc        *procure.Service
	gateway    identity.Gateway
	readyProbe ReadyProbe
	events     *stream.Stream
	version    string
	rateBurst  int
	ratePerSec int
}

// SetEventStream enables the /events SSE feed. Call before Handler.
func (a *API) SetEventStream(s *stream.Stream) {
	a.events = s
}

// New wires the routing table. The returned API still needs Handler() to get
// the middleware chain applied.
func New(svc *procure.Service, gw identity.Gateway, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		gateway:    gw,
		readyProbe: rp,
		version:    version,
		rateBurst:  20,
		ratePerSec: 10,
	}

	a.mux.HandleFunc("/auth/login", a.handleLogin)
	a.mux.HandleFunc("/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/auth/register", a.handleRegister)

	a.mux.HandleFunc("/purchase-orders", a.handleOrders)
	a.mux.HandleFunc("/purchase-orders/", a.handleOrderResource)

	a.mux.HandleFunc("/shipments", a.handleShipments)
	a.mux.HandleFunc("/shipments/", a.handleShipmentResource)

	a.mux.HandleFunc("/users", a.handleUsers)
	a.mux.HandleFunc("/users/", a.handleUserResource)

	a.mux.HandleFunc("/events", a.handleEvents)

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "endpoint not found")
	})

	return a
}

// SetRateLimit overrides the default per-client rate limit. Call before
// Handler.
func (a *API) SetRateLimit(burst, perSecond int) {
	if burst > 0 {
		a.rateBurst = burst
	}
	if perSecond > 0 {
		a.ratePerSec = perSecond
	}
}

// Handler returns the mux wrapped in the full middleware chain.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = LoggingJSON(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "procurio-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) audit(ctx context.Context, event, resource, id string, fields map[string]any) {
	entry := map[string]any{"resource": resource, "id": id}
	for k, v := range fields {
		entry[k] = v
	}
	if err := audit.LogEvent(ctx, event, entry); err != nil {
		obs.LogError("audit log failed", map[string]any{"event": event, "error": err.Error()})
	}
	if a.events != nil {
		var actor string
		if ident, ok := auth.IdentityFromContext(ctx); ok {
			actor = ident.Subject
		}
		a.events.Publish(stream.Event{
			Type:     event,
			Resource: resource,
			ID:       id,
			Actor:    actor,
		})
	}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// decodeJSON reads a JSON body. Unknown fields are ignored so older clients
// keep working across additive API changes.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("request body is not valid JSON")
	}
	return nil
}

var clientSentinels = []error{
	procure.ErrInvalidInput,
	procure.ErrUnauthenticated,
	procure.ErrForbidden,
	procure.ErrNotFound,
	procure.ErrConflict,
}

// clientMessage strips the sentinel prefix so responses carry the specific
// message, not the taxonomy label.
func clientMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range clientSentinels {
		if prefix := sentinel.Error() + ": "; strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, procure.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, clientMessage(err))
	case errors.Is(err, procure.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, clientMessage(err))
	case errors.Is(err, procure.ErrForbidden):
		writeError(w, r, http.StatusForbidden, clientMessage(err))
	case errors.Is(err, procure.ErrNotFound):
		writeError(w, r, http.StatusNotFound, clientMessage(err))
	case errors.Is(err, procure.ErrConflict):
		writeError(w, r, http.StatusConflict, clientMessage(err))
	default:
		obs.LogError("request failed", map[string]any{
			"path":       r.URL.Path,
			"request_id": RequestIDFromContext(r.Context()),
			"error":      err.Error(),
		})
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
