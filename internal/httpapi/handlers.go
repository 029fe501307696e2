package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"medrecord.org/internal/account"
	"medrecord.org/internal/clinical"
	"medrecord.org/internal/message"
	"medrecord.org/internal/obs"
	"medrecord.org/internal/pharmacy"
	"medrecord.org/internal/stream"
	"medrecord.org/internal/verify"
)

// ReadyProbe checks readiness of external collaborators (the database).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps wires the domain services into the HTTP layer.
type Deps struct {
	Accounts     *account.Service
	AccountStore account.Store
	Verify       *verify.Service
	Clinical     *clinical.Service
	Messages     *message.Service
	Pharmacies   *pharmacy.Service
	Stream       *stream.Stream
}

// API is the HTTP layer. Handlers stay thin: resolve the caller's account
// fresh from the store, call the domain service, translate the outcome.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	accounts     *account.Service
	accountStore account.Store
	verify       *verify.Service
	clinical     *clinical.Service
	messages     *message.Service
	pharmacies   *pharmacy.Service
	stream       *stream.Stream

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version string, deps Deps) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   rp,
		version:      version,
		accounts:     deps.Accounts,
		accountStore: deps.AccountStore,
		verify:       deps.Verify,
		clinical:     deps.Clinical,
		messages:     deps.Messages,
		pharmacies:   deps.Pharmacies,
		stream:       deps.Stream,
		rateBurst:    20,
		ratePerSec:   10,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)

	// profile + role switch + doctor application
	a.mux.HandleFunc("/v1/profile", a.handleProfile)
	a.mux.HandleFunc("/v1/apply", a.handleApply)

	// family members
	a.mux.HandleFunc("/v1/family", a.handleFamily)
	a.mux.HandleFunc("/v1/family/", a.handleFamilyResource)

	// admin verification workflow
	a.mux.HandleFunc("/v1/admin/applications", a.handleApplications)
	a.mux.HandleFunc("/v1/admin/applications/", a.handleApplicationResource)

	// clinical
	a.mux.HandleFunc("/v1/prescriptions", a.handlePrescriptions)
	a.mux.HandleFunc("/v1/appointments", a.handleAppointments)
	a.mux.HandleFunc("/v1/appointments/", a.handleAppointmentResource)

	// doctor ratings + pharmacy directory
	a.mux.HandleFunc("/v1/ratings", a.handleRatings)
	a.mux.HandleFunc("/v1/doctors/", a.handleDoctorResource)
	a.mux.HandleFunc("/v1/pharmacies", a.handlePharmacies)
	a.mux.HandleFunc("/v1/pharmacies/suggestions", a.handlePharmacySuggestions)

	// messaging + notifications
	a.mux.HandleFunc("/v1/messages", a.handleMessages)
	a.mux.HandleFunc("/v1/notifications", a.handleNotifications)
	a.mux.HandleFunc("/v1/notifications/stream", a.Stream)
	a.mux.HandleFunc("/v1/notifications/", a.handleNotificationResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "medrecord-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "medrecord-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
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

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
