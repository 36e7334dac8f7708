package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/realmd/internal/logging"
	"github.com/dmitrijs2005/realmd/internal/server/models"
	"github.com/gorilla/mux"
)

// RealmSource is what the admin endpoints read realms from.
type RealmSource interface {
	Realms() []models.Realm
	GetRealm(id uint32) (models.Realm, bool)
	Initialized() bool
}

type realmView struct {
	ID                   uint32  `json:"id"`
	Name                 string  `json:"name"`
	ExternalAddress      string  `json:"external_address"`
	LocalAddress         string  `json:"local_address"`
	LocalSubnetMask      string  `json:"local_subnet_mask"`
	Port                 uint16  `json:"port"`
	Type                 uint8   `json:"type"`
	Flags                uint8   `json:"flags"`
	Timezone             uint8   `json:"timezone"`
	AllowedSecurityLevel string  `json:"allowed_security_level"`
	Population           float32 `json:"population"`
	Build                uint32  `json:"build"`
}

func newRealmView(r models.Realm) realmView {
	return realmView{
		ID:                   r.ID,
		Name:                 r.Name,
		ExternalAddress:      r.ExternalAddress.String(),
		LocalAddress:         r.LocalAddress.String(),
		LocalSubnetMask:      r.LocalSubnetMask.String(),
		Port:                 r.Port,
		Type:                 uint8(r.Type),
		Flags:                uint8(r.Flags),
		Timezone:             r.Timezone,
		AllowedSecurityLevel: r.AllowedSecurityLevel.String(),
		Population:           r.PopulationLevel,
		Build:                r.Build,
	}
}

// NewRouter registers /metrics and /healthz, plus read-only realm
// endpoints when realms is non-nil.
func NewRouter(m *Metrics, realms RealmSource) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthz(realms)).Methods(http.MethodGet)
	if realms != nil {
		r.HandleFunc("/realms", listRealms(realms)).Methods(http.MethodGet)
		r.HandleFunc("/realms/{id:[0-9]+}", getRealm(realms)).Methods(http.MethodGet)
	}
	return r
}

func healthz(realms RealmSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if realms != nil && !realms.Initialized() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "initializing"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func listRealms(realms RealmSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		list := realms.Realms()
		out := make([]realmView, 0, len(list))
		for _, r := range list {
			out = append(out, newRealmView(r))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getRealm(realms RealmSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
			return
		}
		realm, ok := realms.GetRealm(uint32(id))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, newRealmView(realm))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Server serves the admin router until its context is done.
type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(address string, handler http.Handler, l logging.Logger) *Server {
	return &Server{address: address, handler: handler, logger: l.With("module", "admin_http")}
}

func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{Handler: s.handler, ReadHeaderTimeout: 5 * time.Second}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping admin HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting admin HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}
