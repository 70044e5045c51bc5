package web

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/trijayaagung/armada-studio/config"
	"github.com/trijayaagung/armada-studio/status"
	"github.com/trijayaagung/armada-studio/storage"
	"github.com/trijayaagung/armada-studio/studio"
	"github.com/trijayaagung/armada-studio/utils"
)

type Server struct {
	cfg     *config.Config
	db      storage.Backend
	session *studio.Session
	hub     *status.Hub
	names   *utils.PoseNameGenerator
}

func NewServer(cfg *config.Config, db storage.Backend, session *studio.Session, hub *status.Hub) *Server {
	return &Server{
		cfg:     cfg,
		db:      db,
		session: session,
		hub:     hub,
		names:   utils.NewPoseNameGenerator(0),
	}
}

func (s *Server) Router(static string) *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/models", s.handleModelsList).Methods("GET")
	api.HandleFunc("/models", s.handleModelUpload).Methods("POST")
	api.HandleFunc("/models/{id}", s.handleModelGet).Methods("GET")
	api.HandleFunc("/models/{id}", s.handleModelDelete).Methods("DELETE")
	api.HandleFunc("/models/{id}/poses", s.handlePosesList).Methods("GET")

	api.HandleFunc("/poses/{id}", s.handlePoseGet).Methods("GET")
	api.HandleFunc("/poses/{id}", s.handlePoseDelete).Methods("DELETE")

	api.HandleFunc("/fleet", s.handleFleetList).Methods("GET")
	api.HandleFunc("/fleet", s.handleFleetCreate).Methods("POST")
	api.HandleFunc("/fleet/{id}", s.handleFleetDelete).Methods("DELETE")

	api.HandleFunc("/session/state", s.handleSessionState).Methods("GET")
	api.HandleFunc("/session/select/{id}", s.handleSessionSelect).Methods("POST")
	api.HandleFunc("/session/clear", s.handleSessionClear).Methods("POST")
	api.HandleFunc("/session/pose", s.handleSessionSavePose).Methods("POST")
	api.HandleFunc("/session/pose/{id}", s.handleSessionApplyPose).Methods("POST")
	api.HandleFunc("/session/manual", s.handleSessionManual).Methods("POST")
	api.HandleFunc("/session/viewport", s.handleSessionViewport).Methods("POST")
	api.HandleFunc("/session/livery/{role}", s.handleSessionLivery).Methods("POST")
	api.HandleFunc("/session/preview.png", s.handleSessionPreview).Methods("GET")
	api.HandleFunc("/session/export.png", s.handleSessionExport).Methods("GET")

	api.HandleFunc("/debug/state", s.handleDebugState).Methods("GET")

	r.HandleFunc("/ws", s.hub.ServeWS)

	if static != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(static)))
	}
	return r
}

// StartServer blocks serving the admin API until the listener fails.
func StartServer(addr string, server *Server, static string) error {
	log.Printf("[web] Starting server on address %q", addr)

	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(server.Router(static))
	h = handlers.LoggingHandler(os.Stdout, h)

	return http.ListenAndServe(addr, h)
}
