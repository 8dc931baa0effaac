package server

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sre-tools/kube-action-gateway/internal/credentials"
	"github.com/sre-tools/kube-action-gateway/internal/gateway"
)

// APIServer is the HTTP harness standing in for the managed-function
// runtime: it frames inbound agent events and hands them to the router.
type APIServer struct {
	router *gateway.Router
	store  credentials.Store
	log    *logrus.Entry
	mux    *http.ServeMux
}

func NewAPIServer(router *gateway.Router, store credentials.Store, log *logrus.Entry) *APIServer {
	api := &APIServer{
		router: router,
		store:  store,
		log:    log,
		mux:    http.NewServeMux(),
	}
	api.registerRoutes()
	return api
}

func (api *APIServer) registerRoutes() {
	api.mux.HandleFunc("/invoke", api.handleInvoke)

	api.mux.HandleFunc("/health", api.handleHealth)
	api.mux.HandleFunc("/ready", api.handleReady)
}

func (api *APIServer) Start(addr string) error {
	api.log.Infof("Starting API server on %s", addr)
	return http.ListenAndServe(addr, api.loggingMiddleware(api.mux))
}

func (api *APIServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		api.log.Infof("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}
