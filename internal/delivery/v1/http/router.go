package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jiftechnify/upix-backend/internal/cfg"
	"github.com/jiftechnify/upix-backend/internal/usecase"
	"github.com/jiftechnify/upix-backend/pkg/logger"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(imageUC usecase.ImageUC, imageCfg *cfg.ImageCfg) {
	r.router.Use(requestID)
	r.router.Use(accessLog(r.logger))

	h := NewImageHandler(imageUC, imageCfg, r.logger)
	r.router.Get("/", h.liveness)
	r.router.Post("/", h.uploadImage)
	r.router.Get("/{name}", h.getDerivative)
}

// requestID tags every request with a generated id for log correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, req)
	})
}

func accessLog(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			log.Debugf("%s %s", req.Method, req.URL.Path)
			next.ServeHTTP(w, req)
		})
	}
}
