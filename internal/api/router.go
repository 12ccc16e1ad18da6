// Package api is the REST surface of the OpenMemory service.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/goibibo/mem0/internal/api/recovery"
	"github.com/goibibo/mem0/internal/api/respond"
	"github.com/goibibo/mem0/internal/services"
)

const uuidPattern = "[0-9a-fA-F-]{36}"

// Services bundles the application services served by the router.
type Services struct {
	Users      *services.UserService
	Apps       *services.AppService
	Categories *services.CategoryService
	Memories   *services.MemoryService
}

// Options tunes the router. Zero values fall back to defaults.
type Options struct {
	MaxPageSize     int
	SearchThreshold float64
	Health          HealthReporter
	// MCP, when set, is mounted under /mcp/.
	MCP http.Handler
	Log zerolog.Logger
}

// NewRouter creates the HTTP router with all API routes registered under /api/v1.
func NewRouter(svc Services, opts Options) *mux.Router {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}

	router := mux.NewRouter()
	router.Use(requestLogging(opts.Log)...)
	router.Use(recovery.Middleware)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.WriteNotFound(w, "no route for "+r.URL.Path)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.WriteError(w, http.StatusMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})

	memoryHandler := NewMemoryHandler(svc.Memories, svc.Users, svc.Categories, opts.MaxPageSize, opts.SearchThreshold)
	userHandler := NewUserHandler(svc.Users)
	appHandler := NewAppHandler(svc.Apps)
	categoryHandler := NewCategoryHandler(svc.Categories)
	healthHandler := NewHealthHandler(opts.Health)

	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	if opts.MCP != nil {
		router.PathPrefix("/mcp/").Handler(opts.MCP)
	}

	v1 := router.PathPrefix("/api/v1").Subrouter()

	// Fixed memory paths are registered before the id routes.
	v1.HandleFunc("/memories/filter", memoryHandler.FilterMemories).Methods("POST")
	v1.HandleFunc("/memories/search", memoryHandler.SearchMemories).Methods("POST")
	v1.HandleFunc("/memories/categories", categoryHandler.ListCategories).Methods("GET")
	v1.HandleFunc("/memories/actions/pause", memoryHandler.PauseMemories).Methods("POST")
	v1.HandleFunc("/memories/actions/archive", memoryHandler.ArchiveMemories).Methods("POST")
	for _, p := range []string{"/memories", "/memories/"} {
		v1.HandleFunc(p, memoryHandler.ListMemories).Methods("GET")
		v1.HandleFunc(p, memoryHandler.CreateMemory).Methods("POST")
		v1.HandleFunc(p, memoryHandler.DeleteMemories).Methods("DELETE")
	}
	memory := "/memories/{memoryId:" + uuidPattern + "}"
	v1.HandleFunc(memory, memoryHandler.GetMemory).Methods("GET")
	v1.HandleFunc(memory, memoryHandler.UpdateMemory).Methods("PUT")
	v1.HandleFunc(memory+"/access-log", memoryHandler.AccessLog).Methods("GET")
	v1.HandleFunc(memory+"/related", memoryHandler.Related).Methods("GET")
	v1.HandleFunc(memory+"/history", memoryHandler.History).Methods("GET")
	v1.HandleFunc(memory+"/categories", memoryHandler.AssignCategories).Methods("POST")

	for _, p := range []string{"/users", "/users/"} {
		v1.HandleFunc(p, userHandler.ListUsers).Methods("GET")
		v1.HandleFunc(p, userHandler.CreateUser).Methods("POST")
	}
	v1.HandleFunc("/users/{userId}", userHandler.GetUser).Methods("GET")

	for _, p := range []string{"/apps", "/apps/"} {
		v1.HandleFunc(p, appHandler.ListApps).Methods("GET")
	}
	app := "/apps/{appId:" + uuidPattern + "}"
	v1.HandleFunc(app, appHandler.GetApp).Methods("GET")
	v1.HandleFunc(app, appHandler.UpdateApp).Methods("PUT")
	v1.HandleFunc(app+"/memories", appHandler.CreatedMemories).Methods("GET")
	v1.HandleFunc(app+"/accessed", appHandler.AccessedMemories).Methods("GET")

	v1.HandleFunc("/categories", categoryHandler.ListCategories).Methods("GET")

	return router
}
