package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"Helios/internal/auth"
	"Helios/internal/calc/cn1"
	"Helios/internal/calc/conductor"
	"Helios/internal/calc/report"
	"Helios/internal/calc/rules"
	"Helios/internal/calc/simulate"
	pvstrings "Helios/internal/calc/strings"
	"Helios/internal/norms"
	"Helios/internal/project"
	"Helios/internal/repo"
	"Helios/internal/validate"
)

var wg sync.WaitGroup

func CORS(mux *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := os.Getenv("CORS_ORIGIN")
		if origin == "" {
			origin = "http://localhost:5173"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

func HandleList(router *mux.Router, db *sql.DB) {
	store := repo.NewPostgresDB(db)

	tokenKey := os.Getenv("TOKEN_KEY")
	if tokenKey == "" {
		log.Fatal("TOKEN_KEY environment variable is not set")
	}

	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "./configs"
	}
	normStore, err := norms.Load(configDir)
	if err != nil {
		log.Fatalf("Loading normative configuration: %v", err)
	}

	projectsDir := os.Getenv("PROJECTS_DIR")
	if projectsDir == "" {
		projectsDir = "./projects"
	}
	if err := os.MkdirAll(projectsDir, 0o755); err != nil {
		log.Fatalf("Creating projects directory: %v", err)
	}
	projects := &project.Store{Root: projectsDir}

	authEnv := &auth.Authenv{JWTkey: []byte(tokenKey), Repo: store}
	limiter := auth.NewIPRateLimiter(1, 3)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(limiter.LimitMiddleware)

	api.HandleFunc("/login", authEnv.AuthHandler).Methods("POST")
	api.HandleFunc("/register", authEnv.RegisterHandler).Methods("POST")

	secureApi := api.PathPrefix("/pv").Subrouter()
	secureApi.Use(authEnv.AuthMiddleware)

	conductorH := &conductor.Handler{}
	simulateH := &simulate.Handler{}
	rulesH := &rules.Handler{}
	projectH := &project.Handler{Store: projects}
	validateH := &validate.Handler{Store: projects}
	normsH := &norms.Handler{Store: normStore, ProjectsDir: projectsDir}
	stringsH := &pvstrings.Handler{Projects: projects, Norms: normStore, Repo: store}
	cn1H := &cn1.Handler{Projects: projects, Norms: normStore, Repo: store}
	reportH := &report.Handler{Projects: projects}

	// Circuit evaluation and what-if simulation
	secureApi.HandleFunc("/tools/conductor/calc", conductorH.Calc).Methods("POST")
	secureApi.HandleFunc("/tools/simulate", simulateH.Simulate).Methods("POST")
	secureApi.HandleFunc("/tools/rules/validate", rulesH.Validate).Methods("POST")
	secureApi.HandleFunc("/tools/rules/standards", rulesH.Standards).Methods("GET")

	// Project lifecycle
	secureApi.HandleFunc("/projects", projectH.List).Methods("GET")
	secureApi.HandleFunc("/projects", projectH.Create).Methods("POST")
	secureApi.HandleFunc("/projects/{name}", projectH.Info).Methods("GET")
	secureApi.HandleFunc("/projects/{name}", projectH.Delete).Methods("DELETE")
	secureApi.HandleFunc("/projects/{name}/config", projectH.UpdateConfig).Methods("PUT", "PATCH")
	secureApi.HandleFunc("/projects/{name}/upload", projectH.Upload).Methods("POST")
	secureApi.HandleFunc("/projects/{name}/sheets", projectH.Sheets).Methods("GET")
	secureApi.HandleFunc("/projects/{name}/validate", validateH.Project).Methods("GET")

	// Sizing runs
	secureApi.HandleFunc("/projects/{name}/calc/strings/{normative}", stringsH.Calc).Methods("POST")
	secureApi.HandleFunc("/projects/{name}/calc/cn1/{normative}", cn1H.Calc).Methods("POST")
	secureApi.HandleFunc("/projects/{name}/runs", func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		runs, err := store.ListCalculationRuns(r.Context(), name, 50)
		if err != nil {
			http.Error(w, "DB error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"project": name, "runs": runs})
	}).Methods("GET")

	// Normative configuration
	secureApi.HandleFunc("/normatives/available", normsH.Available).Methods("GET")
	secureApi.HandleFunc("/normatives/{normative}/parameters", normsH.Parameters).Methods("GET")
	secureApi.HandleFunc("/panels", normsH.Panels).Methods("GET")
	secureApi.HandleFunc("/projects/{name}/normative-status", normsH.Status).Methods("GET")
	secureApi.HandleFunc("/projects/{name}/overrides", normsH.ProjectOverrides).Methods("GET")
	secureApi.HandleFunc("/projects/{name}/overrides", normsH.SaveProjectOverrides).Methods("PUT")
	secureApi.HandleFunc("/projects/{name}/overrides", normsH.DeleteProjectOverrides).Methods("DELETE")
	secureApi.HandleFunc("/projects/{name}/normativas/{stage}/parameters", normsH.StageParameters).Methods("GET")
	secureApi.HandleFunc("/projects/{name}/normativas/{stage}/parameters", normsH.SaveStageParameters).Methods("PUT")
	secureApi.HandleFunc("/projects/{name}/normativas/{stage}/parameters", normsH.DeleteStageParameters).Methods("DELETE")
	secureApi.HandleFunc("/projects/{name}/normativas/copy-base/{normative}", normsH.CopyBase).Methods("POST")

	// Reports
	secureApi.HandleFunc("/tools/report/pdf", reportH.Generate).Methods("POST")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods("GET")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	db := auth.InitDB()
	defer db.Close()
	router := mux.NewRouter()
	HandleList(router, db)
	handler := CORS(router)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8000"
	}
	log.Println("Starting server on", addr)

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	fmt.Println("Shutdown signal received!")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")

	wg.Wait()
}
