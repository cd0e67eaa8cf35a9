package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/studyowl/studyowl/config"
	"github.com/studyowl/studyowl/internal/rag"
	"github.com/studyowl/studyowl/internal/runtime"
	"github.com/studyowl/studyowl/internal/store"
	"github.com/studyowl/studyowl/internal/vectorstore"
	"github.com/studyowl/studyowl/provider/openai"
)

// Run wires the whole service together and serves HTTP until the listener
// fails. addr overrides general.listen when non-empty.
func Run(addr string, configPath string) error {
	cfg := appconfig.LoadConfig(configPath)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	dsn, err := cfg.Databases.Postgres.DSN()
	if err != nil {
		return err
	}
	_ = Migrate("file://migrations", dsn, "up", 0)

	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	if cfg.Providers.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY not configured (providers.openai.api_key)")
	}
	providerLogger := log.New(log.Writer(), "[PROVIDER] ", log.LstdFlags)
	prov := openai.New(cfg.Providers.OpenAI, providerLogger)

	// The remote index is optional. When it is unreachable at startup every
	// new document lands in the relational fallback instead.
	var primary vectorstore.Store
	if cfg.VectorIndex.Configured() {
		idx := vectorstore.NewIndex(cfg.VectorIndex)
		if err := idx.Ping(ctx); err != nil {
			baseLogger.Printf("vector index unreachable, using relational fallback only: %v", err)
		} else {
			primary = idx
		}
	}
	fallback := vectorstore.NewPostgres(st.DB)

	orchLogger := log.New(log.Writer(), "[RAG] ", log.LstdFlags)
	orch := rag.New(prov, st, primary, fallback, cfg.Retrieval, cfg.Quiz.MaxQuestions, orchLogger)

	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}

	api := e.Group("/api")
	auth := &AuthHandler{Store: st, Purger: orch, Secret: secret}
	auth.Register(api.Group("/auth"))

	dh := &DocumentsHandler{Orch: orch, Store: st}
	dh.Register(api.Group("/documents"), secret)

	ch := &ChatHandler{Orch: orch, Store: st}
	ch.Register(api.Group("/chat"), secret)

	qh := &QuizHandler{Orch: orch}
	qh.Register(api.Group("/quiz"), secret)

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":8080"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
