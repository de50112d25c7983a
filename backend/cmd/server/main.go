package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"graphmind/backend/internal/adapter"
	"graphmind/backend/internal/cache"
	"graphmind/backend/internal/extract"
	"graphmind/backend/internal/graph"
	"graphmind/backend/internal/knowledge"
	"graphmind/backend/pkg/config"
	apperrors "graphmind/backend/pkg/errors"
	"graphmind/backend/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting knowledge graph server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	// Initialize Neo4j driver. A failed connection is not fatal: the
	// pipeline keeps running in memory and persistence degrades to no-ops.
	var driver neo4j.DriverWithContext
	d, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err == nil {
		if verr := d.VerifyConnectivity(ctx); verr == nil {
			driver = d
		} else {
			log.Warn("Neo4j unreachable, running without persistence", zap.Error(verr))
			_ = d.Close(ctx)
		}
	} else {
		log.Warn("Failed to create Neo4j driver, running without persistence", zap.Error(err))
	}

	// Initialize dependencies
	repo := graph.NewRepository(driver)
	defer repo.Close()
	repo.InitSchema(ctx)

	cacheService := cache.New(cfg.EnableCache, cfg.CacheTTL)

	var llm *extract.LLMRecognizer
	if cfg.EnableLLMNER {
		client := adapter.NewCompletionClient(cfg)
		llm = extract.NewLLMRecognizer(client, cacheService, cfg.LLMTemperature, cfg.LLMMaxTokens, cfg.MaxReflectionPasses)
	}

	extractor := extract.NewExtractor(cacheService, llm, cfg.EnableProseNER)
	sessions := knowledge.NewSessionStore()
	engine := knowledge.NewEngine(repo)
	audit := knowledge.NewAuditLog()
	service := knowledge.NewService(extractor, repo, sessions, engine, audit)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"graph_connected": repo.Available(),
		})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := router.Group("/api/graph")
	{
		// Process one chat interaction through the pipeline
		api.POST("/process", func(c *gin.Context) {
			var req struct {
				UserText     string `json:"user_text" binding:"required"`
				ResponseText string `json:"response_text" binding:"required"`
				SessionID    string `json:"session_id" binding:"required"`
				MessageID    string `json:"message_id"`
			}

			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			summary, err := service.ProcessInteraction(c.Request.Context(), req.UserText, req.ResponseText, req.SessionID, req.MessageID)
			if err != nil {
				if apperrors.IsValidation(err) {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				log.Error("Failed to process interaction", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process interaction"})
				return
			}

			c.JSON(http.StatusOK, summary)
		})

		// Get full context for an entity by name
		api.GET("/entity/:name", func(c *gin.Context) {
			entityContext, err := service.GetEntityContext(c.Request.Context(), c.Param("name"))
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
				return
			}
			c.JSON(http.StatusOK, entityContext)
		})

		// Get the episodic graph of a session
		api.GET("/session/:id", func(c *gin.Context) {
			sessionGraph, err := service.GetSessionGraph(c.Param("id"))
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
				return
			}
			c.JSON(http.StatusOK, sessionGraph)
		})

		// Community insights
		api.GET("/communities", func(c *gin.Context) {
			c.JSON(http.StatusOK, service.GetCommunityInsights(c.Request.Context()))
		})

		// Natural language knowledge query
		api.POST("/query", func(c *gin.Context) {
			var req struct {
				Query string `json:"query" binding:"required"`
			}

			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			c.JSON(http.StatusOK, service.QueryKnowledge(c.Request.Context(), req.Query))
		})

		// Graph-wide statistics
		api.GET("/statistics", func(c *gin.Context) {
			c.JSON(http.StatusOK, service.GetGraphStatistics(c.Request.Context()))
		})
	}

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
