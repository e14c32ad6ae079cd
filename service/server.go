package service

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tds-relay/service/query"
	"tds-relay/service/static"
)

// Options controls the optional parts of the HTTP surface.
type Options struct {
	// ServeFrontend serves the chat page on GET /, otherwise / answers with a small JSON status.
	ServeFrontend bool
}

type server struct {
	relay  *query.Relay
	logger *slog.Logger
	opts   Options
}

// NewRouter wires the relay into a gin engine. The relay is shared by every request.
func NewRouter(relay *query.Relay, logger *slog.Logger, opts Options) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{
		relay:  relay,
		logger: logger,
		opts:   opts,
	}

	router := gin.Default()
	router.Use(cors.New(corsConfig()))
	router.Use(requestID())

	router.GET("/", s.rootHandler)

	api := router.Group("/api")
	api.POST("/", s.queryHandler)
	api.GET("/test", s.testHandler)

	return router
}

// corsConfig allows the chat client to be hosted on any origin.
func corsConfig() cors.Config {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowCredentials = true
	config.AllowMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodHead, http.MethodOptions,
	}
	config.AllowHeaders = []string{"*"}
	return config
}

func (s *server) queryHandler(ctx *gin.Context) {
	logger := s.requestLogger(ctx)

	var payload query.RequestPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		s.fail(ctx, logger, "failed to bind request to expected object", &query.ValidationError{Err: err})
		return
	}
	q, err := payload.Query()
	if err != nil {
		s.fail(ctx, logger, "request is missing a question", err)
		return
	}

	response, err := s.relay.Answer(ctx, q)
	if err != nil {
		s.fail(ctx, logger, "failed to answer query", err)
		return
	}

	logger.InfoContext(ctx, "answered query", slog.Int("links", len(response.Links)), slog.Bool("image", q.Image != ""))
	ctx.JSON(http.StatusOK, response)
}

func (s *server) fail(ctx *gin.Context, logger *slog.Logger, msg string, err error) {
	logger.ErrorContext(ctx, msg, slog.Any("error", err), slog.String("kind", query.KindOf(err).String()))
	ctx.JSON(query.StatusCode(err), query.Failure(err))
}

func (s *server) testHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"response": "Test Done"})
}

func (s *server) rootHandler(ctx *gin.Context) {
	if s.opts.ServeFrontend {
		ctx.Data(http.StatusOK, "text/html; charset=utf-8", static.IndexHTML)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "TDS virtual assistant relay is running",
		"query":   "POST /api/",
	})
}
