package ui

import (
	"io"
	"log"
	"net/http"

	"formsheet/domain/ingest"

	"github.com/gin-gonic/gin"
)

// maxBodyBytes bounds inbound payloads; form submissions are tiny.
const maxBodyBytes = 1 << 20

// Server is the public submission API. Outcomes always travel as HTTP 200
// with a JSON body; callers branch on the result field, not the status.
type Server struct {
	router      *gin.Engine
	coordinator *ingest.Coordinator
}

// NewServer creates the API server around the append coordinator.
func NewServer(coordinator *ingest.Coordinator) *Server {
	s := &Server{
		router:      gin.Default(),
		coordinator: coordinator,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.POST("/", s.handleSubmit)
	s.router.POST("/api/submissions", s.handleSubmit)
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// handleSubmit converts the HTTP request into a transport-neutral raw
// submission and lets the coordinator run the locked append protocol.
func (s *Server) handleSubmit(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Printf("[Server] Failed to read request body: %v", err)
		body = nil
	}

	raw := ingest.RawSubmission{
		ContentType: c.ContentType(),
		Body:        body,
		Params:      c.Request.URL.Query(),
	}

	result := s.coordinator.HandleSubmission(c.Request.Context(), raw)
	c.JSON(http.StatusOK, result)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server on the given address.
func (s *Server) Start(addr string) error {
	log.Printf("[Server] Listening on %s", addr)
	return s.router.Run(addr)
}
