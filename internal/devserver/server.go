package devserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dvasilkov/catalogsync/internal/syncapi"
)

// Server wires the Store into the HTTP sync API.
type Server struct {
	store *Store
}

func NewServer(store *Store) *Server {
	return &Server{store: store}
}

// Handler builds the gin engine with all sync routes mounted.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	v1 := r.Group("/api/v1/businesses/:businessID/sync")
	v1.POST("/push", s.handlePush)
	v1.POST("/pull", s.handlePull)
	v1.POST("/full", s.handleFullSync)

	return r
}

func (s *Server) handlePush(c *gin.Context) {
	var req syncapi.PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp := s.store.ApplyPush(c.Param("businessID"), req)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePull(c *gin.Context) {
	var req syncapi.PullRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changes, cursor, hasMore := s.store.Changes(c.Param("businessID"), req.LastSyncAt)
	c.JSON(http.StatusOK, syncapi.PullResponse{
		Changes:         changes,
		ServerTimestamp: cursor,
		HasMore:         hasMore,
	})
}

func (s *Server) handleFullSync(c *gin.Context) {
	var req syncapi.FullSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	products, categories, ts := s.store.Snapshot(c.Param("businessID"))
	c.JSON(http.StatusOK, syncapi.FullSyncResponse{
		Products:        products,
		Categories:      categories,
		ServerTimestamp: ts,
	})
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
