package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saulfrancisco-ruizacevedo/go-neograph"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/internal/access"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/internal/auth"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/models"
)

const (
	msgCreated  = "Node and relationships added successfully"
	msgDeleted  = "Node and relationships deleted successfully"
	msgNotFound = "Node not found"

	// maxCreateBodyBytes bounds the JSON body accepted by POST /nodes.
	maxCreateBodyBytes = 1 << 20
)

// NodeService is what the node routes need from access.Service.
type NodeService interface {
	ListAll(ctx context.Context) ([]models.NodeSummary, error)
	GetOne(ctx context.Context, id string) ([]models.NeighborhoodEntry, error)
	Create(ctx context.Context, req models.NodeCreateRequest, credential string) (string, error)
	Delete(ctx context.Context, id string, credential string) error
}

// NodeHandler serves the /nodes routes.
type NodeHandler struct {
	service NodeService
}

// NewNodeHandler creates a handler backed by service.
func NewNodeHandler(service NodeService) *NodeHandler {
	return &NodeHandler{service: service}
}

// RegisterRoutes mounts the list, neighborhood, create and delete routes on r.
func (h *NodeHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/nodes", h.List)
	r.GET("/nodes/:id", h.Get)
	r.POST("/nodes", h.Create)
	r.DELETE("/nodes/:id", h.Delete)
}

// List handles GET /nodes.
func (h *NodeHandler) List(c *gin.Context) {
	nodes, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nodes)
}

// Get handles GET /nodes/:id and answers 404 for a node without neighbors.
func (h *NodeHandler) Get(c *gin.Context) {
	entries, err := h.service.GetOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Create handles POST /nodes. The body is decoded with json.Number so that
// integer properties stay integers.
func (h *NodeHandler) Create(c *gin.Context) {
	var req models.NodeCreateRequest
	dec := json.NewDecoder(http.MaxBytesReader(c.Writer, c.Request.Body, maxCreateBodyBytes))
	// Keep integers as integers instead of float64.
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "request body too large"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}

	id, err := h.service.Create(c.Request.Context(), req, auth.BearerToken(c.GetHeader("Authorization")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgCreated, "id": id})
}

// Delete handles DELETE /nodes/:id. Unknown ids succeed.
func (h *NodeHandler) Delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.Param("id"), auth.BearerToken(c.GetHeader("Authorization")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgDeleted})
}

// writeError maps service errors onto status codes. Internal failures are
// logged by the service and reported without detail.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var target *neograph.TargetNotFoundError
	switch {
	case errors.Is(err, access.ErrUnauthorized):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
	case errors.Is(err, access.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": msgNotFound})
	case errors.As(err, &target):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail":    err.Error(),
			"index":     target.Index,
			"target_id": target.TargetID,
		})
	case errors.Is(err, access.ErrInvalidRequest),
		errors.Is(err, neograph.ErrInvalidLabel),
		errors.Is(err, neograph.ErrInvalidProperties):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
	case errors.Is(err, neograph.ErrConstraintViolation):
		c.JSON(http.StatusConflict, gin.H{"detail": "constraint violation"})
	case errors.Is(err, neograph.ErrStoreUnavailable):
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "graph store unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
	}
}
