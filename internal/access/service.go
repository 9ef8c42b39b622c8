// Package access puts an authorization gate and request validation in front
// of the graph store. Reads are open, mutations require a verified credential.
package access

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/saulfrancisco-ruizacevedo/go-neograph"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/internal/auth"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/internal/logging"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/internal/metrics"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/models"
)

var (
	// ErrUnauthorized is returned for a missing or rejected credential.
	ErrUnauthorized = auth.ErrUnauthorized

	// ErrNotFound is returned by GetOne when the node has no neighborhood.
	ErrNotFound = neograph.ErrNotFound

	// ErrInvalidRequest reports a request that failed struct validation.
	ErrInvalidRequest = errors.New("invalid request")
)

// Store is the subset of neograph.GraphStore the service depends on.
type Store interface {
	ListNodes(ctx context.Context) ([]models.NodeSummary, error)
	GetNeighborhood(ctx context.Context, id string) ([]models.NeighborhoodEntry, error)
	CreateNodeWithRelationships(ctx context.Context, label string, properties map[string]any, relationships []models.RelationshipSpec) (string, error)
	DeleteNode(ctx context.Context, id string) error
}

// Service is the entry point for graph reads and writes coming from outside
// the process. It is safe for concurrent use.
type Service struct {
	store    Store
	verifier auth.Verifier
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for per-operation logs. The default discards them.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics records every operation in collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Service) { s.metrics = collector }
}

// NewService creates a Service on top of store.
//
// Parameters:
//   - store: The graph store, usually a *neograph.GraphStore.
//   - verifier: Decides which credentials may create and delete nodes.
//   - opts: Optional logger and metrics collector.
//
// Returns:
//
//	A ready Service. Logging defaults to a no-op logger and metrics are off.
func NewService(store Store, verifier auth.Verifier, opts ...Option) *Service {
	s := &Service{
		store:    store,
		verifier: verifier,
		validate: validator.New(),
		logger:   zap.NewNop(),
	}
	s.validate.RegisterTagNameFunc(jsonFieldName)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// jsonFieldName makes validation messages use the request's JSON names.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// ListAll returns a summary of every node.
func (s *Service) ListAll(ctx context.Context) (nodes []models.NodeSummary, err error) {
	defer s.observe(ctx, "list_all", time.Now(), &err)

	return s.store.ListNodes(ctx)
}

// GetOne returns the neighborhood of a node. A node without incident edges,
// like an unknown id, yields ErrNotFound.
func (s *Service) GetOne(ctx context.Context, id string) (entries []models.NeighborhoodEntry, err error) {
	defer s.observe(ctx, "get_one", time.Now(), &err, zap.String("node_id", id))

	entries, err = s.store.GetNeighborhood(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries, nil
}

// Create stores a node with its relationships and returns the new node's id.
func (s *Service) Create(ctx context.Context, req models.NodeCreateRequest, credential string) (id string, err error) {
	defer s.observe(ctx, "create", time.Now(), &err, zap.String("label", req.Label), zap.Int("relationships", len(req.Relationships)))

	if err := s.authorize(ctx, credential); err != nil {
		return "", err
	}
	if err := s.validateRequest(req); err != nil {
		return "", err
	}
	return s.store.CreateNodeWithRelationships(ctx, req.Label, req.Properties, req.Relationships)
}

// Delete removes a node and its relationships. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, id string, credential string) (err error) {
	defer s.observe(ctx, "delete", time.Now(), &err, zap.String("node_id", id))

	if err := s.authorize(ctx, credential); err != nil {
		return err
	}
	return s.store.DeleteNode(ctx, id)
}

func (s *Service) authorize(ctx context.Context, credential string) error {
	if credential == "" {
		return ErrUnauthorized
	}
	if err := s.verifier.Verify(ctx, credential); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}

func (s *Service) validateRequest(req models.NodeCreateRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, errp *error, fields ...zap.Field) {
	elapsed := time.Since(start)
	result := Outcome(*errp)
	s.metrics.RecordStoreOperation(op, result, elapsed)

	logger := logging.FromContext(ctx, s.logger)
	fields = append(fields,
		zap.String("operation", op),
		zap.String("outcome", result),
		zap.Duration("duration", elapsed),
	)
	switch result {
	case "ok":
		logger.Debug("graph operation completed", fields...)
	case "error":
		logger.Error("graph operation failed", append(fields, zap.Error(*errp))...)
	default:
		logger.Warn("graph operation rejected", append(fields, zap.Error(*errp))...)
	}
}

// Outcome names the class of err for logs and metric labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, neograph.ErrInvalidLabel),
		errors.Is(err, neograph.ErrInvalidProperties),
		errors.Is(err, neograph.ErrTargetNotFound):
		return "invalid"
	case errors.Is(err, neograph.ErrConstraintViolation):
		return "conflict"
	case errors.Is(err, neograph.ErrStoreUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
