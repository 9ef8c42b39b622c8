package neograph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrNotFound is a sentinel error for lookups that match nothing. GraphStore itself
// reports an empty neighborhood as an empty slice; callers that want a stricter
// contract translate that into ErrNotFound.
var ErrNotFound = errors.New("record not found")

var (
	// ErrStoreUnavailable reports a connectivity or transient failure talking to
	// the store. The operation had no effect and may be retried by the caller.
	ErrStoreUnavailable = errors.New("graph store unavailable")

	// ErrTargetNotFound reports a relationship spec whose target does not exist.
	// The concrete error is a *TargetNotFoundError.
	ErrTargetNotFound = errors.New("relationship target not found")

	// ErrInvalidLabel reports an empty, malformed or disallowed node label.
	ErrInvalidLabel = errors.New("invalid label")

	// ErrInvalidProperties reports property or attribute values the store cannot hold.
	ErrInvalidProperties = errors.New("invalid properties")

	// ErrConstraintViolation reports a write rejected by a schema constraint.
	ErrConstraintViolation = errors.New("constraint violation")
)

// TargetNotFoundError identifies the relationship spec that could not be resolved.
type TargetNotFoundError struct {
	// Index is the position of the spec in the request's relationship list.
	Index int
	// TargetID is the element id that matched no node.
	TargetID string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("relationship %d: target node %q not found", e.Index, e.TargetID)
}

// Is makes errors.Is(err, ErrTargetNotFound) match.
func (e *TargetNotFoundError) Is(target error) bool {
	return target == ErrTargetNotFound
}

const (
	codeTransientPrefix     = "Neo.TransientError."
	codeConstraintViolation = "Neo.ClientError.Schema.ConstraintValidationFailed"
	codeTypeError           = "Neo.ClientError.Statement.TypeError"
)

// classify maps driver failures onto the package's error taxonomy and adds the
// operation name. Errors already in the taxonomy pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	for _, known := range []error{
		ErrStoreUnavailable, ErrTargetNotFound, ErrInvalidLabel,
		ErrInvalidProperties, ErrConstraintViolation,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || neo4j.IsConnectivityError(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}

	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		switch {
		case strings.HasPrefix(neoErr.Code, codeTransientPrefix):
			return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
		case neoErr.Code == codeConstraintViolation:
			return fmt.Errorf("%s: %w: %w", op, ErrConstraintViolation, err)
		case neoErr.Code == codeTypeError:
			return fmt.Errorf("%s: %w: %w", op, ErrInvalidProperties, err)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
