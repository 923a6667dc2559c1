package fitting

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrInvalidConfig indicates a malformed weight or schedule value.
	ErrInvalidConfig = errors.New("invalid fitting configuration")

	// ErrNoViews indicates that no views were supplied.
	ErrNoViews = errors.New("no views to fit")

	// ErrViewCountMismatch indicates that supervision and initial
	// coefficients disagree on the number of views.
	ErrViewCountMismatch = errors.New("view count mismatch")

	// ErrInvalidSupervision indicates malformed or inconsistent view data.
	ErrInvalidSupervision = errors.New("invalid view supervision")

	// ErrShapeMismatch is wrapped by ShapeMismatchError.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrMissingCollaborator indicates a collaborator required by the
	// configuration is nil.
	ErrMissingCollaborator = errors.New("missing collaborator")

	// ErrRecognitionTraining indicates the recognition network is in
	// training mode while the identity loss is active.
	ErrRecognitionTraining = errors.New("recognition network must be in inference mode")

	// ErrNonFiniteLoss indicates a NaN or infinite loss under the "fail" policy.
	ErrNonFiniteLoss = errors.New("non-finite loss")

	// ErrFinalized indicates the state was already finalized.
	ErrFinalized = errors.New("parameter state already finalized")

	// ErrUnknownBlock indicates a coefficient block name not in the layout.
	ErrUnknownBlock = errors.New("unknown coefficient block")

	// ErrDone indicates that every configured step has run.
	ErrDone = errors.New("fitting already completed")
)

// ShapeMismatchError reports a decoded coefficient block whose width
// disagrees with the fixed layout.
type ShapeMismatchError struct {
	View  int    // View index
	Block string // Block kind, e.g. "exp"
	Want  int    // Layout width
	Got   int    // Decoded width
}

// Error implements the error interface.
func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("view %d: %s block has width %d, want %d", e.View, e.Block, e.Got, e.Want)
}

// Unwrap returns ErrShapeMismatch so errors.Is matches.
func (e *ShapeMismatchError) Unwrap() error {
	return ErrShapeMismatch
}
