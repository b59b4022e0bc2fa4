// Package errs holds the error taxonomy shared by the timeline core.
//
// Every specific sentinel wraps one category sentinel, so callers can match
// either level with errors.Is:
//
//	errors.Is(err, errs.ErrInvalidInterval) // exact failure
//	errors.Is(err, errs.ErrTemporal)        // whole category
package errs

import (
	"errors"
	"fmt"
)

// Categories.
var (
	ErrReferential   = errors.New("referential")
	ErrTemporal      = errors.New("temporal")
	ErrStructural    = errors.New("structural")
	ErrConfiguration = errors.New("configuration")
	ErrUpstream      = errors.New("upstream")
)

// Referential failures.
var (
	ErrUnknownAsset      = fmt.Errorf("%w: unknown asset", ErrReferential)
	ErrAssetNotFound     = fmt.Errorf("%w: asset not found", ErrReferential)
	ErrDanglingReference = fmt.Errorf("%w: dangling reference", ErrReferential)
)

// Temporal failures.
var (
	ErrInvalidInterval     = fmt.Errorf("%w: invalid interval", ErrTemporal)
	ErrInvalidEffectWindow = fmt.Errorf("%w: invalid effect window", ErrTemporal)
	ErrDurationExceeded    = fmt.Errorf("%w: reference longer than asset", ErrTemporal)
)

// Structural failures.
var (
	ErrDuplicateAsset     = fmt.Errorf("%w: duplicate asset", ErrStructural)
	ErrDuplicateReference = fmt.Errorf("%w: duplicate reference id", ErrStructural)
	ErrInvalidAsset       = fmt.Errorf("%w: invalid asset", ErrStructural)
	ErrInvalidPosition    = fmt.Errorf("%w: invalid position", ErrStructural)
	ErrInvalidEffect      = fmt.Errorf("%w: invalid effect", ErrStructural)
	ErrIndexOutOfRange    = fmt.Errorf("%w: index out of range", ErrStructural)
	ErrInvalidEventType   = fmt.Errorf("%w: unsupported timeline event", ErrStructural)
)

// ErrInvalidConfig reports a non-positive resolution or fps and similar.
var ErrInvalidConfig = fmt.Errorf("%w: invalid config", ErrConfiguration)

// Upstream wraps a collaborator failure (synthesis, transcription, script
// generation) so it stays distinguishable from validation errors.
func Upstream(collaborator string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstream, collaborator, err)
}
