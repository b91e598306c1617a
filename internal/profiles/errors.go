package profiles

import (
	"context"
	"errors"
	"fmt"

	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
)

// PublishError identifies the step, tag and path a publish run failed on.
type PublishError struct {
	Step StepName
	Tag  string
	Path string
	Err  error
}

func (e *PublishError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Step, e.Tag, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Step, e.Tag, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// classify wraps a step failure into a classified error for the CLI.
func classify(pe *PublishError) error {
	message := fmt.Sprintf("publishing tag %q failed at %s", pe.Tag, pe.Step)

	var b *ferrors.ErrorBuilder
	switch {
	case errors.Is(pe.Err, ErrTargetMissing), errors.Is(pe.Err, ErrTokenLeftover):
		b = ferrors.PublishError(message)
	case errors.Is(pe.Err, context.Canceled), errors.Is(pe.Err, context.DeadlineExceeded):
		b = ferrors.NewError(ferrors.CategoryRuntime, message).Fatal()
	default:
		b = ferrors.FileSystemError(message)
	}

	return b.WithCause(pe).
		WithContext("step", string(pe.Step)).
		WithContext("tag", pe.Tag).
		WithContext("path", pe.Path).
		Build()
}
