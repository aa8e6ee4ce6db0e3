package engine

import "errors"

var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrSceneNotFound     = errors.New("scene not found")
	ErrSceneMismatch     = errors.New("scene does not belong to character")
	ErrStaleScene        = errors.New("scene is not the latest scene")
	ErrTurnInProgress    = errors.New("a turn is already in progress for this character")
	ErrGameOver          = errors.New("game has already ended")
	ErrRequirementNotMet = errors.New("choice requirements not met")
)

// ValidationError reports a malformed input field. Message is safe to show to clients.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
