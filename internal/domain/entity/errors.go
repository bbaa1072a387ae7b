package entity

import "errors"

// Ошибки этапов конвейера. Адаптеры оборачивают их, оркестратор сверяет через errors.Is.
var (
	ErrImageUnavailable     = errors.New("image unavailable")
	ErrDetectionFailed      = errors.New("detection failed")
	ErrInvalidRegion        = errors.New("invalid region")
	ErrClassificationFailed = errors.New("classification failed")
	ErrRemoteWriteFailed    = errors.New("remote write failed")
	ErrUnexpected           = errors.New("unexpected error")
)

// ErrPlantNotFound записи растения нет в базе
var ErrPlantNotFound = errors.New("plant not found")

// OutcomeForError выбирает итог по ошибке этапа
func OutcomeForError(err error) Outcome {
	switch {
	case errors.Is(err, ErrImageUnavailable):
		return Failed(OutcomeImageUnavailable)
	case errors.Is(err, ErrDetectionFailed):
		return Failed(OutcomeDetectionFailed)
	case errors.Is(err, ErrInvalidRegion):
		return Failed(OutcomeInvalidRegion)
	case errors.Is(err, ErrClassificationFailed):
		return Failed(OutcomeClassificationFailed)
	default:
		return Failed(OutcomeUnexpected)
	}
}
