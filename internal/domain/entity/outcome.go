package entity

import "time"

// OutcomeKind итог конвейера для одного растения
type OutcomeKind string

const (
	OutcomeImageUnavailable     OutcomeKind = "image_unavailable"
	OutcomeDetectionFailed      OutcomeKind = "detection_failed"
	OutcomeNoUnhealthyRegion    OutcomeKind = "no_unhealthy_region"
	OutcomeInvalidRegion        OutcomeKind = "invalid_region"
	OutcomeDiseased             OutcomeKind = "diseased"
	OutcomeClassificationFailed OutcomeKind = "classification_failed"
	OutcomeUnexpected           OutcomeKind = "unexpected_error"
)

// Outcome итог сканирования вместе с найденной болезнью
type Outcome struct {
	Kind    OutcomeKind
	Disease string // заполняется только для OutcomeDiseased
}

// Healthy итог без нездоровых областей
func Healthy() Outcome { return Outcome{Kind: OutcomeNoUnhealthyRegion} }

// Diseased итог с меткой болезни
func Diseased(label string) Outcome { return Outcome{Kind: OutcomeDiseased, Disease: label} }

// Failed итог с ошибкой на одном из этапов
func Failed(kind OutcomeKind) Outcome { return Outcome{Kind: kind} }

// Status отображает итог в значение поля status.
func (o Outcome) Status() string {
	switch o.Kind {
	case OutcomeNoUnhealthyRegion:
		return StatusHealthy
	case OutcomeDiseased:
		if o.Disease == "" {
			return StatusUnknown
		}
		return o.Disease
	default:
		return StatusUnknown
	}
}

// DiseaseField значение поля disease; пустая строка означает «очистить».
func (o Outcome) DiseaseField() string {
	if o.Kind == OutcomeDiseased {
		return o.Disease
	}
	return ""
}

// ScanResult результат одного сканирования
type ScanResult struct {
	ScanID     string
	PlantID    string
	SensorNode string
	Outcome    Outcome
	Status     string
	Regions    int       // сколько областей вернул детектор
	Err        error     // ошибка этапа, приведшая к Unknown
	WriteErr   error     // ошибка финальной записи статуса
	StartedAt  time.Time
	FinishedAt time.Time
}

// Persisted сообщает, что финальный статус записан в базу
func (r ScanResult) Persisted() bool {
	return r.WriteErr == nil
}

// Alarming сообщает, что найдена болезнь, о которой стоит уведомить
func (r ScanResult) Alarming() bool {
	return r.Outcome.Kind == OutcomeDiseased && r.Status != DiseaseHealthy
}
