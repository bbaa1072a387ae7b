package entity

// RequestManual тип запроса на анализ одного растения
const RequestManual = "manual"

// TriggerKind что нужно сделать по сигналу
type TriggerKind int

const (
	TriggerIgnore TriggerKind = iota // пустой или битый сигнал
	TriggerSingle                    // одно растение
	TriggerSweep                     // все растения из списка узлов
)

// Trigger разобранный сигнал из ai_monitoring/trigger
type Trigger struct {
	Kind        TriggerKind
	RequestType string
	PlantID     string
	SensorNode  string
}

// ParseTrigger разбирает содержимое точки сигнала.
// Ручной запрос без plantId или sensorNode игнорируется, как и пустые данные.
func ParseTrigger(raw map[string]any) Trigger {
	if len(raw) == 0 {
		return Trigger{Kind: TriggerIgnore}
	}

	t := Trigger{}
	t.RequestType, _ = raw["requestType"].(string)
	t.PlantID, _ = raw["plantId"].(string)
	t.SensorNode, _ = raw["sensorNode"].(string)

	if t.RequestType != RequestManual {
		t.Kind = TriggerSweep
		return t
	}
	if t.PlantID == "" || t.SensorNode == "" {
		t.Kind = TriggerIgnore
		return t
	}
	t.Kind = TriggerSingle
	return t
}

func (k TriggerKind) String() string {
	switch k {
	case TriggerSingle:
		return "single"
	case TriggerSweep:
		return "sweep"
	default:
		return "ignore"
	}
}
