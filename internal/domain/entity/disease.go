package entity

import (
	"fmt"
	"strings"
)

// diseaseVocabulary порядок классов совпадает с выходом классификатора.
// Написание меток (включая plant___overwartering) должно совпадать с обучающей выборкой.
var diseaseVocabulary = [...]string{
	"Apple___Apple_scab",
	"Apple___Black_rot",
	"Apple___Cedar_apple_rust",
	"bottle_gourd___Leaf Spot",
	"Cherry___Powdery_mildew",
	"eggplant___Epilachna Beetle",
	"eggplant___Jassid",
	"Grape___Black_rot",
	"Grape___Esca_(Black_Measles)",
	"Grape___Leaf_blight_(Isariopsis_Leaf_Spot)",
	"Peach___Bacterial_spot",
	"Pepper,_bell___Bacterial_spot",
	"plant___healthy",
	"plant___overwartering",
	"plant___Powdery Mildew",
	"plant___Underwatering",
	"Potato___Early_blight",
	"Potato___Late_blight",
	"ridge_gourd___Pumpkin Caterpillar",
	"ridge_gourd___Pumpkin Leaf Eating Insect",
	"ridge_gourd___Pumpkin Leaf Eating Insect and Insect Egg Mass",
	"ridge_gourd___Pumpkin Leaf Eating Insect and Mite",
	"Squash___Powdery_mildew",
	"Strawberry___Leaf_scorch",
	"Tomato___Bacterial_spot",
}

// Псевдоклассы словаря
const (
	DiseaseHealthy       = "plant___healthy"
	DiseaseOverwatering  = "plant___overwartering"
	DiseaseUnderwatering = "plant___Underwatering"
)

// VocabularySize число классов классификатора
func VocabularySize() int {
	return len(diseaseVocabulary)
}

// DiseaseAt возвращает метку по индексу выхода классификатора.
func DiseaseAt(index int) (string, error) {
	if index < 0 || index >= len(diseaseVocabulary) {
		return "", fmt.Errorf("class index %d out of range [0,%d)", index, len(diseaseVocabulary))
	}
	return diseaseVocabulary[index], nil
}

// DiseaseFromScores берёт класс с максимальной оценкой и возвращает его метку.
// Индекс проверяется по словарю, даже если ширина выхода модели совпадает с ним.
func DiseaseFromScores(scores []float32) (string, error) {
	best := -1
	for i, s := range scores {
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	if best < 0 {
		return "", fmt.Errorf("classifier returned no scores")
	}
	return DiseaseAt(best)
}

// Vocabulary возвращает копию словаря
func Vocabulary() []string {
	out := make([]string, len(diseaseVocabulary))
	copy(out, diseaseVocabulary[:])
	return out
}

// DiseaseKey ключ записи в plant_diseases: без краевых пробелов, пробелы заменены на "_".
// Метки классификатора вроде "plant___Powdery Mildew" ищутся по тому же ключу.
func DiseaseKey(label string) string {
	return strings.ReplaceAll(strings.TrimSpace(label), " ", "_")
}

// DiseaseInfo справочная запись о болезни, хранится в plant_diseases/{key}.
// Ключи JSON совпадают с тем, что читает мобильное приложение.
type DiseaseInfo struct {
	KoreanName    string `json:"한국어_병명"`
	Symptoms      string `json:"증상"`
	Cause         string `json:"원인"`
	Prescriptions string `json:"처방전"`
}

// OverwateringInfo запись о переливе, которой нет в исходной таблице
var OverwateringInfo = DiseaseInfo{
	KoreanName: "과습",
	Symptoms: "잎의 색이 가장자리부터 노란색으로 빠짐\n" +
		"화분이 오래동안 젖어있고, 흙이 마르는 속도가 굉장히 느림\n" +
		"물을 주어도 식물이 축 늘어지며 시듬",
	Cause: "흙이 다 마르지 않았는 데 물을 준 적이 있는 경우\n" +
		"물이 고인 상태로 화분을 물받침 위에 올려둔 경우\n" +
		"물을 주었을 때, 화분 구멍 밑으로 물이 잘 빠져나오지 않을 경우",
	Prescriptions: "화분 위 흙에 덮인 자식 돌(마사토 등)을 치워 흙 표면을 통한 수분 증발이 원할하게 되도록 도와주세요.\n" +
		"흙 곳곳에 손가락이나 나무젓가락 등으로 구멍을 뚫어 안 쪽까지 통기가 잘 되도록 도와주세요. 너무 세게 찌르면 뿌리를 다칠 수 있으니 주의해요.\n" +
		"물 받침에 고인 물은 바로바로 제거해주세요.\n" +
		"저면관수 화분의 경우, 화분이 과하게 젖지 않도록 물의 양을 조절해 담아주세요.\n" +
		"화분 밑에 병뚜껑 등을 깔아 화분 밑 구멍과 바닥 사이의 공간을 띄워주어 미틍로 바람이 잘 통하게 도와주세요\n" +
		"물을 주어도 물이 잘 빠지지 않을 경우 알갱이가 큰 재료를 많이 섞어 새로 분갈이를 해주세요.",
}
