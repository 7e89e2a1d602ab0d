package parse

import (
	"regexp"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// FloorService выводит РРЦ из названия товара. Молчание сервиса (nil)
// означает "РРЦ не трогаем".
type FloorService interface {
	FloorFromTitle(title string) *float64
}

// Сразу после числа идёт обозначение единиц (объём/вес/шт/длина) —
// такое число объёмом и считаем, в кандидаты не берём. Границу слова
// проверяем явно: \b в RE2 не понимает кириллицу.
var unitsRe = regexp.MustCompile(`(?i)^\s*(?:мл|ml|г|мг|mg|кг|л|l|литр(?:а|ов)?|лит|таб(?:лет)?|капс(?:ул)?|caps?|шт|см|мм)(?:$|[^\p{L}0-9])`)

var numberRe = regexp.MustCompile(`[0-9]{1,6}`)

type TitleFloorService struct {
	lowFloor  float64
	highFloor float64
}

func NewTitleFloorService() *TitleFloorService {
	// Правило из практики мониторинга: объёмная линейка до 700 продаётся по
	// 1300, 700..800 — по 1500, остальное РРЦ по названию не определяется.
	return &TitleFloorService{lowFloor: 1300, highFloor: 1500}
}

// ExtractMaxRelevantNumber достаёт максимальное релевантное целое из названия:
// числа с единицами измерения и коды (>= 10000) пропускаются.
func ExtractMaxRelevantNumber(title string) (int, bool) {
	text := norm.NFC.String(title)

	best := 0
	found := false
	for _, loc := range numberRe.FindAllStringIndex(text, -1) {
		// границы: число не должно быть частью более длинной цифровой группы
		if loc[0] > 0 && isDigitByte(text[loc[0]-1]) {
			continue
		}
		if loc[1] < len(text) && isDigitByte(text[loc[1]]) {
			continue
		}

		num, err := strconv.Atoi(text[loc[0]:loc[1]])
		if err != nil {
			continue
		}
		if num >= 10000 { // явный код, не цена и не объём
			continue
		}

		tail := text[loc[1]:]
		if len(tail) > 24 {
			tail = tail[:24]
		}
		if unitsRe.MatchString(tail) {
			continue
		}

		if !found || num > best {
			best = num
			found = true
		}
	}
	return best, found
}

func isDigitByte(b byte) bool {
	return b >= '0' && b <= '9'
}

// FloorFromTitle: число < 700 -> 1300, 700..800 -> 1500, иначе nil.
func (s *TitleFloorService) FloorFromTitle(title string) *float64 {
	n, ok := ExtractMaxRelevantNumber(title)
	if !ok || n <= 0 {
		return nil
	}
	if n > 800 {
		return nil
	}
	if n < 700 {
		v := s.lowFloor
		return &v
	}
	v := s.highFloor
	return &v
}
