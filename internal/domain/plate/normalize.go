// Package plate содержит текстовые правила номеров: очистку вывода OCR,
// позиционную коррекцию похожих символов и проверку по грамматикам.
package plate

// Length длина канонического номера
const Length = 7

// Text номер фиксированной длины. Значение неизменяемо: Normalize возвращает новый массив.
type Text [Length]byte

// digit -> похожая буква, для позиций, где обязана стоять буква
var toLetter = map[byte]byte{'0': 'O', '1': 'I', '5': 'S', '8': 'B'}

// буква -> похожая цифра, для позиций, где обязана стоять цифра
var toDigit = map[byte]byte{'O': '0', 'I': '1', 'S': '5', 'G': '6', 'Z': '2', 'B': '8', 'A': '4'}

// Normalize исправляет типичные ошибки OCR по позициям.
// Строки длиной не 7 возвращаются без изменений.
func Normalize(s string) string {
	if len(s) != Length {
		return s
	}
	var t Text
	copy(t[:], s)
	out := t.Corrected()
	return string(out[:])
}

// Corrected возвращает исправленную копию номера.
// Вариант грамматики определяется по исходному символу на позиции 4 до любых замен.
func (t Text) Corrected() Text {
	out := t
	for i := 0; i < 3; i++ {
		out[i] = swap(t[i], toLetter)
	}

	if isLetter(t[4]) {
		// текущий формат: LLL N L NN
		out[3] = swap(t[3], toDigit)
		out[4] = swap(t[4], toLetter)
		out[5] = swap(t[5], toDigit)
		out[6] = swap(t[6], toDigit)
		return out
	}

	// старый формат: LLL NNNN
	for i := 3; i < Length; i++ {
		out[i] = swap(t[i], toDigit)
	}
	return out
}

func swap(c byte, table map[byte]byte) byte {
	if r, ok := table[c]; ok {
		return r
	}
	return c
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
