// Package validation содержит функции валидации входных данных.
package validation

import "unicode"

const (
	maxIdentifierLen = 128
	maxRegionLen     = 256
)

// IsValidIdentifier проверяет адрес, тип актива или имя шаблона: непустая строка
// из латинских букв, цифр и символов "-", "_", ":", ".".
func IsValidIdentifier(s string) bool {
	if s == "" || len(s) > maxIdentifierLen {
		return false
	}

	for _, ch := range s {
		if ch > unicode.MaxASCII {
			return false
		}
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
			continue
		}
		switch ch {
		case '-', '_', ':', '.':
			continue
		}
		return false
	}

	return true
}

// IsValidRegion проверяет строку региона: не длиннее 256 байт, без управляющих символов.
func IsValidRegion(s string) bool {
	if len(s) > maxRegionLen {
		return false
	}

	for _, ch := range s {
		if unicode.IsControl(ch) {
			return false
		}
	}

	return true
}
