package helpers

import "strings"

// NormalizeSeparators rewrites thousands and decimal separators into the
// form strconv.ParseFloat expects. "1,299.99", "1.299,99" and "12,99" all
// become plain decimals; a lone dot is read as the decimal point.
func NormalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Whichever comes last is the decimal separator
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if IsThousandsGrouped(s, ",") {
			return strings.ReplaceAll(s, ",", "")
		}
		if strings.Count(s, ",") == 1 {
			return strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 && IsThousandsGrouped(s, ".") {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

// NormalizeCount is NormalizeSeparators for whole numbers: a single dot
// followed by three digits ("1.234") is a thousands separator.
func NormalizeCount(s string) string {
	if !strings.Contains(s, ",") && IsThousandsGrouped(s, ".") {
		return strings.ReplaceAll(s, ".", "")
	}
	return NormalizeSeparators(s)
}

// IsThousandsGrouped reports whether s contains sep and every group after
// it has three digits
func IsThousandsGrouped(s, sep string) bool {
	parts := strings.Split(s, sep)
	if len(parts) < 2 || len(parts[0]) == 0 || len(parts[0]) > 3 {
		return false
	}
	for _, part := range parts[1:] {
		if len(part) != 3 {
			return false
		}
	}
	return true
}
