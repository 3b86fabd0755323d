package epg

import "fmt"

// Rating maps a DVB parental rating to a content rating string. Values
// outside 5-18 fall back to the minimum age.
func Rating(value int) string {
	if value >= 5 && value <= 18 {
		return fmt.Sprintf("DVB_%d", value)
	}
	return "DVB_4"
}

// Genre maps the level-1 DVB content nibble to a broadcast genre.
func Genre(nibble int) string {
	switch nibble & 0xF {
	case 0x1:
		return "MOVIES"
	case 0x2, 0x8:
		return "NEWS"
	case 0x3:
		return "GAMING"
	case 0x4:
		return "SPORTS"
	case 0x5:
		return "FAMILY_KIDS"
	case 0x6:
		return "DRAMA"
	case 0x7, 0x9:
		return "EDUCATION"
	case 0xA:
		return "TRAVEL"
	default:
		return "ANIMAL_WILDLIFE"
	}
}
