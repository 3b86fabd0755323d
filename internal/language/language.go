package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string // ISO 639-1
	code3   string // ISO 639-2/T
	alt3    string // ISO 639-2/B, as sent by most DVB muxes
	display string
}

var languages = []entry{
	{"en", "eng", "", "English"},
	{"es", "spa", "", "Spanish"},
	{"fr", "fra", "fre", "French"},
	{"de", "deu", "ger", "German"},
	{"it", "ita", "", "Italian"},
	{"pt", "por", "", "Portuguese"},
	{"nl", "nld", "dut", "Dutch"},
	{"pl", "pol", "", "Polish"},
	{"cs", "ces", "cze", "Czech"},
	{"sk", "slk", "slo", "Slovak"},
	{"el", "ell", "gre", "Greek"},
	{"ro", "ron", "rum", "Romanian"},
	{"sr", "srp", "scc", "Serbian"},
	{"hr", "hrv", "scr", "Croatian"},
	{"sv", "swe", "", "Swedish"},
	{"da", "dan", "", "Danish"},
	{"no", "nor", "", "Norwegian"},
	{"fi", "fin", "", "Finnish"},
	{"zh", "zho", "chi", "Chinese"},
	{"ar", "ara", "", "Arabic"},
}

// Reserved descriptor codes that carry no real language.
var reserved = map[string]string{
	"qaa": "Original",
	"mul": "Multiple",
	"und": "Unknown",
	"mis": "Unknown",
	"zxx": "No linguistic content",
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
	}
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(code, "\u0000", "")))
}

func lookup(code string) *entry {
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	return nil
}

// ToISO2 converts a descriptor code to ISO 639-1. Unrecognized input yields
// an empty string.
func ToISO2(code string) string {
	code = normalize(code)
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if tag, err := xlanguage.Parse(code); err == nil {
		base, conf := tag.Base()
		if conf != xlanguage.No && len(base.String()) == 2 {
			return base.String()
		}
	}
	return ""
}

// DisplayName returns an English name for a descriptor code: "Unknown" for
// empty input and the uppercased code when nothing matches.
func DisplayName(code string) string {
	code = normalize(code)
	if code == "" {
		return "Unknown"
	}
	if name, ok := reserved[code]; ok {
		return name
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	if tag, err := xlanguage.Parse(code); err == nil {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}
