// Package language turns the ISO 639 codes carried in DVB component and
// subtitle descriptors into display names for track listings.
//
// Broadcasters use both ISO 639-2 bibliographic ("ger", "fre") and
// terminology ("deu", "fra") forms, plus the reserved "qaa" for the original
// soundtrack. Codes outside the local table fall back to the CLDR names in
// golang.org/x/text.
package language
