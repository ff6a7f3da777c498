package links2pdf

import "strings"

// MaxFilenameLength caps sanitized titles, in characters.
const MaxFilenameLength = 100

// reservedReplacer maps characters rejected by at least one common filesystem.
var reservedReplacer = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"/", "_",
	`\`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// SanitizeFilename makes an article title safe for use as a file name.
// Reserved characters become "_" and the result is cut to MaxFilenameLength
// characters without splitting a multi-byte rune.
func SanitizeFilename(title string) string {
	s := reservedReplacer.Replace(title)

	n := 0
	for i := range s {
		if n == MaxFilenameLength {
			return s[:i]
		}
		n++
	}
	return s
}
