// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"regexp"
	"strings"
)

var unsafeFileChars = regexp.MustCompile(`[^\pL\pN._-]+`)

// FileName returns the report file name for target with the given
// extension, e.g. FileName("Acme Corp", ".docx") is "Acme_Corp_Report.docx".
func FileName(target, ext string) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.TrimSpace(target), "_"), "._")
	if name == "" {
		name = "Company"
	}
	return name + "_Report" + ext
}
