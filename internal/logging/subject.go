package logging

import "strings"

// FormatSubject builds the library/file subject string used in console output.
func FormatSubject(library, fileID string) string {
	library = strings.TrimSpace(library)
	fileID = strings.TrimSpace(fileID)
	switch {
	case library != "" && fileID != "":
		return library + " · File #" + fileID
	case fileID != "":
		return "File #" + fileID
	default:
		return library
	}
}
