package models

import (
	"regexp"
	"strings"
)

var idRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidID reports whether id is safe to use as a storage key or file name
func ValidID(id string) bool {
	return idRe.MatchString(id) && !strings.Contains(id, "..")
}
