// Package topic matches MQTT topic names against subscription filters.
package topic

import "strings"

const (
	separator      = "/"
	singleLevel    = "+"
	multiLevel     = "#"
	systemPrefix   = "$"
	wildcardMarker = "+#"
)

// HasWildcard reports whether filter contains + or #.
func HasWildcard(filter string) bool {
	return strings.ContainsAny(filter, wildcardMarker)
}

// Match reports whether the topic name is matched by filter. Filters without wildcards
// must be equal to the name. Names starting with $ are never matched by a leading wildcard.
func Match(filter, name string) bool {
	if !HasWildcard(filter) {
		return filter == name
	}
	if strings.HasPrefix(name, systemPrefix) && (strings.HasPrefix(filter, singleLevel) || strings.HasPrefix(filter, multiLevel)) {
		return false
	}

	filterLevels := strings.Split(filter, separator)
	nameLevels := strings.Split(name, separator)
	for i, level := range filterLevels {
		if level == multiLevel {
			return i == len(filterLevels)-1
		}
		if i >= len(nameLevels) {
			return false
		}
		if level != singleLevel && level != nameLevels[i] {
			return false
		}
	}
	return len(filterLevels) == len(nameLevels)
}

// ValidFilter reports whether filter is a well-formed subscription filter.
func ValidFilter(filter string) bool {
	if filter == "" {
		return false
	}
	levels := strings.Split(filter, separator)
	for i, level := range levels {
		switch {
		case level == multiLevel:
			if i != len(levels)-1 {
				return false
			}
		case level == singleLevel:
		case strings.ContainsAny(level, wildcardMarker):
			return false
		}
	}
	return true
}

// ValidName reports whether name can be published to.
func ValidName(name string) bool {
	return name != "" && !HasWildcard(name)
}
