package domain

import "regexp"

// RelationWrote is the authorship edge type. It points from Author to Paper and
// is never reported as an outgoing paper relationship.
const RelationWrote = "WROTE"

var relationTypePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,63}$`)

// ValidRelationType reports whether t can be used as a relationship type.
// Graph backends interpolate the type into their queries, so this check is
// the only thing standing between a request body and the query text.
func ValidRelationType(t string) bool {
	return relationTypePattern.MatchString(t) && t != RelationWrote
}
