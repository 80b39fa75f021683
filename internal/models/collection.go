package models

// Collection names a per-user set of records that change notifications are
// published for.
type Collection string

const (
	CollectionCheckIns    Collection = "checkins"
	CollectionSuggestions Collection = "suggestions"
	CollectionContacts    Collection = "contacts"
	CollectionExecutions  Collection = "executions"
)

// ParseCollection returns the collection named s and whether it is known.
func ParseCollection(s string) (Collection, bool) {
	switch c := Collection(s); c {
	case CollectionCheckIns, CollectionSuggestions, CollectionContacts, CollectionExecutions:
		return c, true
	}
	return "", false
}
