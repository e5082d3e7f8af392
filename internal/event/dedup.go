package event

import "regexp"

// KeyStrategy selects how the deduplication key is derived from a link
type KeyStrategy string

const (
	KeyByID   KeyStrategy = "id"   // digits of an id=/ID= query parameter
	KeyByLink KeyStrategy = "link" // the full link
)

var eventIDPattern = regexp.MustCompile(`[?&][iI][dD]=(\d+)`)

// EventID extracts the numeric event id from a link
func EventID(link string) (string, error) {
	m := eventIDPattern.FindStringSubmatch(link)
	if m == nil {
		return "", Errorf(ErrStructure, "extracting event id", "no id parameter in %q", link)
	}
	return m[1], nil
}

// Validate rejects unknown strategies. The empty strategy means KeyByLink.
func (s KeyStrategy) Validate() error {
	switch s {
	case KeyByID, KeyByLink, "":
		return nil
	}
	return Errorf(ErrConfig, "deriving dedup key", "unknown key strategy %q", string(s))
}

// Key derives the deduplication key for link under strategy s
func (s KeyStrategy) Key(link string) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	if s == KeyByID {
		return EventID(link)
	}
	return link, nil
}

// Seen is the set of keys already emitted in one run. The first event
// added for a key wins.
type Seen struct {
	keys map[string]bool
}

// NewSeen creates an empty set
func NewSeen() *Seen {
	return &Seen{keys: make(map[string]bool)}
}

// Add records key and reports whether it was new
func (s *Seen) Add(key string) bool {
	if s.keys[key] {
		return false
	}
	s.keys[key] = true
	return true
}
