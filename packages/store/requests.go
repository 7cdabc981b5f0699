package store

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"github.com/arkadyv/reqforge/packages/descriptor"
)

// SavedRequest is a named descriptor snapshot persisted for later replay.
// The snapshot keeps its template placeholders and real credential values;
// masking only ever applies to display copies.
type SavedRequest struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Descriptor *descriptor.Descriptor `json:"descriptor"`
	Collection string                 `json:"collection,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	LastUsedAt time.Time              `json:"lastUsedAt,omitempty"`
}

func (s *Store) loadRequests() (map[string]*SavedRequest, error) {
	requests := make(map[string]*SavedRequest)
	if _, err := s.readJSONFile(s.requestsPath(), &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// SaveRequest persists a descriptor snapshot under name. Saving an
// existing name overwrites the previous snapshot; the original creation
// time is preserved so "created" keeps meaning first save.
func (s *Store) SaveRequest(name, collection string, d *descriptor.Descriptor) (*SavedRequest, error) {
	var saved *SavedRequest
	err := s.withLock(s.requestsPath(), func() error {
		requests, err := s.loadRequests()
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		saved = &SavedRequest{
			ID:         uuid.NewString(),
			Name:       name,
			Descriptor: d.Clone(),
			Collection: collection,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if previous, ok := requests[name]; ok {
			saved.ID = previous.ID
			saved.CreatedAt = previous.CreatedAt
			saved.LastUsedAt = previous.LastUsedAt
			if collection == "" {
				saved.Collection = previous.Collection
			}
		}
		requests[name] = saved

		return s.writeFileAtomic(s.requestsPath(), requests)
	})
	return saved, err
}

// GetRequest loads a saved request by exact name.
func (s *Store) GetRequest(name string) (*SavedRequest, error) {
	requests, err := s.loadRequests()
	if err != nil {
		return nil, err
	}
	saved, ok := requests[name]
	if !ok {
		return nil, &Error{Kind: KindNotFound, Name: name}
	}
	return saved, nil
}

// MarkUsed stamps a saved request as recently used. Recency feeds the
// fuzzy-lookup tie break.
func (s *Store) MarkUsed(name string) error {
	return s.withLock(s.requestsPath(), func() error {
		requests, err := s.loadRequests()
		if err != nil {
			return err
		}
		saved, ok := requests[name]
		if !ok {
			return &Error{Kind: KindNotFound, Name: name}
		}
		saved.LastUsedAt = time.Now().UTC()
		return s.writeFileAtomic(s.requestsPath(), requests)
	})
}

// DeleteRequest removes a saved request. Deleting a name that does not
// exist fails with a not-found error rather than succeeding silently.
func (s *Store) DeleteRequest(name string) error {
	return s.withLock(s.requestsPath(), func() error {
		requests, err := s.loadRequests()
		if err != nil {
			return err
		}
		if _, ok := requests[name]; !ok {
			return &Error{Kind: KindNotFound, Name: name}
		}
		delete(requests, name)
		return s.writeFileAtomic(s.requestsPath(), requests)
	})
}

// ListRequests returns saved requests, newest first. A non-empty filter
// keeps requests whose name, URL, method or collection contains it.
func (s *Store) ListRequests(filter string) ([]*SavedRequest, error) {
	requests, err := s.loadRequests()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(filter))
	list := make([]*SavedRequest, 0, len(requests))
	for _, saved := range requests {
		if needle != "" && !matchesFilter(saved, needle) {
			continue
		}
		list = append(list, saved)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].Name < list[j].Name
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func matchesFilter(saved *SavedRequest, needle string) bool {
	return strings.Contains(strings.ToLower(saved.Name), needle) ||
		strings.Contains(strings.ToLower(saved.Descriptor.URL), needle) ||
		strings.Contains(strings.ToLower(saved.Descriptor.Method), needle) ||
		strings.Contains(strings.ToLower(saved.Collection), needle)
}

// Collections returns the distinct collection tags in use, sorted.
func (s *Store) Collections() ([]string, error) {
	requests, err := s.loadRequests()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	for _, saved := range requests {
		if saved.Collection == "" || seen[saved.Collection] {
			continue
		}
		seen[saved.Collection] = true
		names = append(names, saved.Collection)
	}
	sort.Strings(names)
	return names, nil
}

// ListByCollection returns the saved requests tagged with collection,
// sorted by name.
func (s *Store) ListByCollection(collection string) ([]*SavedRequest, error) {
	requests, err := s.loadRequests()
	if err != nil {
		return nil, err
	}
	var list []*SavedRequest
	for _, saved := range requests {
		if saved.Collection == collection {
			list = append(list, saved)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// Match is one fuzzy-lookup candidate.
type Match struct {
	Name  string
	Score int
}

// FuzzyFind ranks saved-request names against query by subsequence
// similarity. Equal scores break toward the most recently used request.
func (s *Store) FuzzyFind(query string, limit int) ([]Match, error) {
	requests, err := s.loadRequests()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(requests))
	for name := range requests {
		names = append(names, name)
	}
	sort.Strings(names)

	results := fuzzy.Find(query, names)
	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{Name: r.Str, Score: r.Score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return requests[matches[i].Name].LastUsedAt.After(requests[matches[j].Name].LastUsedAt)
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
