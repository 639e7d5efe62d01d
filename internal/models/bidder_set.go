package models

import (
	"encoding/json"
	"sort"
)

// BidderSet holds the ids of drivers who bid on a load. Adding an existing
// member is a no-op.
type BidderSet map[string]struct{}

func NewBidderSet(ids ...string) BidderSet {
	s := make(BidderSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was newly added.
func (s BidderSet) Add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s BidderSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s BidderSet) Len() int { return len(s) }

// IDs returns the members in sorted order.
func (s BidderSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s BidderSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *BidderSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewBidderSet(ids...)
	return nil
}
