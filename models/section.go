package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// MaxDistance is the largest distance a section can hold. It matches the
// INTEGER distance column of both schemas.
const MaxDistance = math.MaxInt32

// Section is one directed stretch of track from UpStation to DownStation.
type Section struct {
	UpStation   Station `json:"upStation"`
	DownStation Station `json:"downStation"`
	Distance    int     `json:"distance"`
}

// NewSection builds a section and checks its endpoints and distance.
func NewSection(up, down Station, distance int) (Section, error) {
	s := Section{UpStation: up, DownStation: down, Distance: distance}
	if err := s.Validate(); err != nil {
		return Section{}, err
	}
	return s, nil
}

// Validate checks that the section joins two different stations over a
// distance in (0, MaxDistance]
func (s Section) Validate() error {
	if s.UpStation.Is(s.DownStation) {
		return fmt.Errorf("%w: station %d", ErrInvalidSection, s.UpStation.ID)
	}
	if s.Distance <= 0 {
		return fmt.Errorf("%w: %d must be positive", ErrInvalidDistance, s.Distance)
	}
	if s.Distance > MaxDistance {
		return fmt.Errorf("%w: %d exceeds the maximum of %d", ErrInvalidDistance, s.Distance, MaxDistance)
	}
	return nil
}

// Sections is the chain of sections that make up one line. Sections are held
// unordered; path order is rebuilt from the up terminus when needed.
//
// The zero value is an empty chain. Use NewSections to build a valid one.
type Sections struct {
	items []Section
}

// NewSections builds a chain from items in any order and rejects input that
// is not a single simple path of at least one section.
func NewSections(items ...Section) (*Sections, error) {
	s := &Sections{items: append([]Section(nil), items...)}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Len returns the number of sections in the chain.
func (s *Sections) Len() int {
	return len(s.items)
}

// All returns a copy of the sections in storage order.
func (s *Sections) All() []Section {
	return append([]Section(nil), s.items...)
}

// ContainsStation reports whether st is an endpoint of any section.
func (s *Sections) ContainsStation(st Station) bool {
	for _, sec := range s.items {
		if sec.UpStation.Is(st) || sec.DownStation.Is(st) {
			return true
		}
	}
	return false
}

// FindByUpStation returns the section leaving st.
func (s *Sections) FindByUpStation(st Station) (Section, bool) {
	if i := s.indexByUp(st); i >= 0 {
		return s.items[i], true
	}
	return Section{}, false
}

// FindByDownStation returns the section arriving at st.
func (s *Sections) FindByDownStation(st Station) (Section, bool) {
	if i := s.indexByDown(st); i >= 0 {
		return s.items[i], true
	}
	return Section{}, false
}

// UpTerminus returns the station no section arrives at.
func (s *Sections) UpTerminus() (Station, bool) {
	arrivals := make(map[int64]struct{}, len(s.items))
	for _, sec := range s.items {
		arrivals[sec.DownStation.ID] = struct{}{}
	}
	for _, sec := range s.items {
		if _, ok := arrivals[sec.UpStation.ID]; !ok {
			return sec.UpStation, true
		}
	}
	return Station{}, false
}

// DownTerminus returns the station no section leaves from.
func (s *Sections) DownTerminus() (Station, bool) {
	departures := make(map[int64]struct{}, len(s.items))
	for _, sec := range s.items {
		departures[sec.UpStation.ID] = struct{}{}
	}
	for _, sec := range s.items {
		if _, ok := departures[sec.DownStation.ID]; !ok {
			return sec.DownStation, true
		}
	}
	return Station{}, false
}

// Ordered returns the sections in path order from the up terminus.
func (s *Sections) Ordered() []Section {
	start, ok := s.UpTerminus()
	if !ok {
		return []Section{}
	}

	byUp := make(map[int64]Section, len(s.items))
	for _, sec := range s.items {
		byUp[sec.UpStation.ID] = sec
	}

	ordered := make([]Section, 0, len(s.items))
	for cur := start; len(ordered) < len(s.items); {
		sec, ok := byUp[cur.ID]
		if !ok {
			break
		}
		ordered = append(ordered, sec)
		cur = sec.DownStation
	}
	return ordered
}

// OrderedStations returns every station of the line from the up terminus to
// the down terminus.
func (s *Sections) OrderedStations() []Station {
	ordered := s.Ordered()
	if len(ordered) == 0 {
		return []Station{}
	}

	stations := make([]Station, 0, len(ordered)+1)
	stations = append(stations, ordered[0].UpStation)
	for _, sec := range ordered {
		stations = append(stations, sec.DownStation)
	}
	return stations
}

// TotalDistance returns the summed distance of all sections.
func (s *Sections) TotalDistance() int {
	total := 0
	for _, sec := range s.items {
		total += sec.Distance
	}
	return total
}

// Validate checks that the chain is a single simple path of valid sections.
func (s *Sections) Validate() error {
	if len(s.items) == 0 {
		return fmt.Errorf("%w: no sections", ErrInvalidChain)
	}

	outgoing := make(map[int64]int, len(s.items))
	incoming := make(map[int64]int, len(s.items))
	for _, sec := range s.items {
		if err := sec.Validate(); err != nil {
			return err
		}
		outgoing[sec.UpStation.ID]++
		incoming[sec.DownStation.ID]++
	}

	for id, n := range outgoing {
		if n > 1 {
			return fmt.Errorf("%w: station %d has %d outgoing sections", ErrInvalidChain, id, n)
		}
	}
	for id, n := range incoming {
		if n > 1 {
			return fmt.Errorf("%w: station %d has %d incoming sections", ErrInvalidChain, id, n)
		}
	}

	// With in/out degree at most one, the sections form disjoint paths and
	// cycles. A single path is the only shape whose walk covers everything.
	if walked := len(s.Ordered()); walked != len(s.items) {
		return fmt.Errorf("%w: path from up terminus covers %d of %d sections", ErrInvalidChain, walked, len(s.items))
	}
	return nil
}

// MarshalJSON encodes the chain as its sections in path order.
func (s *Sections) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Ordered())
}

func (s *Sections) indexByUp(st Station) int {
	for i, sec := range s.items {
		if sec.UpStation.Is(st) {
			return i
		}
	}
	return -1
}

func (s *Sections) indexByDown(st Station) int {
	for i, sec := range s.items {
		if sec.DownStation.Is(st) {
			return i
		}
	}
	return -1
}
