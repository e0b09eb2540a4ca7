package models

import (
	"fmt"
	"slices"
)

// placement is where a new section attaches to the chain.
type placement int

const (
	extendDown    placement = iota // new section leaves the down terminus
	extendUp                       // new section arrives at the up terminus
	splitFromUp                    // new down station goes inside the section leaving sec.UpStation
	splitFromDown                  // new up station goes inside the section arriving at sec.DownStation
)

// Add attaches sec to the chain, either extending a terminus or splitting
// the section it falls inside. On error the chain is unchanged.
func (s *Sections) Add(sec Section) error {
	if err := sec.Validate(); err != nil {
		return err
	}

	where, err := s.place(sec)
	if err != nil {
		return err
	}

	var next []Section
	switch where {
	case extendDown:
		next = append(s.All(), sec)
	case extendUp:
		next = append([]Section{sec}, s.items...)
	case splitFromUp:
		next, err = s.splitFromUp(sec)
	case splitFromDown:
		next, err = s.splitFromDown(sec)
	}
	if err != nil {
		return err
	}

	s.items = next
	return nil
}

// place decides once which transformation Add applies.
func (s *Sections) place(sec Section) (placement, error) {
	upExists := s.ContainsStation(sec.UpStation)
	downExists := s.ContainsStation(sec.DownStation)

	switch {
	case upExists && downExists:
		return 0, fmt.Errorf("%w: stations %d and %d", ErrDuplicateSection, sec.UpStation.ID, sec.DownStation.ID)
	case !upExists && !downExists:
		return 0, fmt.Errorf("%w: stations %d and %d", ErrDisconnectedSection, sec.UpStation.ID, sec.DownStation.ID)
	case upExists:
		if down, ok := s.DownTerminus(); ok && down.Is(sec.UpStation) {
			return extendDown, nil
		}
		return splitFromUp, nil
	default:
		if up, ok := s.UpTerminus(); ok && up.Is(sec.DownStation) {
			return extendUp, nil
		}
		return splitFromDown, nil
	}
}

// splitFromUp turns existing (A, C, D) into (A, B, d) and (B, C, D-d) for new
// section (A, B, d).
func (s *Sections) splitFromUp(sec Section) ([]Section, error) {
	i := s.indexByUp(sec.UpStation)
	if i < 0 {
		return nil, fmt.Errorf("%w: no section leaves station %d", ErrInvalidChain, sec.UpStation.ID)
	}
	existing := s.items[i]
	if sec.Distance >= existing.Distance {
		return nil, splitDistanceError(sec.Distance, existing.Distance)
	}

	rest := Section{
		UpStation:   sec.DownStation,
		DownStation: existing.DownStation,
		Distance:    existing.Distance - sec.Distance,
	}
	return slices.Replace(s.All(), i, i+1, sec, rest), nil
}

// splitFromDown turns existing (A, C, D) into (A, B, D-d) and (B, C, d) for
// new section (B, C, d).
func (s *Sections) splitFromDown(sec Section) ([]Section, error) {
	i := s.indexByDown(sec.DownStation)
	if i < 0 {
		return nil, fmt.Errorf("%w: no section arrives at station %d", ErrInvalidChain, sec.DownStation.ID)
	}
	existing := s.items[i]
	if sec.Distance >= existing.Distance {
		return nil, splitDistanceError(sec.Distance, existing.Distance)
	}

	head := Section{
		UpStation:   existing.UpStation,
		DownStation: sec.UpStation,
		Distance:    existing.Distance - sec.Distance,
	}
	return slices.Replace(s.All(), i, i+1, head, sec), nil
}

func splitDistanceError(distance, existing int) error {
	return fmt.Errorf("%w: %d must be less than the existing section distance %d", ErrInvalidDistance, distance, existing)
}

// Remove takes st off the line. A terminus loses its only section; an
// interior station's two sections merge into one covering both distances.
// On error the chain is unchanged.
func (s *Sections) Remove(st Station) error {
	if len(s.items) <= 1 {
		return ErrOnlySection
	}

	arriving := s.indexByDown(st)
	leaving := s.indexByUp(st)

	var next []Section
	switch {
	case arriving < 0 && leaving < 0:
		return fmt.Errorf("%w: station %d", ErrStationNotFound, st.ID)
	case arriving < 0:
		next = slices.Delete(s.All(), leaving, leaving+1)
	case leaving < 0:
		next = slices.Delete(s.All(), arriving, arriving+1)
	default:
		a, b := s.items[arriving], s.items[leaving]
		merged, err := NewSection(a.UpStation, b.DownStation, a.Distance+b.Distance)
		if err != nil {
			return fmt.Errorf("merging around station %d: %w", st.ID, err)
		}
		next = make([]Section, 0, len(s.items)-1)
		for i, sec := range s.items {
			switch i {
			case arriving:
				next = append(next, merged)
			case leaving:
			default:
				next = append(next, sec)
			}
		}
	}

	s.items = next
	return nil
}
