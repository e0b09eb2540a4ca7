package models

import "errors"

// Section chain errors. Each rejects a request against the current chain
// state; the chain is left unchanged whenever one is returned.
var (
	// ErrInvalidSection is returned when a section's up and down stations are the same.
	ErrInvalidSection = errors.New("up station and down station must differ")

	// ErrDuplicateSection is returned when both stations of a new section are already on the line.
	ErrDuplicateSection = errors.New("both stations are already on the line")

	// ErrDisconnectedSection is returned when neither station of a new section is on the line.
	ErrDisconnectedSection = errors.New("section shares no station with the line")

	// ErrInvalidDistance is returned for a non-positive distance or a split
	// distance that does not fit strictly inside the section being split.
	ErrInvalidDistance = errors.New("invalid section distance")

	// ErrOnlySection is returned when removing a station from a line with a single section.
	ErrOnlySection = errors.New("cannot remove the only section of a line")

	// ErrStationNotFound is returned when removing a station that is not on the line.
	ErrStationNotFound = errors.New("station is not on the line")

	// ErrInvalidChain is returned when a set of sections does not form a single simple path.
	ErrInvalidChain = errors.New("sections do not form a single path")
)

// Storage and request errors
var (
	ErrNotFound       = errors.New("not found")
	ErrStationInUse   = errors.New("station is used by a line")
	ErrInvalidRequest = errors.New("invalid request")
)

// IsSectionError reports whether err is a rejection of a section request.
// ErrInvalidChain is excluded: it means stored or constructed data is broken,
// not that the request was wrong.
func IsSectionError(err error) bool {
	for _, target := range []error{
		ErrInvalidSection,
		ErrDuplicateSection,
		ErrDisconnectedSection,
		ErrInvalidDistance,
		ErrOnlySection,
		ErrStationNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
