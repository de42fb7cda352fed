// Package board describes the supported boards: pin assignments and the
// analog input wired to the touch electrode. The hardware version is read
// from the first UICR customer word.
package board

// Version identifies a board revision.
type Version int

const (
	VersionUnknown Version = iota
	VersionRev2
	VersionWIMKY001
)

// UICR customer word values.
const (
	uicrRev2     = 0xFFFFFFFF
	uicrWIMKY001 = 0x80000001
)

// Logical pin identifiers. Non-negative values in a pin map are key numbers.
const (
	PinUnused     = -10
	PinShift      = -1
	PinLock       = -2
	PinLEDTower   = -3
	PinLEDMonkey0 = -4
	PinLEDMonkey1 = -5
	PinCapTouch   = -6
)

// AnalogNotConnected is the analog-to-digital pin selector meaning "no pin".
const AnalogNotConnected = 0

// AnalogInput returns the analog-to-digital pin selector for AINn.
func AnalogInput(n uint32) uint32 {
	return n + 1
}

// Spec describes one board.
type Spec struct {
	Name string
	// PinMap maps GPIO number to logical pin identifier.
	PinMap [32]int8
	// LEDDirection has bit n set when LED n is active low.
	LEDDirection uint8
	// CapTouchAnalog is the analog-to-digital pin selector of the touch
	// electrode, or AnalogNotConnected.
	CapTouchAnalog uint32
}

var (
	specUnknown = Spec{
		Name:           "unknown",
		CapTouchAnalog: AnalogNotConnected,
	}
	specRev2 = Spec{
		Name:           "dev rev2",
		PinMap:         [32]int8{5, 6, 7, 8, 9, 10, 11, -4, 20, 17, 15, 13, 12, 14, 16, 18, 19, 21, 23, 22, 24, -10, -10, -10, -10, -3, -1, 0, 1, 2, 3, 4},
		LEDDirection:   0b00000011,
		CapTouchAnalog: AnalogNotConnected,
	}
	specWIMKY001 = Spec{
		Name:           "WIMKY001",
		PinMap:         [32]int8{-4, -5, 5, 4, 6, 8, 7, 10, 9, 11, 17, 15, 13, 12, 20, 14, 16, 18, 19, 22, 21, 23, 24, -2, -10, -3, -1, 1, 0, 3, 2, -10},
		LEDDirection:   0b00000000,
		CapTouchAnalog: AnalogInput(7),
	}
)

// VersionFromUICR decodes the UICR customer word.
func VersionFromUICR(v uint32) Version {
	switch v {
	case uicrWIMKY001:
		return VersionWIMKY001
	case uicrRev2:
		return VersionRev2
	}
	return VersionUnknown
}

// Lookup returns the Spec for a board version. Unknown versions get a Spec
// with no pins.
func Lookup(v Version) *Spec {
	switch v {
	case VersionWIMKY001:
		return &specWIMKY001
	case VersionRev2:
		return &specRev2
	}
	return &specUnknown
}

// ByName returns the Spec with the given name.
func ByName(name string) (*Spec, bool) {
	for _, s := range []*Spec{&specUnknown, &specRev2, &specWIMKY001} {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// ComparatorPin returns the comparator input selector for the touch
// electrode. The comparator numbers analog inputs from zero while the
// analog-to-digital converter reserves zero for "not connected", so the
// comparator selector is one less.
func (s *Spec) ComparatorPin() (uint32, bool) {
	if s.CapTouchAnalog == AnalogNotConnected {
		return 0, false
	}
	return s.CapTouchAnalog - 1, true
}

// PinIndex returns the GPIO number assigned to a logical pin identifier.
func (s *Spec) PinIndex(id int) (uint8, bool) {
	for i, v := range s.PinMap {
		if int(v) == id {
			return uint8(i), true
		}
	}
	return 0, false
}

// ActiveLow reports whether LED n is driven low to light.
func (s *Spec) ActiveLow(n int) bool {
	return s.LEDDirection&(1<<n) != 0
}
