package exitboot

import "exitboot/efi"

// attempts bounds a firmware retry loop and remembers why the last cycle
// failed. Losing a race against firmware bookkeeping is expected a handful
// of times; losing it past the bound means the machine is not settling and
// the hand-off must stop instead of spinning.
type attempts struct {
	n    int
	max  int
	last efi.Status
}

// next advances to the following cycle and reports whether it is still
// within the bound. Call it before each cycle, for-loop style.
func (a *attempts) next() bool {
	a.n++
	return a.n <= a.max
}

func (a *attempts) fail(status efi.Status) {
	a.last = status
}
