package addressing

import "github.com/nerrad567/gray-logic-firealarm/internal/circuit"

// Space models the occupancy of one circuit's address space [1, Max].
//
// Each address holds a count rather than a flag so that overlapping
// assignments (a flagged conflict state) can be represented and released
// independently.
type Space struct {
	max  int
	used []int
}

// NewSpace creates an empty address space of the given size.
func NewSpace(max int) *Space {
	if max < 0 {
		max = 0
	}
	return &Space{max: max, used: make([]int, max+1)}
}

// Max returns the highest address in the space.
func (s *Space) Max() int {
	return s.max
}

// InRange reports whether a block of slots starting at addr fits in [1, Max].
func (s *Space) InRange(addr, slots int) bool {
	return circuit.BlockFits(addr, slots, s.max)
}

// Occupy marks a block as used. Addresses outside the space are ignored.
func (s *Space) Occupy(addr, slots int) {
	for i := addr; i < addr+slots; i++ {
		if i >= 1 && i <= s.max {
			s.used[i]++
		}
	}
}

// Release undoes a previous Occupy of the same block.
func (s *Space) Release(addr, slots int) {
	for i := addr; i < addr+slots; i++ {
		if i >= 1 && i <= s.max && s.used[i] > 0 {
			s.used[i]--
		}
	}
}

// IsFree reports whether the whole block is in range and unoccupied.
func (s *Space) IsFree(addr, slots int) bool {
	if !s.InRange(addr, slots) {
		return false
	}
	for i := addr; i < addr+slots; i++ {
		if s.used[i] > 0 {
			return false
		}
	}
	return true
}

// FirstFit returns the lowest address at or above from where a block of slots
// contiguous free addresses starts.
func (s *Space) FirstFit(from, slots int) (int, bool) {
	if from < 1 {
		from = 1
	}
	if slots < 1 {
		slots = 1
	}
	run := 0
	for addr := from; addr <= s.max; addr++ {
		if s.used[addr] > 0 {
			run = 0
			continue
		}
		run++
		if run == slots {
			return addr - slots + 1, true
		}
	}
	return 0, false
}

// FreeCount returns the number of unoccupied addresses.
func (s *Space) FreeCount() int {
	n := 0
	for addr := 1; addr <= s.max; addr++ {
		if s.used[addr] == 0 {
			n++
		}
	}
	return n
}
