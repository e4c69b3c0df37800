package permission

// RootBit is the reserved superuser bit.
const RootBit = MaxBits - 1

// Mask64 is a 64 bit permission set.
type Mask64 uint64

// Has reports whether bit is set or the root bit is set.
func (m Mask64) Has(bit int) bool {
	if bit < 0 || bit >= MaxBits {
		return false
	}
	if m&(1<<RootBit) != 0 {
		return true
	}
	return m&(1<<bit) != 0
}

func (m *Mask64) Set(bit int) {
	if bit < 0 || bit >= MaxBits {
		return
	}
	*m |= 1 << bit
}

func (m *Mask64) Clear(bit int) {
	if bit < 0 || bit >= MaxBits {
		return
	}
	*m &^= 1 << bit
}

// IsRoot reports whether the root bit is set.
func (m Mask64) IsRoot() bool {
	return m&(1<<RootBit) != 0
}

func (m Mask64) Raw() uint64 {
	return uint64(m)
}
