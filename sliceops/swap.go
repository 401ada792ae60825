package sliceops

// Reversed returns a reversed copy of in. Useful for flipping byte strings
// between wire (little-endian) and display (big-endian) order.
func Reversed(in []byte) []byte {
	a := make([]byte, len(in))
	copy(a, in)
	Reverse(a)
	return a
}

// Reverse reverses a in place.
func Reverse(a []byte) {
	for i := len(a)/2 - 1; i >= 0; i-- {
		opp := len(a) - 1 - i
		a[i], a[opp] = a[opp], a[i]
	}
}
