package tensor

// MinMax returns the literal minimum and maximum elements of t.
// An empty tensor yields (0, 0).
func MinMax[T Float](t Tensor[T]) (T, T) {
	if len(t.data) == 0 {
		return 0, 0
	}
	lo, hi := t.data[0], t.data[0]
	for _, v := range t.data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// MinPos returns the smallest strictly-positive element of t,
// or zero if no element is positive.
func MinPos[T Float](t Tensor[T]) T {
	var mi T
	for _, v := range t.data {
		if v > 0 && (mi == 0 || v < mi) {
			mi = v
		}
	}
	return mi
}
