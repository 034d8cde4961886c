package tree

// intersectByKey returns the elements of a whose key also appears in b with
// a value eq accepts, keeping the order of a.
func intersectByKey[E any, K comparable](a, b []E, key func(E) K, eq func(x, y E) bool) []E {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	index := make(map[K]E, len(b))
	for _, e := range b {
		index[key(e)] = e
	}

	var out []E
	for _, e := range a {
		if other, ok := index[key(e)]; ok && eq(e, other) {
			out = append(out, e)
		}
	}
	return out
}
