package utils

// Returns an array of pairs (Key, Value) from a given map Key -> Value
func ZipMap[Key comparable, Value comparable](input map[Key]Value) []Pair[Key, Value] {
	pairs := make([]Pair[Key, Value], 0, len(input))

	for key, value := range input {
		pairs = append(pairs, MakePair(key, value))
	}

	return pairs
}
