package routing

import "slices"

// Travel walks the predecessor map back from end and returns the keys from
// start to end. It returns nil when end was never reached, when the chain
// does not lead back to start, or when the chain loops.
func Travel[K comparable](previous map[K]K, start, end K) []K {
	if start == end {
		return []K{start}
	}
	if _, ok := previous[end]; !ok {
		return nil
	}

	path := []K{end}
	current := end
	for {
		pred, ok := previous[current]
		if !ok {
			break
		}
		path = append(path, pred)
		if len(path) > len(previous)+1 {
			return nil
		}
		current = pred
	}

	slices.Reverse(path)
	if path[0] != start {
		return nil
	}
	return path
}
