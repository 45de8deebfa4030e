package jsontree

// Find walks root depth-first in document order and returns every object for
// which match reports true. A matched object is not descended into; anything
// else is searched through all of its members and items, with no depth limit.
func Find(root Value, match func(Value) bool) []Value {
	var found []Value
	stack := []Value{root}
	for len(stack) > 0 {
		n := len(stack) - 1
		v := stack[n]
		stack = stack[:n]
		switch v.Kind {
		case Object:
			if match(v) {
				found = append(found, v)
				continue
			}
			for i := len(v.Members) - 1; i >= 0; i-- {
				stack = append(stack, v.Members[i].Value)
			}
		case Array:
			for i := len(v.Items) - 1; i >= 0; i-- {
				stack = append(stack, v.Items[i])
			}
		}
	}
	return found
}
