package recognition

// pushFront returns history with entry prepended, truncated to size.
func pushFront(history []string, entry string, size int) []string {
	out := make([]string, 0, min(len(history)+1, size))
	out = append(out, entry)
	for _, h := range history {
		if len(out) == size {
			break
		}
		out = append(out, h)
	}
	return out
}

// removeFirst removes the first entry equal to target, keeping the order of
// the rest. Reports whether an entry was removed.
func removeFirst(history []string, target string) ([]string, bool) {
	for i, h := range history {
		if h == target {
			out := make([]string, 0, len(history)-1)
			out = append(out, history[:i]...)
			out = append(out, history[i+1:]...)
			return out, true
		}
	}
	return history, false
}
