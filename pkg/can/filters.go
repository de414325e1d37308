package can

// FrameFilter reports whether a frame is accepted.
type FrameFilter func(Frame) bool

// Accept applies the filter, a nil filter accepts everything.
func (ff FrameFilter) Accept(f Frame) bool {
	return ff == nil || ff(f)
}

// ByID matches a single identifier.
func ByID(id uint32) FrameFilter {
	return func(f Frame) bool { return f.ID == id }
}

// ByRange matches identifiers in [lo, hi].
func ByRange(lo, hi uint32) FrameFilter {
	if hi < lo {
		lo, hi = hi, lo
	}
	return func(f Frame) bool { return f.ID >= lo && f.ID <= hi }
}

// ByMask matches when (ID & mask) == (id & mask).
func ByMask(id, mask uint32) FrameFilter {
	want := id & mask
	return func(f Frame) bool { return f.ID&mask == want }
}

// StandardOnly matches 11-bit data or remote frames.
func StandardOnly() FrameFilter {
	return func(f Frame) bool { return !f.Extended && !f.Err }
}

// DataOnly rejects remote requests and error frames.
func DataOnly() FrameFilter {
	return func(f Frame) bool { return !f.RTR && !f.Err }
}

// ErrorsOnly matches error frames.
func ErrorsOnly() FrameFilter {
	return func(f Frame) bool { return f.Err }
}

// And matches when all filters match. nil filters are skipped.
func And(filters ...FrameFilter) FrameFilter {
	return func(f Frame) bool {
		for _, ff := range filters {
			if ff != nil && !ff(f) {
				return false
			}
		}
		return true
	}
}

// Or matches when any filter matches. nil filters are skipped.
func Or(filters ...FrameFilter) FrameFilter {
	return func(f Frame) bool {
		for _, ff := range filters {
			if ff != nil && ff(f) {
				return true
			}
		}
		return false
	}
}

// Not inverts a filter.
func Not(ff FrameFilter) FrameFilter {
	return func(f Frame) bool { return !ff.Accept(f) }
}
