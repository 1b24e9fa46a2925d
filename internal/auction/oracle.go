package auction

// BasePrice is the Assignment Oracle (spec §4.1): the time-interpolated
// price floor of a reverse Dutch auction. It is a pure function of the
// record and the current block height and is never stored.
//
// now >= TerminalBlock clamps the floor at Bounty. Before that it rises
// linearly from zero, with integer division truncating toward zero.
// Callers must not invoke this with TerminalBlock == InitialBlock unless
// now has already reached TerminalBlock; the degenerate case is the
// immediate-assign auction the engine explicitly permits at creation.
func BasePrice(r *Record, now uint64) uint64 {
	if now >= r.TerminalBlock {
		return r.Bounty
	}
	elapsed := now - r.InitialBlock
	span := r.TerminalBlock - r.InitialBlock
	return r.Bounty * elapsed / span
}

// IsAssigned reports whether a top bid at the given price has become
// binding: its price has fallen to or below the current base price.
func IsAssigned(topPrice, basePrice uint64) bool {
	return topPrice <= basePrice
}
