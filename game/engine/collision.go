package engine

// Resolve classifies the conflict between the player moving prevPlayer -> nextPlayer and
// the hostiles moving prev -> next within the same turn.
//
// Direct hits are searched across every hostile before any crossing is considered, so a
// landing collision is never reported as a pass-through. Within each pass the lowest
// index wins.
func Resolve(prevPlayer, nextPlayer Coord, prev, next []HostileState) HitResult {
	for i, h := range next {
		if h.Position() == nextPlayer {
			return HitResult{Kind: HitDirect, Index: i}
		}
	}

	for i, h := range next {
		if i >= len(prev) {
			break
		}
		if prev[i].Position() == nextPlayer && h.Position() == prevPlayer {
			return HitResult{Kind: HitCrossed, Index: i}
		}
	}

	return HitResult{Kind: HitNone, Index: -1}
}
