package engine

import (
	"cmp"
	"slices"
)

// Standings returns players sorted by score descending, ties broken by
// join order (stable).
func Standings(s State) []Player {
	out := slices.Clone(s.Players)
	slices.SortStableFunc(out, func(a, b Player) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}

// CurrentQuestion returns the in-flight question, or false outside of an
// active round.
func CurrentQuestion(s State) (Question, bool) {
	if s.Status != StatusInProgress || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

func playerIndex(s State, id string) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == id })
}

func countAnswered(players []Player) int {
	n := 0
	for _, p := range players {
		if p.Answered {
			n++
		}
	}
	return n
}

func clearAnswered(players []Player) []Player {
	out := slices.Clone(players)
	for i := range out {
		out[i].Answered = false
	}
	return out
}
