package engine

// Policy selects how a scored answer converts to points. Chosen at room
// creation and fixed for the room's lifetime.
type Policy string

const (
	// PolicyFlat awards a fixed 10 points for a correct answer.
	PolicyFlat Policy = "flat"
	// PolicySpeed awards the remaining seconds on the question clock,
	// so faster correct answers score more.
	PolicySpeed Policy = "speed"
)

const flatPoints = 10

func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "", string(PolicyFlat):
		return PolicyFlat, true
	case string(PolicySpeed):
		return PolicySpeed, true
	default:
		return "", false
	}
}

// Score is pure: no clock reads, no state. Incorrect answers score zero
// under every policy. timeRemaining is clamped to [0, maxSeconds] for the
// speed policy so a misreporting client cannot outscore the clock.
func Score(p Policy, correct bool, timeRemaining, maxSeconds int) int {
	if !correct {
		return 0
	}
	switch p {
	case PolicySpeed:
		if timeRemaining < 0 {
			return 0
		}
		if maxSeconds > 0 && timeRemaining > maxSeconds {
			return maxSeconds
		}
		return timeRemaining
	default:
		return flatPoints
	}
}
