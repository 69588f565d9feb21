package dialogue

import "strings"

// contextWindow bounds the local context to the three nearest turns on each
// side. Wider windows raise oracle prompt cost without measurably better
// attribution.
const contextWindow = 3

var (
	shiftMarkers  = []string{"but", "however", "actually"}
	returnPhrases = []string{"going back to", "returning to", "as i said", "as i mentioned", "back to what"}
)

// BuildContexts computes one ConversationalContext per turn from an ordered
// turn list.
func BuildContexts(turns []DialogueTurn) map[string]ConversationalContext {
	contexts := make(map[string]ConversationalContext, len(turns))

	for i, t := range turns {
		ctx := ConversationalContext{
			TurnID:            t.TurnID,
			TopicContinuity:   topicContinuity(i, t),
			TurnTakingPattern: TakingSequential,
		}

		for j := max(0, i-contextWindow); j < i; j++ {
			ctx.PrecedingTurns = append(ctx.PrecedingTurns, turns[j].TurnID)
		}
		for j := i + 1; j <= min(len(turns)-1, i+contextWindow); j++ {
			ctx.FollowingTurns = append(ctx.FollowingTurns, turns[j].TurnID)
		}

		if i > 0 {
			if t.ContainsResponseMarkers {
				ctx.IsResponseTo = turns[i-1].TurnID
			}
			if strings.EqualFold(t.SpeakerName, turns[i-1].SpeakerName) {
				ctx.TurnTakingPattern = TakingContinued
			}
		}

		contexts[t.TurnID] = ctx
	}
	return contexts
}

func topicContinuity(idx int, t DialogueTurn) TopicContinuity {
	if idx == 0 {
		return TopicInitiates
	}
	lower := strings.ToLower(t.Text)
	for _, p := range returnPhrases {
		if strings.Contains(lower, p) {
			return TopicReturns
		}
	}
	for _, m := range shiftMarkers {
		if containsWord(lower, m) {
			return TopicShifts
		}
	}
	return TopicContinues
}
