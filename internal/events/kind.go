// Package events decodes debate stream frames into typed events.
package events

// Kind is the closed set of event types the client understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindDebateStart
	KindOrganizerRules
	KindModeratorIntroduction
	KindRoundStart
	KindUserArgument
	KindModeratorSummary
	KindModeratorEvaluation
	KindModeratorAnnouncement
	KindAIArgument
	KindRoundScoresUpdate
	KindCumulativeScoresUpdate
	KindScoresUpdate
	KindJudgingStart
	KindJudgeFeedback
	KindWinnerAnnouncement
	KindStreamComplete
	KindDebateComplete
	KindDebatePaused
	KindError
	KindRoundComplete
	KindFinalScores

	// KindCount sizes tables indexed by Kind.
	KindCount
)

var kindNames = [KindCount]string{
	KindUnknown:                "unknown",
	KindDebateStart:            "debate_start",
	KindOrganizerRules:         "organizer_rules",
	KindModeratorIntroduction:  "moderator_introduction",
	KindRoundStart:             "round_start",
	KindUserArgument:           "user_argument",
	KindModeratorSummary:       "moderator_summary",
	KindModeratorEvaluation:    "moderator_evaluation",
	KindModeratorAnnouncement:  "moderator_announcement",
	KindAIArgument:             "ai_argument",
	KindRoundScoresUpdate:      "round_scores_update",
	KindCumulativeScoresUpdate: "cumulative_scores_update",
	KindScoresUpdate:           "scores_update",
	KindJudgingStart:           "judging_start",
	KindJudgeFeedback:          "judge_feedback",
	KindWinnerAnnouncement:     "winner_announcement",
	KindStreamComplete:         "stream_complete",
	KindDebateComplete:         "debate_complete",
	KindDebatePaused:           "debate_paused",
	KindError:                  "error",
	KindRoundComplete:          "round_complete",
	KindFinalScores:            "final_scores",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		if Kind(k) == KindUnknown {
			continue
		}
		m[name] = Kind(k)
	}
	return m
}()

// ParseKind maps a wire event name to its Kind, or KindUnknown.
func ParseKind(name string) Kind {
	if k, ok := kindByName[name]; ok {
		return k
	}
	return KindUnknown
}

func (k Kind) String() string {
	if k < 0 || k >= KindCount {
		return "unknown"
	}
	return kindNames[k]
}

// Kinds lists every recognized kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, KindCount-1)
	for k := KindUnknown + 1; k < KindCount; k++ {
		out = append(out, k)
	}
	return out
}
