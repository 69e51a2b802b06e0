package debate

import (
	"fmt"
	"strings"

	"aidebate/internal/events"
	"aidebate/internal/session"
	"aidebate/internal/transcript"
	"aidebate/internal/turn"
)

type handler func(s *State, p events.Payload) Effects

var handlers = [events.KindCount]handler{
	events.KindDebateStart:            handleDebateStart,
	events.KindOrganizerRules:         handleOrganizerRules,
	events.KindModeratorIntroduction:  handleModeratorIntroduction,
	events.KindRoundStart:             handleRoundStart,
	events.KindUserArgument:           handleUserArgument,
	events.KindModeratorSummary:       moderatorHandler(transcript.Summary),
	events.KindModeratorEvaluation:    moderatorHandler(transcript.Evaluation),
	events.KindModeratorAnnouncement:  moderatorHandler(transcript.Announcement),
	events.KindAIArgument:             handleAIArgument,
	events.KindRoundScoresUpdate:      handleRoundScores,
	events.KindCumulativeScoresUpdate: handleCumulativeScores,
	events.KindScoresUpdate:           handleScoresUpdate,
	events.KindJudgingStart:           handleJudgingStart,
	events.KindJudgeFeedback:          handleJudgeFeedback,
	events.KindWinnerAnnouncement:     handleWinnerAnnouncement,
	events.KindStreamComplete:         handleStreamComplete,
	events.KindDebateComplete:         handleStreamComplete,
	events.KindDebatePaused:           handleDebatePaused,
	events.KindError:                  handleStreamError,
	events.KindRoundComplete:          handleRoundComplete,
	events.KindFinalScores:            handleFinalScores,
}

func init() {
	for _, k := range events.Kinds() {
		if handlers[k] == nil {
			panic(fmt.Sprintf("debate: no handler for event kind %s", k))
		}
	}
}

// streamed applies the fragment/complete protocol for a turn attributed to
// key and appends msg with the reassembled content when the turn finishes.
func (s *State) streamed(p events.Payload, key string, msg transcript.Message) Effects {
	if !p.Complete {
		s.Turns.Fragment(key, p.Chunk)
		return Effects{}
	}
	content, ok := s.Turns.Complete(key, p.Chunk)
	if !ok {
		return Effects{}
	}
	msg.Content = content
	s.append(msg, p.Timestamp)
	return Effects{}
}

func (s *State) announce(text string, round int, timestamp string, prefix string) {
	s.append(transcript.Message{
		ID:      transcript.NewID(prefix),
		Speaker: transcript.Moderator,
		Content: text,
		Round:   round,
		Type:    transcript.Announcement,
	}, timestamp)
}

func handleDebateStart(s *State, p events.Payload) Effects {
	topic := p.Topic
	if topic == "" {
		topic = s.Session.Config.Topic
	} else if s.Session.Config.Topic == "" {
		s.Session.Config.Topic = topic
	}
	s.announce(fmt.Sprintf(labelsFor(s.Language).debateBegun, topic), 0, p.Timestamp, "debate-start")
	return Effects{}
}

func handleOrganizerRules(s *State, p events.Payload) Effects {
	return s.streamed(p, string(transcript.Organizer), transcript.Message{
		ID:      transcript.NewID("organizer-rules"),
		Speaker: transcript.Organizer,
		Round:   0,
		Type:    transcript.Announcement,
	})
}

func handleModeratorIntroduction(s *State, p events.Payload) Effects {
	return s.streamed(p, string(transcript.Moderator), transcript.Message{
		ID:      transcript.NewID("moderator-intro"),
		Speaker: transcript.Moderator,
		Round:   0,
		Type:    transcript.Announcement,
	})
}

func moderatorHandler(kind transcript.MessageType) handler {
	return func(s *State, p events.Payload) Effects {
		return s.streamed(p, string(transcript.Moderator), transcript.Message{
			ID:      transcript.NewID("moderator"),
			Speaker: transcript.Moderator,
			Round:   s.Session.CurrentRound,
			Type:    kind,
		})
	}
}

func handleRoundStart(s *State, p events.Payload) Effects {
	round := p.RoundOr(s.Session.CurrentRound)
	s.Session.SetRound(round)
	s.announce(fmt.Sprintf(labelsFor(s.Language).roundBegins, round), round, p.Timestamp, "round-start")
	return Effects{}
}

func handleUserArgument(s *State, p events.Payload) Effects {
	if !p.Complete {
		return Effects{}
	}
	content := p.Content
	if content == "" {
		content = p.Chunk
	}
	if strings.TrimSpace(content) == "" {
		return Effects{}
	}
	side := s.userSide()
	id := transcript.NewID("user")
	if p.ArgumentID != "" {
		id = "user-" + p.ArgumentID.String()
	}
	s.append(transcript.Message{
		ID:      id,
		Speaker: side,
		Role:    p.Role,
		Content: content,
		Round:   p.RoundOr(s.Session.CurrentRound),
		Type:    transcript.Argument,
	}, p.Timestamp)
	return Effects{}
}

func handleAIArgument(s *State, p events.Payload) Effects {
	side, ok := transcript.ParseSide(p.Side)
	if !ok {
		side, ok = transcript.ParseSide(p.Speaker)
	}
	if !ok {
		side = s.userSide().Opposite()
	}
	id := transcript.NewID("ai")
	if p.ArgumentID != "" {
		id = "ai-" + p.ArgumentID.String()
	}
	role := p.Role
	if role == "" {
		role = string(side)
	}
	return s.streamed(p, string(side), transcript.Message{
		ID:      id,
		Speaker: side,
		Role:    role,
		Round:   p.RoundOr(s.Session.CurrentRound),
		Type:    transcript.Argument,
	})
}

func handleRoundScores(s *State, p events.Payload) Effects {
	round := p.RoundOr(s.Session.CurrentRound)
	a := events.First(p.AffirmativeScore)
	b := events.First(p.NegativeScore)
	s.announce(fmt.Sprintf(labelsFor(s.Language).roundScores, round, a, b), round, p.Timestamp, fmt.Sprintf("round-score-%d", round))
	s.Scores.RecordRound(round, a, b)
	return Effects{}
}

func handleCumulativeScores(s *State, p events.Payload) Effects {
	s.Scores.Overwrite(events.First(p.AffirmativeTotal), events.First(p.NegativeTotal))
	return Effects{}
}

func handleScoresUpdate(s *State, p events.Payload) Effects {
	aff, neg := s.bySide(p.UserTotal, p.AITotal)
	s.Scores.Overwrite(
		events.First(p.AffirmativeScore, p.AffirmativeTotal, aff),
		events.First(p.NegativeScore, p.NegativeTotal, neg),
	)
	return Effects{}
}

func handleFinalScores(s *State, p events.Payload) Effects {
	aff, neg := s.bySide(p.UserTotal, p.AITotal)
	a := firstPtr(p.AffirmativeScore, p.AffirmativeTotal, aff)
	b := firstPtr(p.NegativeScore, p.NegativeTotal, neg)
	if a != nil || b != nil {
		s.Scores.Overwrite(events.First(a), events.First(b))
	}
	s.Result = mergeResult(s.Result, &Result{Winner: p.Winner, SideA: a, SideB: b})
	return Effects{}
}

func firstPtr(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func handleJudgingStart(s *State, p events.Payload) Effects {
	s.Session.EnterJudging()
	s.announce(labelsFor(s.Language).judgingBegins, s.Session.JudgingRound(), p.Timestamp, "judging-start")
	return Effects{}
}

func handleJudgeFeedback(s *State, p events.Payload) Effects {
	key := string(transcript.Judge)
	if p.JudgeNum != nil {
		key = turn.JudgeKey(*p.JudgeNum)
	}
	return s.streamed(p, key, transcript.Message{
		ID:      transcript.NewID("judge-feedback"),
		Speaker: transcript.Judge,
		Round:   s.Session.JudgingRound(),
		Type:    transcript.Evaluation,
	})
}

func handleWinnerAnnouncement(s *State, p events.Payload) Effects {
	if p.Winner != "" {
		s.Result = mergeResult(s.Result, &Result{Winner: p.Winner})
	}
	return s.streamed(p, string(transcript.Moderator), transcript.Message{
		ID:      transcript.NewID("winner"),
		Speaker: transcript.Moderator,
		Round:   s.Session.JudgingRound(),
		Type:    transcript.Announcement,
	})
}

func handleStreamComplete(s *State, p events.Payload) Effects {
	eff := Effects{CloseStream: true}

	if s.Mode == Interactive {
		if s.Session.Status != session.InProgress {
			return eff
		}
		if s.Session.AdvanceRound() {
			s.InputEnabled = false
			eff.RequestComplete = true
			return eff
		}
		s.InputEnabled = true
		return eff
	}

	if !s.Session.CanComplete() {
		s.logger.Debug("stream complete outside an active debate", "status", s.Session.Status)
		return eff
	}
	if err := s.Finish(session.ActionComplete, nil); err != nil {
		s.logger.Warn("completing debate", "error", err)
		return eff
	}
	eff.Completed = true
	return eff
}

func handleDebatePaused(s *State, p events.Payload) Effects {
	eff := Effects{CloseStream: true}
	if err := s.Pause(); err != nil {
		s.logger.Debug("server pause ignored", "error", err)
		return eff
	}
	s.notify(NoticeInfo, fmt.Sprintf(labelsFor(s.Language).paused, p.RoundOr(s.Session.CurrentRound)))
	eff.Paused = true
	return eff
}

func handleStreamError(s *State, p events.Payload) Effects {
	text := p.ErrorText()
	if text == "" {
		text = labelsFor(s.Language).genericError
	}
	s.notify(NoticeError, text)
	s.InputEnabled = s.Mode == Interactive && s.Session.Status == session.InProgress && !s.Session.RoundsExhausted()
	return Effects{CloseStream: true}
}

func handleRoundComplete(s *State, p events.Payload) Effects {
	s.logger.Debug("round complete", "round", p.RoundOr(s.Session.CurrentRound))
	return Effects{}
}
