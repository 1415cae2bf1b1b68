package arena

import (
	"go.uber.org/zap"

	"github.com/kapu/chess-arena/internal/obslog"
)

// challengeState is the per-session mutual-exclusion gate over the Black
// seat. At most one challenge is presented to the incumbent at a time; the
// rest wait in arrival order. Presenting the next queued challenger happens
// in the same critical section as the release that frees the slot, never as
// a separate retry.
type challengeState struct {
	locked  bool
	pending *queuedChallenge
	queue   []queuedChallenge
}

type queuedChallenge struct {
	ConnID string
	Name   string
}

// Challenge asks the incumbent for the Black seat. If a challenge is already
// pending the caller queues silently; it is presented later in FIFO order or
// rejected when the seat fills.
func (s *Session) Challenge(connID, name string) []Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.white == nil {
		return []Effect{toConn(connID, EvtActionRejected, ActionRejectedPayload{
			Code:    CodeSeatUnavailable,
			Message: "no incumbent to challenge",
		})}
	}
	if s.white.ConnID == connID {
		return []Effect{toConn(connID, EvtActionRejected, ActionRejectedPayload{
			Code:    CodeNotAuthorized,
			Message: "the incumbent cannot challenge itself",
		})}
	}
	if s.black != nil {
		// Seat already filled: terminal rejection right away.
		return []Effect{toConn(connID, EvtChallengeRejected, struct{}{})}
	}
	// One outstanding entry per connection; the existing one will resolve.
	if s.challenge.holds(connID) {
		return nil
	}

	if !s.challenge.locked {
		s.challenge.locked = true
		s.challenge.pending = &queuedChallenge{ConnID: connID, Name: name}
		obslog.L().Info("challenge_presented", zap.String("room_id", s.id), zap.String("challenger", connID))
		return []Effect{toConn(s.white.ConnID, EvtChallengePresented, ChallengePresentedPayload{
			ChallengerConnectionID: connID,
			ChallengerName:         name,
		})}
	}

	s.challenge.queue = append(s.challenge.queue, queuedChallenge{ConnID: connID, Name: name})
	obslog.L().Info("challenge_queued",
		zap.String("room_id", s.id),
		zap.String("challenger", connID),
		zap.Int("queue_len", len(s.challenge.queue)),
	)
	return nil
}

// Accept seats the presented challenger as Black and releases the gate in
// accepted mode: every queued challenger is drained with a rejection, since
// there is nothing left to offer.
func (s *Session) Accept(byConnID, challengerID string) []Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	if eff := s.requireDecision(byConnID, challengerID); eff != nil {
		return eff
	}
	if s.black != nil {
		return []Effect{toConn(byConnID, EvtActionRejected, ActionRejectedPayload{
			Code:    CodeSeatUnavailable,
			Message: "black seat already occupied",
		})}
	}

	ch := *s.challenge.pending
	s.black = &Participant{ConnID: ch.ConnID, Name: ch.Name}
	s.blackName = ch.Name
	// A spectator taking the seat stops being a spectator.
	s.removeSpectatorLocked(ch.ConnID)

	effects := []Effect{
		toConn(ch.ConnID, EvtChallengeAccepted, struct{}{}),
		toConn(ch.ConnID, EvtRoleAssigned, RoleAssignedPayload{Role: RoleBlack}),
	}
	effects = s.appendNotice(effects, "join.black", map[string]any{"Name": ch.Name})
	effects = append(effects, toRoom(EvtNamesUpdated, s.namesPayload()))

	for _, q := range s.challenge.queue {
		effects = append(effects, toConn(q.ConnID, EvtChallengeRejected, struct{}{}))
	}
	s.challenge = challengeState{}

	obslog.L().Info("challenge_accepted", zap.String("room_id", s.id), zap.String("challenger", ch.ConnID))
	return effects
}

// Reject notifies the presented challenger and releases the gate in open
// mode: the next queued challenger, if any, is promoted and presented to the
// incumbent as one atomic step.
func (s *Session) Reject(byConnID, challengerID string) []Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	if eff := s.requireDecision(byConnID, challengerID); eff != nil {
		return eff
	}

	rejected := s.challenge.pending.ConnID
	effects := []Effect{toConn(rejected, EvtChallengeRejected, struct{}{})}
	effects = append(effects, s.promoteNextLocked()...)

	obslog.L().Info("challenge_rejected", zap.String("room_id", s.id), zap.String("challenger", rejected))
	return effects
}

// requireDecision validates that byConnID is the incumbent deciding on the
// currently presented challenger. Non-nil return is the targeted rejection.
func (s *Session) requireDecision(byConnID, challengerID string) []Effect {
	if s.white == nil || s.white.ConnID != byConnID {
		return []Effect{toConn(byConnID, EvtActionRejected, ActionRejectedPayload{
			Code:    CodeNotAuthorized,
			Message: "only the incumbent decides challenges",
		})}
	}
	if s.challenge.pending == nil {
		return []Effect{toConn(byConnID, EvtActionRejected, ActionRejectedPayload{
			Code:    CodeSeatUnavailable,
			Message: "no challenge pending",
		})}
	}
	if s.challenge.pending.ConnID != challengerID {
		// A stale decision racing a promotion must not resolve the wrong
		// challenger.
		return []Effect{toConn(byConnID, EvtActionRejected, ActionRejectedPayload{
			Code:    CodeSeatUnavailable,
			Message: "challenge no longer pending",
		})}
	}
	return nil
}

// promoteNextLocked clears the pending slot and presents the next queued
// challenger, keeping the gate locked, or unlocks when the queue is empty.
// Caller holds s.mu.
func (s *Session) promoteNextLocked() []Effect {
	if len(s.challenge.queue) == 0 {
		s.challenge = challengeState{}
		return nil
	}
	next := s.challenge.queue[0]
	s.challenge.queue = s.challenge.queue[1:]
	s.challenge.pending = &next
	s.challenge.locked = true
	return []Effect{toConn(s.white.ConnID, EvtChallengePresented, ChallengePresentedPayload{
		ChallengerConnectionID: next.ConnID,
		ChallengerName:         next.Name,
	})}
}

// dropChallengerLocked removes a departing connection from the challenge
// state: a queued entry vanishes, a pending entry resolves as rejected and
// the next challenger is promoted in the same step. Caller holds s.mu.
func (s *Session) dropChallengerLocked(connID string) []Effect {
	if s.challenge.pending != nil && s.challenge.pending.ConnID == connID {
		return s.promoteNextLocked()
	}
	for i, q := range s.challenge.queue {
		if q.ConnID == connID {
			s.challenge.queue = append(s.challenge.queue[:i], s.challenge.queue[i+1:]...)
			break
		}
	}
	return nil
}

// failAllChallengesLocked rejects the pending and every queued challenger.
// Used when the incumbent vacates the White seat. Caller holds s.mu.
func (s *Session) failAllChallengesLocked() []Effect {
	var effects []Effect
	if s.challenge.pending != nil {
		effects = append(effects, toConn(s.challenge.pending.ConnID, EvtChallengeRejected, struct{}{}))
	}
	for _, q := range s.challenge.queue {
		effects = append(effects, toConn(q.ConnID, EvtChallengeRejected, struct{}{}))
	}
	s.challenge = challengeState{}
	return effects
}

func (c *challengeState) holds(connID string) bool {
	if c.pending != nil && c.pending.ConnID == connID {
		return true
	}
	for _, q := range c.queue {
		if q.ConnID == connID {
			return true
		}
	}
	return false
}
