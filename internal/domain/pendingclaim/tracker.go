// Package pendingclaim remembers, per account, the destination picked for a
// reward claim while the bot waits for the matching credential.
package pendingclaim

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type Result int

const (
	NoPendingClaim Result = iota
	NotAMatch
	Consumed
)

func (r Result) String() string {
	switch r {
	case NoPendingClaim:
		return "no pending claim"
	case NotAMatch:
		return "not a match"
	case Consumed:
		return "consumed"
	}

	return "unknown"
}

type Claim struct {
	Destination string
	PromptRef   int
	CreatedAt   time.Time
}

type Capture struct {
	Destination string
	Credential  string
}

type Tracker struct {
	claims *xsync.MapOf[int64, Claim]
	now    func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		claims: xsync.NewMapOf[int64, Claim](),
		now:    time.Now,
	}
}

// StartClaim replaces whatever the account had pending.
func (t *Tracker) StartClaim(accountID int64, destination string, promptRef int) {
	t.claims.Store(accountID, Claim{
		Destination: destination,
		PromptRef:   promptRef,
		CreatedAt:   t.now(),
	})
}

// TryConsume takes the pending claim of the account if incomingRef answers
// its prompt. Reading and removing happen in one step, so of two concurrent
// callers with the right reference only one gets Consumed.
func (t *Tracker) TryConsume(accountID int64, incomingRef int, credential string) (Capture, Result) {
	result := NoPendingClaim
	var capture Capture

	t.claims.Compute(accountID, func(old Claim, loaded bool) (Claim, bool) {
		if !loaded {
			return old, true
		}

		if old.PromptRef != incomingRef {
			result = NotAMatch
			return old, false
		}

		result = Consumed
		capture = Capture{Destination: old.Destination, Credential: credential}
		return old, true
	})

	return capture, result
}

func (t *Tracker) Get(accountID int64) (Claim, bool) {
	return t.claims.Load(accountID)
}

func (t *Tracker) Cancel(accountID int64) {
	t.claims.Delete(accountID)
}

func (t *Tracker) Len() int {
	return t.claims.Size()
}

// PruneOlderThan drops claims created before cutoff and returns how many were
// dropped. A claim restarted meanwhile is kept.
func (t *Tracker) PruneOlderThan(cutoff time.Time) int {
	stale := map[int64]time.Time{}
	t.claims.Range(func(k int64, c Claim) bool {
		if c.CreatedAt.Before(cutoff) {
			stale[k] = c.CreatedAt
		}
		return true
	})

	pruned := 0
	for k, createdAt := range stale {
		t.claims.Compute(k, func(old Claim, loaded bool) (Claim, bool) {
			if !loaded {
				return old, true
			}

			if !old.CreatedAt.Equal(createdAt) {
				return old, false
			}

			pruned++
			return old, true
		})
	}

	return pruned
}
