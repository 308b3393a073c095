package jobs

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dias221467/social-network/internal/models"
	"github.com/Dias221467/social-network/internal/repository"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GraphStore is the part of the account store the reconciler needs.
// ReplaceRelationships must only write when the stored lists still equal
// the expected ones.
type GraphStore interface {
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	ReplaceRelationships(ctx context.Context, id primitive.ObjectID, expected, next repository.RelationshipLists) (bool, error)
}

// ReconcileReport summarises one reconciliation pass. Skipped counts accounts
// whose lists changed between the scan and the write; the next pass sees them again.
type ReconcileReport struct {
	Scanned  int
	Repaired int
	Skipped  int
	Failed   int
}

// GraphReconciler repairs relationship lists left half-written by a failed
// or interleaved two-document update. Running it twice changes nothing the
// second time. It never overwrites a document that changed after the scan.
type GraphReconciler struct {
	store GraphStore
}

// NewGraphReconciler creates a new instance of GraphReconciler
func NewGraphReconciler(store GraphStore) *GraphReconciler {
	return &GraphReconciler{store: store}
}

type pairKey [2]primitive.ObjectID

func unordered(a, b primitive.ObjectID) pairKey {
	if b.Hex() < a.Hex() {
		a, b = b, a
	}
	return pairKey{a, b}
}

type idSet map[primitive.ObjectID]struct{}

func (s idSet) add(id primitive.ObjectID) { s[id] = struct{}{} }

func (s idSet) has(id primitive.ObjectID) bool {
	_, ok := s[id]
	return ok
}

// Run scans every account and rewrites the lists that disagree with the
// repaired graph. A friendship listed on either side is kept on both; a
// pending request listed on either side is kept on both unless the pair is
// already friends. Requests pending in both directions become a friendship.
// Self edges, duplicates and references to missing accounts are dropped, and
// friends_count is set to the list length.
func (r *GraphReconciler) Run(ctx context.Context) (ReconcileReport, error) {
	users, err := r.store.GetAllUsers(ctx)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("failed to fetch users: %v", err)
	}
	report := ReconcileReport{Scanned: len(users)}

	exists := idSet{}
	for _, u := range users {
		exists.add(u.ID)
	}
	valid := func(self, other primitive.ObjectID) bool {
		return self != other && exists.has(other)
	}

	friendships := map[pairKey]struct{}{}
	requests := map[pairKey]struct{}{} // sender, receiver
	for _, u := range users {
		for _, f := range u.Friends {
			if valid(u.ID, f) {
				friendships[unordered(u.ID, f)] = struct{}{}
			}
		}
		for _, to := range u.FriendRequestsSent {
			if valid(u.ID, to) {
				requests[pairKey{u.ID, to}] = struct{}{}
			}
		}
		for _, from := range u.FriendRequestsReceived {
			if valid(u.ID, from) {
				requests[pairKey{from, u.ID}] = struct{}{}
			}
		}
	}
	for req := range requests {
		if _, reverse := requests[pairKey{req[1], req[0]}]; reverse {
			friendships[unordered(req[0], req[1])] = struct{}{}
		}
	}

	wantFriends := map[primitive.ObjectID]idSet{}
	wantSent := map[primitive.ObjectID]idSet{}
	wantReceived := map[primitive.ObjectID]idSet{}
	for _, u := range users {
		wantFriends[u.ID] = idSet{}
		wantSent[u.ID] = idSet{}
		wantReceived[u.ID] = idSet{}
	}
	for p := range friendships {
		wantFriends[p[0]].add(p[1])
		wantFriends[p[1]].add(p[0])
	}
	for req := range requests {
		if _, friends := friendships[unordered(req[0], req[1])]; friends {
			continue
		}
		wantSent[req[0]].add(req[1])
		wantReceived[req[1]].add(req[0])
	}

	for _, u := range users {
		friends := repairList(u.Friends, wantFriends[u.ID])
		sent := repairList(u.FriendRequestsSent, wantSent[u.ID])
		received := repairList(u.FriendRequestsReceived, wantReceived[u.ID])

		if sameIDs(friends, u.Friends) && sameIDs(sent, u.FriendRequestsSent) &&
			sameIDs(received, u.FriendRequestsReceived) && u.FriendsCount == len(friends) {
			continue
		}

		ok, err := r.store.ReplaceRelationships(ctx, u.ID,
			repository.RelationshipLists{Friends: u.Friends, Sent: u.FriendRequestsSent, Received: u.FriendRequestsReceived},
			repository.RelationshipLists{Friends: friends, Sent: sent, Received: received},
		)
		if err != nil {
			report.Failed++
			logrus.WithError(err).WithField("userID", u.ID.Hex()).Error("Failed to repair relationship lists")
			continue
		}
		if !ok {
			report.Skipped++
			logrus.WithField("userID", u.ID.Hex()).Info("Relationship lists changed since scan, skipped")
			continue
		}
		report.Repaired++
		logrus.WithFields(logrus.Fields{
			"userID":        u.ID.Hex(),
			"friends_count": len(friends),
		}).Info("Repaired relationship lists")
	}

	logrus.WithFields(logrus.Fields{
		"scanned":  report.Scanned,
		"repaired": report.Repaired,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
	}).Info("Relationship graph reconciliation completed")
	return report, nil
}

// repairList keeps the entries of current that are wanted, in their original
// order and without duplicates, then appends the missing wanted ids sorted.
func repairList(current []primitive.ObjectID, want idSet) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(want))
	seen := idSet{}
	for _, id := range current {
		if want.has(id) && !seen.has(id) {
			out = append(out, id)
			seen.add(id)
		}
	}
	var missing []primitive.ObjectID
	for id := range want {
		if !seen.has(id) {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].Hex() < missing[j].Hex() })
	return append(out, missing...)
}

func sameIDs(a, b []primitive.ObjectID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
