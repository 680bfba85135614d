// Package draft implements snake-draft turn order and pick validation.
// It owns no storage; callers persist the picks it plans.
package draft

import (
	"math/rand/v2"

	"github.com/Con7105/fantasy-valo/internal/models"
)

// TotalPicks is the number of picks that completes a draft.
func TotalPicks(participants, slots int) int {
	if participants <= 0 || slots <= 0 {
		return 0
	}
	return participants * slots
}

// OrderForRound returns snakeOrder for odd rounds and its reverse for even
// rounds. The result is a fresh slice.
func OrderForRound(snakeOrder []int, round int) []int {
	out := make([]int, len(snakeOrder))
	if round%2 == 1 {
		copy(out, snakeOrder)
		return out
	}
	for i, p := range snakeOrder {
		out[len(snakeOrder)-1-i] = p
	}
	return out
}

// RoundAndIndex maps a 0-based global pick index to a 1-based round and the
// 0-based position within that round.
func RoundAndIndex(globalPick, participants int) (round, pickInRound int) {
	if participants <= 0 {
		return 1, 0
	}
	return globalPick/participants + 1, globalPick % participants
}

// ParticipantAt is the participant index that owns the given global pick.
func ParticipantAt(snakeOrder []int, globalPick int) int {
	round, idx := RoundAndIndex(globalPick, len(snakeOrder))
	return OrderForRound(snakeOrder, round)[idx]
}

// Sequence lists the participant for every pick of a draft, in order.
func Sequence(snakeOrder []int, slots int) []int {
	total := TotalPicks(len(snakeOrder), slots)
	seq := make([]int, total)
	for i := range seq {
		seq[i] = ParticipantAt(snakeOrder, i)
	}
	return seq
}

// CurrentTurn reports whose turn it is. ok is false once the room is not
// drafting or every pick has been made.
func CurrentTurn(room models.DraftRoom) (participant int, ok bool) {
	n := len(room.Participants)
	if room.Status != models.DraftDrafting || len(room.SnakeOrder) != n {
		return 0, false
	}
	if room.CurrentPickIndex >= TotalPicks(n, room.SlotCount) {
		return 0, false
	}
	return ParticipantAt(room.SnakeOrder, room.CurrentPickIndex), true
}

// RandomSnakeOrder returns a uniformly shuffled permutation of 0..n-1.
func RandomSnakeOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rand.Shuffle(n, func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}
