package teams

import (
	"strconv"

	"github.com/Con7105/fantasy-valo/internal/kv"
)

const (
	selectedEventIDKey   = "selectedEventId"
	selectedEventNameKey = "selectedEventName"
	myParticipantPrefix  = "draft_my_participant_"
)

// Preferences holds the small per-device choices: the selected event and
// which participant this device drafts for in each room.
type Preferences struct {
	store kv.Store
}

func NewPreferences(store kv.Store) *Preferences {
	return &Preferences{store: store}
}

func (p *Preferences) SelectedEvent() (id, name string, err error) {
	if id, err = p.store.Get(selectedEventIDKey); err != nil {
		return "", "", err
	}
	if name, err = p.store.Get(selectedEventNameKey); err != nil {
		return "", "", err
	}
	return id, name, nil
}

func (p *Preferences) SelectEvent(id, name string) error {
	if err := p.store.Set(selectedEventIDKey, id); err != nil {
		return err
	}
	return p.store.Set(selectedEventNameKey, name)
}

// MyParticipant returns the participant index claimed on this device for a
// room, or -1 when none is set or the value is unreadable.
func (p *Preferences) MyParticipant(roomID string) (int, error) {
	raw, err := p.store.Get(myParticipantPrefix + roomID)
	if err != nil {
		return -1, err
	}
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return -1, nil
	}
	return i, nil
}

// SetMyParticipant stores the index; a negative index clears it.
func (p *Preferences) SetMyParticipant(roomID string, index int) error {
	if index < 0 {
		return p.store.Remove(myParticipantPrefix + roomID)
	}
	return p.store.Set(myParticipantPrefix+roomID, strconv.Itoa(index))
}
