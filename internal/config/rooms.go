package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// ParseRooms reads a room list of the form "id:name:capacity,...", used
// to seed the in-memory store.  Seeded rooms accept bookings.
func ParseRooms(s string) ([]model.Room, error) {
	var rooms []model.Room
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("room %q: expected id:name:capacity", item)
		}
		id, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("room %q: invalid id", item)
		}
		capacity, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("room %q: invalid capacity", item)
		}
		name := strings.TrimSpace(parts[1])
		if name == "" {
			return nil, fmt.Errorf("room %q: empty name", item)
		}
		rooms = append(rooms, model.Room{ID: id, Name: name, Capacity: uint32(capacity), Available: true})
	}
	return rooms, nil
}
