package model

// Room is the room-catalog view consumed by the reservation core.  The
// catalog is owned by another service; this struct mirrors the columns
// of the shared `rooms` table that the core reads.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the room.
//  Capacity  – maximum number of people (informational only).
//  Location  – optional free-text location.
//  Available – whether the room currently accepts bookings.
type Room struct {
	ID        uint64  `json:"id"`                 // rooms.id
	Name      string  `json:"name"`               // rooms.name
	Capacity  uint32  `json:"capacity"`           // rooms.capacity
	Location  *string `json:"location,omitempty"` // rooms.location (nullable)
	Available bool    `json:"available"`          // rooms.is_available
}
