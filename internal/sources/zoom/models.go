package zoom

import "encoding/json"

// meeting is one entry of the /metrics/meetings dashboard listing.
// Meeting IDs are numeric on the wire.
type meeting struct {
	ID        json.Number `json:"id"`
	Topic     string      `json:"topic"`
	StartTime string      `json:"start_time"`
}

// meetingInfo is the /past_meetings/{id} detail record.
type meetingInfo struct {
	Type      int    `json:"type"`
	Duration  int    `json:"duration"`
	CreatedAt string `json:"created_at"`
}

type participant struct {
	Name  string `json:"name"`
	Email string `json:"user_email"`
}
