package contracts

// ReplayMeta is the metadata returned by the replay endpoint
type ReplayMeta struct {
	ID            string  `json:"id"`
	SessionID     string  `json:"session_id"`
	FramesCount   *int    `json:"frames_count,omitempty"`
	DurationMS    *int64  `json:"duration_ms,omitempty"`
	Compression   *string `json:"compression,omitempty"`
	SchemaVersion string  `json:"schema_version,omitempty"`
	GeneratedBy   string  `json:"generated_by,omitempty"`
	Checksum      string  `json:"checksum,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
	URL           string  `json:"url"`
	ExpiresIn     *int    `json:"expires_in,omitempty"`
}

// DurationSeconds returns the rounded replay length, or -1 if unknown
func (m ReplayMeta) DurationSeconds() int64 {
	if m.DurationMS == nil {
		return -1
	}
	return (*m.DurationMS + 500) / 1000
}

// ReplaySummary is what the host reports about downloaded replay content
type ReplaySummary struct {
	Version     string `json:"version,omitempty"`
	ModelID     string `json:"model_id,omitempty"`
	Frames      int    `json:"frames"`
	EnemyEvents int    `json:"enemy_events"`
	Events      int    `json:"events"`
	Bytes       int    `json:"bytes"`
}
