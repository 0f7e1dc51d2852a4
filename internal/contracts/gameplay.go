package contracts

// GameResultPayload is the full result of one completed run, written by the game runtime
// ⭐ SSOT: 게임 결과 페이로드 형식은 여기서만 정의
type GameResultPayload struct {
	Score       float64        `json:"score"`
	FinalStage  int            `json:"final_stage"`
	Statistics  GameStatistics `json:"statistics"`
	Frames      []FrameSample  `json:"frames"`
	EnemyEvents []EnemyEvent   `json:"enemy_events,omitempty"`
}

// GameStatistics summarises a run
type GameStatistics struct {
	TotalFrames      int     `json:"total_frames"`
	PlayDuration     float64 `json:"play_duration"` // seconds
	EnemiesDestroyed int     `json:"enemies_destroyed"`
	ShotsFired       int     `json:"shots_fired"`
	Hits             int     `json:"hits"`
	Deaths           int     `json:"deaths"`
}

// Accuracy returns hits per shot fired, 0 when nothing was fired
func (s GameStatistics) Accuracy() float64 {
	if s.ShotsFired == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.ShotsFired)
}

// FrameSample is one per-frame record
type FrameSample struct {
	FrameNumber   int     `json:"frame_number"`
	PlayerX       float64 `json:"player_x"`
	PlayerY       float64 `json:"player_y"`
	PlayerLives   int     `json:"player_lives"`
	PlayerScore   float64 `json:"player_score"`
	CurrentWeapon int     `json:"current_weapon"`
	InputLeft     int     `json:"input_left"`
	InputRight    int     `json:"input_right"`
	InputUp       int     `json:"input_up"`
	InputDown     int     `json:"input_down"`
	InputButton1  int     `json:"input_button1"`
	InputButton2  int     `json:"input_button2"`
	StageNum      int     `json:"stage_num"`
	Timestamp     float64 `json:"timestamp"`
}

// EnemyEvent is a recorded enemy spawn or shot, used to reproduce a run on replay
type EnemyEvent struct {
	EventType string  `json:"event_type"` // enemy_spawn, enemy_shoot
	Frame     int     `json:"frame"`
	EnemyID   int     `json:"enemy_id,omitempty"`
	EnemyType string  `json:"enemy_type,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	VX        float64 `json:"vx,omitempty"`
	VY        float64 `json:"vy,omitempty"`
	Delay     int     `json:"delay,omitempty"`
}

// CompletionSignal is the raw flag/payload/timestamp triple read from the shared store
type CompletionSignal struct {
	Completed bool
	Payload   string
	Timestamp string
}
