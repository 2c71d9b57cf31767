package server

// 出站事件（服务端 → 客户端，JSON 编码，type 字段区分）

// 出站事件类型
const (
	MsgJoinedSelf          = "joined_self"
	MsgPeerExisting        = "peer_existing"
	MsgPeerSnapshot        = "peer_snapshot"
	MsgPeerJoined          = "peer_joined"
	MsgPeerLeft            = "peer_left"
	MsgStateUpdate         = "state_update"
	MsgDeath               = "death"
	MsgTickState           = "tick_state"
	MsgWaveCleared         = "wave_cleared"
	MsgWaveStarted         = "wave_started"
	MsgAbilityUsed         = "ability_used"
	MsgEnemyDamaged        = "enemy_damaged"
	MsgFriendlyFireChanged = "friendly_fire_changed"
	MsgChat                = "chat"
	MsgError               = "error"
)

// JoinedSelfMsg 回发给新加入者的自身信息
type JoinedSelfMsg struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	Color        string `json:"color"`
	RoomID       string `json:"room_id"`
	SessionCount int    `json:"session_count"`
	FriendlyFire bool   `json:"friendly_fire"`
}

// PeerState 一个会话的可广播状态（用于 peer_existing / peer_snapshot）
type PeerState struct {
	ID        string  `json:"id"`
	Nickname  string  `json:"nickname"`
	Color     string  `json:"color"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	HP        float64 `json:"hp"`
	Score     float64 `json:"score"`
	Ability   string  `json:"ability,omitempty"`
	Alive     bool    `json:"alive"`
	Spectator bool    `json:"spectator"`
}

// PeerExistingMsg 向新加入者逐个通告已有会话
type PeerExistingMsg struct {
	Type string `json:"type"`
	PeerState
}

// PeerSnapshotMsg 向新加入者一次性下发全部会话快照
type PeerSnapshotMsg struct {
	Type     string      `json:"type"`
	Sessions []PeerState `json:"sessions"`
}

// PeerJoinedMsg 通告新会话加入
type PeerJoinedMsg struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	Nickname     string `json:"nickname"`
	Color        string `json:"color"`
	Ability      string `json:"ability,omitempty"`
	Spectator    bool   `json:"spectator"`
	SessionCount int    `json:"session_count"`
}

// PeerLeftMsg 通告会话离开
type PeerLeftMsg struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// StateUpdateMsg 单个会话的实时状态
type StateUpdateMsg struct {
	Type  string  `json:"type"`
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	HP    float64 `json:"hp"`
	Score float64 `json:"score"`
	Angle float64 `json:"angle"`
}

// DeathMsg 会话死亡通告
type DeathMsg struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// EnemyState 敌人列表中的一项（tick_state 使用）
type EnemyState struct {
	ID     int64   `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Type   string  `json:"type"`
	HP     float64 `json:"hp"`
	Speed  float64 `json:"speed"`
	Power  float64 `json:"power"`
	Reward int     `json:"reward"`
	Color  string  `json:"color"`
}

// TickStateMsg 每 Tick 下发的完整世界状态
type TickStateMsg struct {
	Type        string       `json:"type"`
	Enemies     []EnemyState `json:"enemies"`
	Phase       string       `json:"phase"`
	Wave        int          `json:"wave"`
	EnemyCount  int          `json:"enemy_count"`
	KillCount   int          `json:"kill_count"`
	TargetKills int          `json:"target_kills"`
}

// WaveClearedMsg 波次结束，进入休整
type WaveClearedMsg struct {
	Type     string `json:"type"`
	NextWave int    `json:"next_wave"`
}

// WaveStartedMsg 波次开始（含首波与休整结束后的复战）
type WaveStartedMsg struct {
	Type string `json:"type"`
	Wave int    `json:"wave"`
}

// AbilityUsedMsg 会话使用技能的通告
type AbilityUsedMsg struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Ability  string `json:"ability,omitempty"`
}

// EnemyDamagedMsg 敌人受击存活时的即时反馈（带位置以便客户端立即渲染击退）
type EnemyDamagedMsg struct {
	Type    string  `json:"type"`
	EnemyID int64   `json:"enemy_id"`
	HP      float64 `json:"hp"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// FriendlyFireChangedMsg 友伤开关变更通告
type FriendlyFireChangedMsg struct {
	Type      string `json:"type"`
	Enabled   bool   `json:"enabled"`
	ChangedBy string `json:"changed_by"`
}

// ChatMsg 聊天广播
type ChatMsg struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Color    string `json:"color"`
	Text     string `json:"text"`
}

// ErrorMsg 显式错误回执（如房间已满）
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
