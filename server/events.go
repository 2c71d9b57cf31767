package server

// 入站事件（WebSocket 文本消息，JSON 编码，type 字段区分）
// 数值字段一律用指针承载：缺失或非法时保留服务端旧值

// Envelope 入站消息公共外层，只看 type；缺失 type 的消息静默丢弃
type Envelope struct {
	Type string `json:"type"`
}

// 入站事件类型
const (
	EvJoin               = "join"
	EvUpdate             = "update"
	EvAttack             = "attack"
	EvDirectDamage       = "direct_damage"
	EvUseAbility         = "use_ability"
	EvEndRun             = "end_run"
	EvToggleFriendlyFire = "toggle_friendly_fire"
	EvChat               = "chat"
	EvAdvanceWave        = "advance_wave"
)

// JoinEvent 加入房间：房间键缺省时落到共享默认房间
type JoinEvent struct {
	RoomID    string `json:"room_id"`
	Nickname  string `json:"nickname"`
	Spectator bool   `json:"spectator"`
	Ability   string `json:"ability"`
}

// UpdateEvent 会话自报状态，各字段独立可选、独立净化
type UpdateEvent struct {
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	HP        *float64 `json:"hp"`
	Score     *float64 `json:"score"`
	Money     *float64 `json:"money"`
	Angle     *float64 `json:"angle"`
	SkillCool *float64 `json:"skill_cool"`
}

// AttackEvent 对指定敌人的一次攻击；伤害缺失/非法时使用默认值
type AttackEvent struct {
	EnemyID *int64   `json:"enemy_id"`
	Damage  *float64 `json:"damage"`
}

// DirectDamageEvent 对指定会话的直接伤害（仅友伤开启时生效）
type DirectDamageEvent struct {
	TargetID string   `json:"target_id"`
	Damage   *float64 `json:"damage"`
}

// ToggleFriendlyFireEvent 友伤开关
type ToggleFriendlyFireEvent struct {
	Enabled bool `json:"enabled"`
}

// ChatEvent 聊天文本
type ChatEvent struct {
	Text string `json:"text"`
}
