package server

import "math"

// SessionID 表示会话唯一标识（连接生命周期内稳定）
type SessionID string

// Role 会话角色：战斗位参战，观战位只收广播
type Role int

const (
	RoleActive Role = iota
	RoleSpectator
)

const (
	// MapLimit 场地边界：坐标始终裁剪在 ±MapLimit 的正方形内
	MapLimit = 64.0
	// MaxHP 会话初始与复活时的生命值
	MaxHP = 100.0
	// SkillCoolCap 技能冷却值上限
	SkillCoolCap = 1000.0
)

// Session 房间内的参与者实体（服务端权威状态）
// 由所属房间独占持有：加入时创建，断开时销毁
type Session struct {
	ID       SessionID
	Nickname string
	Role     Role
	Color    string
	Ability  string

	X, Y      float64
	Angle     float64
	HP        float64
	MaxHP     float64
	Score     float64
	Money     float64
	SkillCool float64
	Alive     bool
	Kills     int

	// InvincibleTicks 剩余无敌 Tick 数，期间接触伤害被忽略
	InvincibleTicks int

	Conn Conn
}

// NewSession 创建带默认初始状态的会话
func NewSession(id SessionID, nickname string, role Role, ability string, conn Conn) *Session {
	return &Session{
		ID:       id,
		Nickname: nickname,
		Role:     role,
		Ability:  ability,
		HP:       MaxHP,
		MaxHP:    MaxHP,
		Alive:    true,
		Conn:     conn,
	}
}

// IsSpectator 观战位判断
func (s *Session) IsSpectator() bool {
	return s.Role == RoleSpectator
}

// sanitizeFloat 仅接受存在且有限的数值，否则保留旧值
// 这是系统对异常/恶意数值输入的唯一防线
func sanitizeFloat(v *float64, prev float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return prev
	}
	return *v
}

// clampCoord 将单轴坐标裁剪到场地边界内
func clampCoord(v float64) float64 {
	if v < -MapLimit {
		return -MapLimit
	}
	if v > MapLimit {
		return MapLimit
	}
	return v
}

// clampPosition 任何位置变更后统一调用，保证坐标不越界
func (s *Session) clampPosition() {
	s.X = clampCoord(s.X)
	s.Y = clampCoord(s.Y)
}
