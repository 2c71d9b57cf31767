package server

import (
	"encoding/json"
	"math"
	"sync"
	"time"
)

// Phase 房间状态机取值
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhasePlaying Phase = "playing"
	PhaseResting Phase = "resting"
)

const (
	// MaxActiveSessions 战斗位容量；超员加入被拒绝而非排队
	MaxActiveSessions = 4
	// DefaultRoomKey 客户端未指定房间键时的共享默认房间
	DefaultRoomKey = "room_default"
	// DefaultTargetKills 首波击杀目标
	DefaultTargetKills = 5
	// TargetKillsStep 每波击杀目标的固定增量
	TargetKillsStep = 2
	// DefaultSpawnRate 每 Tick 生成敌人的概率
	DefaultSpawnRate = 0.03
	// DefaultRestDelay 休整阶段时长
	DefaultRestDelay = 30 * time.Second
	// AttackDefaultDamage 攻击事件伤害缺省值
	AttackDefaultDamage = 0.5
	// AttackKnockback 玩家攻击对敌人的击退距离
	AttackKnockback = 0.4
	// SkillCoolRefund 击杀敌人返还的技能冷却值
	SkillCoolRefund = 100.0
)

// sessionColors 4 色循环调色板，按加入顺序取模分配（仅展示用途）
var sessionColors = [4]string{"#00ff00", "#ff0000", "#00ccff", "#ffff00"}

// Room 房间世界：权威状态维护在内存，房间级互斥锁保护
// 连接处理协程与 Tick 协程都通过锁串行访问，房间之间互不共享
type Room struct {
	ID string

	mu          sync.Mutex
	actives     map[SessionID]*Session
	spectators  map[SessionID]*Session
	enemies     []*Enemy
	nextEnemyID EnemyID

	phase        Phase
	wave         int
	killCount    int
	targetKills  int
	friendlyFire bool
	loopRunning  bool

	// 可热更新配置（/admin/config）
	spawnRate float64
	restDelay time.Duration

	rng     randSource
	mgr     *RoomManager
	metrics *RoomMetrics
}

// newRoom 创建房间；Tick 循环在首个战斗位会话加入时才启动
func newRoom(id string, mgr *RoomManager) *Room {
	return &Room{
		ID:          id,
		actives:     make(map[SessionID]*Session),
		spectators:  make(map[SessionID]*Session),
		phase:       PhaseWaiting,
		wave:        1,
		targetKills: DefaultTargetKills,
		spawnRate:   DefaultSpawnRate,
		restDelay:   DefaultRestDelay,
		rng:         newRand(),
		mgr:         mgr,
		metrics:     &RoomMetrics{},
	}
}

// AddActive 尝试占用战斗位；满员时返回 false 且不做任何改动
func (r *Room) AddActive(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addActiveLocked(s)
}

func (r *Room) addActiveLocked(s *Session) bool {
	if len(r.actives) >= MaxActiveSessions {
		return false
	}
	r.actives[s.ID] = s
	return true
}

// AddSpectator 加入观战位，无容量限制
func (r *Room) AddSpectator(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spectators[s.ID] = s
}

// RemoveSession 从战斗位与观战位移除会话
// 返回房间是否因此变空（注册表据此销毁房间）
func (r *Room) RemoveSession(id SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.actives, id)
	delete(r.spectators, id)
	return len(r.actives) == 0 && len(r.spectators) == 0
}

// Broadcast 序列化一次后尽力投递给全部会话，跳过 excludeID
// 单个对端投递失败只影响它自己，绝不中断整轮广播
func (r *Room) Broadcast(msg any, excludeID SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(msg, excludeID)
}

// BroadcastAll 无排除广播：死亡、波次切换、聊天等人人可见的事件
func (r *Room) BroadcastAll(msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(msg, "")
}

func (r *Room) broadcastLocked(msg any, excludeID SessionID) {
	b, err := json.Marshal(msg)
	if err != nil {
		Log.Errorf("broadcast marshal: room=%s err=%v", r.ID, err)
		return
	}
	for _, s := range r.actives {
		if s.ID != excludeID && s.Conn != nil {
			s.Conn.Enqueue(b)
		}
	}
	for _, s := range r.spectators {
		if s.ID != excludeID && s.Conn != nil {
			s.Conn.Enqueue(b)
		}
	}
	r.metrics.IncBroadcast()
}

// sendTo 定向发送单条消息（失败静默）
func sendTo(conn Conn, msg any) {
	if conn == nil {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		Log.Errorf("send marshal: %v", err)
		return
	}
	conn.Enqueue(b)
}

// Join 执行完整的加入流程：分配颜色、入座/观战、向新人下发
// 已有会话信息、向全房通告。满员时返回 false 且不做任何改动
func (r *Room) Join(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.Color = sessionColors[(len(r.actives)+len(r.spectators))%len(sessionColors)]

	if s.IsSpectator() {
		r.spectators[s.ID] = s
	} else if !r.addActiveLocked(s) {
		return false
	}

	// 向新人逐个通告已有会话，再补一份完整快照
	peers := make([]PeerState, 0, len(r.actives)+len(r.spectators))
	for _, p := range r.allSessionsLocked() {
		st := peerState(p)
		peers = append(peers, st)
		if p.ID != s.ID {
			sendTo(s.Conn, PeerExistingMsg{Type: MsgPeerExisting, PeerState: st})
		}
	}
	sendTo(s.Conn, PeerSnapshotMsg{Type: MsgPeerSnapshot, Sessions: peers})

	r.broadcastLocked(PeerJoinedMsg{
		Type:         MsgPeerJoined,
		ID:           string(s.ID),
		Nickname:     s.Nickname,
		Color:        s.Color,
		Ability:      s.Ability,
		Spectator:    s.IsSpectator(),
		SessionCount: len(r.actives),
	}, "")

	sendTo(s.Conn, JoinedSelfMsg{
		Type:         MsgJoinedSelf,
		ID:           string(s.ID),
		Color:        s.Color,
		RoomID:       r.ID,
		SessionCount: len(r.actives),
		FriendlyFire: r.friendlyFire,
	})

	// 中途加入且战斗已开始：补发开始通知与当前世界状态
	if r.phase == PhasePlaying {
		sendTo(s.Conn, WaveStartedMsg{Type: MsgWaveStarted, Wave: r.wave})
		sendTo(s.Conn, r.tickStateLocked())
	}

	// 首个战斗位会话点燃对局
	if !s.IsSpectator() && r.phase == PhaseWaiting {
		r.startBattleLocked()
	}
	return true
}

// allSessionsLocked 战斗位在前、观战位在后的会话列表
func (r *Room) allSessionsLocked() []*Session {
	all := make([]*Session, 0, len(r.actives)+len(r.spectators))
	for _, s := range r.actives {
		all = append(all, s)
	}
	for _, s := range r.spectators {
		all = append(all, s)
	}
	return all
}

func peerState(s *Session) PeerState {
	return PeerState{
		ID:        string(s.ID),
		Nickname:  s.Nickname,
		Color:     s.Color,
		X:         s.X,
		Y:         s.Y,
		HP:        s.HP,
		Score:     s.Score,
		Ability:   s.Ability,
		Alive:     s.Alive,
		Spectator: s.IsSpectator(),
	}
}

// UpdateSession 会话自报状态：逐字段净化，位置入界裁剪
// 常规更新广播排除发送者；自报死亡则对全员通告
func (r *Room) UpdateSession(id SessionID, ev UpdateEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.actives[id]
	if !ok {
		return
	}
	s.X = sanitizeFloat(ev.X, s.X)
	s.Y = sanitizeFloat(ev.Y, s.Y)
	s.HP = sanitizeFloat(ev.HP, s.HP)
	s.Score = sanitizeFloat(ev.Score, s.Score)
	s.Money = sanitizeFloat(ev.Money, s.Money)
	s.Angle = sanitizeFloat(ev.Angle, s.Angle)
	s.SkillCool = sanitizeFloat(ev.SkillCool, s.SkillCool)
	s.clampPosition()

	r.broadcastLocked(stateUpdate(s), id)

	if s.HP <= 0 && s.Alive {
		s.Alive = false
		r.broadcastLocked(DeathMsg{Type: MsgDeath, ID: string(id), Nickname: s.Nickname}, "")
	}
}

func stateUpdate(s *Session) StateUpdateMsg {
	return StateUpdateMsg{
		Type:  MsgStateUpdate,
		ID:    string(s.ID),
		X:     s.X,
		Y:     s.Y,
		HP:    s.HP,
		Score: s.Score,
		Angle: s.Angle,
	}
}

// Attack 结算一次玩家对敌人的攻击
// 击退先于伤害；击杀为静默移除（只在下个 Tick 的敌人列表里可见）
// 攻击者非战斗位或敌人已不存在时为无操作
func (r *Room) Attack(attackerID SessionID, enemyID EnemyID, damage *float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attacker, ok := r.actives[attackerID]
	if !ok {
		return
	}
	enemy := r.findEnemyLocked(enemyID)
	if enemy == nil {
		return
	}

	dmg := sanitizeFloat(damage, AttackDefaultDamage)

	// 击退：沿攻击者指向敌人的方向推开
	dx := enemy.X - attacker.X
	dy := enemy.Y - attacker.Y
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist < 1e-4 {
		dist = 1e-4
	}
	enemy.X += dx / dist * AttackKnockback
	enemy.Y += dy / dist * AttackKnockback
	enemy.clampPosition()

	if enemy.ApplyDamage(dmg) {
		attacker.Score += float64(enemy.Reward)
		attacker.SkillCool = math.Min(SkillCoolCap, attacker.SkillCool+SkillCoolRefund)
		attacker.Kills++
		r.killCount++
		r.removeEnemyLocked(enemyID)
		r.metrics.IncKilled()
		enemiesKilledTotal.Inc()

		if r.phase == PhasePlaying && r.killCount >= r.targetKills {
			r.clearWaveLocked(false)
		}
		return
	}

	r.broadcastLocked(EnemyDamagedMsg{
		Type:    MsgEnemyDamaged,
		EnemyID: int64(enemyID),
		HP:      enemy.HP,
		X:       enemy.X,
		Y:       enemy.Y,
	}, "")
}

func (r *Room) findEnemyLocked(id EnemyID) *Enemy {
	for _, e := range r.enemies {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (r *Room) removeEnemyLocked(id EnemyID) {
	for i, e := range r.enemies {
		if e.ID == id {
			r.enemies = append(r.enemies[:i], r.enemies[i+1:]...)
			return
		}
	}
}

// DirectDamage 玩家对玩家的直接伤害；友伤关闭时为无操作
// 与接触伤害同样的归零/死亡翻转/广播行为，但没有无敌窗口
func (r *Room) DirectDamage(attackerID SessionID, targetID SessionID, damage *float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.friendlyFire {
		return
	}
	if _, ok := r.actives[attackerID]; !ok {
		return
	}
	target, ok := r.actives[targetID]
	if !ok {
		return
	}

	target.HP -= sanitizeFloat(damage, 0)
	if target.HP <= 0 {
		target.HP = 0
		if target.Alive {
			target.Alive = false
			r.broadcastLocked(DeathMsg{Type: MsgDeath, ID: string(targetID), Nickname: target.Nickname}, "")
		}
	}
	r.broadcastLocked(stateUpdate(target), "")
}

// UseAbility 技能使用只做全房通告，效果结算在客户端表现层
func (r *Room) UseAbility(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.actives[id]
	if !ok {
		return
	}
	r.broadcastLocked(AbilityUsedMsg{
		Type:     MsgAbilityUsed,
		ID:       string(id),
		Nickname: s.Nickname,
		Ability:  s.Ability,
	}, "")
}

// EndRun 会话主动结束本局：仅标记死亡，状态经后续广播自然可见
func (r *Room) EndRun(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.actives[id]; ok {
		s.Alive = false
	}
}

// ToggleFriendlyFire 任意战斗位会话可切换友伤，变更连同操作者昵称广播
func (r *Room) ToggleFriendlyFire(id SessionID, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.actives[id]
	if !ok {
		return
	}
	r.friendlyFire = enabled
	r.broadcastLocked(FriendlyFireChangedMsg{
		Type:      MsgFriendlyFireChanged,
		Enabled:   enabled,
		ChangedBy: s.Nickname,
	}, "")
}

// Chat 聊天全房广播（含发送者）
func (r *Room) Chat(id SessionID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.actives[id]
	if !ok {
		return
	}
	r.broadcastLocked(ChatMsg{
		Type:     MsgChat,
		ID:       string(id),
		Nickname: s.Nickname,
		Color:    s.Color,
		Text:     text,
	}, "")
}

// ---- 只读访问器（加锁），供测试与 /admin 输出使用 ----

func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Room) Wave() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wave
}

func (r *Room) KillCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.killCount
}

func (r *Room) TargetKills() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.targetKills
}

func (r *Room) EnemyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.enemies)
}

func (r *Room) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actives)
}

func (r *Room) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actives) + len(r.spectators)
}

func (r *Room) FriendlyFire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.friendlyFire
}

// Session 按标识取会话（战斗位或观战位），不存在时为 nil
func (r *Room) Session(id SessionID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.actives[id]; ok {
		return s
	}
	return r.spectators[id]
}
