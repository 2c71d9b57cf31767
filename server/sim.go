package server

import (
	"math"
	"math/rand"
	"time"
)

const (
	// TicksPerSecond 世界推进频率（20 TPS）
	TicksPerSecond = 20

	// SpawnRadius 敌人出生点到锚定玩家的径向距离
	SpawnRadius = 7.0
	// EnemyCapBase / EnemyCapPerWave 敌人数量上限 = base + perWave*波次
	EnemyCapBase    = 20
	EnemyCapPerWave = 2
	// ChaseDeadZone 追击死区：距离小于该值时敌人不再逼近
	ChaseDeadZone = 0.1
	// ContactRange 接触伤害判定距离
	ContactRange = 0.6
	// ContactKnockback 接触伤害对玩家的击退距离
	ContactKnockback = 0.3
	// InvincibleWindowTicks 受击后获得的无敌 Tick 数
	InvincibleWindowTicks = 5
)

var tickInterval = time.Duration(1000/TicksPerSecond) * time.Millisecond // 50ms

// randSource 房间私有随机源，测试可注入固定种子
type randSource = *rand.Rand

func newRand() randSource {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// startLoopLocked 启动房间的模拟循环（幂等；已在运行则什么都不做）
// 循环在房间被销毁、阶段离开 playing 或战斗位清空时自行停止
func (r *Room) startLoopLocked() {
	if r.loopRunning {
		return
	}
	r.loopRunning = true
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for range ticker.C {
			if !r.stepTick() {
				return
			}
		}
	}()
}

// stepTick 推进一个 Tick；返回 false 表示循环应当结束
// 核心循环：生成 → 追击移动 → 接触战斗 → 无敌衰减 → 全量广播
func (r *Room) stepTick() bool {
	start := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	// 触发时重新校验存活条件，而不是信任启动时的状态
	if r.mgr.Get(r.ID) != r || r.phase != PhasePlaying || len(r.actives) == 0 {
		r.loopRunning = false
		return false
	}

	r.spawnLocked()
	r.moveEnemiesLocked()
	hit := r.contactCombatLocked()
	r.decayInvincibilityLocked(hit)
	r.broadcastLocked(r.tickStateLocked(), "")

	elapsed := time.Since(start)
	r.metrics.AddTick(elapsed.Nanoseconds())
	tickDuration.Observe(elapsed.Seconds())
	return true
}

// aliveActivesLocked 存活的战斗位会话（观战位不参与模拟）
func (r *Room) aliveActivesLocked() []*Session {
	alive := make([]*Session, 0, len(r.actives))
	for _, s := range r.actives {
		if s.Alive {
			alive = append(alive, s)
		}
	}
	return alive
}

// spawnLocked 生成决策：小概率生成一只敌人，受波次缩放的数量上限约束
// 模板从解锁子集中均匀抽取；出生点锚定随机一名存活玩家
func (r *Room) spawnLocked() {
	if r.rng.Float64() >= r.spawnRate {
		return
	}
	if len(r.enemies) >= EnemyCapBase+EnemyCapPerWave*r.wave {
		return
	}
	alive := r.aliveActivesLocked()
	if len(alive) == 0 {
		return
	}
	center := alive[r.rng.Intn(len(alive))]

	unlocked := r.wave
	if unlocked < 1 {
		unlocked = 1
	}
	if unlocked > len(archetypeOrder) {
		unlocked = len(archetypeOrder)
	}
	t := archetypeOrder[r.rng.Intn(unlocked)]

	angle := r.rng.Float64() * 2 * math.Pi
	e := NewEnemy(
		r.nextEnemyID,
		clampCoord(center.X+math.Cos(angle)*SpawnRadius),
		clampCoord(center.Y+math.Sin(angle)*SpawnRadius),
		t,
	)
	r.nextEnemyID++
	r.enemies = append(r.enemies, e)
	r.metrics.IncSpawned()
	enemiesSpawnedTotal.Inc()
}

// moveEnemiesLocked 每只敌人朝最近的存活玩家逼近一步
func (r *Room) moveEnemiesLocked() {
	alive := r.aliveActivesLocked()
	for _, e := range r.enemies {
		target, dist := nearestSession(alive, e.X, e.Y)
		if target == nil || dist <= ChaseDeadZone {
			continue
		}
		e.X += (target.X - e.X) / dist * e.Speed
		e.Y += (target.Y - e.Y) / dist * e.Speed
		e.clampPosition()
	}
}

// nearestSession 按欧氏距离找最近会话；返回的距离保证非零
func nearestSession(list []*Session, x, y float64) (*Session, float64) {
	var closest *Session
	closestDist := math.Inf(1)
	for _, s := range list {
		dx := s.X - x
		dy := s.Y - y
		d := math.Sqrt(dx*dx + dy*dy)
		if d < 1e-4 {
			d = 1e-4
		}
		if d < closestDist {
			closestDist = d
			closest = s
		}
	}
	return closest, closestDist
}

// contactCombatLocked 敌人对接触范围内、无敌窗口已过的玩家结算伤害
// 命中即扣血（到零翻转死亡）、击退、开启无敌窗口并立即广播该玩家状态
// 返回本 Tick 被命中的会话集合，供衰减阶段跳过
func (r *Room) contactCombatLocked() map[SessionID]struct{} {
	hit := make(map[SessionID]struct{})
	for _, e := range r.enemies {
		for _, s := range r.actives {
			if !s.Alive || s.InvincibleTicks > 0 {
				continue
			}
			dx := s.X - e.X
			dy := s.Y - e.Y
			dist := math.Sqrt(dx*dx + dy*dy)
			if dist >= ContactRange {
				continue
			}
			if dist < 1e-4 {
				dist = 1e-4
			}

			s.HP -= e.Power
			if s.HP <= 0 {
				s.HP = 0
				s.Alive = false
			}
			s.InvincibleTicks = InvincibleWindowTicks
			hit[s.ID] = struct{}{}

			// 击退：沿敌人指向玩家的方向推开
			s.X += dx / dist * ContactKnockback
			s.Y += dy / dist * ContactKnockback
			s.clampPosition()

			r.broadcastLocked(stateUpdate(s), "")
			if !s.Alive {
				r.broadcastLocked(DeathMsg{Type: MsgDeath, ID: string(s.ID), Nickname: s.Nickname}, "")
			}
		}
	}
	return hit
}

// decayInvincibilityLocked 无敌计数逐 Tick 递减
// 本 Tick 刚被命中的会话跳过，保证无敌窗口足额覆盖后续 5 个 Tick
func (r *Room) decayInvincibilityLocked(justHit map[SessionID]struct{}) {
	for _, s := range r.allSessionsLocked() {
		if s.InvincibleTicks == 0 {
			continue
		}
		if _, ok := justHit[s.ID]; ok {
			continue
		}
		s.InvincibleTicks--
	}
}

// tickStateLocked 组装每 Tick 下发的完整世界状态
func (r *Room) tickStateLocked() TickStateMsg {
	enemies := make([]EnemyState, 0, len(r.enemies))
	for _, e := range r.enemies {
		enemies = append(enemies, EnemyState{
			ID:     int64(e.ID),
			X:      e.X,
			Y:      e.Y,
			Type:   string(e.Type),
			HP:     e.HP,
			Speed:  e.Speed,
			Power:  e.Power,
			Reward: e.Reward,
			Color:  e.Color(),
		})
	}
	return TickStateMsg{
		Type:        MsgTickState,
		Enemies:     enemies,
		Phase:       string(r.phase),
		Wave:        r.wave,
		EnemyCount:  len(r.enemies),
		KillCount:   r.killCount,
		TargetKills: r.targetKills,
	}
}
