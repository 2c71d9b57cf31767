package server

import "time"

// 波次状态机：waiting → playing → resting → playing，循环往复直到房间清空
// 进入 resting 有两条路径：击杀数达标（战斗驱动）与 advance_wave（手动跳波）

// startBattleLocked waiting → playing：通告波次开始并启动模拟循环
func (r *Room) startBattleLocked() {
	r.phase = PhasePlaying
	r.broadcastLocked(WaveStartedMsg{Type: MsgWaveStarted, Wave: r.wave}, "")
	r.startLoopLocked()
	Log.Infof("battle started: room=%s wave=%d", r.ID, r.wave)
}

// ClearWave playing → resting；manual 表示手动跳波请求
func (r *Room) ClearWave(manual bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearWaveLocked(manual)
}

// clearWaveLocked 结束当前波次：波次号递增、击杀计数清零、目标加固定增量
// 手动跳波会顺带清空存量敌人，达标清波则保留
// 模拟循环看到 phase 离开 playing 后自行停止
func (r *Room) clearWaveLocked(manual bool) {
	if r.phase != PhasePlaying {
		return
	}
	r.phase = PhaseResting
	r.wave++
	r.killCount = 0
	r.targetKills += TargetKillsStep
	if manual {
		r.enemies = nil
	}
	r.broadcastLocked(WaveClearedMsg{Type: MsgWaveCleared, NextWave: r.wave}, "")
	r.scheduleRestEnd()
	Log.Infof("wave cleared: room=%s nextWave=%d targetKills=%d manual=%v",
		r.ID, r.wave, r.targetKills, manual)
}

// scheduleRestEnd 调度休整结束的转换
// 回调只携带注册表与房间键：触发时重新查表并校验阶段，
// 房间已销毁或阶段已变化则静默放弃，绝不依赖闭包里的陈旧引用
func (r *Room) scheduleRestEnd() {
	mgr, roomID, delay := r.mgr, r.ID, r.restDelay
	time.AfterFunc(delay, func() {
		room := mgr.Get(roomID)
		if room == nil {
			return
		}
		room.mu.Lock()
		defer room.mu.Unlock()
		if room.phase != PhaseResting {
			return
		}
		// 复活全部会话（含观战位）并回满生命
		for _, s := range room.allSessionsLocked() {
			s.Alive = true
			s.HP = s.MaxHP
		}
		room.phase = PhasePlaying
		room.broadcastLocked(WaveStartedMsg{Type: MsgWaveStarted, Wave: room.wave}, "")
		room.startLoopLocked()
		Log.Infof("rest over: room=%s wave=%d", roomID, room.wave)
	})
}
