package server

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinVia(t *testing.T, m *RoomManager, roomID, nickname string, spectator bool) (*connHandler, *fakeConn) {
	t.Helper()
	c := &fakeConn{}
	h := newConnHandler(m, c)
	h.HandleMessage([]byte(fmt.Sprintf(
		`{"type":"join","room_id":%q,"nickname":%q,"spectator":%v}`,
		roomID, nickname, spectator)))
	return h, c
}

func TestMalformedMessagesSilentlyIgnored(t *testing.T) {
	m := NewRoomManager()
	c := &fakeConn{}
	h := newConnHandler(m, c)

	h.HandleMessage([]byte(`not json at all`))
	h.HandleMessage([]byte(`{}`))                    // 缺失 type
	h.HandleMessage([]byte(`{"type":"no_such"}`))    // 未知 type
	h.HandleMessage([]byte(`{"type":"update"}`))     // 未加入前的事件
	h.HandleMessage([]byte(`{"type":"attack"}`))     // 同上
	assert.Equal(t, 0, m.Count(), "畸形输入不应产生任何房间")
	assert.Empty(t, c.msgs, "畸形输入不应有任何回应")
}

func TestJoinCreatesRoomLazilyAndDefaultsKey(t *testing.T) {
	m := NewRoomManager()
	h, c := joinVia(t, m, "", "alice", false)
	t.Cleanup(h.HandleClose)

	require.NotNil(t, m.Get(DefaultRoomKey), "缺省房间键应落到共享默认房间")
	self := c.typed(t, MsgJoinedSelf)
	require.Len(t, self, 1)
	assert.Equal(t, DefaultRoomKey, self[0]["room_id"])
	assert.NotEmpty(t, self[0]["id"])
	assert.Equal(t, sessionColors[0], self[0]["color"])
	assert.Equal(t, false, self[0]["friendly_fire"])
}

func TestFifthJoinGetsErrorEvent(t *testing.T) {
	m := NewRoomManager()
	var handlers []*connHandler
	for i := 0; i < MaxActiveSessions; i++ {
		h, _ := joinVia(t, m, "busy", fmt.Sprintf("p%d", i), false)
		handlers = append(handlers, h)
	}
	t.Cleanup(func() {
		for _, h := range handlers {
			h.HandleClose()
		}
	})

	_, c := joinVia(t, m, "busy", "p5", false)
	errs := c.typed(t, MsgError)
	require.Len(t, errs, 1, "满员加入应收到显式错误回执")
	assert.Equal(t, 4, m.Get("busy").ActiveCount())
}

func TestAttackUnknownEnemyIsNoop(t *testing.T) {
	m := NewRoomManager()
	h, c := joinVia(t, m, "stale", "p", false)
	t.Cleanup(h.HandleClose)
	s := h.room.Session(h.sid)

	h.HandleMessage([]byte(`{"type":"attack","enemy_id":424242,"damage":5}`))

	r := m.Get("stale")
	r.mu.Lock()
	score, kills := s.Score, s.Kills
	r.mu.Unlock()
	assert.Equal(t, 0.0, score, "攻击不存在的敌人不应加分")
	assert.Equal(t, 0, kills)
	assert.Equal(t, 0, c.countTyped(t, MsgEnemyDamaged), "也不应有受击广播")
}

func TestAttackKillAwardsSilently(t *testing.T) {
	m := NewRoomManager()
	h, c := joinVia(t, m, "kill", "p", false)
	t.Cleanup(h.HandleClose)
	r := m.Get("kill")
	zero := 0.0
	r.ApplyConfig(RoomConfig{SpawnRate: &zero}) // 排除后台生成对计数断言的干扰
	e := putEnemy(r, 1, 1, ArchNormal)
	s := r.Session(h.sid)

	h.HandleMessage([]byte(fmt.Sprintf(`{"type":"attack","enemy_id":%d,"damage":99}`, e.ID)))

	r.mu.Lock()
	score, cool, kills := s.Score, s.SkillCool, s.Kills
	r.mu.Unlock()
	assert.Equal(t, float64(archetypeTable[ArchNormal].Reward), score)
	assert.Equal(t, SkillCoolRefund, cool)
	assert.Equal(t, 1, kills)
	assert.Equal(t, 1, r.KillCount())
	assert.Equal(t, 0, r.EnemyCount(), "击杀应立即移除敌人")
	assert.Equal(t, 0, c.countTyped(t, MsgEnemyDamaged), "击杀是静默移除，没有受击广播")
}

func TestAttackSurvivorBroadcastsKnockback(t *testing.T) {
	m := NewRoomManager()
	h, c := joinVia(t, m, "chip", "p", false)
	t.Cleanup(h.HandleClose)
	r := m.Get("chip")
	e := putEnemy(r, 1, 0, ArchHeavy) // hp=4，小伤害打不死

	h.HandleMessage([]byte(fmt.Sprintf(`{"type":"attack","enemy_id":%d,"damage":1}`, e.ID)))

	require.Equal(t, 1, c.countTyped(t, MsgEnemyDamaged))
	msg := c.typed(t, MsgEnemyDamaged)[0]
	assert.Equal(t, 3.0, msg["hp"])
	assert.Greater(t, msg["x"].(float64), 1.0, "受击广播应携带击退后的位置")
}

func TestAttackDefaultDamage(t *testing.T) {
	m := NewRoomManager()
	h, c := joinVia(t, m, "defaultdmg", "p", false)
	t.Cleanup(h.HandleClose)
	r := m.Get("defaultdmg")
	e := putEnemy(r, 1, 0, ArchNormal) // hp=2

	h.HandleMessage([]byte(fmt.Sprintf(`{"type":"attack","enemy_id":%d}`, e.ID)))

	require.Equal(t, 1, c.countTyped(t, MsgEnemyDamaged))
	assert.Equal(t, 2-AttackDefaultDamage, c.typed(t, MsgEnemyDamaged)[0]["hp"],
		"伤害缺失时应使用固定默认值")
}

func TestDirectDamageRespectsFriendlyFire(t *testing.T) {
	m := NewRoomManager()
	h1, _ := joinVia(t, m, "ff", "attacker", false)
	h2, _ := joinVia(t, m, "ff", "victim", false)
	t.Cleanup(func() { h1.HandleClose(); h2.HandleClose() })
	r := m.Get("ff")
	victim := r.Session(h2.sid)

	// 友伤关闭：无操作
	h1.HandleMessage([]byte(fmt.Sprintf(
		`{"type":"direct_damage","target_id":%q,"damage":30}`, h2.sid)))
	r.mu.Lock()
	hp := victim.HP
	r.mu.Unlock()
	assert.Equal(t, MaxHP, hp, "友伤关闭时直接伤害必须是无操作")

	// 打开友伤后生效
	h1.HandleMessage([]byte(`{"type":"toggle_friendly_fire","enabled":true}`))
	require.True(t, r.FriendlyFire())
	h1.HandleMessage([]byte(fmt.Sprintf(
		`{"type":"direct_damage","target_id":%q,"damage":30}`, h2.sid)))
	r.mu.Lock()
	hp = victim.HP
	r.mu.Unlock()
	assert.Equal(t, MaxHP-30, hp)
}

func TestDirectDamageFloorsAtZero(t *testing.T) {
	m := NewRoomManager()
	h1, c1 := joinVia(t, m, "ffkill", "attacker", false)
	h2, _ := joinVia(t, m, "ffkill", "victim", false)
	t.Cleanup(func() { h1.HandleClose(); h2.HandleClose() })
	r := m.Get("ffkill")
	victim := r.Session(h2.sid)

	h1.HandleMessage([]byte(`{"type":"toggle_friendly_fire","enabled":true}`))
	h1.HandleMessage([]byte(fmt.Sprintf(
		`{"type":"direct_damage","target_id":%q,"damage":9999}`, h2.sid)))

	r.mu.Lock()
	hp, alive := victim.HP, victim.Alive
	r.mu.Unlock()
	assert.Equal(t, 0.0, hp, "生命值不应出现负数")
	assert.False(t, alive)
	assert.GreaterOrEqual(t, c1.countTyped(t, MsgDeath), 1, "死亡应对全员广播")
}

func TestToggleFriendlyFireBroadcastsChanger(t *testing.T) {
	m := NewRoomManager()
	h, c := joinVia(t, m, "toggle", "操作员", false)
	t.Cleanup(h.HandleClose)

	h.HandleMessage([]byte(`{"type":"toggle_friendly_fire","enabled":true}`))
	msgs := c.typed(t, MsgFriendlyFireChanged)
	require.Len(t, msgs, 1)
	assert.Equal(t, true, msgs[0]["enabled"])
	assert.Equal(t, "操作员", msgs[0]["changed_by"])
}

func TestChatBroadcastIncludesSender(t *testing.T) {
	m := NewRoomManager()
	h, c := joinVia(t, m, "chat", "小明", false)
	t.Cleanup(h.HandleClose)

	h.HandleMessage([]byte(`{"type":"chat","text":"大家好"}`))
	msgs := c.typed(t, MsgChat)
	require.Len(t, msgs, 1, "聊天应包含发送者本人")
	assert.Equal(t, "大家好", msgs[0]["text"])
	assert.Equal(t, "小明", msgs[0]["nickname"])
}

func TestUseAbilityBroadcast(t *testing.T) {
	m := NewRoomManager()
	c := &fakeConn{}
	h := newConnHandler(m, c)
	h.HandleMessage([]byte(`{"type":"join","room_id":"sk","nickname":"p","ability":"dash"}`))
	t.Cleanup(h.HandleClose)

	h.HandleMessage([]byte(`{"type":"use_ability"}`))
	msgs := c.typed(t, MsgAbilityUsed)
	require.Len(t, msgs, 1)
	assert.Equal(t, "dash", msgs[0]["ability"])
}

func TestEndRunMarksDeadWithoutBroadcast(t *testing.T) {
	m := NewRoomManager()
	h, c := joinVia(t, m, "endrun", "p", false)
	t.Cleanup(h.HandleClose)
	r := m.Get("endrun")
	s := r.Session(h.sid)

	h.HandleMessage([]byte(`{"type":"end_run"}`))
	r.mu.Lock()
	alive := s.Alive
	r.mu.Unlock()
	assert.False(t, alive)
	assert.Equal(t, 0, c.countTyped(t, MsgDeath), "主动结束不单独通告")
}

func TestSpectatorCannotAct(t *testing.T) {
	m := NewRoomManager()
	hs, _ := joinVia(t, m, "spect", "watcher", true)
	t.Cleanup(hs.HandleClose)
	r := m.Get("spect")
	require.NotNil(t, r)
	assert.Equal(t, PhaseWaiting, r.Phase(), "观战位加入不应点燃对局")

	e := putEnemy(r, 1, 1, ArchNormal)
	hs.HandleMessage([]byte(fmt.Sprintf(`{"type":"attack","enemy_id":%d,"damage":99}`, e.ID)))
	assert.Equal(t, 1, r.EnemyCount(), "观战位的攻击事件是无操作")
	assert.Equal(t, 0, r.KillCount())
}

func TestDisconnectDestroysEmptyRoom(t *testing.T) {
	m := NewRoomManager()
	h1, _ := joinVia(t, m, "bye", "p1", false)
	h2, c2 := joinVia(t, m, "bye", "p2", false)

	h1.HandleClose()
	require.NotNil(t, m.Get("bye"), "还有会话时房间保留")
	assert.GreaterOrEqual(t, c2.countTyped(t, MsgPeerLeft), 1, "离开应通告其余会话")

	h2.HandleClose()
	assert.Nil(t, m.Get("bye"), "最后一个会话离开即销毁房间")
}

func TestAdvanceWaveViaHandler(t *testing.T) {
	m := NewRoomManager()
	h, c := joinVia(t, m, "adv", "p", false)
	t.Cleanup(h.HandleClose)
	r := m.Get("adv")
	delay := 60000
	r.ApplyConfig(RoomConfig{RestDelayMs: &delay})

	h.HandleMessage([]byte(`{"type":"advance_wave"}`))
	assert.Equal(t, PhaseResting, r.Phase())
	assert.Equal(t, 2, r.Wave())
	require.GreaterOrEqual(t, c.countTyped(t, MsgWaveCleared), 1)
}
