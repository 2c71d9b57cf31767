package server

import (
	"encoding/json"
	"sync"
	"testing"
)

// fakeConn 捕获广播消息的假连接（参照真实 ClientConn 的 Enqueue 语义）
type fakeConn struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (f *fakeConn) Enqueue(b []byte) {
	cp := make([]byte, len(b))
	copy(cp, b)
	f.mu.Lock()
	f.msgs = append(f.msgs, cp)
	f.mu.Unlock()
}

// typed 按 type 过滤已收到的消息并解码为通用 map
func (f *fakeConn) typed(t *testing.T, typ string) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, b := range f.msgs {
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("队列中的消息不是合法 JSON: %v", err)
		}
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeConn) countTyped(t *testing.T, typ string) int {
	return len(f.typed(t, typ))
}

// newTestRoom 通过独立注册表创建房间，测试之间互不串扰
func newTestRoom(t *testing.T, id string) (*RoomManager, *Room) {
	t.Helper()
	m := NewRoomManager()
	r := m.GetOrCreate(id)
	t.Cleanup(func() { m.Remove(id) })
	return m, r
}

// putActive 绕过加入流程直接塞入战斗位会话（不触发对局开始）
func putActive(r *Room, id SessionID, conn Conn) *Session {
	s := NewSession(id, string(id), RoleActive, "", conn)
	r.mu.Lock()
	r.actives[id] = s
	r.mu.Unlock()
	return s
}

// putEnemy 直接塞入一只敌人
func putEnemy(r *Room, x, y float64, typ Archetype) *Enemy {
	r.mu.Lock()
	e := NewEnemy(r.nextEnemyID, x, y, typ)
	r.nextEnemyID++
	r.enemies = append(r.enemies, e)
	r.mu.Unlock()
	return e
}
