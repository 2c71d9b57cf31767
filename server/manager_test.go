package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetOrCreateIsLazyAndStable(t *testing.T) {
	m := NewRoomManager()
	assert.Equal(t, 0, m.Count(), "进程启动时注册表为空")
	assert.Nil(t, m.Get("r1"))

	r1 := m.GetOrCreate("r1")
	assert.Equal(t, 1, m.Count())
	assert.Same(t, r1, m.GetOrCreate("r1"), "同键应返回同一房间")
	assert.Same(t, r1, m.Get("r1"))
	assert.Equal(t, PhaseWaiting, r1.Phase(), "新房间处于等待阶段，循环未启动")
}

func TestRemoveIsIdempotent(t *testing.T) {
	m := NewRoomManager()
	m.GetOrCreate("r1")
	m.Remove("r1")
	assert.Nil(t, m.Get("r1"))
	m.Remove("r1") // 再删一次不应有副作用
	m.Remove("never-existed")
	assert.Equal(t, 0, m.Count())
}

func TestSingletonManager(t *testing.T) {
	assert.Same(t, GetRoomManager(), GetRoomManager())
}
