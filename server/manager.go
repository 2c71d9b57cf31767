package server

import "sync"

// RoomManager 管理多个房间的生命周期：首次加入懒创建，清空即销毁
// 进程启动时为空；房间条目恰好在没有任何会话时被移除
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

var (
	defaultManager *RoomManager
	once           sync.Once
)

// GetRoomManager 单例房间管理器
func GetRoomManager() *RoomManager {
	once.Do(func() {
		defaultManager = NewRoomManager()
	})
	return defaultManager
}

// NewRoomManager 独立管理器实例（测试用）
func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[string]*Room)}
}

// GetOrCreate 获取或懒创建房间
// 模拟循环不在此启动：首个战斗位会话加入时才点燃对局
func (m *RoomManager) GetOrCreate(id string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		r = newRoom(id, m)
		m.rooms[id] = r
		roomsGauge.Inc()
		Log.Infof("room created: room=%s", id)
	}
	return r
}

// Get 查询房间，不存在返回 nil
// 模拟循环与休整定时器据此在触发时重新校验房间是否仍然在册
func (m *RoomManager) Get(id string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[id]
}

// Remove 将房间移出注册表；其模拟循环会在下个 Tick 自行停止
func (m *RoomManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; ok {
		delete(m.rooms, id)
		roomsGauge.Dec()
		Log.Infof("room destroyed: room=%s", id)
	}
}

// Count 在册房间数
func (m *RoomManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
