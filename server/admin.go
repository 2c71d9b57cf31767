package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// RoomConfig 房间可热更新的运行参数
type RoomConfig struct {
	SpawnRate    *float64 `json:"spawn_rate,omitempty"`
	RestDelayMs  *int     `json:"rest_delay_ms,omitempty"`
	FriendlyFire *bool    `json:"friendly_fire,omitempty"`
}

// Config 当前配置快照
func (r *Room) Config() RoomConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	rate := r.spawnRate
	delay := int(r.restDelay / time.Millisecond)
	ff := r.friendlyFire
	return RoomConfig{SpawnRate: &rate, RestDelayMs: &delay, FriendlyFire: &ff}
}

// ApplyConfig 部分更新配置，nil 字段保持不变
func (r *Room) ApplyConfig(cfg RoomConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg.SpawnRate != nil && *cfg.SpawnRate >= 0 && *cfg.SpawnRate <= 1 {
		r.spawnRate = *cfg.SpawnRate
	}
	if cfg.RestDelayMs != nil && *cfg.RestDelayMs > 0 {
		r.restDelay = time.Duration(*cfg.RestDelayMs) * time.Millisecond
	}
	if cfg.FriendlyFire != nil {
		r.friendlyFire = *cfg.FriendlyFire
	}
}

// HandleAdminConfig 提供房间配置的读取与更新（热更新基本规则）
// GET /admin/config?room=room_default  返回当前配置
// POST /admin/config?room=room_default 以 JSON 载荷更新部分字段
func HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = DefaultRoomKey
	}
	room := GetRoomManager().Get(roomID)
	if room == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(room.Config())
	case http.MethodPost:
		var cfg RoomConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		room.ApplyConfig(cfg)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		Log.Infof("config updated: room=%s", roomID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleAdminStats 输出指定房间的运行指标与世界概览
// GET /admin/stats?room=room_default
func HandleAdminStats(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = DefaultRoomKey
	}
	room := GetRoomManager().Get(roomID)
	if room == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	payload := map[string]any{
		"room":         roomID,
		"phase":        string(room.Phase()),
		"wave":         room.Wave(),
		"kill_count":   room.KillCount(),
		"target_kills": room.TargetKills(),
		"enemies":      room.EnemyCount(),
		"actives":      room.ActiveCount(),
		"sessions":     room.SessionCount(),
		"metrics":      room.metrics.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
