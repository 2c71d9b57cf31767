package server

import (
	"encoding/json"

	"github.com/google/uuid"
)

// connHandler 单连接的事件分发器
// join 之前只接受 join；之后携带会话标识把事件路由到所属房间
// 所有房间状态的修改都经由房间方法完成，这里不直接碰实体
type connHandler struct {
	mgr  *RoomManager
	conn Conn
	room *Room
	sid  SessionID
}

func newConnHandler(mgr *RoomManager, conn Conn) *connHandler {
	return &connHandler{mgr: mgr, conn: conn}
}

// HandleMessage 解析入站消息并分发；缺失 type 或无法解析时静默丢弃
func (h *connHandler) HandleMessage(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		Log.Debugf("malformed message dropped: %v", err)
		return
	}
	if h.room != nil {
		h.room.metrics.IncMessage()
	}

	switch env.Type {
	case EvJoin:
		h.onJoin(raw)
	case EvUpdate:
		h.onUpdate(raw)
	case EvAttack:
		h.onAttack(raw)
	case EvDirectDamage:
		h.onDirectDamage(raw)
	case EvUseAbility:
		if h.room != nil {
			h.room.UseAbility(h.sid)
		}
	case EvEndRun:
		if h.room != nil {
			h.room.EndRun(h.sid)
		}
	case EvToggleFriendlyFire:
		h.onToggleFriendlyFire(raw)
	case EvChat:
		h.onChat(raw)
	case EvAdvanceWave:
		if h.room != nil {
			h.room.ClearWave(true)
		}
	default:
		// 未知类型按畸形输入处理：不回应
	}
}

func (h *connHandler) onJoin(raw []byte) {
	if h.room != nil {
		return // 一条连接只允许加入一次
	}
	var ev JoinEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return
	}
	roomID := ev.RoomID
	if roomID == "" {
		roomID = DefaultRoomKey
	}
	nickname := ev.Nickname
	if nickname == "" {
		nickname = "无名"
	}
	role := RoleActive
	if ev.Spectator {
		role = RoleSpectator
	}

	room := h.mgr.GetOrCreate(roomID)
	sid := SessionID("player_" + uuid.NewString())
	sess := NewSession(sid, nickname, role, ev.Ability, h.conn)

	if !room.Join(sess) {
		sendTo(h.conn, ErrorMsg{Type: MsgError, Message: "房间已满"})
		return
	}
	h.room = room
	h.sid = sid
	Log.Infof("session joined: room=%s id=%s nickname=%s spectator=%v",
		roomID, sid, nickname, ev.Spectator)
}

func (h *connHandler) onUpdate(raw []byte) {
	if h.room == nil {
		return
	}
	var ev UpdateEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return
	}
	h.room.UpdateSession(h.sid, ev)
}

func (h *connHandler) onAttack(raw []byte) {
	if h.room == nil {
		return
	}
	var ev AttackEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.EnemyID == nil {
		return
	}
	h.room.Attack(h.sid, EnemyID(*ev.EnemyID), ev.Damage)
}

func (h *connHandler) onDirectDamage(raw []byte) {
	if h.room == nil {
		return
	}
	var ev DirectDamageEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.TargetID == "" {
		return
	}
	h.room.DirectDamage(h.sid, SessionID(ev.TargetID), ev.Damage)
}

func (h *connHandler) onToggleFriendlyFire(raw []byte) {
	if h.room == nil {
		return
	}
	var ev ToggleFriendlyFireEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return
	}
	h.room.ToggleFriendlyFire(h.sid, ev.Enabled)
}

func (h *connHandler) onChat(raw []byte) {
	if h.room == nil {
		return
	}
	var ev ChatEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return
	}
	h.room.Chat(h.sid, ev.Text)
}

// HandleClose 连接断开：移除会话；房间清空则销毁，否则通告离开
// 其余会话状态不受影响，死连接只带走它自己
func (h *connHandler) HandleClose() {
	if h.room == nil {
		return
	}
	if h.room.RemoveSession(h.sid) {
		h.mgr.Remove(h.room.ID)
	} else {
		h.room.BroadcastAll(PeerLeftMsg{Type: MsgPeerLeft, ID: string(h.sid)})
	}
	Log.Infof("session left: room=%s id=%s", h.room.ID, h.sid)
	h.room = nil
}
