package server

// EnemyID 房间内单调递增的敌人标识
type EnemyID int64

// Archetype 敌人模板名
type Archetype string

const (
	ArchNormal Archetype = "normal"
	ArchSpeed  Archetype = "speed"
	ArchHeavy  Archetype = "heavy"
	ArchScout  Archetype = "scout"
)

// archetypeStats 敌人模板：基础生命、每 Tick 移速、接触伤害、击杀奖励与展示色
type archetypeStats struct {
	HP     float64
	Speed  float64
	Power  float64
	Reward int
	Color  string
}

// archetypeTable 固定模板表；数值是协议与行为兼容的一部分，勿调整
var archetypeTable = map[Archetype]archetypeStats{
	ArchNormal: {HP: 2, Speed: 0.03, Power: 3, Reward: 100, Color: "blue"},
	ArchSpeed:  {HP: 0.5, Speed: 0.13, Power: 3, Reward: 150, Color: "green"},
	ArchHeavy:  {HP: 4, Speed: 0.01, Power: 8, Reward: 500, Color: "#9370DB"},
	ArchScout:  {HP: 2, Speed: 0.03, Power: 5, Reward: 250, Color: "lightblue"},
}

// archetypeOrder 按波次解锁顺序排列：波次越高可生成的模板越多
var archetypeOrder = []Archetype{ArchNormal, ArchSpeed, ArchHeavy, ArchScout}

// statsFor 按模板名取数据，未知模板回退到 normal
func statsFor(t Archetype) archetypeStats {
	if st, ok := archetypeTable[t]; ok {
		return st
	}
	return archetypeTable[ArchNormal]
}

// Enemy 房间内的敌人实体，由房间敌人集合独占持有
type Enemy struct {
	ID     EnemyID
	X, Y   float64
	Type   Archetype
	HP     float64
	Speed  float64
	Power  float64
	Reward int
}

// NewEnemy 按模板创建敌人；未知模板名回退到 normal
func NewEnemy(id EnemyID, x, y float64, t Archetype) *Enemy {
	st := statsFor(t)
	return &Enemy{
		ID:     id,
		X:      x,
		Y:      y,
		Type:   t,
		HP:     st.HP,
		Speed:  st.Speed,
		Power:  st.Power,
		Reward: st.Reward,
	}
}

// ApplyDamage 扣减生命并报告是否死亡（hp <= 0）
// 只改生命值；奖励结算与移除由调用方负责
func (e *Enemy) ApplyDamage(amount float64) bool {
	e.HP -= amount
	return e.HP <= 0
}

// Color 按模板返回展示色（纯展示用途）
func (e *Enemy) Color() string {
	return statsFor(e.Type).Color
}

// clampPosition 任何位置变更后统一调用，保证坐标不越界
func (e *Enemy) clampPosition() {
	e.X = clampCoord(e.X)
	e.Y = clampCoord(e.Y)
}
