package entity

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/container"
)

// World 仿真中所有实体的注册表
// 功能：保存区域、房屋、企业、家庭、个体，维护实体间基于ID的交叉引用
// 说明：所有注册表按插入顺序遍历，保证同一种子下的确定性
type World struct {
	Agents   *container.Registry[AgentID, *Agent]
	Families *container.Registry[FamilyID, *Family]
	Houses   *container.Registry[HouseID, *House]
	Firms    *container.Registry[FirmID, *Firm]
	Regions  *container.Registry[RegionID, *Region]
	Grave    []*Agent

	nextAgent  AgentID
	nextFamily FamilyID
	nextHouse  HouseID
	nextFirm   FirmID
}

// NewWorld 创建空世界
func NewWorld() *World {
	return &World{
		Agents:   container.NewRegistry[AgentID, *Agent](),
		Families: container.NewRegistry[FamilyID, *Family](),
		Houses:   container.NewRegistry[HouseID, *House](),
		Firms:    container.NewRegistry[FirmID, *Firm](),
		Regions:  container.NewRegistry[RegionID, *Region](),
		Grave:    make([]*Agent, 0),
	}
}

// NewAgentID 分配个体ID（从1开始）
func (w *World) NewAgentID() AgentID {
	w.nextAgent++
	return w.nextAgent
}

// NewFamilyID 分配家庭ID
func (w *World) NewFamilyID() FamilyID {
	w.nextFamily++
	return w.nextFamily
}

// NewHouseID 分配房屋ID
func (w *World) NewHouseID() HouseID {
	w.nextHouse++
	return w.nextHouse
}

// NewFirmID 分配企业ID
func (w *World) NewFirmID() FirmID {
	w.nextFirm++
	return w.nextFirm
}

// AddRegion 加入区域
func (w *World) AddRegion(r *Region) {
	w.Regions.Put(r.ID, r)
}

// AddHouse 加入房屋，同步所有者的持有列表
func (w *World) AddHouse(h *House) {
	w.Houses.Put(h.ID, h)
	if id, ok := h.FamilyOwner(); ok {
		w.MustFamily(id).addOwned(h.ID)
	}
}

// AddFirm 加入企业
func (w *World) AddFirm(f *Firm) {
	w.Firms.Put(f.ID, f)
}

// AddFamily 加入家庭及其成员
func (w *World) AddFamily(f *Family) {
	w.Families.Put(f.ID, f)
	for _, a := range f.Members.Values() {
		w.Agents.Put(a.ID, a)
	}
}

// AddMember 将个体加入家庭
func (w *World) AddMember(f *Family, a *Agent) {
	f.AddAgent(a)
	w.Agents.Put(a.ID, a)
}

// MustFamily 获取家庭，不存在时panic
func (w *World) MustFamily(id FamilyID) *Family {
	f, ok := w.Families.Get(id)
	if !ok {
		log.Panicf("family %d not found", id)
	}
	return f
}

// MustHouse 获取房屋，不存在时panic
func (w *World) MustHouse(id HouseID) *House {
	h, ok := w.Houses.Get(id)
	if !ok {
		log.Panicf("house %d not found", id)
	}
	return h
}

// MustFirm 获取企业，不存在时panic
func (w *World) MustFirm(id FirmID) *Firm {
	f, ok := w.Firms.Get(id)
	if !ok {
		log.Panicf("firm %d not found", id)
	}
	return f
}

// MustRegion 获取区域，不存在时panic
func (w *World) MustRegion(id RegionID) *Region {
	r, ok := w.Regions.Get(id)
	if !ok {
		log.Panicf("region %s not found", id)
	}
	return r
}

// ResidenceOf 家庭当前住所
func (w *World) ResidenceOf(f *Family) (*House, bool) {
	if f.House == NoHouse {
		return nil, false
	}
	return w.Houses.Get(f.House)
}

// IsRenting 家庭是否租房居住
func (w *World) IsRenting(f *Family) bool {
	h, ok := w.ResidenceOf(f)
	return ok && h.IsRented()
}

// FamilyRegion 家庭所在区域，无住所时返回空
func (w *World) FamilyRegion(f *Family) RegionID {
	if h, ok := w.ResidenceOf(f); ok {
		return h.RegionID
	}
	return ""
}

// OwnedHouses 家庭拥有的房屋
func (w *World) OwnedHouses(f *Family) []*House {
	return lo.Map(f.OwnedHouses, func(id HouseID, _ int) *House { return w.MustHouse(id) })
}

// MoveOut 家庭搬出当前住所
func (w *World) MoveOut(f *Family) {
	if h, ok := w.ResidenceOf(f); ok {
		h.Empty()
	}
	f.House = NoHouse
}

// MoveIn 家庭搬入房屋，先搬出原住所
// 说明：房屋已有其他住户时panic，保证一个房屋至多一个住户
func (w *World) MoveIn(f *Family, h *House) {
	if h.IsOccupied() && h.FamilyID != f.ID {
		log.Panicf("house %d already occupied by family %d, cannot move in family %d", h.ID, h.FamilyID, f.ID)
	}
	if f.House != h.ID {
		w.MoveOut(f)
	}
	h.FamilyID = f.ID
	h.OnMarket = 0
	f.House = h.ID
}

// TransferHouse 转移房屋所有权，同步新旧所有者的持有列表
// 说明：新所有者正是住户时租约终止
func (w *World) TransferHouse(h *House, ownerType OwnerType, ownerID int32) {
	switch h.OwnerType {
	case OwnerFamily:
		if f, ok := w.Families.Get(FamilyID(h.OwnerID)); ok {
			f.removeOwned(h.ID)
		}
	case OwnerFirm:
		if f, ok := w.Firms.Get(FirmID(h.OwnerID)); ok {
			f.SoldHouse(h.ID)
		}
	}
	h.OwnerType = ownerType
	h.OwnerID = ownerID
	if ownerType == OwnerFamily {
		w.MustFamily(FamilyID(ownerID)).addOwned(h.ID)
		if h.FamilyID == FamilyID(ownerID) {
			h.RentData = nil
		}
	}
}

// FamilyWealth 家庭财富：现金+储蓄+存款+房产-贷款余额
func (w *World) FamilyWealth(f *Family, ledger Ledger) float64 {
	houses := lo.SumBy(w.OwnedHouses(f), func(h *House) float64 { return h.Price })
	return f.TotalBalance() + ledger.SumDeposits(f.ID) + houses - ledger.LoanBalance(f.ID)
}

// Unemployment 失业率：可就业未就业者 / (可就业未就业者 + 就业者)
func (w *World) Unemployment() float64 {
	employed, unemployed := 0, 0
	for _, a := range w.Agents.Values() {
		if a.IsEmployed() {
			employed++
		} else if a.IsEmployable() {
			unemployed++
		}
	}
	if employed+unemployed == 0 {
		return 0
	}
	return float64(unemployed) / float64(employed+unemployed)
}

// Vacancy 空置率
func (w *World) Vacancy() float64 {
	if w.Houses.Len() == 0 {
		return 0
	}
	n := lo.CountBy(w.Houses.Values(), func(h *House) bool { return !h.IsOccupied() })
	return float64(n) / float64(w.Houses.Len())
}

// Municipalities 所有市代码，按区域加入顺序
func (w *World) Municipalities() []string {
	return lo.Uniq(lo.Map(w.Regions.Values(), func(r *Region, _ int) string { return r.ID.Municipality() }))
}

// RegionPops 按住所统计各区域人口
func (w *World) RegionPops() map[RegionID]int {
	pops := make(map[RegionID]int, w.Regions.Len())
	for _, r := range w.Regions.Values() {
		pops[r.ID] = 0
	}
	for _, f := range w.Families.Values() {
		if id := w.FamilyRegion(f); id != "" {
			pops[id] += f.NumMembers()
		}
	}
	return pops
}

// MunicipalityPops 按住所统计各市人口
func (w *World) MunicipalityPops(regionPops map[RegionID]int) map[string]int {
	pops := make(map[string]int)
	for id, n := range regionPops {
		pops[id.Municipality()] += n
	}
	return pops
}

// ConsumerFirms 消费品企业
func (w *World) ConsumerFirms() []*Firm {
	return lo.Filter(w.Firms.Values(), func(f *Firm, _ int) bool { return f.Kind == Consumer })
}

// ConstructionFirms 建筑企业
func (w *World) ConstructionFirms() []*Firm {
	return lo.Filter(w.Firms.Values(), func(f *Firm, _ int) bool { return f.Kind == Construction })
}

// Bury 个体死亡：离开家庭与企业，移入墓地
// 返回：个体所在的家庭（可能已无成员）
func (w *World) Bury(a *Agent) *Family {
	if a.IsEmployed() {
		if firm, ok := w.Firms.Get(a.FirmID); ok {
			firm.Obit(a.ID)
		}
		a.FirmID = NoFirm
	}
	var f *Family
	if a.FamilyID != NoFamily {
		f, _ = w.Families.Get(a.FamilyID)
		if f != nil {
			// 个人现金归家庭
			f.Savings += a.GrabMoney()
			f.RemoveAgent(a.ID)
		}
	}
	w.Agents.Delete(a.ID)
	w.Grave = append(w.Grave, a)
	return f
}

// RemoveFamily 从注册表移除家庭（调用前应已处理房屋与资产）
func (w *World) RemoveFamily(f *Family) {
	w.MoveOut(f)
	w.Families.Delete(f.ID)
}
