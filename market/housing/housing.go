// 房地产市场：房价更新、买房与租房家庭的分流、议价与贷款购房、租金与房产税
package housing

import (
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

var log = logrus.WithField("module", "housing")

// Stats 本月房地产市场统计
type Stats struct {
	Looking     int // 进入市场的家庭
	Purchasers  int // 有购买力的家庭
	Renters     int // 转入租房市场的家庭
	Sold        int
	SoldValue   float64
	Rented      int
	Loans       int
	Rejections  map[ecosim.LoanDecision]int
	RentPaid    float64
	Defaults    int // 本月拖欠房租的家庭
	PropertyTax float64
}

// Market 房地产市场
// 功能：每月更新房价，撮合买房与租房，收取租金与房产税
// 说明：同一家庭每月至多买一套房，同一房屋每月至多成交一次
type Market struct {
	w    *entity.World
	bank *ecosim.Central
	rng  *randengine.Engine
	p    *config.Params

	Stats Stats
}

// New 创建房地产市场
func New(w *entity.World, bank *ecosim.Central, rng *randengine.Engine, p *config.Params) *Market {
	return &Market{w: w, bank: bank, rng: rng, p: p}
}

// looker 进入市场的家庭及其购买力
type looker struct {
	family          *entity.Family
	savings         float64 // 储蓄+存款
	loan            float64 // 可申请的最大贷款
	savingsWithLoan float64
}

// sampleLookers 抽取本月进入市场的家庭
// 说明：没有住所的家庭总是进入市场，没有成员的家庭不进入
func (m *Market) sampleLookers() []*looker {
	families := m.w.Families.Values()
	n := int(float64(len(families)) * m.p.PercentageEnteringEstateMarket)
	picked := make(map[entity.FamilyID]bool, n)
	res := make([]*looker, 0, n)
	add := func(f *entity.Family) {
		if picked[f.ID] || f.NumMembers() == 0 {
			return
		}
		picked[f.ID] = true
		savings := f.Savings + m.bank.SumDeposits(f.ID)
		loan, _ := m.bank.MaxLoan(f)
		res = append(res, &looker{family: f, savings: savings, loan: loan, savingsWithLoan: savings + loan})
	}
	for _, f := range randengine.Sample(m.rng, families, n) {
		add(f)
	}
	for _, f := range families {
		if f.House == entity.NoHouse {
			add(f)
		}
	}
	return res
}

// Run 本月房地产市场
// 功能：买卖与租赁撮合
// 参数：now-当前日期，month-当前月份序号（建筑企业现金流台账的键）
// 算法说明：
// 1. 无住所但拥有空置房屋的家庭搬入自己的房屋，然后更新房价，取得空置待售房屋
// 2. 抽取进入市场的家庭，按储蓄+存款+最大贷款降序稳定排序
// 3. 家庭所有的待售房屋中RENTAL_SHARE比例转入租房池
// 4. 购买力低于最低售价且不拥有住所的家庭转入租房市场
// 5. 有购买力的家庭依次议价，成交后办理过户与搬迁
// 6. 租房家庭在租房池中匹配，仍无住所的家庭在剩余空置房屋中匹配
func (m *Market) Run(now time.Time, month int) {
	m.Stats = Stats{Rejections: make(map[ecosim.LoanDecision]int)}
	m.settleOwners()
	forSale := m.UpdateForSale()
	lookers := m.sampleLookers()
	m.Stats.Looking = len(lookers)
	if len(lookers) == 0 || len(forSale) == 0 {
		log.Debugf("housing market idle: %d families, %d houses", len(lookers), len(forSale))
		return
	}
	slices.SortStableFunc(lookers, func(a, b *looker) int {
		switch {
		case a.savingsWithLoan > b.savingsWithLoan:
			return -1
		case a.savingsWithLoan < b.savingsWithLoan:
			return 1
		}
		return 0
	})

	// 租房池
	familyOwned := lo.Filter(forSale, func(h *entity.House, _ int) bool { return h.OwnerType == entity.OwnerFamily })
	toRent := randengine.Sample(m.rng, familyOwned, int(float64(len(familyOwned))*m.p.RentalShare))
	rentSet := lo.SliceToMap(toRent, func(h *entity.House) (entity.HouseID, bool) { return h.ID, true })
	onSale := lo.Filter(forSale, func(h *entity.House, _ int) bool { return !rentSet[h.ID] })

	renters := make([]*entity.Family, 0)
	if len(onSale) > 0 {
		minimum := lo.MinBy(onSale, func(a, b *entity.House) bool { return a.Price < b.Price }).Price
		vacancy := m.w.Vacancy()
		sold := make(map[entity.HouseID]bool)
		for _, l := range lookers {
			if l.savingsWithLoan < minimum {
				if !m.ownsResidence(l.family) {
					renters = append(renters, l.family)
				}
				continue
			}
			m.Stats.Purchasers++
			if h := m.negotiate(l, onSale, sold, vacancy, now, month); h != nil {
				sold[h.ID] = true
			} else if l.family.House == entity.NoHouse {
				renters = append(renters, l.family)
			}
		}
	} else {
		for _, l := range lookers {
			if !m.ownsResidence(l.family) {
				renters = append(renters, l.family)
			}
		}
	}
	m.Stats.Renters = len(renters)
	m.RentalMarket(renters, toRent, now)
	m.housePending(now)
	log.Debugf("housing market: %d looking, %d sold, %d rented", m.Stats.Looking, m.Stats.Sold, m.Stats.Rented)
}

// ownsResidence 家庭是否住在自己的房屋中
func (m *Market) ownsResidence(f *entity.Family) bool {
	return f.House != entity.NoHouse && f.Owns(f.House)
}

// settleOwners 无住所但拥有空置房屋的家庭搬入其中最便宜的一套
func (m *Market) settleOwners() {
	for _, f := range m.w.Families.Values() {
		if f.House != entity.NoHouse || f.NumMembers() == 0 {
			continue
		}
		vacant := lo.Filter(m.w.OwnedHouses(f), func(h *entity.House, _ int) bool { return !h.IsOccupied() })
		if len(vacant) == 0 {
			continue
		}
		m.w.MoveIn(f, lo.MinBy(vacant, func(a, b *entity.House) bool { return a.Price < b.Price }))
	}
}

// housePending 仍无住所的家庭先搬入自己的空置房屋，其余租住剩余的空置房屋
func (m *Market) housePending(now time.Time) {
	m.settleOwners()
	homeless := lo.Filter(m.w.Families.Values(), func(f *entity.Family, _ int) bool {
		return f.House == entity.NoHouse && f.NumMembers() > 0
	})
	if len(homeless) == 0 {
		return
	}
	vacant := lo.Filter(m.w.Houses.Values(), func(h *entity.House, _ int) bool { return !h.IsOccupied() })
	m.RentalMarket(homeless, vacant, now)
}

// decision 购房后的搬迁决策
// 功能：无就业成员且不住在最便宜的房屋时搬到最便宜的房屋；
// 住在最便宜的房屋且有就业成员时搬到最贵的房屋
// 返回：目标房屋，不搬迁时为nil
func (m *Market) decision(f *entity.Family) *entity.House {
	options := m.w.OwnedHouses(f)
	if len(options) < 2 {
		return nil
	}
	options = slices.Clone(options)
	slices.SortStableFunc(options, func(a, b *entity.House) int {
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
		return 0
	})
	employed := f.PropEmployed()
	cheapest, dearest := options[0], options[len(options)-1]
	if cheapest.FamilyID != f.ID && employed == 0 {
		return cheapest
	}
	if cheapest.FamilyID == f.ID && employed > 0 {
		return dearest
	}
	return nil
}

// MakeMove 家庭搬入房屋，目标房屋有其他住户时不搬迁
func (m *Market) MakeMove(f *entity.Family, h *entity.House) bool {
	if h.IsOccupied() && h.FamilyID != f.ID {
		return false
	}
	m.w.MoveIn(f, h)
	return true
}
