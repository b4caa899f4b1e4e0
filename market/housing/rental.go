package housing

import (
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

// RentOf 房屋的月租金要价：价格×INITIAL_RENTAL_PRICE×空置率调整系数
func (m *Market) RentOf(h *entity.House, vacancy float64) float64 {
	return h.Price * m.p.InitialRentalPrice * VacancyValue(vacancy, m.p)
}

// RentalMarket 租房撮合
// 功能：租房家庭按储蓄降序，在租房池中选择房屋
// 参数：families-租房家庭，pool-可出租的房屋，now-租约开始日期
// 算法说明：
// 1. 每个家庭抽取SIZE_MARKET*3套空置且非本家庭所有的房屋
// 2. 在租金不超过持久收入的房屋中选择租金最高的一套
// 3. 没有可负担的房屋时租住最便宜的一套，租金按MAX_OFFER_DISCOUNT打折
func (m *Market) RentalMarket(families []*entity.Family, pool []*entity.House, now time.Time) {
	if len(families) == 0 || len(pool) == 0 {
		return
	}
	families = slices.Clone(families)
	slices.SortStableFunc(families, func(a, b *entity.Family) int {
		switch {
		case a.Savings > b.Savings:
			return -1
		case a.Savings < b.Savings:
			return 1
		}
		return 0
	})
	vacancy := m.w.Vacancy()
	for _, f := range families {
		available := lo.Filter(pool, func(h *entity.House, _ int) bool {
			return !h.IsOccupied() && !f.Owns(h.ID)
		})
		if len(available) == 0 {
			log.Debug("rental pool exhausted")
			return
		}
		sample := randengine.Sample(m.rng, available, m.p.SizeMarket*3)
		var chosen *entity.House
		var rent float64
		for _, h := range sample {
			r := m.RentOf(h, vacancy)
			if r <= f.LastPermanentIncome && (chosen == nil || r > rent) {
				chosen, rent = h, r
			}
		}
		if chosen == nil {
			chosen = lo.MinBy(sample, func(a, b *entity.House) bool { return a.Price < b.Price })
			rent = m.RentOf(chosen, vacancy) * m.p.MaxOfferDiscount
		}
		if !m.MakeMove(f, chosen) {
			continue
		}
		chosen.RentData = &entity.RentData{Monthly: rent, Start: now}
		m.Stats.Rented++
	}
}

// CollectRent 收取租金
// 功能：租户依次用现金、储蓄、存款支付房租，房东收入按TAX_LABOR缴税
// 算法说明：
// 1. 持有租金代付券的租户本月免付，代付金额已由市政预先支出，房东照常收租
// 2. 现金不足部分用储蓄，仍不足时取出全部存款，找零留在储蓄中
// 3. 支付为0时标记本月拖欠
// 4. 房东为家庭时平均分给成员，为企业时计入企业余额
func (m *Market) CollectRent(now time.Time) {
	m.Stats.RentPaid, m.Stats.Defaults = 0, 0
	for _, f := range m.w.Families.Values() {
		f.RentDefault = false
	}
	for _, h := range m.w.Houses.Values() {
		if h.RentData == nil || !h.IsOccupied() {
			continue
		}
		tenant := m.w.MustFamily(h.FamilyID)
		rent := h.RentData.Monthly
		var paid float64
		if tenant.RentVoucher > 0 {
			tenant.RentVoucher--
			paid = rent
		} else {
			paid = m.payRent(tenant, rent, now)
			if paid <= 0 && rent > 0 {
				tenant.RentDefault = true
				m.Stats.Defaults++
			}
		}
		if paid <= 0 {
			continue
		}
		taxes := paid * m.p.TaxLabor
		m.w.MustRegion(h.RegionID).CollectTaxes(taxes, entity.TaxLabor)
		switch h.OwnerType {
		case entity.OwnerFamily:
			if landlord, ok := m.w.Families.Get(entity.FamilyID(h.OwnerID)); ok {
				landlord.UpdateBalance(paid - taxes)
			}
		case entity.OwnerFirm:
			if landlord, ok := m.w.Firms.Get(entity.FirmID(h.OwnerID)); ok {
				landlord.TotalBalance += paid - taxes
			}
		}
		m.Stats.RentPaid += paid
	}
}

// payRent 租户支付租金，返回实际支付金额
func (m *Market) payRent(f *entity.Family, rent float64, now time.Time) float64 {
	paid := f.PayCash(rent)
	if rest := rent - paid; rest > 0 {
		if f.Savings < rest {
			f.Savings += m.bank.Withdraw(f.ID, now)
		}
		fromSavings := min(f.Savings, rest)
		f.Savings -= fromSavings
		paid += fromSavings
	}
	return paid
}

// PayPropertyTax 收取房产税
// 功能：每套房屋按年税率的1/12缴税，住户缴纳，空置时由所有者缴纳，余额不足时不缴
func (m *Market) PayPropertyTax() float64 {
	total := 0.
	for _, h := range m.w.Houses.Values() {
		tax := h.PropertyTax(m.p.TaxProperty)
		if tax <= 0 {
			continue
		}
		paid := false
		switch {
		case h.IsOccupied():
			if f, ok := m.w.Families.Get(h.FamilyID); ok && f.TotalBalance() > tax {
				paid = f.Pay(tax)
			}
		case h.OwnerType == entity.OwnerFamily:
			if f, ok := m.w.Families.Get(entity.FamilyID(h.OwnerID)); ok && f.TotalBalance() > tax {
				paid = f.Pay(tax)
			}
		default:
			if firm, ok := m.w.Firms.Get(entity.FirmID(h.OwnerID)); ok && firm.TotalBalance > tax {
				firm.TotalBalance -= tax
				paid = true
			}
		}
		if paid {
			m.w.MustRegion(h.RegionID).CollectTaxes(tax, entity.TaxProperty)
			total += tax
		}
	}
	m.Stats.PropertyTax = total
	return total
}

// Rents 出租中房屋的月租金
func Rents(w *entity.World) []float64 {
	return lo.FilterMap(w.Houses.Values(), func(h *entity.House, _ int) (float64, bool) {
		if h.RentData == nil {
			return 0, false
		}
		return h.RentData.Monthly, true
	})
}
