package housing

import (
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

// negotiate 家庭在抽样的待售房屋中议价
// 功能：按价格从高到低逐套尝试，第一套满足任一规则的房屋成交
// 参数：l-家庭及购买力，onSale-待售房屋，sold-本月已成交的房屋，vacancy-空置率
// 返回：买到的房屋，未成交时为nil
// 算法说明：
// 1. 抽取SIZE_MARKET*3套未成交、非本家庭所有的房屋，按价格降序
// 2. 要价p = 价格×空置率调整系数，s = 储蓄+存款
// 3. 规则1：s > p 时现金成交，成交价 min(p*CAPPED_TOP_VALUE/2, (s+p)/2)
// 4. 规则2：s+最大贷款 > p 时申请贷款p-s，贷款价值比超过MAX_LOAN_TO_VALUE或银行拒绝则尝试下一套
// 5. 规则3：s不低于p×CAPPED_LOW_VALUE时，以空置率为概率按s成交
func (m *Market) negotiate(l *looker, onSale []*entity.House, sold map[entity.HouseID]bool, vacancy float64, now time.Time, month int) *entity.House {
	f := l.family
	available := lo.Filter(onSale, func(h *entity.House, _ int) bool {
		return !sold[h.ID] && !f.Owns(h.ID)
	})
	sample := randengine.Sample(m.rng, available, m.p.SizeMarket*3)
	slices.SortStableFunc(sample, func(a, b *entity.House) int {
		switch {
		case a.Price > b.Price:
			return -1
		case a.Price < b.Price:
			return 1
		}
		return 0
	})
	adjust := VacancyValue(vacancy, m.p)
	s := l.savings
	for _, h := range sample {
		p := h.Price * adjust
		switch {
		case s > p:
			price := min(p*m.p.CappedTopValue/2, (s+p)/2)
			m.purchase(f, h, price, 0, now, month)
			return h
		case s+l.loan > p:
			amount := p - s
			if p <= 0 || amount/p > m.p.MaxLoanToValue {
				continue
			}
			decision := m.bank.RequestLoan(f, h.ID, amount)
			if decision != ecosim.Accepted {
				m.Stats.Rejections[decision]++
				continue
			}
			m.Stats.Loans++
			m.purchase(f, h, p, amount, now, month)
			return h
		case s >= p*m.p.CappedLowValue:
			if m.rng.PTrue(vacancy) {
				m.purchase(f, h, s, 0, now, month)
				return h
			}
		}
	}
	return nil
}

// purchase 家庭支付房款
// 说明：贷款先计入储蓄，储蓄不足时取出全部存款
func (m *Market) purchase(f *entity.Family, h *entity.House, price, loan float64, now time.Time, month int) {
	f.Savings += loan
	if f.Savings < price {
		f.Savings += m.bank.Withdraw(f.ID, now)
	}
	paid := min(f.Savings, price)
	f.Savings -= paid
	m.NotarialProcedures(f, h, paid, month)
	m.Stats.Sold++
	m.Stats.SoldValue += paid
}

// NotarialProcedures 过户手续
// 功能：交易税交给房屋所在区域，卖方收款，转移所有权并触发搬迁
// 参数：buyer-买方，h-房屋，price-成交价，month-当前月份序号
// 算法说明：
// 1. 交易税 = 成交价×TAX_ESTATE_TRANSACTION
// 2. 卖方为家庭时平均分给成员，为建筑企业时按CONSTRUCTION_ACC_CASH_FLOW个月分期计入现金流
// 3. 所有权转给买方，在售月数清零
// 4. 买方无自有住所时搬入，否则按搬迁决策调整住所
func (m *Market) NotarialProcedures(buyer *entity.Family, h *entity.House, price float64, month int) {
	taxes := price * m.p.TaxEstateTransaction
	m.w.MustRegion(h.RegionID).CollectTaxes(taxes, entity.TaxTransaction)
	switch h.OwnerType {
	case entity.OwnerFamily:
		if seller, ok := m.w.Families.Get(entity.FamilyID(h.OwnerID)); ok {
			seller.UpdateBalance(price - taxes)
		}
	case entity.OwnerFirm:
		if seller, ok := m.w.Firms.Get(entity.FirmID(h.OwnerID)); ok {
			seller.UpdateBalance(price-taxes, m.p.ConstructionAccCashFlow, month)
		}
	}
	m.w.TransferHouse(h, entity.OwnerFamily, int32(buyer.ID))
	h.OnMarket = 0
	if !m.ownsResidence(buyer) {
		m.MakeMove(buyer, h)
		return
	}
	if dest := m.decision(buyer); dest != nil {
		m.MakeMove(buyer, dest)
	}
}
