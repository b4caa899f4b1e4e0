// 消费品市场：家庭消费、储蓄投资与持久收入更新
package goods

import (
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

var log = logrus.WithField("module", "goods")

// 选择企业的策略
const (
	StrategyPrice    = "price"
	StrategyDistance = "distance"
)

// Market 消费品市场
type Market struct {
	w   *entity.World
	rng *randengine.Engine
	p   *config.Params

	strategies map[string]int // 本月各策略的选择次数
}

// New 创建消费品市场
func New(w *entity.World, rng *randengine.Engine, p *config.Params) *Market {
	return &Market{w: w, rng: rng, p: p, strategies: make(map[string]int)}
}

// Strategies 本月各选择策略的家庭数
func (m *Market) Strategies() map[string]int {
	return m.strategies
}

// Consume 所有家庭消费上月收入
// 返回：本月消费总额
func (m *Market) Consume() float64 {
	m.strategies = make(map[string]int)
	firms := lo.Filter(m.w.ConsumerFirms(), func(f *entity.Firm, _ int) bool { return f.Inventory != nil })
	total := 0.
	for _, f := range m.w.Families.Values() {
		total += m.ConsumeFamily(f, firms)
	}
	log.Debugf("families consumed %.2f", total)
	return total
}

// ConsumeFamily 单个家庭消费
// 功能：家庭取出全部成员现金，随机决定消费金额，在一家企业购买
// 参数：f-家庭，firms-可选企业
// 返回：实际消费金额
// 算法说明：
// 1. 现金小于1时消费金额~U(0,现金)，否则为现金×Beta(1,(1-BETA)/BETA)
// 2. 持久收入为正时消费金额不超过持久收入
// 3. 随机抽取SIZE_MARKET家企业，各有一半概率选最便宜或最近的一家
// 4. 购买后的找零与未消费部分转入家庭储蓄
func (m *Market) ConsumeFamily(f *entity.Family, firms []*entity.Firm) float64 {
	money := f.GrabMoney()
	if money <= 0 {
		return 0
	}
	var spend float64
	if money < 1 {
		spend = m.rng.Uniform(0, money)
	} else {
		spend = money * m.rng.Beta(1, (1-m.p.Beta)/m.p.Beta)
	}
	if f.LastPermanentIncome > 0 {
		spend = min(spend, f.LastPermanentIncome)
	}
	market := randengine.Sample(m.rng, firms, m.p.SizeMarket)
	if len(market) == 0 {
		f.Savings += money
		return 0
	}
	var chosen *entity.Firm
	h, hasHouse := m.w.ResidenceOf(f)
	if m.rng.Float64() < .5 || !hasHouse {
		m.strategies[StrategyPrice]++
		chosen = lo.MinBy(market, func(a, b *entity.Firm) bool { return a.Prices() < b.Prices() })
	} else {
		m.strategies[StrategyDistance]++
		chosen = lo.MinBy(market, func(a, b *entity.Firm) bool { return h.DistanceToFirm(a) < h.DistanceToFirm(b) })
	}
	change := chosen.Sale(spend, m.w.MustRegion(chosen.RegionID), m.p.TaxConsumption)
	spent := spend - change
	f.Savings += money - spent
	return spent
}

// UpdatePermanentIncomes 按当前财富与存款利率更新所有家庭的持久收入
func UpdatePermanentIncomes(w *entity.World, bank *ecosim.Central) {
	for _, f := range w.Families.Values() {
		f.UpdatePermanentIncome(w.FamilyWealth(f, bank), bank.Interest)
	}
}

// Invest 家庭将超过储备的储蓄存入银行
// 功能：储备为RESERVE_MONTHS个月的持久收入，超出部分按当日存入
// 返回：本月新增存款
func Invest(w *entity.World, bank *ecosim.Central, p *config.Params, now time.Time) float64 {
	total := 0.
	for _, f := range w.Families.Values() {
		reserve := max(f.LastPermanentIncome, 0) * p.ReserveMonths
		if f.Savings <= reserve {
			continue
		}
		amount := f.Savings - reserve
		f.Savings = reserve
		bank.Deposit(f.ID, amount, now)
		total += amount
	}
	return total
}
