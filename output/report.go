// 月度统计：由世界、银行与财政状态计算宏观指标，并写入日志、MongoDB或SQLite
package output

import (
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/funds"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/market/housing"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/stats"
)

var log = logrus.WithField("module", "output")

// 房租占持久收入低于该比例视为可负担
const affordableRentRatio = .3

// Report 月度统计报告
type Report struct {
	Run   string    `bson:"run" db:"run"`
	Tag   string    `bson:"tag" db:"tag"`
	Date  time.Time `bson:"date" db:"date"`
	Month int       `bson:"month" db:"month"` // 月份序号

	Price          float64 `bson:"price" db:"price"`
	Inflation      float64 `bson:"inflation" db:"inflation"`
	GDP            float64 `bson:"gdp" db:"gdp"`
	GDPGrowth      float64 `bson:"gdp_growth" db:"gdp_growth"` // 百分比
	Unemployment   float64 `bson:"unemployment" db:"unemployment"`
	AverageWorkers float64 `bson:"average_workers" db:"average_workers"`

	FamiliesWealth  float64 `bson:"families_wealth" db:"families_wealth"`
	FamiliesSavings float64 `bson:"families_savings" db:"families_savings"`
	MedianWealth    float64 `bson:"median_wealth" db:"median_wealth"`
	Gini            float64 `bson:"gini" db:"gini"`
	FirmsWealth     float64 `bson:"firms_wealth" db:"firms_wealth"`
	FirmsProfit     float64 `bson:"firms_profit" db:"firms_profit"`
	QLI             float64 `bson:"qli" db:"qli"`
	Commute         float64 `bson:"commute" db:"commute"`

	Vacancy        float64 `bson:"vacancy" db:"vacancy"`
	HousePrice     float64 `bson:"house_price" db:"house_price"`
	RentPrice      float64 `bson:"rent_price" db:"rent_price"`
	AffordableRent float64 `bson:"affordable_rent" db:"affordable_rent"`
	RentDefault    float64 `bson:"rent_default" db:"rent_default"`

	BankBalance  float64 `bson:"bank_balance" db:"bank_balance"`
	Deposits     float64 `bson:"deposits" db:"deposits"`
	ActiveLoans  int     `bson:"active_loans" db:"active_loans"`
	LoanMin      float64 `bson:"loan_min" db:"loan_min"`
	LoanMax      float64 `bson:"loan_max" db:"loan_max"`
	LoanMean     float64 `bson:"loan_mean" db:"loan_mean"`
	MortgageRate float64 `bson:"mortgage_rate" db:"mortgage_rate"`

	FamiliesSubsided   int     `bson:"families_subsided" db:"families_subsided"`
	MoneyAppliedPolicy float64 `bson:"money_applied_policy" db:"money_applied_policy"`
	Equally            float64 `bson:"equally" db:"equally"`
	Locally            float64 `bson:"locally" db:"locally"`
	FPM                float64 `bson:"fpm" db:"fpm"`
}

// Stats 月度统计计算器
// 说明：通胀率依赖上月平均价格，因此计算器在一次运行内保持状态
type Stats struct {
	Run string
	Tag string

	previousPrice float64
}

// NewStats 创建统计计算器
func NewStats(run, tag string) *Stats {
	return &Stats{Run: run, Tag: tag}
}

// Compute 计算本月统计
// 参数：w-世界，bank-央行，fund-市政财政，now-当前日期，month-月份序号
// 返回：月度统计报告
// 说明：同时刷新各区域GDP（区域内企业营收之和），GDP增长率相对上月区域GDP之和
func (s *Stats) Compute(w *entity.World, bank *ecosim.Central, fund *funds.Funds, now time.Time, month int) Report {
	r := Report{Run: s.Run, Tag: s.Tag, Date: now, Month: month}

	r.Price, r.Inflation = s.price(w.Firms.Values())
	r.GDP, r.GDPGrowth = regionGDP(w)
	r.Unemployment = w.Unemployment()
	if n := w.Firms.Len(); n > 0 {
		r.AverageWorkers = float64(lo.SumBy(w.Firms.Values(), func(f *entity.Firm) int { return f.NumEmployees() })) / float64(n)
	}

	families := w.Families.Values()
	incomes := lo.Map(families, func(f *entity.Family, _ int) float64 { return f.LastPermanentIncome })
	wealth := lo.Map(families, func(f *entity.Family, _ int) float64 { return w.FamilyWealth(f, bank) })
	r.FamiliesWealth = lo.Sum(wealth)
	r.FamiliesSavings = lo.SumBy(families, func(f *entity.Family) float64 { return f.Savings })
	r.MedianWealth = stats.Median(wealth)
	r.Gini = stats.Gini(incomes)
	r.FirmsWealth = lo.SumBy(w.Firms.Values(), func(f *entity.Firm) float64 { return f.TotalBalance })
	r.FirmsProfit = lo.SumBy(w.Firms.Values(), func(f *entity.Firm) float64 { return f.Profit })
	r.QLI = AverageQLI(w)
	r.Commute = Commute(w)

	r.Vacancy = w.Vacancy()
	r.HousePrice = housing.MeanPrice(w.Houses.Values())
	r.RentPrice = stats.Mean(housing.Rents(w))
	r.AffordableRent, r.RentDefault = rentShares(w)

	r.BankBalance = bank.Balance
	r.Deposits = bank.TotalDeposits()
	r.ActiveLoans = len(bank.ActiveLoans())
	r.LoanMin, r.LoanMax, r.LoanMean = bank.LoanStats()
	r.MortgageRate = bank.MortgageRate

	r.FamiliesSubsided = fund.FamiliesSubsided
	r.MoneyAppliedPolicy = fund.MoneyAppliedPolicy
	for _, region := range w.Regions.Values() {
		r.Equally += region.AppliedTreasure[funds.KeyEqually]
		r.Locally += region.AppliedTreasure[funds.KeyLocally]
		r.FPM += region.AppliedTreasure[funds.KeyFPM]
	}
	return r
}

// price 平均价格与月度通胀
// 说明：只统计有库存且有员工的企业；上月平均价格为0时通胀记为0
func (s *Stats) price(firms []*entity.Firm) (float64, float64) {
	prices := lo.FilterMap(firms, func(f *entity.Firm, _ int) (float64, bool) {
		ok := f.Inventory != nil && f.Inventory.Quantity > 0 && f.NumEmployees() > 0
		if !ok {
			return 0, false
		}
		return f.Inventory.Price, true
	})
	avg := stats.Mean(prices)
	inflation := 0.
	if s.previousPrice != 0 {
		inflation = (avg - s.previousPrice) / s.previousPrice
	}
	s.previousPrice = avg
	return avg, inflation
}

// regionGDP 刷新区域GDP并返回合计与增长率（%）
// 说明：本月GDP为0时增长率记为1，与历史输出保持一致
func regionGDP(w *entity.World) (float64, float64) {
	revenue := make(map[entity.RegionID]float64, w.Regions.Len())
	for _, f := range w.Firms.Values() {
		revenue[f.RegionID] += f.Revenue
	}
	gdp, previous := 0., 0.
	for _, r := range w.Regions.Values() {
		previous += r.GDP
		r.GDP = revenue[r.ID]
		gdp += r.GDP
	}
	if gdp == 0 {
		return 0, 1
	}
	return gdp, (gdp - previous) / gdp * 100
}

// AverageQLI 各市QLI均值的平均
func AverageQLI(w *entity.World) float64 {
	groups := lo.GroupBy(w.Regions.Values(), func(r *entity.Region) string { return r.ID.Municipality() })
	if len(groups) == 0 {
		return 0
	}
	total := 0.
	for _, mun := range w.Municipalities() {
		regions := groups[mun]
		total += lo.SumBy(regions, func(r *entity.Region) float64 { return r.Index }) / float64(len(regions))
	}
	return total / float64(len(groups))
}

// Commute 就业者通勤距离合计
func Commute(w *entity.World) float64 {
	return lo.SumBy(w.Agents.Values(), func(a *entity.Agent) float64 {
		if !a.IsEmployed() {
			return 0
		}
		return a.Distance
	})
}

// rentShares 租房家庭中可负担与拖欠的比例
func rentShares(w *entity.World) (affordable, defaulted float64) {
	renting, ok, bad := 0, 0, 0
	for _, f := range w.Families.Values() {
		h, found := w.ResidenceOf(f)
		if !found || !h.IsRented() {
			continue
		}
		renting++
		if pi := f.LastPermanentIncome; pi != 0 && h.RentData.Monthly/pi < affordableRentRatio {
			ok++
		}
		if f.RentDefault {
			bad++
		}
	}
	if renting == 0 {
		return 0, 0
	}
	return float64(ok) / float64(renting), float64(bad) / float64(renting)
}
