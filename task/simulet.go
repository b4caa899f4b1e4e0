package task

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/market/goods"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/market/housing"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/market/labor"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/metrics"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/output"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 12, "心跳日志间隔月数")
)

// firms 企业月度经营
// 功能：发放工资并缴纳劳动税，缴纳企业税，计算利润并调整价格
func (ctx *Context) firms(month int) {
	for _, f := range ctx.w.Firms.Values() {
		region := ctx.w.MustRegion(f.RegionID)
		f.MakePayment(region, ctx.unemployment, ctx.p.ProductivityExponent, ctx.p.TaxLabor, ctx.p.WageIgnoreUnemployment, month)
		f.PayTaxes(region, ctx.p.TaxFirm)
		f.CalculateProfit()
		f.UpdatePrices(ctx.p.StickyPrices, ctx.p.Markup, ctx.rng)
	}
}

// monthly 月度步骤，每月第一天执行一次
// 功能：按固定顺序运行全部市场与财政
// 返回：本月统计
// 算法说明：
// 1. 设置利率，发放建设许可，企业生产
// 2. 人口动态（年龄、出生、死亡、家庭解散）
// 3. 企业月初重置，家庭消费上月收入
// 4. 银行收取贷款月供
// 5. 企业发放工资、缴税、计算利润、调整价格
// 6. 建筑企业按空置率调整后的价格规划并建设房屋
// 7. 劳动力市场：求职、企业调整、按工资十分位匹配
// 8. 房地产市场、收租、房产税
// 9. 家庭更新持久收入并将多余储蓄存入银行
// 10. 银行利息税与区域税收再分配，执行扶贫政策
// 11. 根据违约概率更新贷款利率，生成月度统计
func (ctx *Context) monthly() output.Report {
	now := ctx.clock.Date()
	month := ctx.clock.MonthIndex()

	ctx.bank.SetInterest(ctx.p.InterestRate, ctx.bank.MortgageRate)
	licenses := ctx.builder.IssueLicenses()
	for _, f := range ctx.w.Firms.Values() {
		f.UpdateProductQuantity(ctx.p.ProductivityExponent, ctx.p.ProductivityMagnitudeDivisor)
	}

	demo := ctx.demographics.Step(now)

	for _, f := range ctx.w.Firms.Values() {
		f.StartMonth()
	}
	consumed := ctx.goods.Consume()
	ctx.bank.CollectLoanPayments(ctx.w, now)
	ctx.firms(month)

	vacancyValue := housing.VacancyValue(ctx.w.Vacancy(), &ctx.p)
	planned, built := ctx.builder.Step(vacancyValue)

	ctx.labor.LookForJobs()
	ctx.labor.HireFire(ctx.p.LaborMarket)
	hired := ctx.labor.AssignPost(ctx.unemployment, labor.WageDeciles(ctx.w, ctx.rng))

	ctx.housing.Run(now, month)
	ctx.housing.CollectRent(now)
	ctx.housing.PayPropertyTax()

	deposited := ctx.investFamilies(now)

	bankTaxes := ctx.bank.CollectTaxes()
	summary := ctx.funds.InvestTaxes(ctx.clock.Year(), bankTaxes)
	ctx.funds.ApplyPolicies(month, ctx.clock.ElapsedDays())

	ctx.bank.CalculateMonthlyMortgageRate(ctx.w)

	r := ctx.stats.Compute(ctx.w, ctx.bank, ctx.funds, now, month)
	ctx.unemployment = r.Unemployment
	ctx.log.Debugf(
		"%s: %d licenses, %d births, %d deaths, consumed %s, %d hired, %d planned, %d built, %d sold, %d rented, deposits +%s, taxes %s",
		ctx.clock, licenses, demo.Births, demo.Deaths, humanize.Commaf(consumed), len(hired), planned, built,
		ctx.housing.Stats.Sold, ctx.housing.Stats.Rented, humanize.Commaf(deposited), humanize.Commaf(summary.Collected),
	)
	return r
}

// investFamilies 家庭更新持久收入后存入多余储蓄
func (ctx *Context) investFamilies(now time.Time) float64 {
	goods.UpdatePermanentIncomes(ctx.w, ctx.bank)
	return goods.Invest(ctx.w, ctx.bank, &ctx.p, now)
}

// Run 运行
// 功能：按天推进时钟，每月第一天执行月度步骤并写出统计
// 参数：c-用于输出写入的上下文，取消后运行在当天结束时停止
// 返回：最后一次月度统计
// 说明：运行结束时若配置了快照目录则保存状态快照
func (ctx *Context) Run(c context.Context) (output.Report, error) {
	ctx.Init()
	var last output.Report
	for !ctx.clock.Finished() {
		if ctx.closed.Load() || c.Err() != nil {
			ctx.log.Warnf("run stopped at %s", ctx.clock)
			break
		}
		if ctx.clock.NewMonth() {
			begin := time.Now()
			last = ctx.monthly()
			metrics.MonthDuration.Observe(time.Since(begin).Seconds())
			metrics.RecordReport(last)
			if err := ctx.write(c, last); err != nil {
				return last, err
			}
			ctx.mu.Lock()
			ctx.last = last
			ctx.months++
			months := ctx.months
			ctx.mu.Unlock()
			if months%*heartBeatInterval == 0 {
				ctx.log.Infof("MONTH: %d (%s)", months, ctx.clock.Quarter())
			}
		}
		ctx.clock.Tick()
	}
	if dir := ctx.runtimeConfig.All.Output.Snapshot; dir != "" {
		path, err := output.SaveSnapshot(dir, ctx.w, ctx.bank, last)
		if err != nil {
			return last, fmt.Errorf("run %s: %w", ctx.id, err)
		}
		ctx.log.Infof("snapshot saved to %s", path)
	}
	ctx.log.Infof("engine complete after %d months", ctx.months)
	return last, nil
}
