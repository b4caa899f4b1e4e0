package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/clock"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/demography"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/funds"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/generator"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/market/construction"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/market/goods"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/market/housing"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/market/labor"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/output"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/input"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

var log = logrus.WithField("module", "task")

// Demographics 人口动态模块
// 功能：每月在市场运行前更新个体与家庭（出生、死亡、家庭解散）
// 说明：实现需保证每个存活个体恰属于一个家庭，每个有住户的房屋恰有一个家庭
type Demographics interface {
	Step(now time.Time) demography.Result
}

// Context 一次仿真运行的上下文
// 功能：持有一次运行的全部可变状态，不同运行之间不共享任何对象
// 说明：月度步骤严格按固定顺序单线程执行，全部随机性来自同一个随机数引擎
type Context struct {
	// 运行标识
	id string
	// 带有运行标识的日志记录器
	log *logrus.Entry
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock
	// 运行时配置
	runtimeConfig *config.RuntimeConfig
	// 本次运行的参数拷贝
	p config.Params
	// 随机数引擎
	rng *randengine.Engine

	w            *entity.World
	bank         *ecosim.Central
	labor        *labor.Market
	goods        *goods.Market
	housing      *housing.Market
	builder      *construction.Builder
	funds        *funds.Funds
	demographics Demographics

	// 上月失业率，用于工资与预期工资
	unemployment float64

	stats *output.Stats
	sinks []output.Sink

	// 最近一次月度统计，供RPC读取
	mu     sync.RWMutex
	last   output.Report
	months int
}

// NewContext 创建仿真运行上下文
// 功能：生成初始世界并创建全部市场
// 参数：rc-运行时配置，in-输入数据，sinks-月度统计输出
// 返回：运行上下文，生成失败时返回错误
// 算法说明：
// 1. 分配运行标识，按运行种子创建随机数引擎
// 2. 用生成器生成区域、个体、家庭、房屋与企业
// 3. 创建银行、劳动力、消费品、房地产与建筑市场，以及财政与人口动态
func NewContext(rc *config.RuntimeConfig, in *input.Input, sinks []output.Sink) (*Context, error) {
	id := uuid.NewString()
	ctx := &Context{
		id:            id,
		log:           log.WithFields(logrus.Fields{"run": id, "tag": rc.Tag}),
		clock:         clock.New(rc.Start, rc.C.TotalDays),
		runtimeConfig: rc,
		p:             rc.P,
		rng:           randengine.New(rc.Seed),
		unemployment:  rc.P.StartingUnemployment,
		stats:         output.NewStats(id, rc.Tag),
		sinks:         sinks,
	}
	ctx.bank = ecosim.NewCentral(ctx.p)
	var regions []input.Region
	if in != nil {
		regions = in.Regions
	}
	gen := generator.New(rc.All.Input.Population, &ctx.p, ctx.rng, int64(rc.Seed))
	w, err := gen.Generate(regions, ctx.bank, ctx.clock.Start)
	if err != nil {
		return nil, fmt.Errorf("generate population: %w", err)
	}
	ctx.w = w
	ctx.labor = labor.New(w, ctx.rng, &ctx.p)
	ctx.goods = goods.New(w, ctx.rng, &ctx.p)
	ctx.housing = housing.New(w, ctx.bank, ctx.rng, &ctx.p)
	ctx.builder = construction.New(w, ctx.rng, &ctx.p)
	ctx.funds = funds.New(w, &ctx.p, rc.All.Input.FPM)
	ctx.demographics = demography.New(w, ctx.bank, ctx.rng, &ctx.p)
	return ctx, nil
}

// ID 运行标识
func (ctx *Context) ID() string {
	return ctx.id
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) World() *entity.World {
	return ctx.w
}

func (ctx *Context) Bank() *ecosim.Central {
	return ctx.bank
}

func (ctx *Context) Funds() *funds.Funds {
	return ctx.funds
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

// SetDemographics 替换人口动态模块
func (ctx *Context) SetDemographics(d Demographics) {
	ctx.demographics = d
}

// LastReport 最近一次月度统计与已完成的月数
func (ctx *Context) LastReport() (output.Report, int) {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.last, ctx.months
}

// Init 初始化
// 功能：时钟归零，劳动力市场预热到STARTING_UNEMPLOYMENT
func (ctx *Context) Init() {
	ctx.clock.Init()
	rounds := ctx.labor.WarmUp(ctx.p.StartingUnemployment)
	ctx.unemployment = ctx.w.Unemployment()
	ctx.log.Infof("initialized %d families, %d firms, labor warm-up %d rounds, unemployment %.3f",
		ctx.w.Families.Len(), ctx.w.Firms.Len(), rounds, ctx.unemployment)
}

// Close 发送关闭指令，运行在当天结束后停止
func (ctx *Context) Close() {
	ctx.closed.Store(true)
}

// Closed 是否已收到关闭指令
func (ctx *Context) Closed() bool {
	return ctx.closed.Load()
}

// write 将月度统计写入全部输出
func (ctx *Context) write(c context.Context, r output.Report) error {
	for _, s := range ctx.sinks {
		if err := s.Write(c, r); err != nil {
			return fmt.Errorf("run %s: %w", ctx.id, err)
		}
	}
	return nil
}

// CloseSinks 关闭全部输出
func (ctx *Context) CloseSinks() {
	output.CloseAll(ctx.sinks)
}
