// 合成人口生成器：区域、个体、家庭、房屋与企业的初始状态
package generator

import (
	"fmt"
	"math"
	"time"

	"git.fiblab.net/general/common/v2/geometry"
	opensimplex "github.com/ojrac/opensimplex-go"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/market/housing"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/input"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

var log = logrus.WithField("module", "generator")

const (
	cellSize         = 10. // 合成网格区域边长
	noiseScale       = 25. // QLI噪声的空间尺度
	minIndex         = .6  // 合成QLI下限
	indexRange       = .25 // 合成QLI变化幅度
	maxAge           = 86  // 初始年龄上限（不含）
	adultAge         = 21  // 家庭户主的最低年龄
	maxQualification = 20  // 受教育年限上限
	relativeProb     = .5  // 相邻家庭互为亲属的概率
	firmBalanceScale = 1e5 // 企业初始资金尺度
	municipalityBase = 3100000
)

// Generator 合成人口生成器
// 功能：在没有人口普查数据时生成一致的初始世界
// 说明：所有随机性来自传入的随机数引擎，同一种子结果确定
type Generator struct {
	pop   config.Population
	p     *config.Params
	rng   *randengine.Engine
	noise opensimplex.Noise
}

// New 创建生成器
// 参数：pop-人口规模，p-模型参数，rng-随机数引擎，seed-QLI噪声种子
func New(pop config.Population, p *config.Params, rng *randengine.Engine, seed int64) *Generator {
	return &Generator{pop: pop, p: p, rng: rng, noise: opensimplex.NewNormalized(seed)}
}

// Generate 生成初始世界
// 功能：生成区域、个体、家庭、房屋与企业，并完成初始住房分配
// 参数：regions-外部区域数据（为空时按网格合成），bank-央行，start-仿真开始日期
// 返回：初始世界
// 算法说明：
// 1. 区域来自输入数据或合成网格，QLI缺失时由噪声场生成
// 2. 按区域权重分配个体，区域内组成家庭并生成(1+HOUSE_VACANCY)倍的房屋
// 3. (1-RENTAL_SHARE)的家庭购房自住，剩余房屋随机归属于购房家庭
// 4. 其余家庭通过租房市场租住空置房屋
// 5. 按区域权重生成消费品企业与建筑企业
func (g *Generator) Generate(regions []input.Region, bank *ecosim.Central, start time.Time) (*entity.World, error) {
	if g.pop.Agents <= 0 {
		return nil, fmt.Errorf("population must have agents, got %d", g.pop.Agents)
	}
	w := entity.NewWorld()
	if len(regions) == 0 {
		regions = g.grid()
	}
	weights := make([]float64, len(regions))
	for i, in := range regions {
		index := in.Index
		if index == 0 {
			index = g.qli(in.Envelope)
		}
		w.AddRegion(entity.NewRegion(entity.RegionID(in.ID), [2]geometry.Point{
			{X: in.Envelope[0], Y: in.Envelope[1]},
			{X: in.Envelope[2], Y: in.Envelope[3]},
		}, index))
		weights[i] = in.Weight
		if weights[i] == 0 {
			weights[i] = 1
		}
	}

	bank.SetInterest(g.p.InterestRate, g.p.MortgageRate)
	market := housing.New(w, bank, g.rng, g.p)
	counts := apportion(g.pop.Agents, weights)
	for i, r := range w.Regions.Values() {
		g.populate(w, market, r, counts[i], start)
	}

	g.firms(w, entity.Consumer, g.pop.ConsumerFirms, weights)
	g.firms(w, entity.Construction, g.pop.ConstructionFirms, weights)

	for id, n := range w.RegionPops() {
		w.MustRegion(id).Pop = n
	}
	for _, f := range w.Families.Values() {
		f.UpdatePermanentIncome(w.FamilyWealth(f, bank), g.p.InterestRate)
	}
	log.Infof("generated %d regions, %d agents, %d families, %d houses, %d firms",
		w.Regions.Len(), w.Agents.Len(), w.Families.Len(), w.Houses.Len(), w.Firms.Len())
	return w, nil
}

// grid 合成网格区域
// 说明：区域按列优先排成近似正方形，第i个区域属于第i%Municipalities个市，
// 区域ID为7位市代码加3位加权区代码
func (g *Generator) grid() []input.Region {
	n := max(g.pop.Regions, 1)
	mun := max(min(g.pop.Municipalities, n), 1)
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	res := make([]input.Region, n)
	for i := range res {
		x, y := float64(i%cols)*cellSize, float64(i/cols)*cellSize
		res[i] = input.Region{
			ID:       fmt.Sprintf("%07d%03d", municipalityBase+i%mun, i/mun),
			Envelope: [4]float64{x, y, x + cellSize, y + cellSize},
		}
	}
	return res
}

// qli 外包矩形中心处的噪声值映射到QLI
func (g *Generator) qli(envelope [4]float64) float64 {
	cx, cy := (envelope[0]+envelope[2])/2, (envelope[1]+envelope[3])/2
	return minIndex + indexRange*g.noise.Eval2(cx/noiseScale, cy/noiseScale)
}

// apportion 按权重将total分成整数份，余数按最大余数法分配
func apportion(total int, weights []float64) []int {
	sum := lo.Sum(weights)
	res := make([]int, len(weights))
	rest := make([]float64, len(weights))
	assigned := 0
	for i, w := range weights {
		share := float64(total) * w / sum
		res[i] = int(share)
		rest[i] = share - float64(res[i])
		assigned += res[i]
	}
	for ; assigned < total; assigned++ {
		best := 0
		for i := range rest {
			if rest[i] > rest[best] {
				best = i
			}
		}
		res[best]++
		rest[best] = -1
	}
	return res
}

// agent 随机个体
// 说明：受教育年限~3·Gamma(3)取整，初始现金[50,100)
func (g *Generator) agent(w *entity.World, minAge int) *entity.Agent {
	gender := entity.Male
	if g.rng.PTrue(.5) {
		gender = entity.Female
	}
	return &entity.Agent{
		ID:            w.NewAgentID(),
		Gender:        gender,
		Age:           g.rng.RandRange(minAge, maxAge),
		BirthMonth:    g.rng.RandRange(1, 13),
		Qualification: min(int(3*g.rng.Gamma(3)), maxQualification),
		Money:         float64(g.rng.RandRange(50, 100)),
	}
}

// populate 生成区域内的家庭与房屋
// 算法说明：
// 1. 家庭数为人数/MEMBERS_PER_FAMILY，每个家庭先分配一名成年户主，其余个体随机加入
// 2. 房屋面积[20,120)，质量1-4，价格为面积×质量×QLI
// 3. 前(1-RENTAL_SHARE)的家庭各自购买并入住一套房屋，剩余房屋随机归属于购房家庭
// 4. 租房家庭按现金估计持久收入后进入租房市场
// 5. 相邻家庭以一定概率互为亲属
func (g *Generator) populate(w *entity.World, market *housing.Market, r *entity.Region, n int, start time.Time) {
	if n == 0 {
		return
	}
	numFamilies := max(int(float64(n)/g.p.MembersPerFamily), 1)
	families := make([]*entity.Family, numFamilies)
	for i := range families {
		families[i] = entity.NewFamily(w.NewFamilyID())
		families[i].AddAgent(g.agent(w, adultAge))
	}
	for i := numFamilies; i < n; i++ {
		f, _ := randengine.Choice(g.rng, families)
		f.AddAgent(g.agent(w, 0))
	}
	for _, f := range families {
		w.AddFamily(f)
	}

	numHouses := max(int(float64(numFamilies)*(1+g.p.HouseVacancy)), numFamilies)
	numOwners := int(float64(numFamilies) * (1 - g.p.RentalShare))
	owners, renters := families[:numOwners], families[numOwners:]
	houses := make([]*entity.House, numHouses)
	for i := range houses {
		h := &entity.House{
			ID:       w.NewHouseID(),
			Address:  r.RandomPoint(g.rng),
			Size:     float64(g.rng.RandRange(20, 120)),
			Quality:  g.rng.RandRange(1, 5),
			RegionID: r.ID,
		}
		h.Price = h.BasePrice(r.Index)
		var owner *entity.Family
		if i < numOwners {
			owner = owners[i]
		} else if len(owners) > 0 {
			owner, _ = randengine.Choice(g.rng, owners)
		} else {
			// 全部家庭租房时房屋归属于租房家庭之一，租房时不会租住自有房屋
			owner, _ = randengine.Choice(g.rng, renters)
		}
		h.OwnerType, h.OwnerID = entity.OwnerFamily, int32(owner.ID)
		w.AddHouse(h)
		houses[i] = h
		if i < numOwners {
			w.MoveIn(owner, h)
		}
	}
	for _, f := range renters {
		f.UpdatePermanentIncome(f.TotalBalance(), g.p.InterestRate)
	}
	market.RentalMarket(renters, houses[numOwners:], start)

	for i := 1; i < len(families); i++ {
		if g.rng.PTrue(relativeProb) {
			a, b := families[i-1], families[i]
			a.Relatives = append(a.Relatives, b.ID)
			b.Relatives = append(b.Relatives, a.ID)
		}
	}
}

// firms 按区域权重生成企业
// 说明：位置在所属区域内随机，初始资金~Beta(1.5,10)×1e5
func (g *Generator) firms(w *entity.World, kind entity.FirmKind, n int, weights []float64) {
	regions := w.Regions.Values()
	counts := apportion(n, weights)
	for i, r := range regions {
		for j := 0; j < counts[i]; j++ {
			f := entity.NewFirm(w.NewFirmID(), kind, r.RandomPoint(g.rng), g.rng.Beta(1.5, 10)*firmBalanceScale, r.ID)
			f.CreateProduct()
			w.AddFirm(f)
		}
	}
}
