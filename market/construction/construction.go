// 建筑市场：建设许可、建筑企业选址与建房
package construction

import (
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

var log = logrus.WithField("module", "construction")

const (
	minSize        = 20
	maxSize        = 120 // 不含
	sizeTolerance  = 10  // 可比房屋的面积差上限
	samplePerRange = 100 // 每个区域至多采样的可比房屋数
)

// Builder 建筑市场
type Builder struct {
	w   *entity.World
	rng *randengine.Engine
	p   *config.Params
}

// New 创建建筑市场
func New(w *entity.World, rng *randengine.Engine, p *config.Params) *Builder {
	return &Builder{w: w, rng: rng, p: p}
}

// IssueLicenses 每月发放建设许可
// 说明：RANDOM_LICENSES时每个区域以1/2概率获得一张，否则获得LICENSES_PER_REGION张
func (b *Builder) IssueLicenses() int {
	total := 0
	for _, r := range b.w.Regions.Values() {
		if b.p.RandomLicenses {
			if b.rng.PTrue(.5) {
				r.Licenses++
			}
		} else {
			r.Licenses += b.p.LicensesPerRegion
		}
		total += r.Licenses
	}
	return total
}

// Step 所有建筑企业尝试选址与建房
// 参数：vacancyValue-可比房价的空置率调整系数
// 返回：本月开工数与竣工数
func (b *Builder) Step(vacancyValue float64) (planned, built int) {
	for _, f := range b.w.ConstructionFirms() {
		if b.PlanHouse(f, vacancyValue) {
			planned++
		}
		if b.BuildHouse(f) != nil {
			built++
		}
	}
	if planned > 0 || built > 0 {
		log.Debugf("construction: %d planned, %d built", planned, built)
	}
	return
}

// comparablePrices 候选区域中可比房屋的价格
func (b *Builder) comparablePrices(regions []*entity.Region, size float64, quality int, vacancyValue float64) map[entity.RegionID][]float64 {
	open := lo.SliceToMap(regions, func(r *entity.Region) (entity.RegionID, bool) { return r.ID, true })
	prices := make(map[entity.RegionID][]float64)
	for _, h := range b.w.Houses.Values() {
		if !open[h.RegionID] {
			continue
		}
		if h.Size-size > sizeTolerance || size-h.Size > sizeTolerance {
			continue
		}
		if h.Quality-quality > 1 || quality-h.Quality > 1 {
			continue
		}
		prices[h.RegionID] = append(prices[h.RegionID], h.Price*vacancyValue)
		if len(prices[h.RegionID]) > samplePerRange {
			delete(open, h.RegionID)
			if len(open) == 0 {
				break
			}
		}
	}
	return prices
}

// PlanHouse 建筑企业选址
// 功能：空闲的建筑企业选择利润最高的区域开工
// 参数：f-建筑企业，vacancyValue-可比房价的空置率调整系数
// 返回：是否开工
// 算法说明：
// 1. 候选区域：有剩余许可且企业余额高于许可价格（区域QLI）
// 2. 随机目标面积[20,120)与质量1-4，成本 = 面积×质量×生产率，生产率在[1-2*MARKUP, 1]随机
// 3. 区域利润 = 可比房屋平均价格 - QLI×成本×(1+LOT_COST)，没有可比房屋时均价按0计
// 4. 选择利润为正且最高的区域，消耗一张许可，土地款QLI×成本×LOT_COST作为交易税交给区域
func (b *Builder) PlanHouse(f *entity.Firm, vacancyValue float64) bool {
	c := f.Construction
	if c == nil || c.Building != nil {
		return false
	}
	regions := lo.Filter(b.w.Regions.Values(), func(r *entity.Region, _ int) bool {
		return r.Licenses > 0 && f.TotalBalance > r.LicensePrice()
	})
	if len(regions) == 0 {
		return false
	}
	size := float64(b.rng.RandRange(minSize, maxSize))
	quality := b.rng.RandRange(1, 5)
	prices := b.comparablePrices(regions, size, quality, vacancyValue)

	productivity := float64(b.rng.RandRange(100-int(2*b.p.Markup*100), 101)) / 100
	cost := size * float64(quality) * productivity

	type candidate struct {
		region *entity.Region
		profit float64
	}
	candidates := make([]candidate, 0, len(regions))
	for _, r := range regions {
		mean := 0.
		if ps := prices[r.ID]; len(ps) > 0 {
			mean = lo.Sum(ps) / float64(len(ps))
		}
		if profit := mean - r.LicensePrice()*cost*(1+b.p.LotCost); profit > 0 {
			candidates = append(candidates, candidate{region: r, profit: profit})
		}
	}
	if len(candidates) == 0 {
		return false
	}
	best := lo.MaxBy(candidates, func(a, b candidate) bool { return a.profit > b.profit }).region
	c.Building = &entity.Build{
		Region:  best.ID,
		Size:    size,
		Quality: quality,
		Cost:    cost * best.LicensePrice(),
	}
	best.Licenses--
	land := best.LicensePrice() * cost * b.p.LotCost
	f.TotalBalance -= land
	best.CollectTaxes(land, entity.TaxTransaction)
	return true
}

// BuildHouse 库存足够时完成在建项目
// 功能：消耗库存，在区域内随机位置建成企业所有的待售房屋
// 返回：新建的房屋，未竣工时为nil
func (b *Builder) BuildHouse(f *entity.Firm) *entity.House {
	c := f.Construction
	if c == nil || c.Building == nil {
		return nil
	}
	build := c.Building
	if f.TotalQuantity() < build.Cost {
		return nil
	}
	f.Inventory.Quantity -= build.Cost
	r := b.w.MustRegion(build.Region)
	h := &entity.House{
		ID:        b.w.NewHouseID(),
		Address:   r.RandomPoint(b.rng),
		Size:      build.Size,
		Quality:   build.Quality,
		RegionID:  r.ID,
		OwnerType: entity.OwnerFirm,
		OwnerID:   int32(f.ID),
	}
	h.Price = h.BasePrice(r.Index)
	b.w.AddHouse(h)
	c.Houses = append(c.Houses, h.ID)
	c.HousesForSale = append(c.HousesForSale, h.ID)
	c.Building = nil
	return h
}
