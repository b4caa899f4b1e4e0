package housing

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/stats"
)

// VacancyValue 要价的空置率调整系数
// 功能：空置率越高，卖方越愿意让价
// 公式：max(1 - vacancy*OFFER_SIZE_ON_PRICE, MAX_OFFER_DISCOUNT)，OFFER_SIZE_ON_PRICE为0时为1
func VacancyValue(vacancy float64, p *config.Params) float64 {
	if p.OfferSizeOnPrice <= 0 {
		return 1
	}
	return max(1-vacancy*p.OfferSizeOnPrice, p.MaxOfferDiscount)
}

// NeighborhoodMultipliers 各区域的邻里财富系数
// 功能：区域家庭持久收入中位数相对全局中位数越高，房价溢价越高
// 公式：(区域中位数/全局中位数)^NEIGHBORHOOD_EFFECT
// 说明：NEIGHBORHOOD_EFFECT为0、全局中位数非正或区域没有住户时系数为1
func NeighborhoodMultipliers(w *entity.World, effect float64) map[entity.RegionID]float64 {
	res := make(map[entity.RegionID]float64, w.Regions.Len())
	for _, r := range w.Regions.Values() {
		res[r.ID] = 1
	}
	if effect == 0 {
		return res
	}
	incomes := make(map[entity.RegionID][]float64)
	all := make([]float64, 0, w.Families.Len())
	for _, f := range w.Families.Values() {
		id := w.FamilyRegion(f)
		if id == "" {
			continue
		}
		incomes[id] = append(incomes[id], f.LastPermanentIncome)
		all = append(all, f.LastPermanentIncome)
	}
	global := stats.Median(all)
	if global <= 0 {
		return res
	}
	for id, values := range incomes {
		if m := stats.Median(values); m > 0 {
			res[id] = math.Pow(m/global, effect)
		}
	}
	return res
}

// UpdateForSale 更新所有房屋价格，返回空置待售的房屋
// 算法说明：
// 1. 空置房屋在售月数+1
// 2. 价格 = 面积×质量×区域QLI×邻里系数×在售折扣
func (m *Market) UpdateForSale() []*entity.House {
	mult := NeighborhoodMultipliers(m.w, m.p.NeighborhoodEffect)
	forSale := make([]*entity.House, 0)
	for _, h := range m.w.Houses.Values() {
		if !h.IsOccupied() {
			h.OnMarket++
			forSale = append(forSale, h)
		}
		r := m.w.MustRegion(h.RegionID)
		h.UpdatePrice(r.Index, mult[h.RegionID], m.p.OnMarketDecayFactor, m.p.MaxOfferDiscount)
	}
	return forSale
}

// MeanPrice 房屋平均价格
func MeanPrice(houses []*entity.House) float64 {
	if len(houses) == 0 {
		return 0
	}
	return lo.SumBy(houses, func(h *entity.House) float64 { return h.Price }) / float64(len(houses))
}
