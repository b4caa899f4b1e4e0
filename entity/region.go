package entity

import (
	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

// Region 区域（市+加权区）
// 功能：收税并将税收用于提升生活质量指数（QLI）
// 说明：Treasure为本月累计，每月在财政分配时转入CumulativeTreasure
type Region struct {
	ID       RegionID
	Envelope [2]geometry.Point // 外包矩形的左下角与右上角
	Index    float64           // 生活质量指数QLI，同时作为价格水平
	GDP      float64
	Pop      int
	Licenses int
	Commute  float64

	Treasure           map[TaxKind]float64
	CumulativeTreasure map[TaxKind]float64
	AppliedTreasure    map[string]float64
	// 月份序号 -> 本月登记的政策家庭
	Registry map[int][]FamilyID
}

// NewRegion 创建区域
func NewRegion(id RegionID, envelope [2]geometry.Point, index float64) *Region {
	return &Region{
		ID:                 id,
		Envelope:           envelope,
		Index:              index,
		Treasure:           make(map[TaxKind]float64),
		CumulativeTreasure: make(map[TaxKind]float64),
		AppliedTreasure:    make(map[string]float64),
		Registry:           make(map[int][]FamilyID),
	}
}

// LicensePrice 建设许可价格，等于当前QLI
func (r *Region) LicensePrice() float64 {
	return r.Index
}

// TotalTreasure 本月税收合计
func (r *Region) TotalTreasure() float64 {
	return lo.SumBy(TaxKinds, func(k TaxKind) float64 { return r.Treasure[k] })
}

// CollectTaxes 收税
func (r *Region) CollectTaxes(amount float64, kind TaxKind) {
	r.Treasure[kind] += amount
}

// TransferTreasure 取出本月税收并转入累计
func (r *Region) TransferTreasure() map[TaxKind]float64 {
	res := make(map[TaxKind]float64, len(TaxKinds))
	for _, k := range TaxKinds {
		res[k] = r.Treasure[k]
		r.CumulativeTreasure[k] += r.Treasure[k]
		r.Treasure[k] = 0
	}
	return res
}

// UpdateIndexPop QLI更新的人口项：乘以上月人口与本月人口之比
func (r *Region) UpdateIndexPop(proportion float64) {
	r.Index *= proportion
}

// UpdateIndex QLI增加value
func (r *Region) UpdateIndex(value float64) {
	r.Index += value
}

// UpdateAppliedTaxes 记录分配后的税收去向
func (r *Region) UpdateAppliedTaxes(amount float64, key string) {
	r.AppliedTreasure[key] += amount
}

// Contains 点是否在区域外包矩形内
func (r *Region) Contains(p geometry.Point) bool {
	return p.X >= r.Envelope[0].X && p.X <= r.Envelope[1].X &&
		p.Y >= r.Envelope[0].Y && p.Y <= r.Envelope[1].Y
}

// RandomPoint 区域外包矩形内的随机点
func (r *Region) RandomPoint(rng *randengine.Engine) geometry.Point {
	return geometry.Point{
		X: rng.Uniform(r.Envelope[0].X, r.Envelope[1].X),
		Y: rng.Uniform(r.Envelope[0].Y, r.Envelope[1].Y),
	}
}
