package entity

import (
	"math"
	"time"

	"git.fiblab.net/general/common/v2/geometry"
)

// RentData 租约
type RentData struct {
	Monthly float64   // 月租金
	Start   time.Time // 租约开始日期
}

// House 房屋
// 功能：位置固定的住房，所有者与住户可以变化
// 说明：一个房屋恰有一个所有者，至多一个住户；空置时按月累计在售月数
type House struct {
	ID        HouseID
	Address   geometry.Point
	Size      float64
	Quality   int // 1-4
	Price     float64
	RegionID  RegionID
	OwnerType OwnerType
	OwnerID   int32     // 按OwnerType解释为FamilyID或FirmID
	FamilyID  FamilyID  // 住户，NoFamily表示空置
	RentData  *RentData // 出租时非空
	OnMarket  int       // 空置在售月数

	firmDistances map[FirmID]float64 // 房屋地址不变，缓存到企业的距离
}

// IsOccupied 是否有住户
func (h *House) IsOccupied() bool {
	return h.FamilyID != NoFamily
}

// IsRented 是否出租中
func (h *House) IsRented() bool {
	return h.RentData != nil
}

// FamilyOwner 所有者家庭ID
func (h *House) FamilyOwner() (FamilyID, bool) {
	if h.OwnerType != OwnerFamily {
		return NoFamily, false
	}
	return FamilyID(h.OwnerID), true
}

// Empty 住户搬出
func (h *House) Empty() {
	h.FamilyID = NoFamily
	h.RentData = nil
}

// BasePrice 未经在售折扣的价格：面积×质量×区域指数
func (h *House) BasePrice(regionIndex float64) float64 {
	return h.Size * float64(h.Quality) * regionIndex
}

// OnMarketFactor 在售折扣系数
// 功能：空置月数越长，要价越低
// 公式：max((1-discount)*e^(decay*months) + discount, discount)
func OnMarketFactor(months int, decay, discount float64) float64 {
	v := (1-discount)*math.Exp(decay*float64(months)) + discount
	return math.Max(v, discount)
}

// UpdatePrice 更新价格
// 参数：regionIndex-区域QLI，neighborhood-邻里财富系数（1表示无影响），decay-在售衰减速度，discount-最大折扣下限
func (h *House) UpdatePrice(regionIndex, neighborhood, decay, discount float64) {
	price := h.BasePrice(regionIndex) * neighborhood
	if h.OnMarket > 0 {
		price *= OnMarketFactor(h.OnMarket, decay, discount)
	}
	h.Price = price
}

// PropertyTax 当月房产税
func (h *House) PropertyTax(annualRate float64) float64 {
	return h.Price * annualRate / 12
}

// DistanceTo 到某点的直线距离
func (h *House) DistanceTo(p geometry.Point) float64 {
	return math.Hypot(h.Address.X-p.X, h.Address.Y-p.Y)
}

// DistanceToFirm 到企业的距离（带缓存）
func (h *House) DistanceToFirm(f *Firm) float64 {
	if h.firmDistances == nil {
		h.firmDistances = make(map[FirmID]float64)
	}
	if d, ok := h.firmDistances[f.ID]; ok {
		return d
	}
	d := h.DistanceTo(f.Address)
	h.firmDistances[f.ID] = d
	return d
}
