package funds

import (
	"slices"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/stats"
)

const (
	// 政策在模拟第一年之后生效
	policyWarmUpDays = 360
	// 租金代付的月数
	voucherMonths = 24
)

// policyMonths POLICY_DAYS折算的登记有效月数
func (f *Funds) policyMonths() int {
	return f.p.PolicyDays / 30
}

// register 登记本月的政策家庭
// 说明：持久收入低于POLICY_QUANTILE分位数的家庭登记在住所所在的区域
func (f *Funds) register(month int) {
	families := f.w.Families.Values()
	if len(families) == 0 {
		return
	}
	incomes := lo.Map(families, func(fam *entity.Family, _ int) float64 { return fam.LastPermanentIncome })
	quantile := stats.Quantile(incomes, f.p.PolicyQuantile)
	for _, fam := range families {
		if fam.LastPermanentIncome >= quantile {
			continue
		}
		if id := f.w.FamilyRegion(fam); id != "" {
			r := f.w.MustRegion(id)
			r.Registry[month] = append(r.Registry[month], fam.ID)
		}
	}
}

// gather 汇总有效期内登记的政策家庭
// 说明：仍存在且住在该市的家庭，去重后按持久收入升序；过期的登记被清除
func (f *Funds) gather(month int) {
	f.policyFamilies = make(map[string][]*entity.Family)
	horizon := month - f.policyMonths()
	seen := make(map[entity.FamilyID]bool)
	for _, r := range f.w.Regions.Values() {
		keys := lo.Keys(r.Registry)
		slices.Sort(keys)
		for _, k := range keys {
			if k <= horizon {
				delete(r.Registry, k)
				continue
			}
			for _, id := range r.Registry[k] {
				fam, ok := f.w.Families.Get(id)
				if !ok || seen[id] {
					continue
				}
				region := f.w.FamilyRegion(fam)
				if region == "" {
					continue
				}
				seen[id] = true
				mun := region.Municipality()
				f.policyFamilies[mun] = append(f.policyFamilies[mun], fam)
			}
		}
	}
	for mun, fams := range f.policyFamilies {
		slices.SortStableFunc(fams, func(a, b *entity.Family) int {
			switch {
			case a.LastPermanentIncome < b.LastPermanentIncome:
				return -1
			case a.LastPermanentIncome > b.LastPermanentIncome:
				return 1
			}
			return 0
		})
		f.policyFamilies[mun] = fams
	}
}

// ApplyPolicies 执行扶贫政策
// 功能：登记贫困家庭，第一年之后按POLICIES使用各市的政策资金
// 参数：month-当前月份序号，elapsedDays-已模拟天数
// 算法说明：
// 1. 基线政策不做任何事
// 2. 每月登记持久收入低于分位数的家庭，汇总POLICY_DAYS内的登记
// 3. buy：为不拥有房屋的最贫困家庭购买最便宜的建筑企业待售房屋
// 4. rent：为不拥有房屋的租房家庭预付24个月房租
// 5. wage：政策资金平均转移给政策家庭
func (f *Funds) ApplyPolicies(month, elapsedDays int) {
	switch f.p.Policies {
	case config.PolicyBuy, config.PolicyRent, config.PolicyWage:
	default:
		return
	}
	f.FamiliesSubsided = 0
	f.register(month)
	if elapsedDays < policyWarmUpDays {
		return
	}
	f.gather(month)
	switch f.p.Policies {
	case config.PolicyBuy:
		f.buyHouses(month)
	case config.PolicyRent:
		f.payRent()
	case config.PolicyWage:
		f.distribute()
	}
	f.policyFamilies = make(map[string][]*entity.Family)
	if f.FamiliesSubsided > 0 {
		log.Debugf("policy %s subsided %d families", f.p.Policies, f.FamiliesSubsided)
	}
}

// withoutHouses 不拥有任何房屋的家庭
func withoutHouses(families []*entity.Family) []*entity.Family {
	return lo.Filter(families, func(fam *entity.Family, _ int) bool { return len(fam.OwnedHouses) == 0 })
}

// payRent 租金代付
// 说明：24个月房租低于资金池余额且尚无代付券时，预先从资金池扣除
func (f *Funds) payRent() {
	for _, mun := range f.w.Municipalities() {
		for _, fam := range withoutHouses(f.policyFamilies[mun]) {
			h, ok := f.w.ResidenceOf(fam)
			if !ok || h.RentData == nil || fam.RentVoucher > 0 {
				continue
			}
			cost := h.RentData.Monthly * voucherMonths
			if f.PolicyMoney[mun] <= 0 || cost >= f.PolicyMoney[mun] {
				continue
			}
			fam.RentVoucher = voucherMonths
			f.PolicyMoney[mun] -= cost
			f.MoneyAppliedPolicy += cost
			f.FamiliesSubsided++
		}
	}
}

// distribute 资金池平均转移给政策家庭，转移后清零
func (f *Funds) distribute() {
	for _, mun := range f.w.Municipalities() {
		fams := f.policyFamilies[mun]
		money := f.PolicyMoney[mun]
		if len(fams) == 0 || money <= 0 {
			continue
		}
		amount := money / float64(len(fams))
		for _, fam := range fams {
			fam.UpdateBalance(amount)
		}
		f.MoneyAppliedPolicy += money
		f.FamiliesSubsided += len(fams)
		f.PolicyMoney[mun] = 0
	}
}

// buyHouses 市政购房
// 功能：按价格升序购买市内建筑企业的空置待售房屋，依次交给持久收入最低的无房家庭
// 说明：交易税照常交给房屋所在区域，建筑企业按现金流台账分期入账；资金不足或家庭用尽时停止
func (f *Funds) buyHouses(month int) {
	for _, mun := range f.w.Municipalities() {
		houses := make([]*entity.House, 0)
		for _, firm := range f.w.ConstructionFirms() {
			for _, id := range firm.Construction.HousesForSale {
				h := f.w.MustHouse(id)
				if h.RegionID.Municipality() == mun && !h.IsOccupied() {
					houses = append(houses, h)
				}
			}
		}
		slices.SortStableFunc(houses, func(a, b *entity.House) int {
			switch {
			case a.Price < b.Price:
				return -1
			case a.Price > b.Price:
				return 1
			}
			return 0
		})
		fams := withoutHouses(f.policyFamilies[mun])
		for _, h := range houses {
			if len(fams) == 0 || f.PolicyMoney[mun] <= 0 || h.Price >= f.PolicyMoney[mun] {
				break
			}
			fam := fams[0]
			fams = fams[1:]
			taxes := h.Price * f.p.TaxEstateTransaction
			f.w.MustRegion(h.RegionID).CollectTaxes(taxes, entity.TaxTransaction)
			f.MoneyAppliedPolicy += h.Price
			f.FamiliesSubsided++
			f.w.MustFirm(entity.FirmID(h.OwnerID)).UpdateBalance(h.Price-taxes, f.p.ConstructionAccCashFlow, month)
			f.PolicyMoney[mun] -= h.Price
			f.w.TransferHouse(h, entity.OwnerFamily, int32(fam.ID))
			h.OnMarket = 0
			f.w.MoveIn(fam, h)
		}
	}
}
