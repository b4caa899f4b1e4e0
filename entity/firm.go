package entity

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/container"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

// Product 企业的唯一产品
type Product struct {
	Quantity float64
	Price    float64
}

// Build 建筑企业正在建设的房屋
type Build struct {
	Region  RegionID
	Size    float64
	Quality int
	Cost    float64 // 剩余所需产品数量
}

// ConstructionData 建筑企业的附加状态
type ConstructionData struct {
	Building      *Build          // 在建项目，nil表示空闲
	CashFlow      map[int]float64 // 月份序号 -> 递延收入分期
	Houses        []HouseID       // 建成的全部房屋
	HousesForSale []HouseID       // 尚未售出的房屋
}

// Firm 企业
// 功能：雇佣员工生产单一产品并出售，按营收发放工资、缴税
// 说明：建筑企业额外持有ConstructionData，收入按现金流台账分期计入工资基数
type Firm struct {
	ID             FirmID
	Kind           FirmKind
	Address        geometry.Point
	TotalBalance   float64
	RegionID       RegionID
	Employees      *container.Registry[AgentID, *Agent]
	Inventory      *Product // 尚未创建产品时为nil
	AmountSold     float64
	AmountProduced float64
	Revenue        float64
	WagesPaid      float64
	TaxesPaid      float64
	Profit         float64

	Construction *ConstructionData
}

// NewFirm 创建企业
func NewFirm(id FirmID, kind FirmKind, address geometry.Point, balance float64, region RegionID) *Firm {
	f := &Firm{
		ID:           id,
		Kind:         kind,
		Address:      address,
		TotalBalance: balance,
		RegionID:     region,
		Employees:    container.NewRegistry[AgentID, *Agent](),
		Profit:       1,
	}
	if kind == Construction {
		f.Construction = &ConstructionData{
			CashFlow:      make(map[int]float64),
			Houses:        make([]HouseID, 0),
			HousesForSale: make([]HouseID, 0),
		}
	}
	return f
}

// NumEmployees 员工数
func (f *Firm) NumEmployees() int {
	return f.Employees.Len()
}

// CreateProduct 利润为正且尚无产品时创建产品
func (f *Firm) CreateProduct() {
	if f.Profit > 0 && f.Inventory == nil {
		f.Inventory = &Product{Quantity: 0, Price: 1}
	}
}

// StartMonth 月初重置销量，消费品企业同时重置营收
func (f *Firm) StartMonth() {
	f.AmountSold = 0
	if f.Kind != Construction {
		f.Revenue = 0
	}
}

// Prices 产品价格，无产品时为+Inf
func (f *Firm) Prices() float64 {
	if f.Inventory == nil {
		return math.Inf(1)
	}
	return f.Inventory.Price
}

// TotalQuantity 库存数量
func (f *Firm) TotalQuantity() float64 {
	if f.Inventory == nil {
		return 0
	}
	return f.Inventory.Quantity
}

// TotalQualification 员工受教育年限的alpha次幂之和
func (f *Firm) TotalQualification(alpha float64) float64 {
	return lo.SumBy(f.Employees.Values(), func(a *Agent) float64 {
		return math.Pow(float64(a.Qualification), alpha)
	})
}

// UpdateProductQuantity 生产
// 功能：产量 = Σ qualification^alpha / divisor
// 说明：没有员工或没有产品时库存不变
func (f *Firm) UpdateProductQuantity(alpha, divisor float64) {
	if f.NumEmployees() == 0 || f.Inventory == nil {
		return
	}
	quantity := f.TotalQualification(alpha) / divisor
	f.Inventory.Quantity += quantity
	f.AmountProduced += quantity
}

// Sale 用amount金额购买尽可能多的产品
// 参数：amount-消费金额，region-企业所在区域（收取消费税），taxConsumption-消费税率
// 返回：找零
func (f *Firm) Sale(amount float64, region *Region, taxConsumption float64) float64 {
	if amount <= 0 || f.Inventory == nil || f.Inventory.Quantity <= 0 {
		return amount
	}
	p := f.Inventory
	bought := amount / p.Price
	spent := amount
	if bought > p.Quantity {
		bought = p.Quantity
		spent = bought * p.Price
	}
	p.Quantity -= bought
	tax := spent * taxConsumption
	revenue := spent - tax
	f.TotalBalance += revenue
	f.Revenue += revenue
	region.CollectTaxes(tax, TaxConsumption)
	f.AmountSold += bought
	return amount - spent
}

// UpdatePrices 粘性价格：以1-sticky的概率调价，销量超过库存时加价markup
func (f *Firm) UpdatePrices(sticky, markup float64, rng *randengine.Engine) {
	if f.Inventory == nil {
		return
	}
	if rng.Float64() > sticky {
		if f.AmountSold > f.TotalQuantity() {
			f.Inventory.Price *= 1 + markup
		}
	}
}

// CalculateProfit 利润 = 营收 - 工资 - 企业税
func (f *Firm) CalculateProfit() {
	f.Profit = f.Revenue - f.WagesPaid - f.TaxesPaid
}

// PayTaxes 缴纳企业税，(营收-工资)为负时不缴
func (f *Firm) PayTaxes(region *Region, taxFirm float64) {
	taxes := (f.Revenue - f.WagesPaid) * taxFirm
	if taxes >= 0 {
		f.TaxesPaid = taxes
		f.TotalBalance -= taxes
		region.CollectTaxes(taxes, TaxFirm)
	}
}

// WageBase 本月可发放的工资总额
// 说明：建筑企业的营收取自现金流台账中本月的分期
func (f *Firm) WageBase(unemployment float64, ignoreUnemployment bool, month int) float64 {
	if f.Construction != nil {
		f.Revenue = f.Construction.CashFlow[month]
		delete(f.Construction.CashFlow, month)
	}
	if ignoreUnemployment {
		return f.Revenue
	}
	return f.Revenue * (1 - unemployment)
}

// ExpectedWage 新员工的预期工资，用于劳动力市场打分
func (f *Firm) ExpectedWage(unemployment float64, ignoreUnemployment bool) float64 {
	base := f.Revenue
	if !ignoreUnemployment {
		base *= 1 - unemployment
	}
	return base / float64(f.NumEmployees()+1)
}

// MakePayment 发放工资
// 算法说明：
// 1. 按员工qualification^alpha占比分配工资总额
// 2. 每份工资扣除劳动税后计入个体现金
// 3. 劳动税交给企业所在区域
func (f *Firm) MakePayment(region *Region, unemployment, alpha, taxLabor float64, ignoreUnemployment bool, month int) {
	total := f.WageBase(unemployment, ignoreUnemployment, month)
	if f.NumEmployees() == 0 || total <= 0 {
		f.WagesPaid = 0
		return
	}
	totalQualification := f.TotalQualification(alpha)
	if totalQualification <= 0 {
		f.WagesPaid = 0
		return
	}
	for _, e := range f.Employees.Values() {
		wage := total * math.Pow(float64(e.Qualification), alpha) / totalQualification * (1 - taxLabor)
		e.Money += wage
		e.LastWage = wage
	}
	region.CollectTaxes(total*taxLabor, TaxLabor)
	f.TotalBalance -= total
	f.WagesPaid = total
}

// AddEmployee 雇佣
func (f *Firm) AddEmployee(a *Agent) {
	f.Employees.Put(a.ID, a)
	a.FirmID = f.ID
}

// Obit 员工死亡或离开
func (f *Firm) Obit(id AgentID) {
	f.Employees.Delete(id)
}

// Fire 随机解雇一名员工
func (f *Firm) Fire(rng *randengine.Engine) *Agent {
	if f.NumEmployees() == 0 {
		return nil
	}
	a := f.Employees.Values()[rng.Intn(f.NumEmployees())]
	a.FirmID = NoFirm
	a.Distance = 0
	f.Employees.Delete(a.ID)
	return a
}

// UpdateBalance 售房收入
// 说明：余额一次性入账，工资基数按accMonths个月分期计入
func (f *Firm) UpdateBalance(amount float64, accMonths int, month int) {
	f.TotalBalance += amount
	if f.Construction == nil || accMonths <= 0 {
		return
	}
	for i := 0; i < accMonths; i++ {
		f.Construction.CashFlow[month+i] += amount / float64(accMonths)
	}
}

// SoldHouse 房屋售出后从待售列表移除
func (f *Firm) SoldHouse(id HouseID) {
	if f.Construction != nil {
		f.Construction.HousesForSale = lo.Without(f.Construction.HousesForSale, id)
	}
}
