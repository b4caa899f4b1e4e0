package entity

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/container"
)

// Family 家庭
// 功能：共享资源、一起搬迁的个体集合
// 说明：家庭成员在家庭内平均分配现金，房屋通过ID引用
type Family struct {
	ID                  FamilyID
	Balance             float64 // 成员现金合计，SumBalance时刷新
	Savings             float64 // 不计息的储蓄
	Members             *container.Registry[AgentID, *Agent]
	House               HouseID   // 当前住所，NoHouse表示无
	OwnedHouses         []HouseID // 拥有的房屋，可能包含出租房与当前住所
	MonthlyLoanPayments float64   // 本月应还贷款
	LastPermanentIncome float64
	RentDefault         bool       // 本月是否拖欠房租
	RentVoucher         int        // 剩余政府代付房租月数
	Relatives           []FamilyID // 亲属家庭，家庭解散时继承其资产
}

// NewFamily 创建空家庭
func NewFamily(id FamilyID) *Family {
	return &Family{
		ID:          id,
		Members:     container.NewRegistry[AgentID, *Agent](),
		OwnedHouses: make([]HouseID, 0),
	}
}

// AddAgent 加入成员
func (f *Family) AddAgent(a *Agent) {
	f.Members.Put(a.ID, a)
	a.FamilyID = f.ID
}

// RemoveAgent 移除成员
func (f *Family) RemoveAgent(id AgentID) {
	if a, ok := f.Members.Get(id); ok {
		a.FamilyID = NoFamily
		f.Members.Delete(id)
	}
}

// NumMembers 成员数
func (f *Family) NumMembers() int {
	return f.Members.Len()
}

// SumBalance 成员现金合计
func (f *Family) SumBalance() float64 {
	f.Balance = lo.SumBy(f.Members.Values(), func(a *Agent) float64 { return a.Money })
	return f.Balance
}

// TotalBalance 现金与储蓄合计
func (f *Family) TotalBalance() float64 {
	return f.SumBalance() + f.Savings
}

// UpdateBalance 将金额平均分给每个成员
func (f *Family) UpdateBalance(amount float64) {
	if f.NumMembers() == 0 {
		f.Savings += amount
		return
	}
	per := amount / float64(f.NumMembers())
	for _, a := range f.Members.Values() {
		a.Money += per
	}
}

// Pay 支付一笔费用，先用储蓄，不足部分按成员现金比例扣除
// 返回：现金与储蓄不足时不支付并返回false
func (f *Family) Pay(amount float64) bool {
	if amount <= 0 {
		return true
	}
	if f.TotalBalance() < amount {
		return false
	}
	fromSavings := min(f.Savings, amount)
	f.Savings -= fromSavings
	rest := amount - fromSavings
	if rest > 0 {
		cash := f.SumBalance()
		for _, a := range f.Members.Values() {
			a.Money -= rest * a.Money / cash
		}
	}
	return true
}

// PayCash 按成员现金比例支付，至多支付现金总额
// 返回：实际支付的金额
func (f *Family) PayCash(amount float64) float64 {
	cash := f.SumBalance()
	if amount <= 0 || cash <= 0 {
		return 0
	}
	paid := min(amount, cash)
	for _, a := range f.Members.Values() {
		a.Money -= paid * a.Money / cash
	}
	return paid
}

// GrabMoney 取走所有成员的现金
func (f *Family) GrabMoney() float64 {
	return lo.SumBy(f.Members.Values(), func(a *Agent) float64 { return a.GrabMoney() })
}

// GrabSavings 取走储蓄
func (f *Family) GrabSavings() float64 {
	s := f.Savings
	f.Savings = 0
	return s
}

// TotalWage 就业成员最近一次工资合计
func (f *Family) TotalWage() float64 {
	return lo.SumBy(f.Members.Values(), func(a *Agent) float64 {
		if a.IsEmployed() {
			return a.LastWage
		}
		return 0
	})
}

// PropEmployed 劳动年龄成员中的就业比例
func (f *Family) PropEmployed() float64 {
	employed, employable := 0, 0
	for _, a := range f.Members.Values() {
		if a.IsEmployable() {
			employable++
		} else if a.IsEmployed() {
			employed++
		}
	}
	if employed+employable == 0 {
		return 0
	}
	return float64(employed) / float64(employed+employable)
}

// OldestAge 最年长成员的年龄
func (f *Family) OldestAge() int {
	if f.NumMembers() == 0 {
		return 0
	}
	return lo.MaxBy(f.Members.Values(), func(a, b *Agent) bool { return a.Age > b.Age }).Age
}

// Owns 是否拥有某房屋
func (f *Family) Owns(id HouseID) bool {
	return lo.Contains(f.OwnedHouses, id)
}

func (f *Family) addOwned(id HouseID) {
	if !f.Owns(id) {
		f.OwnedHouses = append(f.OwnedHouses, id)
	}
}

func (f *Family) removeOwned(id HouseID) {
	f.OwnedHouses = lo.Without(f.OwnedHouses, id)
}

// PermanentIncome 持久收入
// 功能：当期收入与未来收入的贴现和加上金融财富的利息
// 公式：r/(1+r)*wage + r/(1+r)*wage/r + wealth*r
// 说明：r<=0时退化为wage+wealth
func PermanentIncome(wage, wealth, r float64) float64 {
	if r <= 0 {
		return wage + wealth
	}
	r1r := r / (1 + r)
	return r1r*wage + r1r*(wage/r) + wealth*r
}

// UpdatePermanentIncome 按给定财富与利率刷新持久收入
func (f *Family) UpdatePermanentIncome(wealth, r float64) float64 {
	f.LastPermanentIncome = PermanentIncome(f.TotalWage(), wealth, r)
	return f.LastPermanentIncome
}
