package ecosim

import (
	"time"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/container"
)

// Deposit 一笔存款
type Deposit struct {
	Amount float64
	Date   time.Time
}

// Central 中央银行
// 功能：吸收家庭存款并按月复利付息，发放住房贷款，根据违约情况调整贷款利率
// 说明：同一家庭同时至多持有一笔未还清的贷款
type Central struct {
	Balance      float64 // 银行可用现金
	Interest     float64 // 月存款利率
	MortgageRate float64 // 月贷款利率
	Taxes        float64 // 利息税累计，每月交给财政

	outstandingLoans float64
	totalDeposits    float64
	wallet           *container.Registry[entity.FamilyID, []Deposit]
	loans            *container.Registry[entity.FamilyID, []*Loan]

	taxFirm                      float64
	maxLoanBankPercent           float64
	loanPaymentToPermanentIncome float64
	maxLoanAge                   int
	maxLoanMonths                int
}

// NewCentral 创建中央银行
func NewCentral(p config.Params) *Central {
	return &Central{
		wallet:                       container.NewRegistry[entity.FamilyID, []Deposit](),
		loans:                        container.NewRegistry[entity.FamilyID, []*Loan](),
		taxFirm:                      p.TaxFirm,
		maxLoanBankPercent:           p.MaxLoanBankPercent,
		loanPaymentToPermanentIncome: p.LoanPaymentToPermanentIncome,
		maxLoanAge:                   p.MaxLoanAge,
		maxLoanMonths:                p.MaxLoanMonths,
	}
}

// SetInterest 设置存款与贷款利率
func (c *Central) SetInterest(interest, mortgage float64) {
	c.Interest, c.MortgageRate = interest, mortgage
}

// Deposit 存款
func (c *Central) Deposit(id entity.FamilyID, amount float64, date time.Time) {
	if amount <= 0 {
		return
	}
	ds, _ := c.wallet.Get(id)
	c.wallet.Put(id, append(ds, Deposit{Amount: amount, Date: date}))
	c.Balance += amount
	c.totalDeposits += amount
}

// payInterest 计算客户全部存款到now的税后利息
func (c *Central) payInterest(id entity.FamilyID, now time.Time) float64 {
	ds, _ := c.wallet.Get(id)
	interest := 0.
	for _, d := range ds {
		interest += futureValue(d.Amount, c.Interest, monthsBetween(d.Date, now)) - d.Amount
	}
	tax := interest * c.taxFirm
	c.Taxes += tax
	c.Balance -= interest - tax
	return interest - tax
}

// Withdraw 取出客户全部存款及税后利息
func (c *Central) Withdraw(id entity.FamilyID, now time.Time) float64 {
	if !c.wallet.Has(id) {
		return 0
	}
	interest := c.payInterest(id, now)
	amount := c.SumDeposits(id)
	c.wallet.Delete(id)
	c.Balance -= amount
	c.totalDeposits -= amount
	return amount + interest
}

// SumDeposits 客户存款本金合计
func (c *Central) SumDeposits(id entity.FamilyID) float64 {
	ds, _ := c.wallet.Get(id)
	return lo.SumBy(ds, func(d Deposit) float64 { return d.Amount })
}

// TotalDeposits 全部存款本金
func (c *Central) TotalDeposits() float64 {
	return c.totalDeposits
}

// TransferDeposits 将from的存款转给to（家庭解散时使用）
func (c *Central) TransferDeposits(from, to entity.FamilyID) {
	ds, ok := c.wallet.Get(from)
	if !ok {
		return
	}
	c.wallet.Delete(from)
	old, _ := c.wallet.Get(to)
	c.wallet.Put(to, append(old, ds...))
}

// CollectTaxes 取出本月利息税
func (c *Central) CollectTaxes() float64 {
	amount := c.Taxes
	c.Taxes = 0
	return amount
}

// Loans 家庭的贷款
func (c *Central) Loans(id entity.FamilyID) []*Loan {
	ls, _ := c.loans.Get(id)
	return ls
}

// LoanBalance 家庭未偿还贷款合计
func (c *Central) LoanBalance(id entity.FamilyID) float64 {
	return lo.SumBy(c.Loans(id), func(l *Loan) float64 { return l.Balance() })
}

// AllLoans 全部贷款
func (c *Central) AllLoans() []*Loan {
	return lo.Flatten(c.loans.Values())
}

// NumLoans 贷款笔数
func (c *Central) NumLoans() int {
	return len(c.AllLoans())
}

// ActiveLoans 未还清的贷款
func (c *Central) ActiveLoans() []*Loan {
	return lo.Filter(c.AllLoans(), func(l *Loan, _ int) bool { return !l.PaidOff })
}

// DelinquentLoans 逾期贷款
func (c *Central) DelinquentLoans() []*Loan {
	return lo.Filter(c.ActiveLoans(), func(l *Loan, _ int) bool { return l.Delinquent })
}

// OutstandingActiveLoan 未还清贷款的未偿还总额
func (c *Central) OutstandingActiveLoan() float64 {
	return lo.SumBy(c.ActiveLoans(), func(l *Loan) float64 { return l.Balance() })
}

// OutstandingLoans 已放贷未收回的金额
func (c *Central) OutstandingLoans() float64 {
	return c.outstandingLoans
}

// MeanCollateralRate 按余额加权的平均抵押率，上限1+贷款利率
func (c *Central) MeanCollateralRate(w *entity.World) float64 {
	outstanding := c.OutstandingActiveLoan()
	mean := 0.
	if outstanding > 0 {
		for _, l := range c.ActiveLoans() {
			price := 0.
			if h, ok := w.Houses.Get(l.Collateral); ok {
				price = h.Price
			}
			mean += l.CurrentCollateral(price) * l.Balance()
		}
		mean /= outstanding
	}
	return min(1+c.MortgageRate, mean)
}

// ProbDefault 违约概率：逾期贷款余额/未还清贷款余额
func (c *Central) ProbDefault() float64 {
	outstanding := c.OutstandingActiveLoan()
	if outstanding <= 0 {
		return 0
	}
	return lo.SumBy(c.DelinquentLoans(), func(l *Loan) float64 { return l.Balance() }) / outstanding
}

// CalculateMonthlyMortgageRate 根据违约概率与抵押率调整贷款利率
// 算法说明：
// 1. 没有贷款或违约概率为1时不调整
// 2. 新利率 = (1 + 旧利率 - pd*平均抵押率) / (1 - pd) - 1
// 说明：pd为0时利率保持不变
func (c *Central) CalculateMonthlyMortgageRate(w *entity.World) {
	if c.NumLoans() == 0 {
		return
	}
	pd := c.ProbDefault()
	if pd >= 1 {
		return
	}
	c.MortgageRate = (1+c.MortgageRate-pd*c.MeanCollateralRate(w))/(1-pd) - 1
}

// LoanStats 未还清贷款本金的最小值、最大值、均值
func (c *Central) LoanStats() (minAmount, maxAmount, mean float64) {
	amounts := lo.Map(c.ActiveLoans(), func(l *Loan, _ int) float64 { return l.Principal })
	if len(amounts) == 0 {
		return 0, 0, 0
	}
	return lo.Min(amounts), lo.Max(amounts), lo.Sum(amounts) / float64(len(amounts))
}

// maxMonthlyPayment 家庭可承受的最大月供
func (c *Central) maxMonthlyPayment(f *entity.Family) float64 {
	return f.LastPermanentIncome * c.loanPaymentToPermanentIncome
}

// MaxLoan 家庭可申请的最大贷款
// 返回：最大本金（不超过银行现金）与最长期限（月）
// 说明：期限受最年长成员到MAX_LOAN_AGE的剩余年数与MAX_LOAN_MONTHS限制
func (c *Central) MaxLoan(f *entity.Family) (float64, int) {
	income := c.maxMonthlyPayment(f)
	maxMonths := min((c.maxLoanAge-f.OldestAge())*12, c.maxLoanMonths)
	if maxMonths <= 0 || income <= 0 {
		return 0, max(maxMonths, 0)
	}
	maxPrincipal := income * float64(maxMonths) / (1 + c.MortgageRate)
	return max(min(maxPrincipal, c.Balance), 0), maxMonths
}

// RequestLoan 申请贷款
// 功能：审批家庭以house为抵押、金额为amount的贷款
// 算法说明：
// 1. 金额超过银行现金：拒绝
// 2. 家庭已有贷款：拒绝
// 3. 放贷总额超过存款的MAX_LOAN_BANK_PERCENT：拒绝
// 4. 首月月供超过可承受最大月供：拒绝
// 5. 批准：按MaxLoan的期限生成SAC还款计划，银行现金减少amount
func (c *Central) RequestLoan(f *entity.Family, house entity.HouseID, amount float64) LoanDecision {
	if amount > c.Balance {
		return RejectedInsufficientFunds
	}
	if len(c.Loans(f.ID)) > 0 {
		return RejectedExistingLoan
	}
	if c.outstandingLoans+amount > c.totalDeposits*c.maxLoanBankPercent {
		return RejectedCapacity
	}
	_, months := c.MaxLoan(f)
	if months <= 0 {
		return RejectedCreditCheck
	}
	required := amount/float64(months) + amount*c.MortgageRate
	if c.maxMonthlyPayment(f) < required {
		return RejectedCreditCheck
	}
	c.loans.Put(f.ID, []*Loan{NewLoan(amount, c.MortgageRate, months, house)})
	c.Balance -= amount
	c.outstandingLoans += amount
	log.Debugf("loan of %.2f for family %d over %d months", amount, f.ID, months)
	return Accepted
}

// CollectLoanPayments 收取月供
// 算法说明：
// 1. 每笔贷款月龄+1，计算到期未还金额
// 2. 储蓄不足时，取出全部存款补充储蓄
// 3. 以储蓄偿还min(储蓄, 应还)，计入银行现金
// 4. 移除已还清的贷款
func (c *Central) CollectLoanPayments(w *entity.World, now time.Time) {
	for _, id := range append([]entity.FamilyID(nil), c.loans.Keys()...) {
		loans := c.Loans(id)
		f, ok := w.Families.Get(id)
		if !ok {
			log.Panicf("loan holder family %d not found", id)
		}
		remaining := make([]*Loan, 0, len(loans))
		f.MonthlyLoanPayments = 0
		for _, l := range loans {
			if l.PaidOff {
				continue
			}
			l.Age++
			due := l.Due()
			f.MonthlyLoanPayments += due
			if f.Savings < due {
				f.Savings += c.Withdraw(id, now)
			}
			payment := min(f.Savings, due)
			done := l.Pay(payment)
			f.Savings -= payment
			c.Balance += payment
			c.outstandingLoans -= payment
			if !done {
				remaining = append(remaining, l)
			}
		}
		if len(remaining) == 0 {
			c.loans.Delete(id)
		} else {
			c.loans.Put(id, remaining)
		}
	}
}

// TransferLoans 将from的贷款转给to（家庭解散时由继承人承担）
func (c *Central) TransferLoans(from, to entity.FamilyID) {
	ls := c.Loans(from)
	if len(ls) == 0 {
		return
	}
	c.loans.Delete(from)
	c.loans.Put(to, append(c.Loans(to), ls...))
}

// WriteOffLoans 注销家庭的贷款（无继承人时）
func (c *Central) WriteOffLoans(id entity.FamilyID) {
	for _, l := range c.Loans(id) {
		c.outstandingLoans = max(c.outstandingLoans-l.Balance(), 0)
	}
	c.loans.Delete(id)
}
