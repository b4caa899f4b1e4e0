package ecosim

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
)

// 浮点误差容忍度
const epsilon = 1e-9

// Loan 住房贷款（SAC等额本金）
// 说明：Payment[i]为第i个月尚未偿还的金额，已偿还部分置0
type Loan struct {
	Principal    float64
	MortgageRate float64
	Months       int
	Payment      []float64
	Age          int // 已经过的月数
	Collateral   entity.HouseID
	PaidOff      bool
	Delinquent   bool
}

// NewLoan 创建贷款并生成还款计划
func NewLoan(principal, rate float64, months int, collateral entity.HouseID) *Loan {
	l := &Loan{
		Principal:    principal,
		MortgageRate: rate,
		Months:       months,
		Collateral:   collateral,
	}
	l.paymentSchedule()
	return l
}

// paymentSchedule SAC：每月本金相同，利息按剩余本金递减
func (l *Loan) paymentSchedule() {
	l.Payment = make([]float64, l.Months)
	amortization := l.Principal / float64(l.Months)
	balance := l.Principal
	for i := 0; i < l.Months; i++ {
		l.Payment[i] = amortization + balance*l.MortgageRate
		balance -= amortization
	}
}

// Amortization 每月本金
func (l *Loan) Amortization() float64 {
	return l.Principal / float64(l.Months)
}

// Balance 未偿还总额
func (l *Loan) Balance() float64 {
	return lo.Sum(l.Payment)
}

// Due 截至当前月份应还未还的金额
func (l *Loan) Due() float64 {
	return lo.Sum(l.Payment[:min(l.Age, len(l.Payment))])
}

// CurrentCollateral 抵押率：抵押房屋价格/未偿还总额，上限1+利率
func (l *Loan) CurrentCollateral(price float64) float64 {
	b := l.Balance()
	if b <= 0 {
		return 1 + l.MortgageRate
	}
	return min(price/b, 1+l.MortgageRate)
}

// Pay 还款
// 算法说明：
// 1. 按还款计划顺序冲抵
// 2. 到期未还的金额为正时标记为逾期
// 3. 余额为0时标记为还清
// 返回：是否已还清
func (l *Loan) Pay(amount float64) bool {
	for i := range l.Payment {
		if amount > l.Payment[i] {
			amount -= l.Payment[i]
			l.Payment[i] = 0
		} else {
			l.Payment[i] -= amount
			break
		}
	}
	l.Delinquent = l.Due() > epsilon
	l.PaidOff = l.Balance() <= epsilon
	return l.PaidOff
}
