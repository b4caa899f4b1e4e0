package ecosim

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "ecosim")

// LoanDecision 贷款审批结果
type LoanDecision int

const (
	Accepted                  LoanDecision = iota // 批准
	RejectedInsufficientFunds                     // 银行现金不足
	RejectedExistingLoan                          // 家庭已有贷款
	RejectedCapacity                              // 超过存款可贷比例
	RejectedCreditCheck                           // 还款能力不足
)

func (d LoanDecision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case RejectedInsufficientFunds:
		return "rejected_insufficient_funds"
	case RejectedExistingLoan:
		return "rejected_existing_loan"
	case RejectedCapacity:
		return "rejected_capacity"
	case RejectedCreditCheck:
		return "rejected_credit_check"
	}
	return "unknown"
}
