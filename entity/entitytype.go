package entity

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "entity")

// AgentID 个体ID
type AgentID int32

// FamilyID 家庭ID，0表示无
type FamilyID int32

// HouseID 房屋ID，0表示无
type HouseID int32

// FirmID 企业ID，0表示无（未就业）
type FirmID int32

// RegionID 区域ID，前7位为市代码，其后为加权区（AP）代码
type RegionID string

// Municipality 区域所属市代码
func (r RegionID) Municipality() string {
	if len(r) < 7 {
		return string(r)
	}
	return string(r[:7])
}

const (
	NoFamily FamilyID = 0
	NoHouse  HouseID  = 0
	NoFirm   FirmID   = 0
)

// Gender 性别
type Gender int

const (
	Male Gender = iota
	Female
)

// OwnerType 房屋所有者类型
type OwnerType int

const (
	OwnerFamily OwnerType = iota
	OwnerFirm
)

// FirmKind 企业类型
type FirmKind int

const (
	Consumer FirmKind = iota
	Construction
)

func (k FirmKind) String() string {
	if k == Construction {
		return "CONSTRUCTION"
	}
	return "CONSUMER"
}

// TaxKind 税种
type TaxKind string

const (
	TaxConsumption TaxKind = "consumption"
	TaxLabor       TaxKind = "labor"
	TaxFirm        TaxKind = "firm"
	TaxProperty    TaxKind = "property"
	TaxTransaction TaxKind = "transaction"
)

// TaxKinds 所有税种，按固定顺序遍历
var TaxKinds = []TaxKind{TaxConsumption, TaxLabor, TaxFirm, TaxProperty, TaxTransaction}

// Ledger 银行账簿的只读视图
// 说明：家庭财富与持久收入的计算依赖银行存款与贷款余额
type Ledger interface {
	SumDeposits(id FamilyID) float64
	LoanBalance(id FamilyID) float64
}
