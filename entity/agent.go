package entity

// Agent 个体
// 功能：在家庭中生活、在企业中工作、参与消费的居民
// 说明：Family独占持有Agent，Agent.FamilyID只是反向引用
type Agent struct {
	ID            AgentID
	Gender        Gender
	Age           int
	BirthMonth    int // 出生月份（1-12）
	Qualification int // 受教育年限
	Money         float64
	FamilyID      FamilyID
	FirmID        FirmID  // 雇主，NoFirm表示未就业
	LastWage      float64 // 最近一次工资，0表示从未领取
	Distance      float64 // 通勤距离缓存
	HasCar        bool
}

// IsMinor 是否未成年
func (a *Agent) IsMinor() bool {
	return a.Age < 16
}

// IsRetired 是否退休
func (a *Agent) IsRetired() bool {
	return a.Age > 70
}

// IsEmployed 是否就业
func (a *Agent) IsEmployed() bool {
	return a.FirmID != NoFirm
}

// IsEmployable 是否可以进入劳动力市场
func (a *Agent) IsEmployable() bool {
	return !a.IsRetired() && !a.IsMinor() && !a.IsEmployed()
}

// GrabMoney 取走全部现金
func (a *Agent) GrabMoney() float64 {
	d := a.Money
	a.Money = 0
	return d
}
