// 人口动态：年龄增长、死亡、出生与空家庭的解散
package demography

import (
	"math"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

var log = logrus.WithField("module", "demography")

const (
	minFertileAge    = 15
	maxFertileAge    = 49
	maxQualification = 20
)

// Result 本月人口变动
type Result struct {
	Births    int
	Deaths    int
	Dissolved int // 解散的家庭
}

// Lifecycle 个体生命周期
// 功能：按出生月份每年更新一次年龄，并在同一时刻判定生育与死亡
type Lifecycle struct {
	w    *entity.World
	bank *ecosim.Central
	rng  *randengine.Engine
	p    *config.Params
}

// New 创建人口动态模块
func New(w *entity.World, bank *ecosim.Central, rng *randengine.Engine, p *config.Params) *Lifecycle {
	return &Lifecycle{w: w, bank: bank, rng: rng, p: p}
}

// Mortality 年死亡概率（Gompertz）：A·e^(B·age)，上限为1
func Mortality(age int, a, b float64) float64 {
	return math.Min(a*math.Exp(b*float64(age)), 1)
}

// Step 本月人口变动
// 参数：now-当前日期
// 算法说明：
// 1. 出生月份为本月的个体年龄加1
// 2. 15-49岁的女性以FERTILITY_RATE的概率生育，新生儿加入母亲所在家庭
// 3. 按Gompertz死亡率判定死亡，死者离开企业与家庭，现金归家庭储蓄
// 4. 最后一名成员死亡的家庭解散，资产由亲属或随机家庭继承
func (l *Lifecycle) Step(now time.Time) Result {
	var res Result
	month := int(now.Month())
	for _, a := range l.w.Agents.Snapshot() {
		if a.BirthMonth != month {
			continue
		}
		a.Age++
		if a.Gender == entity.Female && a.Age >= minFertileAge && a.Age <= maxFertileAge {
			if l.rng.PTrue(l.p.FertilityRate) {
				l.birth(a)
				res.Births++
			}
		}
		if l.rng.PTrue(Mortality(a.Age, l.p.MortalityA, l.p.MortalityB)) {
			res.Deaths++
			if l.die(a, now) {
				res.Dissolved++
			}
		}
	}
	if res.Births > 0 || res.Deaths > 0 {
		log.Debugf("demographics: %d births, %d deaths, %d families dissolved", res.Births, res.Deaths, res.Dissolved)
	}
	return res
}

// birth 新生儿
// 说明：受教育年限~3·Gamma(3)取整且不超过20，初始现金[20,40)，出生月份随机
func (l *Lifecycle) birth(mother *entity.Agent) *entity.Agent {
	f, ok := l.w.Families.Get(mother.FamilyID)
	if !ok {
		return nil
	}
	gender := entity.Male
	if l.rng.PTrue(.5) {
		gender = entity.Female
	}
	child := &entity.Agent{
		ID:            l.w.NewAgentID(),
		Gender:        gender,
		Age:           0,
		BirthMonth:    l.rng.RandRange(1, 13),
		Qualification: min(int(3*l.rng.Gamma(3)), maxQualification),
		Money:         float64(l.rng.RandRange(20, 40)),
	}
	l.w.AddMember(f, child)
	return child
}

// die 个体死亡，返回所在家庭是否因此解散
func (l *Lifecycle) die(a *entity.Agent, now time.Time) bool {
	f := l.w.Bury(a)
	if f == nil || f.NumMembers() > 0 {
		return false
	}
	l.Dissolve(f, now)
	return true
}

// Dissolve 解散没有成员的家庭
// 功能：分配房屋、储蓄、存款与贷款后从注册表移除
// 算法说明：
// 1. 有亲属时，按价格升序排列房屋，为每套房屋有放回地抽取一名亲属；
//    最后抽到的亲属获得最贵的房屋并承担全部贷款与存款，其余房屋分给其他抽到的亲属
// 2. 没有房屋时随机选择一名亲属承担贷款与存款；储蓄平均分给所有亲属
// 3. 没有亲属时房屋随机分给仍存在的家庭，贷款注销，存款取出后与储蓄一起交给一个随机家庭
func (l *Lifecycle) Dissolve(f *entity.Family, now time.Time) {
	if f.NumMembers() > 0 {
		log.Panicf("dissolving family %d with %d members", f.ID, f.NumMembers())
	}
	inheritance := slices.Clone(l.w.OwnedHouses(f))
	slices.SortStableFunc(inheritance, func(a, b *entity.House) int {
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
		return 0
	})
	savings := f.GrabSavings() + f.GrabMoney()
	relatives := lo.FilterMap(f.Relatives, func(id entity.FamilyID, _ int) (*entity.Family, bool) {
		r, ok := l.w.Families.Get(id)
		return r, ok && id != f.ID && r.NumMembers() > 0
	})

	if len(relatives) > 0 {
		var debtor *entity.Family
		if n := len(inheritance); n > 0 {
			lucky := make([]*entity.Family, n)
			for i := range lucky {
				lucky[i], _ = randengine.Choice(l.rng, relatives)
			}
			debtor = lucky[n-1]
			l.w.TransferHouse(inheritance[n-1], entity.OwnerFamily, int32(debtor.ID))
			others := lucky[:n-1]
			for _, h := range inheritance[:n-1] {
				heir, _ := randengine.Choice(l.rng, others)
				l.w.TransferHouse(h, entity.OwnerFamily, int32(heir.ID))
			}
		} else {
			debtor, _ = randengine.Choice(l.rng, relatives)
		}
		per := savings / float64(len(relatives))
		for _, r := range relatives {
			r.UpdateBalance(per)
		}
		l.bank.TransferLoans(f.ID, debtor.ID)
		l.bank.TransferDeposits(f.ID, debtor.ID)
	} else {
		survivors := lo.Filter(l.w.Families.Values(), func(o *entity.Family, _ int) bool {
			return o.ID != f.ID && o.NumMembers() > 0
		})
		l.bank.WriteOffLoans(f.ID)
		savings += l.bank.Withdraw(f.ID, now)
		if len(survivors) == 0 {
			log.Warnf("no family left to inherit %d houses of family %d", len(inheritance), f.ID)
		} else {
			for _, h := range inheritance {
				heir, _ := randengine.Choice(l.rng, survivors)
				l.w.TransferHouse(h, entity.OwnerFamily, int32(heir.ID))
			}
			heir, _ := randengine.Choice(l.rng, survivors)
			heir.UpdateBalance(savings)
		}
	}
	l.w.RemoveFamily(f)
}
