// 财政：各区域税收的汇总与三渠道再分配（平均、本地、FPM），以及扶贫政策
package funds

import (
	"sort"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
)

var log = logrus.WithField("module", "funds")

// 税收去向的键
const (
	KeyEqually = "equally"
	KeyLocally = "locally"
	KeyFPM     = "fpm"
)

// Summary 本月财政分配结果
type Summary struct {
	Collected float64 // 区域税收与银行利息税合计
	Equally   float64
	Locally   float64
	FPM       float64
	Policy    float64 // 转入政策资金池的部分
}

// Applied 实际投入区域的金额合计
func (s Summary) Applied() float64 {
	return s.Equally + s.Locally + s.FPM
}

// Funds 市政财政
// 功能：每月取出各区域税收，按人口与FPM比例投入区域QLI，按POLICY_COEFFICIENT预留政策资金
type Funds struct {
	w   *entity.World
	p   *config.Params
	fpm map[int]map[string]float64 // 年份 -> 市代码 -> 历史FPM分配额

	PolicyMoney        map[string]float64 // 市代码 -> 政策资金池
	FamiliesSubsided   int                // 本月受资助的家庭
	MoneyAppliedPolicy float64            // 累计政策支出

	policyFamilies map[string][]*entity.Family
}

// New 创建市政财政
// 参数：fpm-历史FPM表，为空时各市按相同比例分配
func New(w *entity.World, p *config.Params, fpm map[int]map[string]float64) *Funds {
	return &Funds{
		w:              w,
		p:              p,
		fpm:            fpm,
		PolicyMoney:    make(map[string]float64),
		policyFamilies: make(map[string][]*entity.Family),
	}
}

// reserve 按POLICY_COEFFICIENT划出政策资金，返回剩余投入区域的金额
func (f *Funds) reserve(mun string, amount float64, s *Summary) float64 {
	if f.p.PolicyCoefficient <= 0 {
		return amount
	}
	kept := amount * f.p.PolicyCoefficient
	f.PolicyMoney[mun] += kept
	s.Policy += kept
	return amount - kept
}

// apply 资金投入区域：QLI增加amount×MUNICIPAL_EFFICIENCY_MANAGEMENT并记录去向
func (f *Funds) apply(r *entity.Region, amount float64, key string) {
	r.UpdateIndex(amount * f.p.MunicipalEfficiencyManagement)
	r.UpdateAppliedTaxes(amount, key)
}

// share 人口占比，分母为0时按个数平分
func share(pop, total, n int) float64 {
	if total > 0 {
		return float64(pop) / float64(total)
	}
	if n > 0 {
		return 1 / float64(n)
	}
	return 0
}

// InvestTaxes 税收再分配
// 功能：取出各区域本月税收，分三个渠道投入区域
// 参数：year-当前年份（选择FPM表），bankTaxes-银行代扣的存款利息税
// 返回：本月分配结果
// 算法说明：
// 1. 更新区域人口，QLI乘以所在市上月人口与本月人口之比
// 2. ALTERNATIVE0时，消费税的consumption_equal部分进入平均池，其余消费税与交易税、房产税按市汇总，
//    在市内按区域人口占比分配（本地渠道）；否则这三种税全部进入平均池
// 3. FPM_DISTRIBUTION时，劳动税与企业税的fpm部分按FPM比例分给各市、在市内按人口占比分配，其余进入平均池；
//    否则全部进入平均池
// 4. 银行利息税进入平均池，平均池按区域人口占全部人口的比例分配
// 5. 每个渠道的每笔金额先按POLICY_COEFFICIENT划入所在市的政策资金池
func (f *Funds) InvestTaxes(year int, bankTaxes float64) Summary {
	regions := f.w.Regions.Values()
	pops := f.w.RegionPops()
	munPrev := make(map[string]int)
	munPop := make(map[string]int)
	munRegions := make(map[string][]*entity.Region)
	treasure := make(map[entity.RegionID]map[entity.TaxKind]float64, len(regions))
	for _, r := range regions {
		mun := r.ID.Municipality()
		munPrev[mun] += r.Pop
		r.Pop = pops[r.ID]
		munPop[mun] += r.Pop
		munRegions[mun] = append(munRegions[mun], r)
		treasure[r.ID] = r.TransferTreasure()
	}
	for _, r := range regions {
		mun := r.ID.Municipality()
		if munPrev[mun] > 0 && munPop[mun] > 0 {
			r.UpdateIndexPop(float64(munPrev[mun]) / float64(munPop[mun]))
		}
	}
	total := func(kind entity.TaxKind) float64 {
		return lo.SumBy(regions, func(r *entity.Region) float64 { return treasure[r.ID][kind] })
	}
	s := Summary{Collected: bankTaxes}
	for _, k := range entity.TaxKinds {
		s.Collected += total(k)
	}
	municipalities := f.w.Municipalities()

	equal := 0.
	if f.p.Alternative0 {
		ce := f.p.TaxesStructure.ConsumptionEqual
		equal += total(entity.TaxConsumption) * ce
		local := make(map[string]float64, len(municipalities))
		for _, mun := range municipalities {
			for _, r := range munRegions[mun] {
				t := treasure[r.ID]
				local[mun] += t[entity.TaxConsumption]*(1-ce) + t[entity.TaxTransaction] + t[entity.TaxProperty]
			}
		}
		s.Locally = f.locally(municipalities, munRegions, local, munPop, &s)
	} else {
		equal += total(entity.TaxConsumption) + total(entity.TaxProperty) + total(entity.TaxTransaction)
	}

	fpm := total(entity.TaxLabor) + total(entity.TaxFirm)
	if f.p.FPMDistribution {
		part := fpm * f.p.TaxesStructure.FPM
		s.FPM = f.distributeFPM(part, municipalities, munRegions, munPop, year, &s)
		equal += fpm - part
	} else {
		equal += fpm
	}
	equal += bankTaxes
	s.Equally = f.equally(equal, regions, lo.Sum(lo.Values(munPop)), &s)
	log.Debugf("taxes invested: equally %.2f, locally %.2f, fpm %.2f, policy %.2f", s.Equally, s.Locally, s.FPM, s.Policy)
	return s
}

// locally 本地渠道：各市的本地税收在市内按人口占比分配
func (f *Funds) locally(municipalities []string, munRegions map[string][]*entity.Region, value map[string]float64, munPop map[string]int, s *Summary) float64 {
	applied := 0.
	for _, mun := range municipalities {
		rs := munRegions[mun]
		for _, r := range rs {
			amount := value[mun] * share(r.Pop, munPop[mun], len(rs))
			amount = f.reserve(mun, amount, s)
			f.apply(r, amount, KeyLocally)
			applied += amount
		}
	}
	return applied
}

// equally 平均渠道：按区域人口占全部人口的比例分配
func (f *Funds) equally(value float64, regions []*entity.Region, totalPop int, s *Summary) float64 {
	applied := 0.
	for _, r := range regions {
		amount := value * share(r.Pop, totalPop, len(regions))
		amount = f.reserve(r.ID.Municipality(), amount, s)
		f.apply(r, amount, KeyEqually)
		applied += amount
	}
	return applied
}

// fpmWeights 各市的FPM权重
// 说明：使用不晚于year的最近年份，year早于所有年份时使用最早的年份；没有表或市不在表中时权重为1
func (f *Funds) fpmWeights(municipalities []string, year int) map[string]float64 {
	res := make(map[string]float64, len(municipalities))
	for _, mun := range municipalities {
		res[mun] = 1
	}
	if len(f.fpm) == 0 {
		return res
	}
	years := lo.Keys(f.fpm)
	sort.Ints(years)
	chosen := years[0]
	for _, y := range years {
		if y <= year {
			chosen = y
		}
	}
	table := f.fpm[chosen]
	for _, mun := range municipalities {
		if v, ok := table[mun]; ok && v > 0 {
			res[mun] = v
		}
	}
	return res
}

// distributeFPM FPM渠道
// 公式：区域金额 = 市FPM权重/各市权重之和 × value × 区域人口/市人口
func (f *Funds) distributeFPM(value float64, municipalities []string, munRegions map[string][]*entity.Region, munPop map[string]int, year int, s *Summary) float64 {
	weights := f.fpmWeights(municipalities, year)
	sum := lo.SumBy(municipalities, func(mun string) float64 { return weights[mun] })
	if sum <= 0 {
		return 0
	}
	applied := 0.
	for _, mun := range municipalities {
		rs := munRegions[mun]
		for _, r := range rs {
			amount := weights[mun] / sum * value * share(r.Pop, munPop[mun], len(rs))
			amount = f.reserve(mun, amount, s)
			f.apply(r, amount, KeyFPM)
			applied += amount
		}
	}
	return applied
}
