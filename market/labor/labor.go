// 劳动力市场：企业岗位与失业个体的按月匹配
package labor

import (
	"slices"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/container"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/stats"
)

var log = logrus.WithField("module", "labor")

// 初始就业分配的最大轮数
const maxWarmUpRounds = 10000

// Match 一次成功的雇佣
type Match struct {
	Firm  *entity.Firm
	Agent *entity.Agent
	Score float64
}

// pair 候选的(企业, 个体)组合
type pair struct {
	firm     *entity.Firm
	agent    *entity.Agent
	distance float64
}

// Market 劳动力市场
// 功能：每月收集岗位与求职者，按工资排序匹配，匹配后清空
// 说明：岗位分为资质池与距离池，两池分别打分后贪心分配，同一企业、同一个体每月至多匹配一次
type Market struct {
	w   *entity.World
	rng *randengine.Engine
	p   *config.Params

	postings   []*entity.Firm
	candidates []*entity.Agent
}

// New 创建劳动力市场
func New(w *entity.World, rng *randengine.Engine, p *config.Params) *Market {
	return &Market{
		w:          w,
		rng:        rng,
		p:          p,
		postings:   make([]*entity.Firm, 0),
		candidates: make([]*entity.Agent, 0),
	}
}

// AddPost 企业发布岗位
func (m *Market) AddPost(f *entity.Firm) {
	m.postings = append(m.postings, f)
}

// AddCandidate 个体求职
func (m *Market) AddCandidate(a *entity.Agent) {
	m.candidates = append(m.candidates, a)
}

// NumCandidates 求职者数
func (m *Market) NumCandidates() int {
	return len(m.candidates)
}

// NumPostings 岗位数
func (m *Market) NumPostings() int {
	return len(m.postings)
}

// Reset 清空岗位与求职者
func (m *Market) Reset() {
	m.postings = m.postings[:0]
	m.candidates = m.candidates[:0]
}

// LookForJobs 所有可就业的个体进入求职列表
func (m *Market) LookForJobs() {
	for _, a := range m.w.Agents.Values() {
		if a.IsEmployable() {
			m.AddCandidate(a)
		}
	}
}

// HireFire 企业根据利润调整雇佣
// 功能：每家企业以1-freq的概率进入市场，利润非负时发布岗位，否则随机解雇一人
func (m *Market) HireFire(freq float64) {
	for _, f := range m.w.Firms.Values() {
		if m.rng.Float64() > freq {
			if f.Profit >= 0 {
				m.AddPost(f)
			} else {
				f.Fire(m.rng)
			}
		}
	}
}

// distance 个体住所到企业的距离，无住所时为0
func (m *Market) distance(a *entity.Agent, f *entity.Firm) float64 {
	fam, ok := m.w.Families.Get(a.FamilyID)
	if !ok {
		return 0
	}
	h, ok := m.w.ResidenceOf(fam)
	if !ok {
		return 0
	}
	return h.DistanceToFirm(f)
}

// transitCost 单位距离通勤成本，有车时使用私人交通成本
func (m *Market) transitCost(a *entity.Agent) float64 {
	if a.HasCar {
		return m.p.PrivateTransitCost
	}
	return m.p.PublicTransitCost
}

// assignCars 按工资十分位抽取是否拥有汽车
func (m *Market) assignCars(wageDeciles []float64) {
	if len(wageDeciles) == 0 || len(m.p.CarOwnership) == 0 {
		return
	}
	for _, a := range m.candidates {
		idx := lo.Clamp(decileOf(wageDeciles, a.LastWage), 0, len(m.p.CarOwnership)-1)
		a.HasCar = m.rng.PTrue(m.p.CarOwnership[idx])
	}
}

// decileOf 工资所在的十分位下标
func decileOf(deciles []float64, wage float64) int {
	idx := 0
	for i, d := range deciles {
		if wage >= d {
			idx = i
		}
	}
	return idx
}

// AssignPost 匹配岗位与求职者
// 功能：按工资排名、资质与通勤距离匹配，结束后清空岗位与求职者
// 参数：unemployment-当前失业率（计算预期工资），wageDeciles-工资十分位（可为空，不分配汽车）
// 返回：本月的全部成功匹配
// 算法说明：
// 1. 打乱求职者，按工资十分位抽取拥车情况
// 2. 岗位按预期工资降序稳定排序，前(1-PCT_DISTANCE_HIRING)为资质池，其余为距离池
// 3. 资质池：每个岗位抽取HIRING_SAMPLE_SIZE名求职者，得分=qualification+(工资-距离×通勤成本)
// 4. 距离池：在未匹配的求职者中抽样，得分=工资-距离×通勤成本-距离
// 5. 每轮将所有组合按得分降序（同分按生成顺序）贪心分配，企业与个体均至多使用一次
func (m *Market) AssignPost(unemployment float64, wageDeciles []float64) []Match {
	defer m.Reset()
	if len(m.candidates) == 0 || len(m.postings) == 0 {
		return nil
	}
	randengine.Shuffle(m.rng, m.candidates)
	m.assignCars(wageDeciles)

	ignore := m.p.WageIgnoreUnemployment
	wages := make(map[entity.FirmID]float64, len(m.postings))
	for _, f := range m.postings {
		wages[f.ID] = f.ExpectedWage(unemployment, ignore)
	}
	postings := slices.Clone(m.postings)
	slices.SortStableFunc(postings, func(a, b *entity.Firm) int {
		wa, wb := wages[a.ID], wages[b.ID]
		switch {
		case wa > wb:
			return -1
		case wa < wb:
			return 1
		}
		return 0
	})
	split := int(float64(len(postings)) * (1 - m.p.PctDistanceHiring))
	byQual, byDist := postings[:split], postings[split:]

	matched := make(map[entity.AgentID]bool)
	hired := make(map[entity.FirmID]bool)
	res := make([]Match, 0)

	// 资质池
	queue := container.NewPriorityQueue[pair]()
	for _, f := range byQual {
		for _, a := range randengine.Sample(m.rng, m.candidates, m.p.HiringSampleSize) {
			d := m.distance(a, f)
			score := float64(a.Qualification) + (wages[f.ID] - d*m.transitCost(a))
			queue.Push(pair{firm: f, agent: a, distance: d}, -score)
		}
	}
	res = m.greedy(queue, matched, hired, res)

	// 距离池
	remaining := lo.Filter(m.candidates, func(a *entity.Agent, _ int) bool { return !matched[a.ID] })
	queue = container.NewPriorityQueue[pair]()
	for _, f := range byDist {
		if len(remaining) == 0 {
			break
		}
		for _, a := range randengine.Sample(m.rng, remaining, m.p.HiringSampleSize) {
			d := m.distance(a, f)
			score := wages[f.ID] - d*m.transitCost(a) - d
			queue.Push(pair{firm: f, agent: a, distance: d}, -score)
		}
	}
	res = m.greedy(queue, matched, hired, res)
	log.Debugf("labor market: %d postings, %d candidates, %d hired", len(postings), len(m.candidates), len(res))
	return res
}

// greedy 按得分从高到低分配
func (m *Market) greedy(queue *container.PriorityQueue[pair], matched map[entity.AgentID]bool, hired map[entity.FirmID]bool, res []Match) []Match {
	for queue.Len() > 0 {
		c, priority := queue.Pop()
		if matched[c.agent.ID] || hired[c.firm.ID] || c.agent.IsEmployed() {
			continue
		}
		matched[c.agent.ID] = true
		hired[c.firm.ID] = true
		c.firm.AddEmployee(c.agent)
		c.agent.Distance = c.distance
		res = append(res, Match{Firm: c.firm, Agent: c.agent, Score: -priority})
	}
	return res
}

// WarmUp 初始就业分配
// 功能：重复企业调整与匹配，直到求职者占初始求职者的比例不高于target
// 返回：执行的轮数
func (m *Market) WarmUp(target float64) int {
	m.Reset()
	m.LookForJobs()
	total := m.NumCandidates()
	if total == 0 {
		return 0
	}
	rounds := 0
	for float64(m.NumCandidates())/float64(total) > target && rounds < maxWarmUpRounds {
		m.HireFire(m.p.LaborMarket)
		if m.NumPostings() == 0 {
			m.Reset()
			break
		}
		m.AssignPost(m.w.Unemployment(), nil)
		m.LookForJobs()
		rounds++
	}
	m.Reset()
	log.Infof("labor warm-up finished after %d rounds, unemployment %.3f", rounds, m.w.Unemployment())
	return rounds
}

// WageDeciles 抽取一半个体，计算领取过工资者的工资十分位
// 说明：百分位按线性插值计算，没有样本时返回空
func WageDeciles(w *entity.World, rng *randengine.Engine) []float64 {
	sample := randengine.Sample(rng, w.Agents.Values(), w.Agents.Len()/2)
	wages := lo.FilterMap(sample, func(a *entity.Agent, _ int) (float64, bool) { return a.LastWage, a.LastWage > 0 })
	if len(wages) == 0 {
		return nil
	}
	slices.Sort(wages)
	res := make([]float64, 10)
	for i := range res {
		res[i] = stats.SortedQuantile(wages, float64(i)/10)
	}
	return res
}
