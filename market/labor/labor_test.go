package labor_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/market/labor"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

const regionID = entity.RegionID("3106200001")

// newWorld 每个家庭一名劳动年龄成员，住在(x, 0)
func newWorld(agents, firms int) *entity.World {
	w := entity.NewWorld()
	w.AddRegion(entity.NewRegion(regionID, [2]geometry.Point{{X: 0, Y: 0}, {X: 100, Y: 100}}, 1))
	for i := 0; i < agents; i++ {
		f := entity.NewFamily(w.NewFamilyID())
		w.AddFamily(f)
		w.AddMember(f, &entity.Agent{ID: w.NewAgentID(), Age: 30, Qualification: i % 20})
		h := &entity.House{ID: w.NewHouseID(), Address: geometry.Point{X: float64(i), Y: 0}, RegionID: regionID, OwnerType: entity.OwnerFamily, OwnerID: int32(f.ID)}
		w.AddHouse(h)
		w.MoveIn(f, h)
	}
	for i := 0; i < firms; i++ {
		firm := entity.NewFirm(w.NewFirmID(), entity.Consumer, geometry.Point{X: float64(i * 3), Y: 1}, 0, regionID)
		firm.Revenue = float64(100 * (i + 1))
		w.AddFirm(firm)
	}
	return w
}

func TestNoDoubleAssignment(t *testing.T) {
	w := newWorld(60, 20)
	p := config.DefaultParams()
	p.HiringSampleSize = 10
	p.PctDistanceHiring = .5
	m := labor.New(w, randengine.New(3), &p)
	m.LookForJobs()
	for _, f := range w.Firms.Values() {
		m.AddPost(f)
	}
	matches := m.AssignPost(0.1, nil)
	require.NotEmpty(t, matches)

	firms := make(map[entity.FirmID]int)
	agents := make(map[entity.AgentID]int)
	for _, match := range matches {
		firms[match.Firm.ID]++
		agents[match.Agent.ID]++
		assert.Equal(t, match.Firm.ID, match.Agent.FirmID)
	}
	for id, n := range firms {
		assert.Equal(t, 1, n, "firm %d", id)
	}
	for id, n := range agents {
		assert.Equal(t, 1, n, "agent %d", id)
	}
	total := 0
	for _, f := range w.Firms.Values() {
		total += f.NumEmployees()
	}
	assert.Equal(t, len(matches), total)

	// 匹配后清空
	assert.Equal(t, 0, m.NumCandidates())
	assert.Equal(t, 0, m.NumPostings())
}

func TestQualificationPoolPrefersQualified(t *testing.T) {
	w := entity.NewWorld()
	w.AddRegion(entity.NewRegion(regionID, [2]geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, 1))
	f := entity.NewFamily(w.NewFamilyID())
	w.AddFamily(f)
	low := &entity.Agent{ID: w.NewAgentID(), Age: 30, Qualification: 2}
	high := &entity.Agent{ID: w.NewAgentID(), Age: 30, Qualification: 15}
	w.AddMember(f, low)
	w.AddMember(f, high)
	firm := entity.NewFirm(w.NewFirmID(), entity.Consumer, geometry.Point{}, 0, regionID)
	w.AddFirm(firm)

	p := config.DefaultParams()
	p.PctDistanceHiring = 0
	m := labor.New(w, randengine.New(1), &p)
	m.LookForJobs()
	m.AddPost(firm)
	matches := m.AssignPost(0, nil)
	require.Len(t, matches, 1)
	assert.Equal(t, high.ID, matches[0].Agent.ID)
	assert.InDelta(t, 15., matches[0].Score, 1e-9)
	assert.False(t, low.IsEmployed())
}

func TestDistancePoolPrefersClosest(t *testing.T) {
	w := newWorld(5, 1)
	p := config.DefaultParams()
	p.PctDistanceHiring = 1
	m := labor.New(w, randengine.New(1), &p)
	m.LookForJobs()
	m.AddPost(w.Firms.Values()[0])
	matches := m.AssignPost(0, nil)
	require.Len(t, matches, 1)
	// 企业位于(0,1)，最近的是住在(0,0)的个体
	assert.Equal(t, entity.AgentID(1), matches[0].Agent.ID)
	assert.InDelta(t, 1., matches[0].Agent.Distance, 1e-9)
}

func TestHireFire(t *testing.T) {
	w := newWorld(4, 2)
	firms := w.Firms.Values()
	for _, a := range w.Agents.Values()[:2] {
		firms[1].AddEmployee(a)
	}
	firms[1].Profit = -1
	p := config.DefaultParams()
	m := labor.New(w, randengine.New(1), &p)
	m.HireFire(0)
	assert.Equal(t, 1, m.NumPostings())
	assert.Equal(t, 1, firms[1].NumEmployees())
}

func TestWarmUp(t *testing.T) {
	w := newWorld(40, 10)
	p := config.DefaultParams()
	m := labor.New(w, randengine.New(5), &p)
	rounds := m.WarmUp(.1)
	assert.Greater(t, rounds, 0)
	assert.LessOrEqual(t, w.Unemployment(), .1)
}

func TestWageDeciles(t *testing.T) {
	w := newWorld(20, 0)
	assert.Nil(t, labor.WageDeciles(w, randengine.New(1)))
	for i, a := range w.Agents.Values() {
		a.LastWage = float64(i + 1)
	}
	d := labor.WageDeciles(w, randengine.New(1))
	require.Len(t, d, 10)
	for i := 1; i < len(d); i++ {
		assert.GreaterOrEqual(t, d[i], d[i-1])
	}
}
