package goods_test

import (
	"testing"
	"time"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/market/goods"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

const regionID = entity.RegionID("3106200001")

func newWorld(t *testing.T) (*entity.World, *entity.Family, *entity.Firm) {
	w := entity.NewWorld()
	w.AddRegion(entity.NewRegion(regionID, [2]geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, 1))
	f := entity.NewFamily(w.NewFamilyID())
	w.AddFamily(f)
	w.AddMember(f, &entity.Agent{ID: w.NewAgentID(), Age: 30, Money: 50})
	w.AddMember(f, &entity.Agent{ID: w.NewAgentID(), Age: 32, Money: 50})
	h := &entity.House{ID: w.NewHouseID(), Size: 10, Quality: 1, RegionID: regionID, OwnerType: entity.OwnerFamily, OwnerID: int32(f.ID)}
	w.AddHouse(h)
	w.MoveIn(f, h)

	firm := entity.NewFirm(w.NewFirmID(), entity.Consumer, geometry.Point{X: 1, Y: 1}, 0, regionID)
	firm.CreateProduct()
	require.NotNil(t, firm.Inventory)
	firm.Inventory.Quantity = 1000
	w.AddFirm(firm)
	return w, f, firm
}

func TestConsumeConservesMoney(t *testing.T) {
	w, f, firm := newWorld(t)
	p := config.DefaultParams()
	m := goods.New(w, randengine.New(7), &p)
	spent := m.Consume()

	assert.Greater(t, spent, 0.)
	assert.LessOrEqual(t, spent, 100.)
	assert.Equal(t, 0., f.SumBalance())
	assert.InDelta(t, 100-spent, f.Savings, 1e-9)
	tax := w.MustRegion(regionID).Treasure[entity.TaxConsumption]
	assert.InDelta(t, spent, firm.Revenue+tax, 1e-9)
	assert.Equal(t, 1, m.Strategies()[goods.StrategyPrice]+m.Strategies()[goods.StrategyDistance])
}

func TestConsumeCappedByPermanentIncome(t *testing.T) {
	w, f, _ := newWorld(t)
	f.LastPermanentIncome = 5
	p := config.DefaultParams()
	m := goods.New(w, randengine.New(7), &p)
	spent := m.Consume()
	assert.LessOrEqual(t, spent, 5.)
	assert.InDelta(t, 100-spent, f.Savings, 1e-9)
}

func TestConsumeWithoutFirms(t *testing.T) {
	w, f, firm := newWorld(t)
	firm.Inventory = nil
	p := config.DefaultParams()
	m := goods.New(w, randengine.New(7), &p)
	assert.Equal(t, 0., m.Consume())
	assert.Equal(t, 100., f.Savings)
}

func TestInvestKeepsReserve(t *testing.T) {
	w, f, _ := newWorld(t)
	p := config.DefaultParams()
	bank := ecosim.NewCentral(p)
	f.Savings = 100
	f.LastPermanentIncome = 10
	now := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	got := goods.Invest(w, bank, &p, now)
	assert.Equal(t, 40., got)
	assert.Equal(t, 60., f.Savings)
	assert.Equal(t, 40., bank.SumDeposits(f.ID))

	// 储蓄不超过储备时不存款
	assert.Equal(t, 0., goods.Invest(w, bank, &p, now))
}

func TestUpdatePermanentIncomes(t *testing.T) {
	w, f, _ := newWorld(t)
	p := config.DefaultParams()
	bank := ecosim.NewCentral(p)
	bank.SetInterest(0.01, 0.01)
	goods.UpdatePermanentIncomes(w, bank)
	// 没有工资：持久收入 = 财富×r，财富 = 现金100 + 房屋价格0
	assert.InDelta(t, 1., f.LastPermanentIncome, 1e-9)
}
