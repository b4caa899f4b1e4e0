package output_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/funds"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/output"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
)

var now = time.Date(2011, 5, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	w     *entity.World
	bank  *ecosim.Central
	funds *funds.Funds
	shop  *entity.Firm
}

// newFixture 两个市各一个区域，一家有员工的企业，一户自有住房家庭与一户租房家庭
func newFixture() *fixture {
	w := entity.NewWorld()
	a := entity.NewRegion("3106200001", [2]geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, .8)
	b := entity.NewRegion("3106201001", [2]geometry.Point{{X: 10, Y: 0}, {X: 20, Y: 10}}, .6)
	w.AddRegion(a)
	w.AddRegion(b)
	p := config.DefaultParams()
	bank := ecosim.NewCentral(p)
	bank.SetInterest(.004, .007)
	bank.Balance = 500

	worker := &entity.Agent{ID: w.NewAgentID(), Age: 40, Distance: 5}
	idle := &entity.Agent{ID: w.NewAgentID(), Age: 30}
	owner := entity.NewFamily(w.NewFamilyID())
	owner.AddAgent(worker)
	owner.LastPermanentIncome = 10
	renter := entity.NewFamily(w.NewFamilyID())
	renter.AddAgent(idle)
	renter.LastPermanentIncome = 30
	renter.RentDefault = true
	w.AddFamily(owner)
	w.AddFamily(renter)

	home := &entity.House{ID: w.NewHouseID(), Size: 50, Quality: 2, Price: 80, RegionID: a.ID, OwnerType: entity.OwnerFamily, OwnerID: int32(owner.ID)}
	rental := &entity.House{ID: w.NewHouseID(), Size: 25, Quality: 2, Price: 40, RegionID: a.ID, OwnerType: entity.OwnerFamily, OwnerID: int32(owner.ID)}
	empty := &entity.House{ID: w.NewHouseID(), Size: 25, Quality: 2, Price: 30, RegionID: b.ID, OwnerType: entity.OwnerFamily, OwnerID: int32(owner.ID)}
	w.AddHouse(home)
	w.AddHouse(rental)
	w.AddHouse(empty)
	w.MoveIn(owner, home)
	w.MoveIn(renter, rental)
	rental.RentData = &entity.RentData{Monthly: 2, Start: now}

	shop := entity.NewFirm(w.NewFirmID(), entity.Consumer, geometry.Point{X: 1, Y: 1}, 1000, a.ID)
	shop.Inventory = &entity.Product{Quantity: 10, Price: 2}
	shop.Revenue = 100
	shop.AddEmployee(worker)
	w.AddFirm(shop)
	idleFirm := entity.NewFirm(w.NewFirmID(), entity.Consumer, geometry.Point{X: 11, Y: 1}, 200, b.ID)
	idleFirm.Inventory = &entity.Product{Quantity: 0, Price: 10}
	idleFirm.Revenue = 50
	w.AddFirm(idleFirm)

	a.UpdateAppliedTaxes(3, funds.KeyEqually)
	b.UpdateAppliedTaxes(1, funds.KeyLocally)
	return &fixture{w: w, bank: bank, funds: funds.New(w, &p, nil), shop: shop}
}

func TestCompute(t *testing.T) {
	fx := newFixture()
	s := output.NewStats("run0", "baseline")
	r := s.Compute(fx.w, fx.bank, fx.funds, now, 16)

	assert.Equal(t, "run0", r.Run)
	assert.Equal(t, 16, r.Month)
	// 没有员工或没有库存的企业不计入平均价格
	assert.Equal(t, 2., r.Price)
	assert.Equal(t, 0., r.Inflation)
	assert.Equal(t, 150., r.GDP)
	assert.Equal(t, 100., r.GDPGrowth)
	assert.Equal(t, .5, r.Unemployment)
	assert.Equal(t, .5, r.AverageWorkers)
	assert.InDelta(t, .7, r.QLI, 1e-12)
	assert.Equal(t, 5., r.Commute)
	assert.InDelta(t, 1./3, r.Vacancy, 1e-12)
	assert.InDelta(t, 50., r.HousePrice, 1e-12)
	assert.Equal(t, 2., r.RentPrice)
	assert.Equal(t, 1., r.AffordableRent)
	assert.Equal(t, 1., r.RentDefault)
	assert.Equal(t, 500., r.BankBalance)
	assert.Equal(t, .007, r.MortgageRate)
	assert.Equal(t, 3., r.Equally)
	assert.Equal(t, 1., r.Locally)
	assert.Equal(t, 0., r.FPM)
	assert.Equal(t, 1200., r.FirmsWealth)
	assert.Greater(t, r.Gini, 0.)
	assert.Equal(t, 150., fx.w.MustRegion("3106200001").GDP+fx.w.MustRegion("3106201001").GDP)
}

func TestComputeInflationAndGrowth(t *testing.T) {
	fx := newFixture()
	s := output.NewStats("run0", "baseline")
	s.Compute(fx.w, fx.bank, fx.funds, now, 16)

	fx.shop.Inventory.Price = 3
	fx.shop.Revenue = 250
	r := s.Compute(fx.w, fx.bank, fx.funds, now.AddDate(0, 1, 0), 17)
	assert.InDelta(t, .5, r.Inflation, 1e-12)
	assert.Equal(t, 300., r.GDP)
	assert.InDelta(t, 50., r.GDPGrowth, 1e-12)
}

func TestSQLiteSink(t *testing.T) {
	fx := newFixture()
	s := output.NewStats("run0", "baseline")
	sink, err := output.NewSQLiteSink(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	first := s.Compute(fx.w, fx.bank, fx.funds, now, 16)
	require.NoError(t, sink.Write(ctx, first))
	require.NoError(t, sink.Write(ctx, s.Compute(fx.w, fx.bank, fx.funds, now.AddDate(0, 1, 0), 17)))
	// 同一次运行同一月份只能写入一次
	assert.Error(t, sink.Write(ctx, first))

	reports, err := sink.Reports(ctx, "run0")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 16, reports[0].Month)
	assert.Equal(t, first.GDP, reports[0].GDP)
	assert.Equal(t, first.Unemployment, reports[0].Unemployment)
	assert.True(t, first.Date.Equal(reports[0].Date))
	assert.Equal(t, 17, reports[1].Month)

	other, err := sink.Reports(ctx, "run1")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestOpenSinks(t *testing.T) {
	entry := logrus.WithField("run", "test")
	sinks, err := output.Open(config.Output{}, entry)
	require.NoError(t, err)
	require.Len(t, sinks, 1)
	fx := newFixture()
	assert.NoError(t, sinks[0].Write(context.Background(), output.NewStats("r", "t").Compute(fx.w, fx.bank, fx.funds, now, 16)))
	output.CloseAll(sinks)

	sinks, err = output.Open(config.Output{SQLite: filepath.Join(t.TempDir(), "r.db")}, entry)
	require.NoError(t, err)
	assert.Len(t, sinks, 2)
	output.CloseAll(sinks)

	_, err = output.Open(config.Output{Mongo: &config.MongoOutput{URI: "mongodb://localhost"}}, entry)
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	fx := newFixture()
	fx.w.MustRegion("3106200001").CollectTaxes(7, entity.TaxLabor)
	fx.w.MustRegion("3106200001").TransferTreasure()
	last := output.NewStats("run0", "baseline").Compute(fx.w, fx.bank, fx.funds, now, 16)

	path, err := output.SaveSnapshot(t.TempDir(), fx.w, fx.bank, last)
	require.NoError(t, err)
	assert.Equal(t, "run0.pb", filepath.Base(path))

	s, err := output.LoadSnapshot(path)
	require.NoError(t, err)
	m := s.AsMap()
	assert.Equal(t, "run0", m["run"])
	assert.Equal(t, "2011-05-01", m["date"])
	assert.Equal(t, 150., m["gdp"])
	counts := m["counts"].(map[string]interface{})
	assert.Equal(t, 2., counts["agents"])
	assert.Equal(t, 3., counts["houses"])
	regions := m["regions"].([]interface{})
	require.Len(t, regions, 2)
	first := regions[0].(map[string]interface{})
	assert.Equal(t, "3106200001", first["id"])
	assert.Equal(t, 7., first["treasure"].(map[string]interface{})["labor"])
	assert.Equal(t, 500., m["bank"].(map[string]interface{})["balance"])
}
