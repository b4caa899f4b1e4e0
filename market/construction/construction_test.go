package construction_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/market/construction"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

const regionID = entity.RegionID("3106200001")

func newWorld(t *testing.T, comparablePrice float64) (*entity.World, *entity.Region, *entity.Firm) {
	t.Helper()
	w := entity.NewWorld()
	r := entity.NewRegion(regionID, [2]geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, 1)
	w.AddRegion(r)
	firm := entity.NewFirm(w.NewFirmID(), entity.Construction, geometry.Point{}, 1000, regionID)
	w.AddFirm(firm)
	if comparablePrice > 0 {
		// 覆盖所有可能的目标面积与质量
		for size := 20.; size < 120; size += 5 {
			for q := 1; q <= 4; q++ {
				w.AddHouse(&entity.House{
					ID:        w.NewHouseID(),
					Size:      size,
					Quality:   q,
					Price:     comparablePrice,
					RegionID:  regionID,
					OwnerType: entity.OwnerFirm,
					OwnerID:   int32(firm.ID),
				})
			}
		}
	}
	return w, r, firm
}

func TestIssueLicenses(t *testing.T) {
	w, r, _ := newWorld(t, 0)
	p := config.DefaultParams()
	p.LicensesPerRegion = 2
	b := construction.New(w, randengine.New(1), &p)
	assert.Equal(t, 2, b.IssueLicenses())
	assert.Equal(t, 4, b.IssueLicenses())
	assert.Equal(t, 4, r.Licenses)

	p.RandomLicenses = true
	r.Licenses = 0
	for i := 0; i < 100; i++ {
		b.IssueLicenses()
	}
	assert.Greater(t, r.Licenses, 0)
	assert.Less(t, r.Licenses, 100)
}

func TestPlanAndBuildHouse(t *testing.T) {
	w, r, firm := newWorld(t, 10000)
	p := config.DefaultParams()
	b := construction.New(w, randengine.New(3), &p)
	r.Licenses = 1
	houses := w.Houses.Len()

	require.True(t, b.PlanHouse(firm, 1))
	build := firm.Construction.Building
	require.NotNil(t, build)
	assert.Equal(t, regionID, build.Region)
	assert.GreaterOrEqual(t, build.Size, 20.)
	assert.Less(t, build.Size, 120.)
	assert.GreaterOrEqual(t, build.Quality, 1)
	assert.LessOrEqual(t, build.Quality, 4)
	assert.Equal(t, 0, r.Licenses)
	// 土地款作为交易税交给区域
	land := r.Treasure[entity.TaxTransaction]
	assert.Greater(t, land, 0.)
	assert.InDelta(t, 1000-land, firm.TotalBalance, 1e-9)
	assert.InDelta(t, build.Cost*p.LotCost, land, 1e-9)

	// 在建期间不再选址
	r.Licenses = 1
	assert.False(t, b.PlanHouse(firm, 1))

	// 库存不足时不竣工
	assert.Nil(t, b.BuildHouse(firm))
	firm.CreateProduct()
	firm.Inventory.Quantity = build.Cost + 1
	h := b.BuildHouse(firm)
	require.NotNil(t, h)
	assert.InDelta(t, 1., firm.Inventory.Quantity, 1e-9)
	assert.Nil(t, firm.Construction.Building)
	assert.Equal(t, houses+1, w.Houses.Len())
	assert.Equal(t, entity.OwnerFirm, h.OwnerType)
	assert.Equal(t, int32(firm.ID), h.OwnerID)
	assert.False(t, h.IsOccupied())
	assert.True(t, r.Contains(h.Address))
	assert.Equal(t, build.Size*float64(build.Quality), h.Price)
	assert.Equal(t, []entity.HouseID{h.ID}, firm.Construction.HousesForSale)
	assert.Equal(t, []entity.HouseID{h.ID}, firm.Construction.Houses)
}

func TestPlanHouseRequirements(t *testing.T) {
	p := config.DefaultParams()

	// 没有许可
	w, _, firm := newWorld(t, 10000)
	b := construction.New(w, randengine.New(5), &p)
	assert.False(t, b.PlanHouse(firm, 1))

	// 余额不足许可价格
	w, r, firm := newWorld(t, 10000)
	b = construction.New(w, randengine.New(5), &p)
	r.Licenses = 1
	firm.TotalBalance = 0.5
	assert.False(t, b.PlanHouse(firm, 1))

	// 没有可比房屋，利润为负
	w, r, firm = newWorld(t, 0)
	b = construction.New(w, randengine.New(5), &p)
	r.Licenses = 1
	assert.False(t, b.PlanHouse(firm, 1))
	assert.Equal(t, 1, r.Licenses)

	// 消费品企业不建房
	consumer := entity.NewFirm(w.NewFirmID(), entity.Consumer, geometry.Point{}, 1000, regionID)
	assert.False(t, b.PlanHouse(consumer, 1))
}

func TestStep(t *testing.T) {
	w, r, firm := newWorld(t, 10000)
	p := config.DefaultParams()
	b := construction.New(w, randengine.New(7), &p)
	r.Licenses = 1
	planned, built := b.Step(1)
	assert.Equal(t, 1, planned)
	assert.Equal(t, 0, built)

	firm.CreateProduct()
	firm.Inventory.Quantity = firm.Construction.Building.Cost
	planned, built = b.Step(1)
	assert.Equal(t, 0, planned)
	assert.Equal(t, 1, built)
}
