package housing_test

import (
	"testing"
	"time"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/market/housing"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

const regionID = entity.RegionID("3106200001")

var now = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	w    *entity.World
	bank *ecosim.Central
	p    config.Params
	m    *housing.Market
}

func newFixture() *fixture {
	w := entity.NewWorld()
	w.AddRegion(entity.NewRegion(regionID, [2]geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, 1))
	p := config.DefaultParams()
	p.PercentageEnteringEstateMarket = 1
	p.RentalShare = 0
	p.OnMarketDecayFactor = 0
	p.OfferSizeOnPrice = 0
	bank := ecosim.NewCentral(p)
	bank.SetInterest(0.004, 0.005)
	fx := &fixture{w: w, bank: bank, p: p}
	fx.m = housing.New(w, bank, randengine.New(11), &fx.p)
	return fx
}

func (fx *fixture) family(savings, income float64) *entity.Family {
	f := entity.NewFamily(fx.w.NewFamilyID())
	fx.w.AddFamily(f)
	fx.w.AddMember(f, &entity.Agent{ID: fx.w.NewAgentID(), Age: 30})
	f.Savings = savings
	f.LastPermanentIncome = income
	return f
}

func (fx *fixture) house(size float64, ownerType entity.OwnerType, owner int32) *entity.House {
	h := &entity.House{
		ID:        fx.w.NewHouseID(),
		Size:      size,
		Quality:   1,
		Price:     size,
		RegionID:  regionID,
		OwnerType: ownerType,
		OwnerID:   owner,
	}
	fx.w.AddHouse(h)
	return h
}

func (fx *fixture) builder() *entity.Firm {
	firm := entity.NewFirm(fx.w.NewFirmID(), entity.Construction, geometry.Point{}, 0, regionID)
	fx.w.AddFirm(firm)
	return firm
}

func TestRicherFamilyBuysFirst(t *testing.T) {
	fx := newFixture()
	fx.bank.Deposit(999, 10000, now)
	firm := fx.builder()
	expensive := fx.house(60, entity.OwnerFirm, int32(firm.ID))
	cheap := fx.house(20, entity.OwnerFirm, int32(firm.ID))
	// 加入顺序与储蓄顺序相反，检验排序
	poorer := fx.family(30, 100)
	richer := fx.family(50, 100)

	fx.m.Run(now, 0)

	assert.Equal(t, 2, fx.m.Stats.Sold)
	assert.Equal(t, 1, fx.m.Stats.Loans)
	assert.Equal(t, richer.ID, expensive.FamilyID)
	assert.Equal(t, []entity.HouseID{expensive.ID}, richer.OwnedHouses)
	assert.Len(t, fx.bank.Loans(richer.ID), 1)
	assert.InDelta(t, 10., fx.bank.Loans(richer.ID)[0].Principal, 1e-9)

	assert.Equal(t, poorer.ID, cheap.FamilyID)
	assert.Equal(t, []entity.HouseID{cheap.ID}, poorer.OwnedHouses)
	// 成交价 min(20*2.3/2, (30+20)/2) = 23
	assert.InDelta(t, 7., poorer.Savings, 1e-9)
	assert.Empty(t, fx.bank.Loans(poorer.ID))

	tax := fx.p.TaxEstateTransaction
	assert.InDelta(t, (60+23)*(1-tax), firm.TotalBalance, 1e-9)
	assert.InDelta(t, (60+23)*tax, fx.w.MustRegion(regionID).Treasure[entity.TaxTransaction], 1e-9)
	assert.Empty(t, firm.Construction.HousesForSale)
	assert.Len(t, firm.Construction.CashFlow, fx.p.ConstructionAccCashFlow)
}

func TestLoanToValueLimit(t *testing.T) {
	fx := newFixture()
	fx.bank.Deposit(999, 10000, now)
	firm := fx.builder()
	h := fx.house(100, entity.OwnerFirm, int32(firm.ID))
	f := fx.family(10, 100)
	fx.p.CappedLowValue = 1

	fx.m.Run(now, 0)
	// 贷款价值比0.9超过上限，不成交
	assert.False(t, f.Owns(h.ID))
	assert.Empty(t, fx.bank.Loans(f.ID))
	assert.Equal(t, 0, fx.m.Stats.Sold)
	// 仍无住所的家庭租住剩余的空置房屋
	assert.Equal(t, f.ID, h.FamilyID)
	assert.True(t, fx.w.IsRenting(f))
}

func TestRentalFallbackAndCollection(t *testing.T) {
	fx := newFixture()
	fx.p.RentalShare = 1
	landlord := fx.family(0, 0)
	residence := fx.house(10, entity.OwnerFamily, int32(landlord.ID))
	fx.w.MoveIn(landlord, residence)
	vacant := fx.house(100, entity.OwnerFamily, int32(landlord.ID))
	tenant := fx.family(0, 0)

	fx.m.Run(now, 0)
	require.Equal(t, tenant.ID, vacant.FamilyID)
	require.NotNil(t, vacant.RentData)
	// 没有可负担的房屋，租金按最大折扣
	rent := 100 * fx.p.InitialRentalPrice * fx.p.MaxOfferDiscount
	assert.InDelta(t, rent, vacant.RentData.Monthly, 1e-9)
	assert.Equal(t, residence.ID, landlord.House)
	assert.True(t, fx.w.IsRenting(tenant))

	tenant.UpdateBalance(10)
	fx.m.CollectRent(now)
	assert.InDelta(t, 10-rent, tenant.SumBalance(), 1e-9)
	assert.False(t, tenant.RentDefault)
	assert.InDelta(t, rent*(1-fx.p.TaxLabor), landlord.SumBalance(), 1e-9)
	assert.InDelta(t, rent*fx.p.TaxLabor, fx.w.MustRegion(regionID).Treasure[entity.TaxLabor], 1e-9)

	// 现金、储蓄、存款都为0时拖欠
	tenant.GrabMoney()
	fx.m.CollectRent(now)
	assert.True(t, tenant.RentDefault)
	assert.Equal(t, 1, fx.m.Stats.Defaults)

	// 存款兜底，找零留在储蓄
	fx.bank.Deposit(tenant.ID, 100, now)
	fx.m.CollectRent(now)
	assert.False(t, tenant.RentDefault)
	assert.InDelta(t, 100-rent, tenant.Savings, 1e-9)

	// 代付券
	tenant.RentVoucher = 2
	before := landlord.SumBalance()
	fx.m.CollectRent(now)
	assert.Equal(t, 1, tenant.RentVoucher)
	assert.InDelta(t, 100-rent, tenant.Savings, 1e-9)
	assert.InDelta(t, before+rent*(1-fx.p.TaxLabor), landlord.SumBalance(), 1e-9)
}

func TestMoveDecision(t *testing.T) {
	fx := newFixture()
	firm := fx.builder()
	f := fx.family(1000, 100)
	f.Members.Values()[0].FirmID = 99
	small := fx.house(10, entity.OwnerFamily, int32(f.ID))
	fx.w.MoveIn(f, small)
	big := fx.house(50, entity.OwnerFirm, int32(firm.ID))

	fx.m.NotarialProcedures(f, big, 50, 0)
	assert.Equal(t, big.ID, f.House)
	assert.False(t, small.IsOccupied())

	// 没有就业成员时搬回最便宜的房屋
	f.Members.Values()[0].FirmID = entity.NoFirm
	other := fx.house(80, entity.OwnerFirm, int32(firm.ID))
	fx.m.NotarialProcedures(f, other, 80, 0)
	assert.Equal(t, small.ID, f.House)
}

func TestOccupancyExclusive(t *testing.T) {
	fx := newFixture()
	fx.p.PercentageEnteringEstateMarket = .5
	fx.p.RentalShare = .3
	fx.bank.Deposit(999, 5000, now)
	rng := randengine.New(2)
	firm := fx.builder()
	for i := 0; i < 30; i++ {
		f := fx.family(rng.Uniform(0, 200), rng.Uniform(0, 5))
		h := fx.house(rng.Uniform(20, 120), entity.OwnerFamily, int32(f.ID))
		if i%3 != 0 {
			fx.w.MoveIn(f, h)
		}
	}
	for i := 0; i < 10; i++ {
		fx.house(rng.Uniform(20, 120), entity.OwnerFirm, int32(firm.ID))
	}
	for month := 0; month < 6; month++ {
		fx.m.Run(now.AddDate(0, month, 0), month)
		occupants := make(map[entity.HouseID]entity.FamilyID)
		for _, f := range fx.w.Families.Values() {
			if f.House == entity.NoHouse {
				continue
			}
			prev, dup := occupants[f.House]
			assert.False(t, dup, "house %d occupied by %d and %d", f.House, prev, f.ID)
			occupants[f.House] = f.ID
			assert.Equal(t, f.ID, fx.w.MustHouse(f.House).FamilyID)
		}
		for _, h := range fx.w.Houses.Values() {
			if h.IsOccupied() {
				assert.Equal(t, h.FamilyID, occupants[h.ID])
			}
			if id, ok := h.FamilyOwner(); ok {
				assert.True(t, fx.w.MustFamily(id).Owns(h.ID))
			}
		}
		assert.LessOrEqual(t, fx.bank.NumLoans(), fx.w.Families.Len())
	}
}

func TestPropertyTax(t *testing.T) {
	fx := newFixture()
	f := fx.family(100, 0)
	h := fx.house(120, entity.OwnerFamily, int32(f.ID))
	fx.w.MoveIn(f, h)
	broke := fx.family(0, 0)
	fx.house(120, entity.OwnerFamily, int32(broke.ID))

	got := fx.m.PayPropertyTax()
	want := 120 * fx.p.TaxProperty / 12
	assert.InDelta(t, want, got, 1e-9)
	assert.InDelta(t, 100-want, f.Savings, 1e-9)
	assert.InDelta(t, want, fx.w.MustRegion(regionID).Treasure[entity.TaxProperty], 1e-9)
}

func TestUpdateForSale(t *testing.T) {
	fx := newFixture()
	fx.p.OnMarketDecayFactor = -0.02
	fx.p.MaxOfferDiscount = 0.4
	f := fx.family(0, 0)
	occupied := fx.house(50, entity.OwnerFamily, int32(f.ID))
	fx.w.MoveIn(f, occupied)
	vacant := fx.house(50, entity.OwnerFamily, int32(f.ID))
	vacant.Quality = 2
	vacant.OnMarket = 11

	forSale := fx.m.UpdateForSale()
	require.Len(t, forSale, 1)
	assert.Equal(t, 12, vacant.OnMarket)
	assert.InDelta(t, 87.2, vacant.Price, 0.1)
	assert.Equal(t, 50., occupied.Price)
}

func TestNeighborhoodMultipliers(t *testing.T) {
	fx := newFixture()
	rich := entity.RegionID("3106200002")
	fx.w.AddRegion(entity.NewRegion(rich, [2]geometry.Point{{X: 10, Y: 0}, {X: 20, Y: 10}}, 1))
	for i, income := range []float64{1, 1, 4, 4} {
		f := fx.family(0, income)
		h := fx.house(10, entity.OwnerFamily, int32(f.ID))
		if i >= 2 {
			h.RegionID = rich
		}
		fx.w.MoveIn(f, h)
	}
	mult := housing.NeighborhoodMultipliers(fx.w, 0)
	assert.Equal(t, 1., mult[rich])
	mult = housing.NeighborhoodMultipliers(fx.w, 1)
	// 全局中位数2.5
	assert.InDelta(t, 4/2.5, mult[rich], 1e-9)
	assert.InDelta(t, 1/2.5, mult[regionID], 1e-9)
}

func TestVacancyValue(t *testing.T) {
	p := config.DefaultParams()
	assert.InDelta(t, 0.8, housing.VacancyValue(0.1, &p), 1e-9)
	assert.Equal(t, p.MaxOfferDiscount, housing.VacancyValue(0.9, &p))
	p.OfferSizeOnPrice = 0
	assert.Equal(t, 1., housing.VacancyValue(0.9, &p))
}

func TestHomelessOwnerMovesIntoOwnHouse(t *testing.T) {
	fx := newFixture()
	fx.bank.Deposit(999, 10000, now)
	firm := fx.builder()
	forSale := fx.house(20, entity.OwnerFirm, int32(firm.ID))
	f := fx.family(0, 0)
	dear := fx.house(80, entity.OwnerFamily, int32(f.ID))
	cheap := fx.house(40, entity.OwnerFamily, int32(f.ID))
	require.Equal(t, entity.NoHouse, f.House)

	fx.m.Run(now, 0)
	// 搬入自己最便宜的空置房屋，不租住其他房屋
	assert.Equal(t, cheap.ID, f.House)
	assert.Equal(t, f.ID, cheap.FamilyID)
	assert.False(t, fx.w.IsRenting(f))
	assert.False(t, dear.IsOccupied())
	assert.False(t, forSale.IsOccupied())
}
