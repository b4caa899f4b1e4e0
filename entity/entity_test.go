package entity_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

func newRegion() *entity.Region {
	return entity.NewRegion("3106200001", [2]geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, 1)
}

func TestOnMarketPriceDecay(t *testing.T) {
	// 基础价格100，在售12个月，decay=-0.02，discount=0.4
	h := &entity.House{Size: 50, Quality: 2, OnMarket: 12}
	h.UpdatePrice(1, 1, -0.02, 0.4)
	assert.InDelta(t, 87.2, h.Price, 0.1)

	// 未在售时不打折
	h.OnMarket = 0
	h.UpdatePrice(1, 1, -0.02, 0.4)
	assert.Equal(t, 100., h.Price)

	// 长期在售趋近下限
	assert.InDelta(t, 0.4, entity.OnMarketFactor(100000, -0.02, 0.4), 1e-9)
}

func TestZeroEmployeeFirmKeepsInventory(t *testing.T) {
	f := entity.NewFirm(1, entity.Consumer, geometry.Point{}, 100, "3106200001")
	f.CreateProduct()
	require.NotNil(t, f.Inventory)
	f.Inventory.Quantity = 5
	f.UpdateProductQuantity(0.24, 1)
	assert.Equal(t, 5., f.Inventory.Quantity)
	assert.Equal(t, 0., f.AmountProduced)
}

func TestFirmProductionAndSale(t *testing.T) {
	r := newRegion()
	f := entity.NewFirm(1, entity.Consumer, geometry.Point{}, 0, r.ID)
	f.CreateProduct()
	a := &entity.Agent{ID: 1, Age: 30, Qualification: 16}
	f.AddEmployee(a)
	assert.Equal(t, entity.FirmID(1), a.FirmID)
	f.UpdateProductQuantity(0.5, 1)
	assert.InDelta(t, 4., f.TotalQuantity(), 1e-9)

	// 购买超过库存时找零
	change := f.Sale(10, r, 0.1)
	assert.InDelta(t, 6., change, 1e-9)
	assert.InDelta(t, 0., f.TotalQuantity(), 1e-9)
	assert.InDelta(t, 3.6, f.Revenue, 1e-9)
	assert.InDelta(t, 0.4, r.Treasure[entity.TaxConsumption], 1e-9)

	f.MakePayment(r, 0, 0.5, 0.1, false, 0)
	assert.InDelta(t, 3.6*0.9, a.Money, 1e-9)
	assert.InDelta(t, 0.36, r.Treasure[entity.TaxLabor], 1e-9)
	f.PayTaxes(r, 0.1)
	assert.Equal(t, 0., f.TaxesPaid)
	f.CalculateProfit()
	assert.InDelta(t, 0., f.Profit, 1e-9)
}

func TestConstructionCashFlow(t *testing.T) {
	r := newRegion()
	f := entity.NewFirm(1, entity.Construction, geometry.Point{}, 0, r.ID)
	f.UpdateBalance(120, 12, 100)
	assert.Equal(t, 120., f.TotalBalance)
	for m := 100; m < 112; m++ {
		assert.InDelta(t, 10., f.WageBase(0, true, m), 1e-9)
	}
	assert.Equal(t, 0., f.WageBase(0, true, 112))
}

func TestPermanentIncome(t *testing.T) {
	r := 0.01
	got := entity.PermanentIncome(100, 1000, r)
	want := r/(1+r)*100 + r/(1+r)*100/r + 1000*r
	assert.InDelta(t, want, got, 1e-9)
	assert.Equal(t, 1100., entity.PermanentIncome(100, 1000, 0))
}

func TestFamilyPay(t *testing.T) {
	f := entity.NewFamily(1)
	a := &entity.Agent{ID: 1, Money: 30}
	b := &entity.Agent{ID: 2, Money: 10}
	f.AddAgent(a)
	f.AddAgent(b)
	f.Savings = 10
	assert.False(t, f.Pay(100))
	assert.True(t, f.Pay(30))
	assert.Equal(t, 0., f.Savings)
	assert.InDelta(t, 15., a.Money, 1e-9)
	assert.InDelta(t, 5., b.Money, 1e-9)
}

func TestMoveInExclusive(t *testing.T) {
	w := entity.NewWorld()
	w.AddRegion(newRegion())
	f1 := entity.NewFamily(w.NewFamilyID())
	f2 := entity.NewFamily(w.NewFamilyID())
	w.AddFamily(f1)
	w.AddFamily(f2)
	h1 := &entity.House{ID: w.NewHouseID(), RegionID: "3106200001", OwnerType: entity.OwnerFamily, OwnerID: int32(f1.ID)}
	h2 := &entity.House{ID: w.NewHouseID(), RegionID: "3106200001", OwnerType: entity.OwnerFamily, OwnerID: int32(f1.ID)}
	w.AddHouse(h1)
	w.AddHouse(h2)
	assert.Equal(t, []entity.HouseID{h1.ID, h2.ID}, f1.OwnedHouses)

	w.MoveIn(f1, h1)
	assert.Equal(t, f1.ID, h1.FamilyID)
	assert.Panics(t, func() { w.MoveIn(f2, h1) })

	// 搬到另一处，原住所空出
	w.MoveIn(f1, h2)
	assert.False(t, h1.IsOccupied())
	assert.Equal(t, h2.ID, f1.House)

	w.TransferHouse(h1, entity.OwnerFamily, int32(f2.ID))
	assert.Equal(t, []entity.HouseID{h2.ID}, f1.OwnedHouses)
	assert.Equal(t, []entity.HouseID{h1.ID}, f2.OwnedHouses)
}

func TestTenantInheritsHouse(t *testing.T) {
	w := entity.NewWorld()
	w.AddRegion(newRegion())
	landlord := entity.NewFamily(w.NewFamilyID())
	tenant := entity.NewFamily(w.NewFamilyID())
	w.AddFamily(landlord)
	w.AddFamily(tenant)
	h := &entity.House{ID: w.NewHouseID(), RegionID: "3106200001", OwnerType: entity.OwnerFamily, OwnerID: int32(landlord.ID)}
	w.AddHouse(h)
	w.MoveIn(tenant, h)
	h.RentData = &entity.RentData{Monthly: 10}
	require.True(t, w.IsRenting(tenant))

	w.TransferHouse(h, entity.OwnerFamily, int32(tenant.ID))
	assert.False(t, w.IsRenting(tenant))
	assert.Nil(t, h.RentData)
	assert.Equal(t, tenant.ID, h.FamilyID)
	assert.True(t, tenant.Owns(h.ID))
	assert.Empty(t, landlord.OwnedHouses)

	// 转给非住户时租约保留
	other := &entity.House{ID: w.NewHouseID(), RegionID: "3106200001", OwnerType: entity.OwnerFamily, OwnerID: int32(tenant.ID)}
	w.AddHouse(other)
	w.MoveIn(landlord, other)
	other.RentData = &entity.RentData{Monthly: 5}
	w.TransferHouse(other, entity.OwnerFamily, int32(tenant.ID))
	assert.NotNil(t, other.RentData)
}

func TestFireAndUnemployment(t *testing.T) {
	w := entity.NewWorld()
	f := entity.NewFamily(w.NewFamilyID())
	w.AddFamily(f)
	firm := entity.NewFirm(w.NewFirmID(), entity.Consumer, geometry.Point{}, 0, "3106200001")
	w.AddFirm(firm)
	for i := 0; i < 4; i++ {
		a := &entity.Agent{ID: w.NewAgentID(), Age: 30}
		w.AddMember(f, a)
		if i < 2 {
			firm.AddEmployee(a)
		}
	}
	assert.InDelta(t, 0.5, w.Unemployment(), 1e-9)
	fired := firm.Fire(randengine.New(1))
	require.NotNil(t, fired)
	assert.False(t, fired.IsEmployed())
	assert.InDelta(t, 0.75, w.Unemployment(), 1e-9)
}

func TestBury(t *testing.T) {
	w := entity.NewWorld()
	f := entity.NewFamily(w.NewFamilyID())
	w.AddFamily(f)
	a := &entity.Agent{ID: w.NewAgentID(), Age: 90, Money: 7}
	w.AddMember(f, a)
	got := w.Bury(a)
	assert.Equal(t, f, got)
	assert.Equal(t, 0, f.NumMembers())
	assert.Equal(t, 7., f.Savings)
	assert.Len(t, w.Grave, 1)
	assert.Equal(t, 0, w.Agents.Len())
}

func TestRegionTreasure(t *testing.T) {
	r := newRegion()
	assert.Equal(t, "3106200", r.ID.Municipality())
	r.CollectTaxes(10, entity.TaxLabor)
	r.CollectTaxes(5, entity.TaxProperty)
	assert.Equal(t, 15., r.TotalTreasure())
	got := r.TransferTreasure()
	assert.Equal(t, 10., got[entity.TaxLabor])
	assert.Equal(t, 0., r.TotalTreasure())
	assert.Equal(t, 5., r.CumulativeTreasure[entity.TaxProperty])
}
