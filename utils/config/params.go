package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// 政策名称
const (
	PolicyNone = "no_policy" // 基线，不执行任何政策
	PolicyBuy  = "buy"       // 市政为贫困家庭购房
	PolicyRent = "rent"      // 市政为贫困家庭支付房租
	PolicyWage = "wage"      // 市政向贫困家庭直接转移
)

// TaxesStructure 税收分配结构
type TaxesStructure struct {
	ConsumptionEqual float64 `yaml:"consumption_equal" validate:"gte=0,lte=1"` // 消费税中按人口平均分配的比例
	FPM              float64 `yaml:"fpm" validate:"gte=0,lte=1"`               // 劳动税与企业税中按FPM规则分配的比例
}

// Params 模型参数
// 功能：定义模型全部可调参数，YAML键与参数名一致
// 说明：通过参数扫描覆盖时，每次运行持有一份独立拷贝
type Params struct {
	// 家庭
	MembersPerFamily float64 `yaml:"MEMBERS_PER_FAMILY" validate:"gte=1"`
	Beta             float64 `yaml:"BETA" validate:"gt=0,lt=1"`        // 消费倾向，消费比例~Beta(1,(1-BETA)/BETA)
	ReserveMonths    float64 `yaml:"RESERVE_MONTHS" validate:"gte=0"` // 储蓄超过该月数的持久收入部分存入银行

	// 企业
	ProductivityExponent         float64   `yaml:"PRODUCTIVITY_EXPONENT" validate:"gt=0,lte=1"`
	ProductivityMagnitudeDivisor float64   `yaml:"PRODUCTIVITY_MAGNITUDE_DIVISOR" validate:"gt=0"`
	Markup                       float64   `yaml:"MARKUP" validate:"gte=0"`
	StickyPrices                 float64   `yaml:"STICKY_PRICES" validate:"gte=0,lte=1"`
	SizeMarket                   int       `yaml:"SIZE_MARKET" validate:"gt=0"`
	LaborMarket                  float64   `yaml:"LABOR_MARKET" validate:"gte=0,lte=1"` // 企业本月不参与劳动力市场的概率
	PctDistanceHiring            float64   `yaml:"PCT_DISTANCE_HIRING" validate:"gte=0,lte=1"`
	HiringSampleSize             int       `yaml:"HIRING_SAMPLE_SIZE" validate:"gt=0"`
	WageIgnoreUnemployment       bool      `yaml:"WAGE_IGNORE_UNEMPLOYMENT"`
	StartingUnemployment         float64   `yaml:"STARTING_UNEMPLOYMENT" validate:"gte=0,lte=1"`
	PublicTransitCost            float64   `yaml:"PUBLIC_TRANSIT_COST" validate:"gte=0"`
	PrivateTransitCost           float64   `yaml:"PRIVATE_TRANSIT_COST" validate:"gte=0"`
	CarOwnership                 []float64 `yaml:"CAR_OWNERSHIP,omitempty" validate:"omitempty,len=10,dive,gte=0,lte=1"` // 按工资十分位的拥车概率

	// 房产
	PercentageEnteringEstateMarket float64 `yaml:"PERCENTAGE_ENTERING_ESTATE_MARKET" validate:"gte=0,lte=1"`
	RentalShare                    float64 `yaml:"RENTAL_SHARE" validate:"gte=0,lte=1"`
	InitialRentalPrice             float64 `yaml:"INITIAL_RENTAL_PRICE" validate:"gte=0"`
	CappedTopValue                 float64 `yaml:"CAPPED_TOP_VALUE" validate:"gt=0"`
	CappedLowValue                 float64 `yaml:"CAPPED_LOW_VALUE" validate:"gte=0,lte=1"`
	MaxLoanToValue                 float64 `yaml:"MAX_LOAN_TO_VALUE" validate:"gte=0,lte=1"`
	OnMarketDecayFactor            float64 `yaml:"ON_MARKET_DECAY_FACTOR" validate:"lte=0"`
	MaxOfferDiscount               float64 `yaml:"MAX_OFFER_DISCOUNT" validate:"gte=0,lte=1"`
	OfferSizeOnPrice               float64 `yaml:"OFFER_SIZE_ON_PRICE" validate:"gte=0"`
	NeighborhoodEffect             float64 `yaml:"NEIGHBORHOOD_EFFECT" validate:"gte=0"`
	HouseVacancy                   float64 `yaml:"HOUSE_VACANCY" validate:"gte=0,lt=1"`

	// 建筑
	LotCost                 float64 `yaml:"LOT_COST" validate:"gte=0,lte=1"`
	ConstructionAccCashFlow int     `yaml:"CONSTRUCTION_ACC_CASH_FLOW" validate:"gt=0"`
	LicensesPerRegion       int     `yaml:"LICENSES_PER_REGION" validate:"gte=0"`
	RandomLicenses          bool    `yaml:"RANDOM_LICENSES"`

	// 银行
	InterestRate                 float64 `yaml:"INTEREST_RATE" validate:"gte=0"` // 月存款利率
	MortgageRate                 float64 `yaml:"MORTGAGE_RATE" validate:"gte=0"` // 初始月贷款利率
	MaxLoanBankPercent           float64 `yaml:"MAX_LOAN_BANK_PERCENT" validate:"gte=0,lte=1"`
	LoanPaymentToPermanentIncome float64 `yaml:"LOAN_PAYMENT_TO_PERMANENT_INCOME" validate:"gte=0"`
	MaxLoanAge                   int     `yaml:"MAX_LOAN_AGE" validate:"gt=0"`
	MaxLoanMonths                int     `yaml:"MAX_LOAN_MONTHS" validate:"gt=0"`

	// 税收
	TaxConsumption       float64 `yaml:"TAX_CONSUMPTION" validate:"gte=0,lt=1"`
	TaxLabor             float64 `yaml:"TAX_LABOR" validate:"gte=0,lt=1"`
	TaxFirm              float64 `yaml:"TAX_FIRM" validate:"gte=0,lt=1"`
	TaxEstateTransaction float64 `yaml:"TAX_ESTATE_TRANSACTION" validate:"gte=0,lt=1"`
	TaxProperty          float64 `yaml:"TAX_PROPERTY" validate:"gte=0,lt=1"` // 年税率，按月缴纳1/12

	// 财政
	Alternative0                  bool           `yaml:"ALTERNATIVE0"`
	FPMDistribution               bool           `yaml:"FPM_DISTRIBUTION"`
	TaxesStructure                TaxesStructure `yaml:"TAXES_STRUCTURE"`
	MunicipalEfficiencyManagement float64        `yaml:"MUNICIPAL_EFFICIENCY_MANAGEMENT" validate:"gte=0"`
	PolicyCoefficient             float64        `yaml:"POLICY_COEFFICIENT" validate:"gte=0,lte=1"`
	Policies                      string         `yaml:"POLICIES" validate:"oneof=no_policy buy rent wage"`
	PolicyQuantile                float64        `yaml:"POLICY_QUANTILE" validate:"gte=0,lte=1"`
	PolicyDays                    int            `yaml:"POLICY_DAYS" validate:"gte=0"`

	// 人口
	MortalityA    float64 `yaml:"MORTALITY_A" validate:"gte=0"`
	MortalityB    float64 `yaml:"MORTALITY_B" validate:"gte=0"`
	FertilityRate float64 `yaml:"FERTILITY_RATE" validate:"gte=0,lte=1"`
}

// DefaultParams 默认参数
func DefaultParams() Params {
	return Params{
		MembersPerFamily: 2.5,
		Beta:             .87,
		ReserveMonths:    6,

		ProductivityExponent:         .24,
		ProductivityMagnitudeDivisor: 1,
		Markup:                       .15,
		StickyPrices:                 .5,
		SizeMarket:                   10,
		LaborMarket:                  .05,
		PctDistanceHiring:            .17,
		HiringSampleSize:             100,
		WageIgnoreUnemployment:       false,
		StartingUnemployment:         .086,
		PublicTransitCost:            .05,
		PrivateTransitCost:           .02,
		CarOwnership:                 []float64{.1, .15, .2, .3, .35, .45, .5, .6, .7, .8},

		PercentageEnteringEstateMarket: .005,
		RentalShare:                    .2,
		InitialRentalPrice:             .005,
		CappedTopValue:                 2.3,
		CappedLowValue:                 .7,
		MaxLoanToValue:                 .8,
		OnMarketDecayFactor:            -.02,
		MaxOfferDiscount:               .4,
		OfferSizeOnPrice:               2,
		NeighborhoodEffect:             0,
		HouseVacancy:                   .1,

		LotCost:                 .15,
		ConstructionAccCashFlow: 24,
		LicensesPerRegion:       1,
		RandomLicenses:          false,

		InterestRate:                 .004,
		MortgageRate:                 .007,
		MaxLoanBankPercent:           .7,
		LoanPaymentToPermanentIncome: .5,
		MaxLoanAge:                   80,
		MaxLoanMonths:                360,

		TaxConsumption:       .1,
		TaxLabor:             .05,
		TaxFirm:              .1,
		TaxEstateTransaction: .005,
		TaxProperty:          .005,

		Alternative0:                  true,
		FPMDistribution:               true,
		TaxesStructure:                TaxesStructure{ConsumptionEqual: .1875, FPM: .235},
		MunicipalEfficiencyManagement: .0001,
		PolicyCoefficient:             .2,
		Policies:                      PolicyNone,
		PolicyQuantile:                .2,
		PolicyDays:                    360,

		MortalityA:    .0002,
		MortalityB:    .085,
		FertilityRate: .05,
	}
}

// Validate 校验参数取值范围
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// ApplyOverride 在参数拷贝上应用一组覆盖值
// 功能：参数扫描时，每组覆盖值得到一份独立参数
// 参数：p-基础参数，override-参数名到取值的映射（与YAML键一致）
// 返回：覆盖后的参数，未知参数名返回错误
// 算法说明：
// 1. 将覆盖值编码为YAML
// 2. 严格解码到参数拷贝上，未出现的字段保持原值
// 3. 校验结果
func ApplyOverride(p Params, override map[string]interface{}) (Params, error) {
	q := p
	q.CarOwnership = append([]float64(nil), p.CarOwnership...)
	if len(override) == 0 {
		return q, nil
	}
	data, err := yaml.Marshal(override)
	if err != nil {
		return p, fmt.Errorf("marshal override: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &q); err != nil {
		return p, fmt.Errorf("apply override: %w", err)
	}
	if err := q.Validate(); err != nil {
		return p, err
	}
	return q, nil
}
