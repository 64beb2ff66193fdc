package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	tariffdomain "github.com/voxbilllabs/voxbill/internal/tariff/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T) tariffdomain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:tariff_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&tariffdomain.Plan{}))
	require.NoError(t, db.AutoMigrate(&tariffdomain.Plan{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParam{DB: db, Log: zap.NewNop(), GenID: node})
}

func percentagePlan() tariffdomain.Plan {
	return tariffdomain.Plan{
		Name:          "Standard 20%",
		PricingType:   tariffdomain.PricingPercentage,
		ProfitPercent: dec("20"),
		MinProfit:     decimal.Zero,
		MaxProfit:     dec("999"),
		Precision:     tariffdomain.DefaultPrecision,
		SMSPrice:      dec("0.05"),
		Active:        true,
	}
}

func TestUpdateKeepsPredefinedProtection(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	plan := percentagePlan()
	plan.Predefined = true
	require.NoError(t, svc.Save(ctx, &plan))
	created, err := svc.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	require.True(t, created.Predefined)

	// An update built from scratch, the way the HTTP layer does it, carries
	// neither Predefined nor CreatedAt.
	edit := percentagePlan()
	edit.ID = plan.ID
	edit.ProfitPercent = dec("25")
	require.NoError(t, svc.Save(ctx, &edit))

	reloaded, err := svc.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Predefined, "update must not strip predefined status")
	assert.False(t, reloaded.CreatedAt.IsZero())
	assert.True(t, reloaded.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, reloaded.ProfitPercent.Equal(dec("25")))

	err = svc.Delete(ctx, plan.ID)
	assert.ErrorIs(t, err, tariffdomain.ErrPlanPredefined)
}

func TestUpdateUnknownPlan(t *testing.T) {
	svc := newTestService(t)

	plan := percentagePlan()
	plan.ID = snowflake.ID(123456789)
	err := svc.Save(context.Background(), &plan)
	assert.ErrorIs(t, err, tariffdomain.ErrPlanNotFound)
}

func TestSaveHonorsZeroPrecision(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	plan := percentagePlan()
	plan.Precision = 0
	require.NoError(t, svc.Save(ctx, &plan))

	reloaded, err := svc.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Precision, "explicit zero precision must persist")
}

func TestDeleteRegularPlan(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	plan := percentagePlan()
	require.NoError(t, svc.Save(ctx, &plan))
	require.NoError(t, svc.Delete(ctx, plan.ID))

	_, err := svc.GetByID(ctx, plan.ID)
	assert.ErrorIs(t, err, tariffdomain.ErrPlanNotFound)
}
