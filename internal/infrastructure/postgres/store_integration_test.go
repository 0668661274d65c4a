//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	apporder "github.com/FacumendezBT/tfu3-andis2/internal/application/order"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/customer"
	domain "github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/postgres"
)

func startPostgres(t *testing.T) *postgres.Store {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "orders",
				"POSTGRES_PASSWORD": "orders",
				"POSTGRES_DB":       "orders",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://orders:orders@%s:%s/orders?sslmode=disable", host, port.Port())
	store, err := postgres.Open(ctx, url, 8)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migration must be idempotent")
	return store
}

func TestPostgresStore(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	t.Run("catalog", func(t *testing.T) {
		cats := store.Categories()
		kitchen, err := cats.Create(ctx, &product.Category{Name: "Kitchen"})
		require.NoError(t, err)
		_, err = cats.Create(ctx, &product.Category{Name: "KITCHEN"})
		assert.ErrorIs(t, err, product.ErrCategoryExists)

		p, err := product.New("Pan", "", decimal.RequireFromString("19.90"), 4, []int64{kitchen.ID})
		require.NoError(t, err)
		created, err := store.Products().Create(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, []int64{kitchen.ID}, created.CategoryIDs)

		bad, err := product.New("Ghost", "", decimal.Zero, 1, []int64{9999})
		require.NoError(t, err)
		_, err = store.Products().Create(ctx, bad)
		assert.ErrorIs(t, err, product.ErrCategoryNotFound)

		listed, err := store.Products().List(ctx, product.Filter{CategoryID: kitchen.ID})
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "19.90", listed[0].Price.StringFixed(2))

		require.NoError(t, cats.Delete(ctx, kitchen.ID))
		got, err := store.Products().Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Empty(t, got.CategoryIDs)
	})

	t.Run("customers", func(t *testing.T) {
		c, err := customer.New("Ana", "ana@example.com", "", "")
		require.NoError(t, err)
		_, err = store.Customers().Create(ctx, c)
		require.NoError(t, err)
		_, err = store.Customers().Create(ctx, c)
		assert.ErrorIs(t, err, customer.ErrEmailTaken)

		found, err := store.Customers().GetByEmail(ctx, "ANA@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Ana", found.Name)
	})

	t.Run("order lifecycle", func(t *testing.T) {
		p, err := product.New("Mug", "", decimal.RequireFromString("5.00"), 10, nil)
		require.NoError(t, err)
		mug, err := store.Products().Create(ctx, p)
		require.NoError(t, err)

		proc := apporder.NewProcessor(apporder.Deps{Tx: store, Orders: store.Orders()})
		o, err := proc.Create.Execute(ctx, apporder.CreateOrderInput{
			CustomerID: 1,
			Items:      []apporder.LineInput{{ProductID: mug.ID, Quantity: 3}},
		})
		require.NoError(t, err)
		assert.Equal(t, "15.00", o.TotalAmount.StringFixed(2))

		stock := func() int {
			got, err := store.Products().Get(ctx, mug.ID)
			require.NoError(t, err)
			return got.Stock
		}
		assert.Equal(t, 7, stock())

		assert.ErrorIs(t, store.Products().Delete(ctx, mug.ID), product.ErrInUse)

		_, err = proc.Create.Execute(ctx, apporder.CreateOrderInput{
			CustomerID: 1,
			Items:      []apporder.LineInput{{ProductID: mug.ID, Quantity: 8}},
		})
		assert.ErrorIs(t, err, product.ErrInsufficientStock)
		assert.Equal(t, 7, stock())

		_, err = proc.UpdateStatus.Execute(ctx, apporder.UpdateOrderStatusInput{OrderID: o.ID, Status: "CANCELLED"})
		require.NoError(t, err)
		assert.Equal(t, 10, stock())

		res, err := proc.Delete.Execute(ctx, o.ID)
		require.NoError(t, err)
		assert.False(t, res.Restocked)
		assert.Equal(t, 10, stock())

		_, err = store.Orders().Get(ctx, o.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("concurrent orders never oversell", func(t *testing.T) {
		p, err := product.New("Limited", "", decimal.NewFromInt(1), 5, nil)
		require.NoError(t, err)
		limited, err := store.Products().Create(ctx, p)
		require.NoError(t, err)

		proc := apporder.NewProcessor(apporder.Deps{Tx: store, Orders: store.Orders()})
		var (
			wg sync.WaitGroup
			mu sync.Mutex
			ok int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := proc.Create.Execute(ctx, apporder.CreateOrderInput{
					CustomerID: 2,
					Items:      []apporder.LineInput{{ProductID: limited.ID, Quantity: 1}},
				})
				if err == nil {
					mu.Lock()
					ok++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		got, err := store.Products().Get(ctx, limited.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, ok)
		assert.Equal(t, 0, got.Stock)

		orders, err := store.Orders().List(ctx, domain.Filter{CustomerID: 2})
		require.NoError(t, err)
		assert.Len(t, orders, 5)
	})
}
