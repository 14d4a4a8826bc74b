package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/shopkart-labs/shopkart-api/internal/domain/order"
)

func orderWithIntent(t *testing.T, id, intentID string) *domain.Order {
	t.Helper()
	o, err := domain.New(id, "u1",
		[]domain.Item{{ProductID: "p1", Name: "Keyboard", UnitPrice: decimal.NewFromInt(10), Quantity: 1}},
		domain.ShippingAddress{},
		domain.PaymentResult{IntentID: intentID, Status: "succeeded"},
		decimal.NewFromInt(10),
	)
	require.NoError(t, err)
	return o
}

func TestInsertEnforcesIntentUniqueness(t *testing.T) {
	repo := NewOrderRepository(NewCatalogRepository())
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, orderWithIntent(t, "o1", "pi_1")))
	require.ErrorIs(t, repo.Insert(ctx, orderWithIntent(t, "o2", "pi_1")), domain.ErrConflict)

	found, err := repo.FindByPaymentIntent(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "o1", found.ID)
}

func TestConcurrentInsertsOneWinner(t *testing.T) {
	repo := NewOrderRepository(NewCatalogRepository())
	ctx := context.Background()

	const attempts = 32
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Insert(ctx, orderWithIntent(t, fmt.Sprintf("o%d", i), "pi_race"))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, domain.ErrConflict)
		}
	}
	assert.Equal(t, 1, winners)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAttachReceiptRequiresExistingOrder(t *testing.T) {
	repo := NewOrderRepository(NewCatalogRepository())
	ctx := context.Background()

	require.ErrorIs(t, repo.AttachReceipt(ctx, "pi_ghost", "https://r/1", "1001"), domain.ErrNotFound)

	require.NoError(t, repo.Insert(ctx, orderWithIntent(t, "o1", "pi_1")))
	require.NoError(t, repo.AttachReceipt(ctx, "pi_1", "https://r/1", "1001"))

	found, err := repo.FindByPaymentIntent(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "https://r/1", found.PaymentResult.ReceiptURL)
	assert.Equal(t, "1001", found.PaymentResult.ReceiptNumber)
}
