package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/shopkart-labs/shopkart-api/internal/domain/user"
)

func TestClaimGatewayCustomerFirstWriterWins(t *testing.T) {
	repo := NewUserRepository(&domain.User{ID: "u1", Email: "ada@example.com"})
	ctx := context.Background()

	const claimers = 16
	winners := make([]string, claimers)

	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := repo.ClaimGatewayCustomer(ctx, "u1", fmt.Sprintf("cus_%d", i))
			require.NoError(t, err)
			winners[i] = got
		}(i)
	}
	wg.Wait()

	// Every claimer observes the same customer id, whichever write landed first.
	for i := 1; i < claimers; i++ {
		assert.Equal(t, winners[0], winners[i])
	}

	stored, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, winners[0], stored.GatewayCustomerID)
}

func TestClaimGatewayCustomerUnknownUser(t *testing.T) {
	repo := NewUserRepository()

	_, err := repo.ClaimGatewayCustomer(context.Background(), "ghost", "cus_1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindByIDReturnsClone(t *testing.T) {
	repo := NewUserRepository(&domain.User{ID: "u1", Name: "Ada"})
	ctx := context.Background()

	first, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	first.Name = "mutated"

	second, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", second.Name)
}
