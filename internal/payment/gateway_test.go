package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedGateway(creds Credentials) *Simulated {
	g := NewSimulated(creds)
	g.now = func() time.Time { return time.UnixMilli(1741944600000) }
	return g
}

func TestChargeOfflineMethods(t *testing.T) {
	g := fixedGateway(Credentials{})
	for method, want := range map[string]string{
		MethodFreeMoney: "free_1741944600000",
		MethodCard:      "card_1741944600000",
		MethodCash:      "cash_1741944600000",
	} {
		t.Run(method, func(t *testing.T) {
			res, err := g.Charge(context.Background(), Charge{Amount: 7500, Method: method})
			require.NoError(t, err)
			assert.Equal(t, want, res.TransactionID)
			assert.Equal(t, int64(7500), res.Amount)
		})
	}
}

func TestChargeIDsCarryReference(t *testing.T) {
	g := fixedGateway(Credentials{})
	a, err := g.Charge(context.Background(), Charge{Amount: 7500, Method: MethodCash, Reference: "9f1c2b7e-0d4a-4c1e-9a55-3b2f1e0c8d11"})
	require.NoError(t, err)
	b, err := g.Charge(context.Background(), Charge{Amount: 7500, Method: MethodCash, Reference: "27ab90c4-5e61-4f0b-8d2a-71c9e3f4a6b0"})
	require.NoError(t, err)

	assert.Equal(t, "cash_1741944600000_9f1c2b7e", a.TransactionID)
	assert.Equal(t, "cash_1741944600000_27ab90c4", b.TransactionID)
}

func TestChargeMobileMoneyNeedsCredentials(t *testing.T) {
	g := fixedGateway(Credentials{WaveKey: "k"})
	_, err := g.Charge(context.Background(), Charge{Amount: 100, Method: MethodWave})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, "Erreur lors du paiement Wave", Message(MethodWave, err))

	_, err = g.Charge(context.Background(), Charge{Amount: 100, Method: MethodOrangeMoney})
	assert.ErrorIs(t, err, ErrNotConfigured)

	g = fixedGateway(Credentials{WaveKey: "k", WaveSecret: "s", OrangeKey: "k", OrangeSecret: "s"})
	res, err := g.Charge(context.Background(), Charge{Amount: 100, Method: MethodOrangeMoney})
	require.NoError(t, err)
	assert.Equal(t, "om_1741944600000", res.TransactionID)
}

func TestChargeRejectsUnknownMethodAndAmount(t *testing.T) {
	g := fixedGateway(Credentials{})
	_, err := g.Charge(context.Background(), Charge{Amount: 100, Method: "bitcoin"})
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
	assert.Equal(t, "Méthode de paiement non supportée", Message("bitcoin", err))

	_, err = g.Charge(context.Background(), Charge{Amount: 0, Method: MethodCash})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestChargeHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fixedGateway(Credentials{}).Charge(ctx, Charge{Amount: 100, Method: MethodCash})
	assert.ErrorIs(t, err, context.Canceled)
}
