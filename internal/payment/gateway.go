// Package payment charges checkouts through Senegalese mobile money and
// offline methods, and keeps the ledger of successful charges.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

const (
	MethodWave        = "wave"
	MethodOrangeMoney = "orange-money"
	MethodFreeMoney   = "free-money"
	MethodCard        = "card"
	MethodCash        = "cash"
)

var (
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrNotConfigured     = errors.New("payment provider not configured")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Methods lists the accepted payment methods in display order.
func Methods() []string {
	return []string{MethodWave, MethodOrangeMoney, MethodFreeMoney, MethodCard, MethodCash}
}

type Charge struct {
	Amount      int64
	Method      string
	Phone       string
	Description string
	Reference   string
}

// Result describes a successful charge.
type Result struct {
	TransactionID string    `json:"transaction_id"`
	Method        string    `json:"method"`
	Amount        int64     `json:"amount"`
	ChargedAt     time.Time `json:"charged_at"`
}

// Gateway charges a customer. A nil error means the money was taken.
type Gateway interface {
	Charge(ctx context.Context, ch Charge) (Result, error)
}

// Credentials of the mobile money providers.
type Credentials struct {
	WaveKey, WaveSecret     string
	OrangeKey, OrangeSecret string
}

// Simulated stands in for the provider APIs. Wave and Orange Money refuse
// charges until credentials are configured; other methods always succeed.
type Simulated struct {
	creds Credentials
	now   func() time.Time
}

func NewSimulated(creds Credentials) *Simulated {
	return &Simulated{creds: creds, now: time.Now}
}

var prefixes = map[string]string{
	MethodWave:        "wave",
	MethodOrangeMoney: "om",
	MethodFreeMoney:   "free",
	MethodCard:        "card",
	MethodCash:        "cash",
}

func (g *Simulated) Charge(ctx context.Context, ch Charge) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	prefix, ok := prefixes[ch.Method]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedMethod, ch.Method)
	}
	if ch.Amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	switch ch.Method {
	case MethodWave:
		if g.creds.WaveKey == "" || g.creds.WaveSecret == "" {
			return Result{}, fmt.Errorf("%w: wave", ErrNotConfigured)
		}
	case MethodOrangeMoney:
		if g.creds.OrangeKey == "" || g.creds.OrangeSecret == "" {
			return Result{}, fmt.Errorf("%w: orange money", ErrNotConfigured)
		}
	}

	now := g.now()
	id := fmt.Sprintf("%s_%d", prefix, now.UnixMilli())
	if ref := shortRef(ch.Reference); ref != "" {
		id += "_" + ref
	}
	return Result{
		TransactionID: id,
		Method:        ch.Method,
		Amount:        ch.Amount,
		ChargedAt:     now,
	}, nil
}

// shortRef keeps the first eight alphanumerics of a charge reference, enough
// to tell apart charges made in the same millisecond.
func shortRef(ref string) string {
	var b strings.Builder
	n := 0
	for _, r := range ref {
		if n == 8 {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToLower(r))
			n++
		}
	}
	return b.String()
}

// Message is the customer-facing text for a charge error.
func Message(method string, err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedMethod):
		return "Méthode de paiement non supportée"
	case errors.Is(err, ErrInvalidAmount):
		return "Montant invalide"
	}
	switch method {
	case MethodWave:
		return "Erreur lors du paiement Wave"
	case MethodOrangeMoney:
		return "Erreur lors du paiement Orange Money"
	case MethodFreeMoney:
		return "Erreur lors du paiement Free Money"
	}
	return "Erreur lors du paiement"
}
