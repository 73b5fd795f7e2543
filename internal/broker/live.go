package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rxtech-lab/tide-trading/internal/exchange"
	"github.com/rxtech-lab/tide-trading/internal/logger"
	"github.com/rxtech-lab/tide-trading/internal/types"
)

// LiveBroker routes plans to a real venue through its protocol client.
// Signed calls sharing one credential are serialized here: several venues
// require monotonically increasing nonces per credential, so concurrent
// signed calls on the same key are a correctness hazard.
type LiveBroker struct {
	venue    exchange.Exchange
	store    CredentialStore
	accounts AccountDirectory
	caps     types.BrokerCapabilities
	log      *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLiveBroker creates a broker backed by the given venue client.
func NewLiveBroker(venue exchange.Exchange, store CredentialStore, accounts AccountDirectory, caps types.BrokerCapabilities, log *logger.Logger) *LiveBroker {
	return &LiveBroker{
		venue:    venue,
		store:    store,
		accounts: accounts,
		caps:     caps,
		log:      log,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Service implements Broker.
func (b *LiveBroker) Service() string {
	return b.venue.Name()
}

// GetCapabilities implements Broker.
func (b *LiveBroker) GetCapabilities() types.BrokerCapabilities {
	return b.caps
}

// ValidateTradePlan implements Broker.
func (b *LiveBroker) ValidateTradePlan(plan *types.TradePlan) (bool, string) {
	return validatePlan(plan, b.caps.EnforcesPrecisionRules)
}

// credentialLock returns the nonce-serialization lock for a key entry.
func (b *LiveBroker) credentialLock(keyID string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()

	lock, ok := b.locks[keyID]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[keyID] = lock
	}

	return lock
}

// resolveCredentials resolves a key-entry id to usable signing material. The
// failure messages distinguish "no key selected" from "key not found" from
// "incomplete credentials" for operator diagnosis.
func (b *LiveBroker) resolveCredentials(keyID string) (exchange.Credentials, bool, string) {
	if keyID == "" {
		return exchange.Credentials{}, false, fmt.Sprintf("no key selected for %s", b.Service())
	}

	record, ok := b.store.GetKey(keyID)
	if !ok {
		return exchange.Credentials{}, false, fmt.Sprintf("key not found: %s", keyID)
	}

	creds := exchange.Credentials{
		Key:        resolveSecret(b.store, record.APIKey),
		Secret:     resolveSecret(b.store, record.Secret),
		Passphrase: resolveSecret(b.store, record.Passphrase),
	}

	if creds.Key == "" || creds.Secret == "" {
		return exchange.Credentials{}, false, fmt.Sprintf("incomplete credentials for key %s", keyID)
	}

	return creds, true, ""
}

// keyIDForPlan prefers the plan's account-bound key over the venue's
// globally active key.
func (b *LiveBroker) keyIDForPlan(plan *types.TradePlan) string {
	if plan.AccountID != "" {
		if id := b.accounts.KeyIDForAccount(plan.AccountID); id != "" {
			return id
		}
	}

	return b.store.ActiveKeyID(b.Service())
}

// PlaceOrder implements Broker.
func (b *LiveBroker) PlaceOrder(ctx context.Context, plan *types.TradePlan) (bool, string) {
	if ok, message := b.ValidateTradePlan(plan); !ok {
		return false, message
	}

	keyID := b.keyIDForPlan(plan)

	creds, ok, message := b.resolveCredentials(keyID)
	if !ok {
		return false, message
	}

	productID := plan.Symbol
	if strings.Contains(productID, "/") {
		productID = b.venue.NormalizeProduct(productID)
	}

	order := orderFromPlan(plan, productID, uuid.New().String())

	lock := b.credentialLock(keyID)
	lock.Lock()
	defer lock.Unlock()

	b.venue.SetCredentials(creds.Key, creds.Secret, creds.Passphrase)

	result, err := b.venue.PlaceOrder(ctx, order)
	if err != nil {
		b.log.Error("order submission failed",
			zap.String("venue", b.Service()),
			zap.String("plan_id", plan.PlanID),
			zap.Error(err),
		)

		return false, err.Error()
	}

	if !result.Accepted {
		return false, result.Message
	}

	return true, fmt.Sprintf("accepted order=%s", result.OrderID)
}

// CancelAll implements Broker. An error while canceling any individual order
// aborts the remainder of the sweep and the count of prior successful
// cancellations is not reported.
func (b *LiveBroker) CancelAll(ctx context.Context, symbol string) (bool, string) {
	keyID := b.store.ActiveKeyID(b.Service())

	creds, ok, message := b.resolveCredentials(keyID)
	if !ok {
		return false, message
	}

	lock := b.credentialLock(keyID)
	lock.Lock()
	defer lock.Unlock()

	b.venue.SetCredentials(creds.Key, creds.Secret, creds.Passphrase)

	orders, err := b.venue.GetOpenOrders(ctx)
	if err != nil {
		return false, err.Error()
	}

	target := ""
	if symbol != "" {
		target = b.venue.NormalizeProduct(symbol)
	}

	canceled := 0

	for _, order := range orders {
		if target != "" && order.ProductID != target {
			continue
		}

		if err := b.venue.CancelOrder(ctx, order.OrderID); err != nil {
			return false, err.Error()
		}

		canceled++
	}

	return true, fmt.Sprintf("canceled=%d", canceled)
}
