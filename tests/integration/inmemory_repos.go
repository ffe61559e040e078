package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"referral-rewards-backend/internal/core/domain"
	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Member Repo ---

type inMemoryMemberRepo struct {
	mu      sync.RWMutex
	members map[uuid.UUID]*domain.Member
}

func newInMemoryMemberRepo() *inMemoryMemberRepo {
	return &inMemoryMemberRepo{members: make(map[uuid.UUID]*domain.Member)}
}

func (r *inMemoryMemberRepo) Create(ctx context.Context, m *domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.members {
		if existing.Username == m.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *m
	r.members[m.ID] = &cp
	return nil
}

func (r *inMemoryMemberRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *inMemoryMemberRepo) GetByUsername(ctx context.Context, username string) (*domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m.Username == username {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryMemberRepo) GetByReferralCode(ctx context.Context, code string) (*domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m.ReferralCode == code {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryMemberRepo) Referrer(ctx context.Context, memberID uuid.UUID) (*domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[memberID]
	if !ok || m.ReferredBy == nil {
		return nil, nil
	}
	upline, ok := r.members[*m.ReferredBy]
	if !ok {
		return nil, nil
	}
	cp := *upline
	return &cp, nil
}

func (r *inMemoryMemberRepo) PromoteToVIP(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return false, fmt.Errorf("member not found")
	}
	if m.Type == domain.MemberTypeVIP {
		return false, nil
	}
	m.Type = domain.MemberTypeVIP
	m.VIPAt = &at
	return true, nil
}

// setReferrer wires the referral edge directly, used to build test chains
// (including deliberately cyclic ones).
func (r *inMemoryMemberRepo) setReferrer(memberID, referrerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[memberID]; ok {
		id := referrerID
		m.ReferredBy = &id
	}
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByMemberID(ctx context.Context, memberID uuid.UUID) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.MemberID == memberID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Balance += amount
	return nil
}

func (r *inMemoryWalletRepo) Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	if w.Balance < amount {
		return apperror.ErrInsufficientFunds()
	}
	w.Balance -= amount
	return nil
}

func (r *inMemoryWalletRepo) CreditPoints(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Points += amount
	return nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu  sync.Mutex
	txs map[uuid.UUID]*domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{txs: make(map[uuid.UUID]*domain.Transaction)}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.txs[t.ID] = &cp
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransactionRepo) FindByStatus(ctx context.Context, status domain.Status) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Transaction
	for _, t := range r.txs {
		if t.Status == status {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *inMemoryTransactionRepo) FindByBillCode(ctx context.Context, code string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.txs {
		if t.BillCode != nil && *t.BillCode == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) MarkTerminal(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok {
		return false, fmt.Errorf("transaction not found")
	}
	if t.Status != domain.StatusInProgress {
		return false, nil
	}
	now := time.Now()
	t.Status = status
	t.ProcessedAt = &now
	return true, nil
}

func (r *inMemoryTransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Transaction
	for _, t := range r.txs {
		if t.WalletID == walletID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// all returns a snapshot of every row, for conservation checks.
func (r *inMemoryTransactionRepo) all() []domain.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Transaction, 0, len(r.txs))
	for _, t := range r.txs {
		out = append(out, *t)
	}
	return out
}

// --- In-Memory Merchant Repo ---

type inMemoryMerchantRepo struct {
	mu        sync.RWMutex
	merchants map[uuid.UUID]*domain.Merchant
}

func newInMemoryMerchantRepo() *inMemoryMerchantRepo {
	return &inMemoryMerchantRepo{merchants: make(map[uuid.UUID]*domain.Merchant)}
}

func (r *inMemoryMerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.merchants[m.ID] = &cp
	return nil
}

func (r *inMemoryMerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

// --- In-Memory Transactor ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }

// --- Stub Gateway ---

// stubGateway hands out sequential bill codes and reports whatever state the
// test last set for each bill.
type stubGateway struct {
	mu     sync.Mutex
	seq    int
	states map[string]ports.BillState
}

func newStubGateway() *stubGateway {
	return &stubGateway{states: make(map[string]ports.BillState)}
}

func (g *stubGateway) CreateBill(ctx context.Context, req ports.BillRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	code := fmt.Sprintf("bill%04d", g.seq)
	g.states[code] = ports.BillPending
	return code, nil
}

func (g *stubGateway) BillStatus(ctx context.Context, billCode string) (ports.BillState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	state, ok := g.states[billCode]
	if !ok {
		return ports.BillPending, fmt.Errorf("unknown bill code %s", billCode)
	}
	return state, nil
}

func (g *stubGateway) setState(billCode string, state ports.BillState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.states[billCode] = state
}

// --- No-op Notifier ---

type noopNotifier struct{}

func (noopNotifier) Notify(eventType string, amount int64, memberID uuid.UUID) {}
