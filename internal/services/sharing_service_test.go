package services

import (
	"context"
	"errors"
	"testing"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/storage"
)

type fakeShareStore struct {
	accounts map[string]bool
	created  []storage.SharedExpense
	statuses map[int64]core.ShareStatus
	owner    string
	owedToMe []core.ParticipantShare
	iOwe     []core.ParticipantShare
}

func newFakeShareStore(accounts ...string) *fakeShareStore {
	m := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		m[a] = true
	}
	return &fakeShareStore{accounts: m, statuses: make(map[int64]core.ShareStatus)}
}

func (f *fakeShareStore) ValidParticipants(_ context.Context, emails []string) (map[string]bool, error) {
	valid := make(map[string]bool)
	for _, e := range emails {
		if f.accounts[e] {
			valid[e] = true
		}
	}
	return valid, nil
}

func (f *fakeShareStore) CreateSharedExpense(_ context.Context, exp storage.SharedExpense) (int64, error) {
	f.created = append(f.created, exp)
	return int64(len(f.created)), nil
}

func (f *fakeShareStore) UpdateShareStatus(_ context.Context, shareID int64, _ string, status core.ShareStatus) error {
	if _, ok := f.statuses[shareID]; !ok {
		return storage.ErrNotFound
	}
	f.statuses[shareID] = status
	return nil
}

func (f *fakeShareStore) SharedExpenseOwner(context.Context, int64) (string, error) {
	return f.owner, nil
}

func (f *fakeShareStore) SharesOwedTo(context.Context, string) ([]core.ParticipantShare, error) {
	return f.owedToMe, nil
}

func (f *fakeShareStore) SharesOwedBy(context.Context, string) ([]core.ParticipantShare, error) {
	return f.iOwe, nil
}

type recordingNotifier struct {
	messages []*amqp.ShareNotificationMessage
}

func (n *recordingNotifier) PublishShareNotification(_ context.Context, msg *amqp.ShareNotificationMessage) error {
	n.messages = append(n.messages, msg)
	return nil
}

func TestCreateSplitEqual(t *testing.T) {
	store := newFakeShareStore("bob@example.com", "carol@example.com")
	notifier := &recordingNotifier{}
	svc := NewSharingService(store, notifier)

	id, shares, err := svc.CreateSplit(context.Background(), SplitRequest{
		OwnerEmail: "Alice@Example.com",
		Total:      dec("90"),
		Currency:   "USD",
		SplitType:  core.SplitEqual,
		Month:      "2026-02",
		Participants: []core.SplitParticipant{
			{ID: "bob@example.com"},
			{ID: "carol@example.com"},
		},
	})
	if err != nil {
		t.Fatalf("CreateSplit: %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d", id)
	}
	// 90 / 3 (two participants + owner).
	for _, p := range []string{"bob@example.com", "carol@example.com"} {
		if !shares[p].Amount.Equal(dec("30")) {
			t.Errorf("%s share = %s, want 30", p, shares[p].Amount)
		}
	}
	if store.created[0].OwnerEmail != "alice@example.com" {
		t.Errorf("owner not normalized: %s", store.created[0].OwnerEmail)
	}
	if len(notifier.messages) != 2 {
		t.Errorf("notifications = %d, want one per participant", len(notifier.messages))
	}
}

func TestCreateSplitOwnerNeverParticipates(t *testing.T) {
	store := newFakeShareStore("alice@example.com", "bob@example.com")
	svc := NewSharingService(store, nil)

	_, shares, err := svc.CreateSplit(context.Background(), SplitRequest{
		OwnerEmail: "alice@example.com",
		Total:      dec("100"),
		Currency:   "USD",
		SplitType:  core.SplitEqual,
		Month:      "2026-02",
		Participants: []core.SplitParticipant{
			{ID: "alice@example.com"},
			{ID: "bob@example.com"},
		},
	})
	if err != nil {
		t.Fatalf("CreateSplit: %v", err)
	}
	if _, ok := shares["alice@example.com"]; ok {
		t.Error("owner must not receive an explicit share")
	}
	// Only bob remains, so 100 / 2.
	if !shares["bob@example.com"].Amount.Equal(dec("50")) {
		t.Errorf("bob share = %s, want 50", shares["bob@example.com"].Amount)
	}
}

func TestCreateSplitValidation(t *testing.T) {
	store := newFakeShareStore("bob@example.com")
	svc := NewSharingService(store, nil)
	ctx := context.Background()

	base := SplitRequest{
		OwnerEmail:   "alice@example.com",
		Total:        dec("100"),
		Currency:     "USD",
		SplitType:    core.SplitEqual,
		Month:        "2026-02",
		Participants: []core.SplitParticipant{{ID: "bob@example.com"}},
	}

	zero := base
	zero.Total = dec("0")
	if _, _, err := svc.CreateSplit(ctx, zero); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero total: got %v", err)
	}

	badMonth := base
	badMonth.Month = "Feb 2026"
	if _, _, err := svc.CreateSplit(ctx, badMonth); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("bad month: got %v", err)
	}

	overPct := base
	overPct.SplitType = core.SplitPercentage
	overPct.Participants = []core.SplitParticipant{{ID: "bob@example.com", Percentage: dec("101")}}
	if _, _, err := svc.CreateSplit(ctx, overPct); !errors.Is(err, ErrInvalidSplit) {
		t.Errorf("percentage over 100: got %v", err)
	}

	overFixed := base
	overFixed.SplitType = core.SplitFixed
	overFixed.Participants = []core.SplitParticipant{{ID: "bob@example.com", Amount: dec("150")}}
	if _, _, err := svc.CreateSplit(ctx, overFixed); !errors.Is(err, ErrInvalidSplit) {
		t.Errorf("fixed over total: got %v", err)
	}

	ghosts := base
	ghosts.Participants = []core.SplitParticipant{{ID: "ghost@example.com"}}
	if _, _, err := svc.CreateSplit(ctx, ghosts); !errors.Is(err, ErrNoParticipants) {
		t.Errorf("unknown participants: got %v", err)
	}

	if len(store.created) != 0 {
		t.Errorf("nothing should be persisted on validation failure, got %d", len(store.created))
	}
}

func TestUpdateStatus(t *testing.T) {
	store := newFakeShareStore()
	store.statuses[7] = core.SharePending
	store.owner = "alice@example.com"
	notifier := &recordingNotifier{}
	svc := NewSharingService(store, notifier)
	ctx := context.Background()

	if err := svc.UpdateStatus(ctx, 7, "bob@example.com", core.SharePending); !errors.Is(err, ErrInvalidSplit) {
		t.Errorf("PENDING is not a valid target status: got %v", err)
	}

	if err := svc.UpdateStatus(ctx, 7, "bob@example.com", core.SharePaid); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if store.statuses[7] != core.SharePaid {
		t.Errorf("status = %s", store.statuses[7])
	}
	if len(notifier.messages) != 1 || notifier.messages[0].OwnerEmail != "alice@example.com" {
		t.Errorf("owner notification: %+v", notifier.messages)
	}

	if err := svc.UpdateStatus(ctx, 99, "bob@example.com", core.SharePaid); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing share: got %v", err)
	}
}

func TestBalances(t *testing.T) {
	store := newFakeShareStore()
	store.owedToMe = []core.ParticipantShare{
		{CounterpartyID: "bob@example.com", Amount: dec("100"), Currency: "USD", Status: core.SharePending},
	}
	store.iOwe = []core.ParticipantShare{
		{CounterpartyID: "bob@example.com", Amount: dec("30"), Currency: "USD", Status: core.SharePending},
		{CounterpartyID: "bob@example.com", Amount: dec("500"), Currency: "USD", Status: core.SharePaid},
	}
	svc := NewSharingService(store, nil)

	balances, err := svc.Balances(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if len(balances) != 1 {
		t.Fatalf("got %d balances, want 1", len(balances))
	}
	// Paid shares are already settled and stay out of the net.
	if !balances[0].Net.Equal(dec("70")) {
		t.Errorf("net = %s, want 70", balances[0].Net)
	}
}
