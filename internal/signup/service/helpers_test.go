package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/signup/internal/signup/notify"
	"github.com/aussiebroadwan/signup/internal/signup/store/drivers/sqlite"
	"github.com/aussiebroadwan/signup/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	errs []error
}

func (f *fakeNotifier) Name() string { return "fake" }

func (f *fakeNotifier) Send(_ context.Context, m notify.Message) (notify.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, m)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return notify.Receipt{}, err
		}
	}
	return notify.Receipt{ProviderRef: "ref-" + m.ID}, nil
}

func (f *fakeNotifier) messages() []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Message(nil), f.sent...)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store      *sqlite.Store
	notifier   *fakeNotifier
	clock      *testClock
	dispatcher *Dispatcher
	reg        *RegistrationService
	verify     *VerificationService
}

func newFixture(t *testing.T, cfg DispatcherConfig) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	n := &fakeNotifier{}
	clock := newTestClock()

	d := NewDispatcher(st, n, slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	d.now = clock.Now

	return &fixture{
		store:      st,
		notifier:   n,
		clock:      clock,
		dispatcher: d,
		reg: &RegistrationService{
			Store:      st,
			Hasher:     cryptox.NewPasswordHasher("test-pepper"),
			Dispatcher: d,
			Now:        clock.Now,
		},
		verify: &VerificationService{
			Store:      st,
			Dispatcher: d,
			Now:        clock.Now,
		},
	}
}

func validInput() RegistrationInput {
	return RegistrationInput{
		Name:                 "Jo",
		Email:                "jo@x.com",
		Password:             "password1",
		PasswordConfirmation: "password1",
		PhoneNumber:          "15551234567",
	}
}
