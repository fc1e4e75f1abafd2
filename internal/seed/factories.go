// Package seed creates demo accounts and a plausible relationship graph for
// development and load testing. It writes through the store boundary, so the
// same seeder works against the in-memory store and the database-backed one.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"

	"warhorse/internal/i18n"
	"warhorse/internal/models"
	"warhorse/internal/store"
)

// Factory builds and persists demo accounts. All generated data is
// deterministic for a given seed value.
type Factory struct {
	st   store.Store
	fake *gofakeit.Faker
	opts Options

	// one bcrypt run shared by every account; seeding thousands of users
	// must not pay the hash cost per user
	passwordHash string
	serial       int
}

// NewFactory creates a Factory writing through st.
func NewFactory(st store.Store, opts Options) *Factory {
	opts = opts.withDefaults()
	f := &Factory{
		st:   st,
		fake: gofakeit.New(opts.Seed),
		opts: opts,
	}
	if opts.SkipBcrypt {
		f.passwordHash = opts.Password
	} else {
		hash, _ := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		f.passwordHash = string(hash)
	}
	return f
}

// CreateUser generates and persists one account. Overrides run on the
// registration before the insert.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*store.Registration)) (*models.User, error) {
	f.serial++
	name := f.accountName()
	reg := store.Registration{
		AccountName:  name,
		DisplayName:  f.displayName(),
		Email:        fmt.Sprintf("%s@%s", name, f.fake.DomainName()),
		Language:     f.language(),
		PasswordHash: f.passwordHash,
	}
	for _, override := range overrides {
		override(&reg)
	}

	id, err := f.st.InsertUser(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("insert seed user %q: %w", reg.AccountName, err)
	}
	return f.st.GetUser(ctx, id)
}

// accountName produces a unique lowercase name within the 3-20 character
// account-name bounds.
func (f *Factory) accountName() string {
	base := strings.ToLower(f.fake.Gamertag())
	base = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, base)
	suffix := fmt.Sprintf("%d", f.serial)
	if len(base)+len(suffix) > 20 {
		base = base[:20-len(suffix)]
	}
	if len(base) < 3 {
		base = "player"
	}
	return base + suffix
}

func (f *Factory) displayName() string {
	name := f.fake.Name()
	if len(name) > 20 {
		name = strings.TrimSpace(name[:20])
	}
	if len(name) < 3 {
		name = "Wandering Knight"
	}
	return name
}

func (f *Factory) language() i18n.Language {
	switch f.fake.Number(0, 9) {
	case 0, 1:
		return i18n.Spanish
	case 2:
		return i18n.French
	default:
		return i18n.English
	}
}
