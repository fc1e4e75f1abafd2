package seed

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"warhorse/internal/store"
)

func TestSeedSocialMesh_WeavesRing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()

	seeder := NewSeeder(NewFactory(st, Options{
		Users:           8,
		FriendsPerUser:  2,
		RequestsPerUser: 1,
		BlocksPerUser:   1,
		SkipBcrypt:      true,
	}))

	users, err := seeder.SeedSocialMesh(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(users) != 8 {
		t.Fatalf("expected 8 users, got %d", len(users))
	}

	for _, u := range users {
		friends, err := st.Friends(ctx, u.ID)
		if err != nil {
			t.Fatalf("friends of %s: %v", u.ID, err)
		}
		// 2 forward edges plus 2 incoming from the ring behind.
		if len(friends) != 4 {
			t.Fatalf("user %s: expected 4 friends, got %d", u.ID, len(friends))
		}

		outgoing, err := st.OutgoingFriendRequests(ctx, u.ID)
		if err != nil {
			t.Fatalf("outgoing of %s: %v", u.ID, err)
		}
		if len(outgoing) != 1 {
			t.Fatalf("user %s: expected 1 outgoing request, got %d", u.ID, len(outgoing))
		}

		blocked, err := st.BlockedUsers(ctx, u.ID)
		if err != nil {
			t.Fatalf("blocked of %s: %v", u.ID, err)
		}
		if len(blocked) != 1 {
			t.Fatalf("user %s: expected 1 block, got %d", u.ID, len(blocked))
		}

		// A friend must never double as a request target or block target.
		seen := map[string]bool{}
		for _, id := range friends {
			seen[id] = true
		}
		for _, id := range outgoing {
			if seen[id] {
				t.Fatalf("user %s: %s is both friend and request target", u.ID, id)
			}
		}
		for _, id := range blocked {
			if seen[id] {
				t.Fatalf("user %s: %s is both friend and block target", u.ID, id)
			}
		}
	}
}

func TestSeedIsDeterministic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	opts := Options{Users: 5, SkipBcrypt: true, Seed: 42}

	first, err := NewSeeder(NewFactory(store.NewMemory(), opts)).SeedSocialMesh(ctx)
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}
	second, err := NewSeeder(NewFactory(store.NewMemory(), opts)).SeedSocialMesh(ctx)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}

	for i := range first {
		if first[i].AccountName != second[i].AccountName {
			t.Fatalf("user %d: %q vs %q", i, first[i].AccountName, second[i].AccountName)
		}
	}
}

func TestFactoryRespectsNameBounds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := NewFactory(store.NewMemory(), Options{SkipBcrypt: true})

	for i := 0; i < 50; i++ {
		user, err := f.CreateUser(ctx)
		if err != nil {
			t.Fatalf("create user %d: %v", i, err)
		}
		if n := len(user.AccountName); n < 3 || n > 20 {
			t.Fatalf("account name %q out of bounds", user.AccountName)
		}
		if n := len(user.DisplayName); n < 3 || n > 20 {
			t.Fatalf("display name %q out of bounds", user.DisplayName)
		}
	}
}

func TestFactoryHashesSharedPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := NewFactory(store.NewMemory(), Options{Password: "opensesame99"})

	user, err := f.CreateUser(ctx)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("opensesame99")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}
