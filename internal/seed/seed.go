package seed

import (
	"context"
	"fmt"
	"log"

	"warhorse/internal/models"
)

// Options configures the seeder. Zero values get sensible defaults.
type Options struct {
	Users           int
	FriendsPerUser  int
	RequestsPerUser int
	BlocksPerUser   int

	// Password is the plaintext every demo account shares.
	Password string

	// SkipBcrypt stores the password as-is, for fast seeding when the
	// server runs with password verification off.
	SkipBcrypt bool

	// Seed fixes the generated names; two runs with the same seed produce
	// the same accounts.
	Seed int64
}

func (o Options) withDefaults() Options {
	if o.Users <= 0 {
		o.Users = 50
	}
	if o.FriendsPerUser < 0 {
		o.FriendsPerUser = 0
	}
	if o.RequestsPerUser < 0 {
		o.RequestsPerUser = 0
	}
	if o.BlocksPerUser < 0 {
		o.BlocksPerUser = 0
	}
	if o.Password == "" {
		o.Password = "password123"
	}
	if o.Seed == 0 {
		o.Seed = 1
	}
	return o
}

// Seeder populates a store with demo accounts and relationships.
type Seeder struct {
	factory *Factory
	opts    Options
}

// NewSeeder creates a Seeder writing through the same store as its Factory.
func NewSeeder(factory *Factory) *Seeder {
	return &Seeder{factory: factory, opts: factory.opts}
}

// SeedSocialMesh creates the configured number of users and weaves them into
// a ring-shaped relationship graph: each user is friends with the next few
// users, has pending requests a little further out, and blocks someone on
// the far side. Returns the created users in creation order.
func (s *Seeder) SeedSocialMesh(ctx context.Context) ([]*models.User, error) {
	log.Printf("seeding %d users (friends=%d requests=%d blocks=%d)",
		s.opts.Users, s.opts.FriendsPerUser, s.opts.RequestsPerUser, s.opts.BlocksPerUser)

	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		user, err := s.factory.CreateUser(ctx)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
		if i > 0 && i%500 == 0 {
			log.Printf("created %d users...", i)
		}
	}

	if err := s.weave(ctx, users); err != nil {
		return nil, err
	}

	log.Printf("seeding complete: %d users", len(users))
	return users, nil
}

// weave lays relationships around the user ring. Offsets keep the three
// relationship kinds disjoint so a blocked neighbor is never also a friend.
func (s *Seeder) weave(ctx context.Context, users []*models.User) error {
	n := len(users)
	if n < 2 {
		return nil
	}
	st := s.factory.st

	friendSpan := min(s.opts.FriendsPerUser, n-1)
	requestSpan := min(s.opts.RequestsPerUser, n-1-friendSpan)

	for i, user := range users {
		for k := 1; k <= friendSpan; k++ {
			other := users[(i+k)%n]
			if err := st.AddFriend(ctx, user.ID, other.ID); err != nil {
				return fmt.Errorf("seed friendship %s/%s: %w", user.ID, other.ID, err)
			}
		}
		for k := 1; k <= requestSpan; k++ {
			other := users[(i+friendSpan+k)%n]
			if err := st.InsertFriendRequest(ctx, user.ID, other.ID); err != nil {
				return fmt.Errorf("seed request %s->%s: %w", user.ID, other.ID, err)
			}
		}
	}

	blockSpan := friendSpan + requestSpan + 1
	for i := 0; i < n; i++ {
		if s.opts.BlocksPerUser <= 0 {
			break
		}
		for k := 0; k < s.opts.BlocksPerUser; k++ {
			j := (i + blockSpan + k) % n
			if j == i {
				continue
			}
			if err := st.InsertBlock(ctx, users[i].ID, users[j].ID); err != nil {
				return fmt.Errorf("seed block %s->%s: %w", users[i].ID, users[j].ID, err)
			}
		}
	}
	return nil
}
