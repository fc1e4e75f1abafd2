package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"warhorse/internal/models"
)

// Memory is the reference Store: plain maps behind one RWMutex. User ids are
// a monotonic counter rendered as decimal strings.
type Memory struct {
	mu       sync.RWMutex
	nextID   int
	users    map[string]models.User
	byName   map[string]string // lowercased account name -> id
	byEmail  map[string]string // lowercased email -> id
	friends  map[string]map[string]struct{}
	requests map[string]map[string]struct{} // sender -> recipient set
	blocks   map[string]map[string]struct{} // blocker -> blocked set
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nextID:   1,
		users:    make(map[string]models.User),
		byName:   make(map[string]string),
		byEmail:  make(map[string]string),
		friends:  make(map[string]map[string]struct{}),
		requests: make(map[string]map[string]struct{}),
		blocks:   make(map[string]map[string]struct{}),
	}
}

func (m *Memory) UserExists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[id]
	return ok, nil
}

func (m *Memory) InsertUser(_ context.Context, reg Registration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nameKey := strings.ToLower(reg.AccountName)
	emailKey := strings.ToLower(reg.Email)
	if _, taken := m.byName[nameKey]; taken {
		return "", ErrDuplicate
	}
	if _, taken := m.byEmail[emailKey]; taken {
		return "", ErrDuplicate
	}

	id := strconv.Itoa(m.nextID)
	m.nextID++

	now := time.Now().UTC()
	m.users[id] = models.User{
		ID:               id,
		AccountName:      reg.AccountName,
		AccountNameLower: nameKey,
		DisplayName:      reg.DisplayName,
		DisplayNameLower: strings.ToLower(reg.DisplayName),
		Email:            emailKey,
		Language:         reg.Language,
		PasswordHash:     reg.PasswordHash,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.byName[nameKey] = id
	m.byEmail[emailKey] = id
	return id, nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByAccountName(ctx context.Context, accountName string) (*models.User, error) {
	m.mu.RLock()
	id, ok := m.byName[strings.ToLower(accountName)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetUser(ctx, id)
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	id, ok := m.byEmail[strings.ToLower(email)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetUser(ctx, id)
}

func (m *Memory) AddFriend(_ context.Context, userID, friendID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	addEdge(m.friends, userID, friendID)
	addEdge(m.friends, friendID, userID)
	return nil
}

func (m *Memory) RemoveFriend(_ context.Context, userID, friendID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	removeEdge(m.friends, userID, friendID)
	removeEdge(m.friends, friendID, userID)
	return nil
}

func (m *Memory) Friends(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.friends[userID]), nil
}

func (m *Memory) InsertFriendRequest(_ context.Context, senderID, recipientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	addEdge(m.requests, senderID, recipientID)
	return nil
}

func (m *Memory) RemoveFriendRequest(_ context.Context, senderID, recipientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	removeEdge(m.requests, senderID, recipientID)
	return nil
}

func (m *Memory) IncomingFriendRequests(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var senders []string
	for sender, recipients := range m.requests {
		if _, ok := recipients[userID]; ok {
			senders = append(senders, sender)
		}
	}
	sort.Strings(senders)
	return senders, nil
}

func (m *Memory) OutgoingFriendRequests(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.requests[userID]), nil
}

func (m *Memory) InsertBlock(_ context.Context, blockerID, blockedID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	addEdge(m.blocks, blockerID, blockedID)
	return nil
}

func (m *Memory) RemoveBlock(_ context.Context, blockerID, blockedID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	removeEdge(m.blocks, blockerID, blockedID)
	return nil
}

func (m *Memory) BlockedUsers(_ context.Context, blockerID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.blocks[blockerID]), nil
}

func (m *Memory) IsBlocked(_ context.Context, blockerID, blockedID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blocks[blockerID][blockedID]
	return ok, nil
}

func addEdge(edges map[string]map[string]struct{}, from, to string) {
	set, ok := edges[from]
	if !ok {
		set = make(map[string]struct{})
		edges[from] = set
	}
	set[to] = struct{}{}
}

func removeEdge(edges map[string]map[string]struct{}, from, to string) {
	if set, ok := edges[from]; ok {
		delete(set, to)
		if len(set) == 0 {
			delete(edges, from)
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
