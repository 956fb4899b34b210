package devapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phillip-england/lmsportal/internal/api"
)

var (
	errNotFound       = errors.New("not found")
	errDuplicateEmail = errors.New("email already registered")
	errNotPending     = errors.New("leave already processed")
)

type userRecord struct {
	ID           int64
	EmployeeID   string
	Name         string
	Email        string
	Department   string
	Role         api.Role
	PasswordHash string
	CreatedAt    time.Time
}

type leaveRecord struct {
	ID          string
	UserID      int64
	Title       string
	StartDate   string
	EndDate     string
	Days        int
	Description string
	Status      api.LeaveStatus
	CreatedAt   time.Time
	DecidedBy   int64
}

// memoryStore is the whole backend state. Every method takes the lock.
type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*userRecord
	emails map[string]int64
	leaves map[string]*leaveRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextID: 1,
		users:  map[int64]*userRecord{},
		emails: map[string]int64{},
		leaves: map[string]*leaveRecord{},
	}
}

func emailKey(role api.Role, email string) string {
	return string(role) + ":" + strings.ToLower(strings.TrimSpace(email))
}

func (s *memoryStore) createUser(u userRecord) (userRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := emailKey(u.Role, u.Email)
	if _, exists := s.emails[key]; exists {
		return userRecord{}, errDuplicateEmail
	}
	u.ID = s.nextID
	s.nextID++
	prefix := "EMP"
	if u.Role == api.RoleManager {
		prefix = "MGR"
	}
	u.EmployeeID = fmt.Sprintf("%s-%04d", prefix, u.ID)
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = &u
	s.emails[key] = u.ID
	return u, nil
}

func (s *memoryStore) userByEmail(role api.Role, email string) (userRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emails[emailKey(role, email)]
	if !ok {
		return userRecord{}, errNotFound
	}
	return *s.users[id], nil
}

func (s *memoryStore) userByID(id int64) (userRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return userRecord{}, errNotFound
	}
	return *u, nil
}

func (s *memoryStore) listEmployees() []userRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]userRecord, 0, len(s.users))
	for _, u := range s.users {
		if u.Role == api.RoleEmployee {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) createLeave(l leaveRecord) leaveRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = uuid.NewString()
	l.Status = api.StatusPending
	l.CreatedAt = time.Now().UTC()
	s.leaves[l.ID] = &l
	return l
}

func (s *memoryStore) leavesForUser(userID int64) []leaveRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []leaveRecord{}
	for _, l := range s.leaves {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	sortLeaves(out)
	return out
}

func (s *memoryStore) pendingLeaves() []leaveRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []leaveRecord{}
	for _, l := range s.leaves {
		if l.Status == api.StatusPending {
			out = append(out, *l)
		}
	}
	sortLeaves(out)
	return out
}

func (s *memoryStore) decideLeave(id string, status api.LeaveStatus, managerID int64) (leaveRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leaves[id]
	if !ok {
		return leaveRecord{}, errNotFound
	}
	if l.Status != api.StatusPending {
		return leaveRecord{}, errNotPending
	}
	l.Status = status
	l.DecidedBy = managerID
	return *l, nil
}

func sortLeaves(leaves []leaveRecord) {
	sort.Slice(leaves, func(i, j int) bool {
		if leaves[i].CreatedAt.Equal(leaves[j].CreatedAt) {
			return leaves[i].ID < leaves[j].ID
		}
		return leaves[i].CreatedAt.Before(leaves[j].CreatedAt)
	})
}
