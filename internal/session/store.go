package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TokenKey is the fixed key the token is persisted under.
const TokenKey = "token"

// Store holds at most one bearer token.
type Store interface {
	Get(ctx context.Context) (token string, ok bool, err error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Provider hands out one Store per browser session id.
type Provider interface {
	Open(sessionID string) Store
}

type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(ctx context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != "", nil
}

func (m *MemoryStore) Set(ctx context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}

// FileStore persists key/value pairs as a JSON object on disk, so a token set
// by one process is visible to the next.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(ctx context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return "", false, err
	}
	token := values[TokenKey]
	return token, token != "", nil
}

func (f *FileStore) Set(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	values[TokenKey] = token
	return f.write(values)
}

func (f *FileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := values[TokenKey]; !ok {
		return nil
	}
	delete(values, TokenKey)
	return f.write(values)
}

func (f *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", f.path, err)
	}
	return values, nil
}

func (f *FileStore) write(values map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// MemoryProvider keeps one token per session id in process memory. Entries
// exist only while a token is set and expire after the provider's TTL.
type MemoryProvider struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	token   string
	expires time.Time
}

// NewMemoryProvider returns a provider whose tokens live for ttl. A ttl of
// zero or less keeps them until cleared.
func NewMemoryProvider(ttl time.Duration) *MemoryProvider {
	return &MemoryProvider{ttl: ttl, now: time.Now, entries: map[string]memoryEntry{}}
}

func (p *MemoryProvider) Open(sessionID string) Store {
	return &memorySession{provider: p, id: sessionID}
}

// Len reports how many sessions currently hold a token.
func (p *MemoryProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweepLocked()
	return len(p.entries)
}

func (p *MemoryProvider) get(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[id]
	if !ok {
		return "", false
	}
	if p.expiredLocked(entry) {
		delete(p.entries, id)
		return "", false
	}
	return entry.token, true
}

func (p *MemoryProvider) set(id, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweepLocked()
	if token == "" {
		delete(p.entries, id)
		return
	}
	entry := memoryEntry{token: token}
	if p.ttl > 0 {
		entry.expires = p.now().Add(p.ttl)
	}
	p.entries[id] = entry
}

func (p *MemoryProvider) clear(id string) {
	p.mu.Lock()
	delete(p.entries, id)
	p.mu.Unlock()
}

func (p *MemoryProvider) expiredLocked(entry memoryEntry) bool {
	return !entry.expires.IsZero() && !p.now().Before(entry.expires)
}

func (p *MemoryProvider) sweepLocked() {
	for id, entry := range p.entries {
		if p.expiredLocked(entry) {
			delete(p.entries, id)
		}
	}
}

// memorySession is the Store view of one id inside a MemoryProvider.
type memorySession struct {
	provider *MemoryProvider
	id       string
}

func (s *memorySession) Get(ctx context.Context) (string, bool, error) {
	token, ok := s.provider.get(s.id)
	return token, ok, nil
}

func (s *memorySession) Set(ctx context.Context, token string) error {
	s.provider.set(s.id, token)
	return nil
}

func (s *memorySession) Clear(ctx context.Context) error {
	s.provider.clear(s.id)
	return nil
}
