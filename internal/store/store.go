// Package store persists birthdays and announcement channels per Discord server
// as a single JSON document.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/FP2003/discord-birthday-bot/internal/config"
	"github.com/FP2003/discord-birthday-bot/internal/engine"
)

// GuildConfig is the per-server record. Users keeps member ids in insertion order.
type GuildConfig struct {
	Users   *orderedmap.OrderedMap[string, engine.Birthday] `json:"users"`
	Channel *string                                          `json:"channel"`
}

func newGuildConfig() *GuildConfig {
	return &GuildConfig{Users: orderedmap.New[string, engine.Birthday]()}
}

// Document is the root of the persisted file, keyed by server id.
type Document = orderedmap.OrderedMap[string, *GuildConfig]

// Store is the in-memory document plus its backing file.
// It is safe for concurrent use.
type Store struct {
	path string

	mu      sync.RWMutex
	doc     *Document
	version uint64
}

// Open loads the document at path. A missing, unreadable or corrupt file yields
// an empty store; the condition is logged and the next save overwrites the file.
func Open(path string) *Store {
	s := &Store{path: path, doc: orderedmap.New[string, *GuildConfig]()}
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompStore),
		slog.String(config.LogKeyPath, path),
	)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn(config.ErrStoreMissing)
		return s
	case err != nil:
		log.Error(config.ErrStoreRead, config.LogKeyError, err)
		return s
	}

	doc, err := decode(data, log)
	if err != nil {
		log.Error(config.ErrStoreParse, config.LogKeyError, err)
		return s
	}

	s.doc = doc
	log.Info(config.MsgStoreLoaded, config.LogKeyGuilds, doc.Len())
	return s
}

// decode parses the document and drops stored birthdays that are not calendar
// dates (null records decode as month 0, day 0). Each dropped record is logged.
func decode(data []byte, log *slog.Logger) (*Document, error) {
	doc := orderedmap.New[string, *GuildConfig]()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	for pair := doc.Oldest(); pair != nil; pair = pair.Next() {
		// "users": null or a missing key would otherwise surface as nil maps.
		if pair.Value == nil {
			pair.Value = newGuildConfig()
			continue
		}
		users := pair.Value.Users
		if users == nil {
			pair.Value.Users = orderedmap.New[string, engine.Birthday]()
			continue
		}

		var invalid []string
		for u := users.Oldest(); u != nil; u = u.Next() {
			b := u.Value
			if !engine.IsValidDate(b.Month, b.Day, b.Year) {
				invalid = append(invalid, u.Key)
			}
		}
		for _, memberID := range invalid {
			users.Delete(memberID)
			log.Warn(config.MsgSkippedRecord,
				config.LogKeyGuild, pair.Key,
				config.LogKeyMember, memberID,
			)
		}
	}
	return doc, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Version increases by one on every mutation. Feed caches key on it.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// mutate is the single write boundary: it applies fn under the lock, bumps the
// version when fn reports a change and rewrites the file.
// A failed write is logged and the in-memory state is kept.
func (s *Store) mutate(fn func(doc *Document) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !fn(s.doc) {
		return
	}
	s.version++

	if err := s.save(); err != nil {
		slog.Error(config.ErrStoreWrite,
			config.LogKeyComponent, config.CompStore,
			config.LogKeyPath, s.path,
			config.LogKeyError, err,
		)
	}
}

// guild returns the record for guildID, creating it on first write.
func guild(doc *Document, guildID string) *GuildConfig {
	if g, ok := doc.Get(guildID); ok {
		return g
	}
	g := newGuildConfig()
	doc.Set(guildID, g)
	return g
}

// SetBirthday creates or replaces a member's birthday. A replaced entry keeps its position.
func (s *Store) SetBirthday(guildID, memberID string, b engine.Birthday) {
	s.mutate(func(doc *Document) bool {
		guild(doc, guildID).Users.Set(memberID, b)
		return true
	})
}

// RemoveBirthday deletes a member's birthday and reports whether one existed.
// Removing twice is harmless.
func (s *Store) RemoveBirthday(guildID, memberID string) bool {
	var removed bool
	s.mutate(func(doc *Document) bool {
		g, ok := doc.Get(guildID)
		if !ok {
			return false
		}
		_, removed = g.Users.Delete(memberID)
		return removed
	})
	return removed
}

// SetAnnouncementChannel records where the daily announcements of a server go.
func (s *Store) SetAnnouncementChannel(guildID, channelID string) {
	s.mutate(func(doc *Document) bool {
		guild(doc, guildID).Channel = &channelID
		return true
	})
}

// Import merges members into a server with a single save and returns how many were written.
func (s *Store) Import(guildID string, members []engine.Member) int {
	s.mutate(func(doc *Document) bool {
		if len(members) == 0 {
			return false
		}
		g := guild(doc, guildID)
		for _, m := range members {
			g.Users.Set(m.UserID, m.Birthday)
		}
		return true
	})
	return len(members)
}

// Birthday returns a member's birthday.
func (s *Store) Birthday(guildID, memberID string) (engine.Birthday, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.doc.Get(guildID)
	if !ok {
		return engine.Birthday{}, false
	}
	return g.Users.Get(memberID)
}

// Members returns a server's birthdays in insertion order; nil for an unknown server.
func (s *Store) Members(guildID string) []engine.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.doc.Get(guildID)
	if !ok {
		return nil
	}
	members := make([]engine.Member, 0, g.Users.Len())
	for pair := g.Users.Oldest(); pair != nil; pair = pair.Next() {
		members = append(members, engine.Member{UserID: pair.Key, Birthday: pair.Value})
	}
	return members
}

// Channel returns the announcement channel of a server, if one was configured.
func (s *Store) Channel(guildID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.doc.Get(guildID)
	if !ok || g.Channel == nil {
		return "", false
	}
	return *g.Channel, true
}

// Guilds returns every known server id in document order.
func (s *Store) Guilds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, s.doc.Len())
	for pair := s.doc.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
	}
	return ids
}

// save rewrites the whole document. Callers hold the write lock.
// The temp file lives next to the target so the rename stays on one filesystem.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, config.StoreTempPattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(config.FilePermUserRW); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return err
	}

	slog.Debug(config.MsgStoreSaved,
		config.LogKeyComponent, config.CompStore,
		config.LogKeySizeBytes, len(data),
	)
	return nil
}
