package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/FP2003/discord-birthday-bot/internal/config"
	"github.com/FP2003/discord-birthday-bot/internal/engine"
)

// Source is the read side of the store served by the feeds.
type Source interface {
	engine.MemberSource
	Guilds() []string
	Version() uint64
}

// Directory resolves member display names for event titles and contact names.
type Directory interface {
	DisplayName(ctx context.Context, guildID, userID string) (string, error)
}

type feedFormat struct {
	mime   string
	render func(ctx context.Context, s *FeedServer, members []engine.NamedMember) ([]byte, error)
}

var (
	formatCalendar = feedFormat{
		mime: config.MimeTextCalendar,
		render: func(ctx context.Context, s *FeedServer, members []engine.NamedMember) ([]byte, error) {
			return s.generator.Calendar(ctx, members)
		},
	}
	formatContacts = feedFormat{
		mime: config.MimeVCard,
		render: func(_ context.Context, s *FeedServer, members []engine.NamedMember) ([]byte, error) {
			return s.generator.Contacts(members)
		},
	}
)

// cacheItem stores a rendered feed and its metadata for HTTP caching.
type cacheItem struct {
	version      uint64
	day          string // calendar events shift with the current year
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

type cacheKey struct {
	guildID string
	mime    string
}

// FeedServer serves each server's birthdays as iCalendar and vCard documents.
// Rendered documents are cached until the store version changes.
type FeedServer struct {
	Addr string

	source    Source
	directory Directory
	generator *engine.Generator

	// cache maps cacheKey to *cacheItem. Readers never block writers.
	cache sync.Map
}

// NewFeedServer creates a new instance of the server. directory may be nil,
// in which case member ids are used as names.
func NewFeedServer(addr string, source Source, directory Directory, generator *engine.Generator) *FeedServer {
	return &FeedServer{
		Addr:      addr,
		source:    source,
		directory: directory,
		generator: generator,
	}
}

// Handler returns the routing table.
func (s *FeedServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteHealthz, s.handleHealth)
	mux.HandleFunc(config.RouteCalendar, func(w http.ResponseWriter, r *http.Request) {
		s.handleFeed(w, r, formatCalendar)
	})
	mux.HandleFunc(config.RouteContacts, func(w http.ResponseWriter, r *http.Request) {
		s.handleFeed(w, r, formatContacts)
	})
	return mux
}

// Start serves the feeds and blocks until the context is cancelled.
// The feed is optional: a failure to bind or serve is logged and Start keeps
// blocking, so the Discord side of the bot is never torn down by it.
func (s *FeedServer) Start(ctx context.Context) error {
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompServer),
		slog.String(config.LogKeyAddr, s.Addr),
	)

	if s.Addr == "" {
		log.Info(config.MsgServerDisabled)
		<-ctx.Done()
		return nil
	}

	ln, err := net.Listen(config.NetworkTCP, s.Addr)
	if err != nil {
		log.Error(config.MsgFeedUnavailable,
			config.LogKeyError, fmt.Errorf("%s: %w", config.ErrServerStartup, err),
		)
		<-ctx.Done()
		return nil
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		log.Info(config.MsgServerListen)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverError:
		log.Error(config.MsgFeedUnavailable, config.LogKeyError, err)
		<-ctx.Done()
	}

	log.Info(config.MsgServerStop)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
	}
	return nil
}

func (s *FeedServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	_, _ = io.WriteString(w, config.HTTPMsgHealthy)
}

// handleFeed serves a rendered feed with HTTP caching support.
func (s *FeedServer) handleFeed(w http.ResponseWriter, r *http.Request, format feedFormat) {
	// 1. Method Validation
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	// 2. Unknown servers are indistinguishable from missing routes.
	guildID := r.PathValue(config.PathGuild)
	if !slices.Contains(s.source.Guilds(), guildID) {
		http.Error(w, config.HTTPMsgNotFound, http.StatusNotFound)
		return
	}

	// 3. Load or render
	item, err := s.item(r.Context(), guildID, format)
	if err != nil {
		slog.Error(config.HTTPMsgInternalErr,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyGuild, guildID,
			config.LogKeyError, err,
		)
		http.Error(w, config.HTTPMsgInternalErr, http.StatusInternalServerError)
		return
	}

	// 4. Set Response Headers
	w.Header().Set(config.HeaderContentType, format.mime)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	// 5. Check Conditional Headers (Client Caching)
	if match := r.Header.Get(config.HeaderIfNoneMatch); match != "" {
		if match == item.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	} else if since := r.Header.Get(config.HeaderIfModSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				// If server content is not newer than client cache, return 304.
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	// 6. Serve Content
	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}

// item returns the cached document for the current store version and day, rendering it when stale.
// Two concurrent misses may both render; the last one stored wins, both are equivalent.
func (s *FeedServer) item(ctx context.Context, guildID string, format feedFormat) (*cacheItem, error) {
	key := cacheKey{guildID: guildID, mime: format.mime}
	version := s.source.Version()
	day := s.generator.Clock.Now().Format(config.DateFormatFullDash)

	if v, ok := s.cache.Load(key); ok {
		if item := v.(*cacheItem); item.version == version && item.day == day {
			return item, nil
		}
	}

	data, err := format.render(ctx, s, s.namedMembers(ctx, guildID))
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(data)
	item := &cacheItem{
		version:      version,
		day:          day,
		data:         data,
		etag:         fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:])),
		lastModified: time.Now().UTC().Format(http.TimeFormat),
	}
	s.cache.Store(key, item)

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyGuild, guildID,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, item.etag,
	)
	return item, nil
}

func (s *FeedServer) namedMembers(ctx context.Context, guildID string) []engine.NamedMember {
	members := s.source.Members(guildID)
	named := make([]engine.NamedMember, 0, len(members))
	for _, m := range members {
		name := m.UserID
		if s.directory != nil {
			if n, err := s.directory.DisplayName(ctx, guildID, m.UserID); err == nil && n != "" {
				name = n
			}
		}
		named = append(named, engine.NamedMember{Member: m, Name: name})
	}
	return named
}
