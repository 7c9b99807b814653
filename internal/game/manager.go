package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/founder-game/internal/config"
	"github.com/wfunc/founder-game/internal/errors"
	"github.com/wfunc/founder-game/internal/identity"
	"github.com/wfunc/founder-game/internal/repository"
	"go.uber.org/zap"
)

// memoryTokenStore 内存访客令牌存储
// 客户端自带令牌登录时使用，令牌不落到本机键值表
type memoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (s *memoryTokenStore) LoadGuestToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *memoryTokenStore) SaveGuestToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Manager 游戏会话管理器
// 负责会话的创建、查找、空闲回收，并持有全局排行榜订阅源
type Manager struct {
	cfg       *config.GameConfig
	snapshots *SnapshotManager
	lbRepo    repository.LeaderboardRepository
	settings  repository.SettingRepository
	feed      *LeaderboardFeed
	minter    Minter
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*PlayerSession

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager 创建会话管理器
func NewManager(
	cfg *config.GameConfig,
	snapshotRepo repository.SnapshotRepository,
	lbRepo repository.LeaderboardRepository,
	settings repository.SettingRepository,
	minter Minter,
	log *zap.Logger,
) *Manager {
	return &Manager{
		cfg:       cfg,
		snapshots: NewSnapshotManager(snapshotRepo, log),
		lbRepo:    lbRepo,
		settings:  settings,
		feed:      NewLeaderboardFeed(lbRepo, cfg.LeaderboardSize, cfg.SyncInterval, log),
		minter:    minter,
		logger:    log,
		sessions:  make(map[string]*PlayerSession),
	}
}

// Start 启动后台任务（排行榜刷新、空闲会话回收）
func (m *Manager) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.feed.Run(ctx)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.reapIdle()
			}
		}
	}()
}

// CreateSession 创建新会话并解析初始身份
// priorGuestToken是客户端上次保存的访客令牌，为空时使用本机存储的令牌
func (m *Manager) CreateSession(ctx context.Context, priorGuestToken string) (*PlayerSession, error) {
	m.mu.Lock()
	if len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return nil, errors.New(errors.ErrSessionLimit)
	}
	m.mu.Unlock()

	var store identity.GuestTokenStore
	if priorGuestToken != "" {
		store = &memoryTokenStore{token: priorGuestToken}
	} else {
		store = repository.NewGuestTokenStore(m.settings)
	}

	session := newPlayerSession(
		uuid.NewString(),
		store,
		m.snapshots,
		m.lbRepo,
		m.feed,
		m.minter,
		m.cfg,
		m.logger,
	)
	if err := session.start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[session.ID()] = session
	count := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("会话创建",
		zap.String("session", session.ID()),
		zap.String("identity", session.Identity().Token),
		zap.Int("active_sessions", count),
	)
	return session, nil
}

// Get 按会话ID查找会话
func (m *Manager) Get(sessionID string) (*PlayerSession, error) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrSessionNotFound)
	}
	return session, nil
}

// Close 关闭并移除会话
func (m *Manager) Close(ctx context.Context, sessionID string) {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if ok {
		session.Close(ctx)
		m.logger.Info("会话关闭", zap.String("session", sessionID))
	}
}

// Feed 排行榜订阅源
func (m *Manager) Feed() *LeaderboardFeed {
	return m.feed
}

// Leaderboard 当前排行榜快照
func (m *Manager) Leaderboard() []LeaderboardRow {
	return m.feed.Latest()
}

// SessionCount 活跃会话数
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// reapIdle 回收超时未活跃的会话
func (m *Manager) reapIdle() {
	cutoff := time.Now().Add(-m.cfg.SessionTimeout)

	m.mu.Lock()
	var idle []*PlayerSession
	for id, session := range m.sessions {
		if session.LastActive().Before(cutoff) {
			idle = append(idle, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, session := range idle {
		session.Close(context.Background())
		m.logger.Info("空闲会话回收",
			zap.String("session", session.ID()),
			zap.String("identity", session.Identity().Token),
		)
	}
}

// Shutdown 关闭所有会话和后台任务
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*PlayerSession, 0, len(m.sessions))
	for id, session := range m.sessions {
		sessions = append(sessions, session)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close(ctx)
	}

	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}
