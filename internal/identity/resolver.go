package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wfunc/founder-game/internal/errors"
	"go.uber.org/zap"
)

// Kind 身份类别
type Kind string

const (
	KindGuest  Kind = "guest"  // 访客（随机生成的持久令牌）
	KindWallet Kind = "wallet" // 钱包地址
)

// State 解析器状态
type State string

const (
	StateUnresolved   State = "unresolved"
	StateGuestActive  State = "guest_active"
	StateWalletActive State = "wallet_active"
)

// Identity 已解析的玩家身份
// Token既是存档键也是排行榜键
type Identity struct {
	Token string `json:"token"`
	Kind  Kind   `json:"kind"`
}

// GuestTokenStore 访客令牌的持久化存储
// 令牌格式不透明，只要求唯一且跨重启稳定
type GuestTokenStore interface {
	LoadGuestToken(ctx context.Context) (string, error)
	SaveGuestToken(ctx context.Context, token string) error
}

// ChangeHandler 身份变更回调，携带新身份
// 仅在令牌实际变化时触发，是存档加载和状态重置的唯一入口
type ChangeHandler func(newIdentity Identity)

// Resolver 身份解析器
// 状态转换：Unresolved → GuestActive | WalletActive，钱包连接/断开可在两者间切换
type Resolver struct {
	mu       sync.Mutex
	state    State
	current  Identity
	store    GuestTokenStore
	onChange ChangeHandler
	logger   *zap.Logger
}

// NewResolver 创建身份解析器
func NewResolver(store GuestTokenStore, logger *zap.Logger) *Resolver {
	return &Resolver{
		state:  StateUnresolved,
		store:  store,
		logger: logger,
	}
}

// OnChange 设置身份变更回调
func (r *Resolver) OnChange(handler ChangeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = handler
}

// Current 返回当前身份
func (r *Resolver) Current() (Identity, State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.state
}

// ResolveGuest 解析为访客身份
// 没有已存令牌时生成一个新令牌并先持久化再上报
func (r *Resolver) ResolveGuest(ctx context.Context) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, err := r.store.LoadGuestToken(ctx)
	if err != nil {
		return Identity{}, errors.Wrap(err, errors.ErrIdentityUnresolved, "加载访客令牌失败")
	}

	if token == "" {
		token = newGuestToken()
		if err := r.store.SaveGuestToken(ctx, token); err != nil {
			return Identity{}, errors.Wrap(err, errors.ErrIdentityUnresolved, "保存访客令牌失败")
		}
		r.logger.Info("生成新的访客令牌", zap.String("token", token))
	}

	return r.transition(StateGuestActive, Identity{Token: token, Kind: KindGuest}), nil
}

// ConnectWallet 钱包连接，钱包地址直接作为身份令牌
func (r *Resolver) ConnectWallet(address string) (Identity, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Identity{}, errors.New(errors.ErrInvalidWallet, "地址为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transition(StateWalletActive, Identity{Token: address, Kind: KindWallet}), nil
}

// DisconnectWallet 钱包断开，回落到访客身份
func (r *Resolver) DisconnectWallet(ctx context.Context) (Identity, error) {
	r.mu.Lock()
	state := r.state
	r.mu.Unlock()

	if state != StateWalletActive {
		identity, _ := r.Current()
		return identity, nil
	}

	// 断开后的访客解析与首次解析走同一条路径
	return r.ResolveGuest(ctx)
}

// transition 执行状态转换，令牌变化时发出身份变更事件
// 调用方必须持有锁
func (r *Resolver) transition(newState State, newIdentity Identity) Identity {
	previous := r.current
	r.state = newState
	r.current = newIdentity

	if previous.Token != newIdentity.Token {
		r.logger.Info("身份变更",
			zap.String("from", previous.Token),
			zap.String("to", newIdentity.Token),
			zap.String("kind", string(newIdentity.Kind)),
		)
		if r.onChange != nil {
			r.onChange(newIdentity)
		}
	}

	return newIdentity
}

// newGuestToken 生成访客令牌
func newGuestToken() string {
	return "guest_" + uuid.NewString()
}
