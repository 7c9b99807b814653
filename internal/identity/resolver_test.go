package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryTokenStore 内存版访客令牌存储
type memoryTokenStore struct {
	token string
}

func (m *memoryTokenStore) LoadGuestToken(ctx context.Context) (string, error) {
	return m.token, nil
}

func (m *memoryTokenStore) SaveGuestToken(ctx context.Context, token string) error {
	m.token = token
	return nil
}

// TestResolver_ResolveGuest 测试首次解析生成并持久化访客令牌
func TestResolver_ResolveGuest(t *testing.T) {
	store := &memoryTokenStore{}
	r := NewResolver(store, zap.NewNop())

	id, err := r.ResolveGuest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KindGuest, id.Kind)
	assert.NotEmpty(t, id.Token)
	assert.Equal(t, id.Token, store.token, "令牌必须先持久化")

	_, state := r.Current()
	assert.Equal(t, StateGuestActive, state)
}

// TestResolver_GuestTokenStable 测试令牌跨解析稳定
func TestResolver_GuestTokenStable(t *testing.T) {
	store := &memoryTokenStore{token: "guest_existing"}
	r := NewResolver(store, zap.NewNop())

	id, err := r.ResolveGuest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "guest_existing", id.Token)
}

// TestResolver_ChangeEvent 测试身份变更事件
func TestResolver_ChangeEvent(t *testing.T) {
	store := &memoryTokenStore{}
	r := NewResolver(store, zap.NewNop())

	var events []Identity
	r.OnChange(func(id Identity) {
		events = append(events, id)
	})

	ctx := context.Background()

	// 首次解析触发一次
	guest, err := r.ResolveGuest(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, guest.Token, events[0].Token)

	// 重复解析同一身份不触发
	_, err = r.ResolveGuest(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	// 钱包连接触发
	wallet, err := r.ConnectWallet("So1anaWa11etAddress111")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, wallet.Token, events[1].Token)
	assert.Equal(t, KindWallet, events[1].Kind)

	// 断开回落到访客，再触发一次
	back, err := r.DisconnectWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, guest.Token, back.Token)
	assert.Len(t, events, 3)
}

// TestResolver_ConnectWallet_Invalid 测试空钱包地址
func TestResolver_ConnectWallet_Invalid(t *testing.T) {
	r := NewResolver(&memoryTokenStore{}, zap.NewNop())

	_, err := r.ConnectWallet("  ")
	require.Error(t, err)
}

// TestResolver_DisconnectWithoutWallet 测试非钱包状态下断开为空操作
func TestResolver_DisconnectWithoutWallet(t *testing.T) {
	r := NewResolver(&memoryTokenStore{}, zap.NewNop())

	ctx := context.Background()
	guest, err := r.ResolveGuest(ctx)
	require.NoError(t, err)

	id, err := r.DisconnectWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, guest.Token, id.Token)

	_, state := r.Current()
	assert.Equal(t, StateGuestActive, state)
}
