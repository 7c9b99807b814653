package economy

import (
	"time"

	"github.com/wfunc/founder-game/internal/errors"
)

// Snapshot 经济状态的可序列化快照
type Snapshot struct {
	Balance          int64           `json:"balance"`
	LifetimeEarnings int64           `json:"lifetime_earnings"`
	ClickPower       int64           `json:"click_power"`
	AutoRate         int64           `json:"auto_rate"`
	Inventory        map[int]int64   `json:"inventory"`
	HasMinted        bool            `json:"has_minted"`
	MintAddress      string          `json:"mint_address,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

// State 单个玩家的经济状态
// 状态由持有它的会话独占，所有变更都经由下列操作进入，
// 其他组件只读或通过操作间接写入
type State struct {
	balance          int64
	lifetimeEarnings int64
	clickPower       int64
	initialClickPower int64
	autoRate         int64
	inventory        map[int]int64
	hasMinted        bool
	mintAddress      string
	timestamp        time.Time

	// 每次状态变更后触发（自动存档挂在这里）
	onMutate func()
}

// NewState 创建零值经济状态
func NewState(initialClickPower int64) *State {
	if initialClickPower <= 0 {
		initialClickPower = 1
	}
	return &State{
		clickPower:        initialClickPower,
		initialClickPower: initialClickPower,
		inventory:         make(map[int]int64),
		timestamp:         time.Now(),
	}
}

// SetOnMutate 设置状态变更回调
func (s *State) SetOnMutate(fn func()) {
	s.onMutate = fn
}

func (s *State) mutated() {
	s.timestamp = time.Now()
	if s.onMutate != nil {
		s.onMutate()
	}
}

// Tick 固定周期的自动产出
// autoRate为0时是空操作，不触发存档
func (s *State) Tick() {
	if s.autoRate <= 0 {
		return
	}
	s.balance += s.autoRate
	s.lifetimeEarnings += s.autoRate
	s.mutated()
}

// Click 手动产出
func (s *State) Click() {
	s.balance += s.clickPower
	s.lifetimeEarnings += s.clickPower
	s.mutated()
}

// Buy 购买一个单位的升级项
// 价格按当前持有数重新计算，余额不足时返回错误且状态不变
func (s *State) Buy(upgradeID int) (int64, error) {
	upgrade, ok := FindUpgrade(upgradeID)
	if !ok {
		return 0, errors.Newf(errors.ErrUnknownUpgrade, "升级项 %d 不存在", upgradeID)
	}

	owned := s.inventory[upgradeID]
	price := Cost(upgrade.BaseCost, owned)

	if s.balance < price {
		return 0, errors.Newf(errors.ErrInsufficientFunds, "需要 %d，当前 %d", price, s.balance)
	}

	s.balance -= price
	s.inventory[upgradeID] = owned + 1
	if upgrade.Type == UpgradeTypeAuto {
		s.autoRate += upgrade.Rate
	}
	s.mutated()

	return price, nil
}

// Reset 重置为初始状态，不可逆
func (s *State) Reset() {
	s.balance = 0
	s.lifetimeEarnings = 0
	s.clickPower = s.initialClickPower
	s.autoRate = 0
	s.inventory = make(map[int]int64)
	s.hasMinted = false
	s.mintAddress = ""
	s.mutated()
}

// CompleteMint 记录铸造完成，hasMinted与mintAddress必须同时落地
func (s *State) CompleteMint(mintAddress string) error {
	if s.hasMinted {
		return errors.New(errors.ErrAlreadyMinted)
	}
	if mintAddress == "" {
		return errors.New(errors.ErrMintProofMissing)
	}
	s.hasMinted = true
	s.mintAddress = mintAddress
	s.mutated()
	return nil
}

// 只读访问器

// Balance 当前可支配余额
func (s *State) Balance() int64 { return s.balance }

// LifetimeEarnings 累计产出，只增不减
func (s *State) LifetimeEarnings() int64 { return s.lifetimeEarnings }

// ClickPower 单次点击产出
func (s *State) ClickPower() int64 { return s.clickPower }

// AutoRate 每个周期的自动产出
func (s *State) AutoRate() int64 { return s.autoRate }

// HasMinted 是否已铸造成就
func (s *State) HasMinted() bool { return s.hasMinted }

// MintAddress 铸造凭证，仅在HasMinted为真时有意义
func (s *State) MintAddress() string { return s.mintAddress }

// Owned 某升级项的持有数
func (s *State) Owned(upgradeID int) int64 { return s.inventory[upgradeID] }

// Inventory 持有表副本
func (s *State) Inventory() map[int]int64 {
	out := make(map[int]int64, len(s.inventory))
	for id, count := range s.inventory {
		out[id] = count
	}
	return out
}

// NextCost 某升级项的当前购买价格
func (s *State) NextCost(upgradeID int) (int64, error) {
	upgrade, ok := FindUpgrade(upgradeID)
	if !ok {
		return 0, errors.Newf(errors.ErrUnknownUpgrade, "升级项 %d 不存在", upgradeID)
	}
	return Cost(upgrade.BaseCost, s.inventory[upgradeID]), nil
}

// RecomputeAutoRate 按持有表重算自动产出
// 增量维护的autoRate必须始终与该值一致
func (s *State) RecomputeAutoRate() int64 {
	var total int64
	for id, count := range s.inventory {
		if upgrade, ok := FindUpgrade(id); ok && upgrade.Type == UpgradeTypeAuto {
			total += upgrade.Rate * count
		}
	}
	return total
}

// Snapshot 导出当前状态
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Balance:          s.balance,
		LifetimeEarnings: s.lifetimeEarnings,
		ClickPower:       s.clickPower,
		AutoRate:         s.autoRate,
		Inventory:        s.Inventory(),
		HasMinted:        s.hasMinted,
		MintAddress:      s.mintAddress,
		Timestamp:        s.timestamp,
	}
}

// Restore 用快照整体替换状态，不做合并
// autoRate以持有表重算值为准，存档中的值仅作参考
func (s *State) Restore(snap Snapshot) {
	s.balance = snap.Balance
	if s.balance < 0 {
		s.balance = 0
	}
	s.lifetimeEarnings = snap.LifetimeEarnings
	if s.lifetimeEarnings < 0 {
		s.lifetimeEarnings = 0
	}
	s.clickPower = snap.ClickPower
	if s.clickPower <= 0 {
		s.clickPower = s.initialClickPower
	}
	s.inventory = make(map[int]int64)
	for id, count := range snap.Inventory {
		if count > 0 {
			s.inventory[id] = count
		}
	}
	s.autoRate = s.RecomputeAutoRate()
	s.hasMinted = snap.HasMinted
	s.mintAddress = snap.MintAddress
	// 铸造标记和凭证必须成对出现
	if s.hasMinted && s.mintAddress == "" {
		s.hasMinted = false
	}
	if !s.hasMinted {
		s.mintAddress = ""
	}
	s.timestamp = snap.Timestamp
	if s.timestamp.IsZero() {
		s.timestamp = time.Now()
	}
}
