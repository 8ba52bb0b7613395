package affinity

import (
	"encoding/json"
	"fmt"
)

// Версия формата payload
const RewardPayloadVersion = 1

type RewardKind string

const (
	RewardNone   RewardKind = "none"
	RewardBadge  RewardKind = "badge"
	RewardCoins  RewardKind = "coins"
	RewardUnlock RewardKind = "unlock"
)

// Функции, которые открываются наградой
const (
	FeatureVoiceCall    = "voice_call"
	FeatureVideoCall    = "video_call"
	FeaturePrivatePhoto = "private_photo"
	FeatureGiftWall     = "gift_wall"
)

type BadgeReward struct {
	Name string `json:"name"`
}

type CoinsReward struct {
	Amount int64 `json:"amount"`
}

type UnlockReward struct {
	Feature string `json:"feature"`
}

// RewardPayload - размеченное объединение: заполнено только тело, соответствующее Kind
type RewardPayload struct {
	Version int           `json:"v"`
	Kind    RewardKind    `json:"kind"`
	Badge   *BadgeReward  `json:"badge,omitempty"`
	Coins   *CoinsReward  `json:"coins,omitempty"`
	Unlock  *UnlockReward `json:"unlock,omitempty"`
}

func NoReward() RewardPayload {
	return RewardPayload{Version: RewardPayloadVersion, Kind: RewardNone}
}

func BadgePayload(name string) RewardPayload {
	return RewardPayload{Version: RewardPayloadVersion, Kind: RewardBadge, Badge: &BadgeReward{Name: name}}
}

func CoinsPayload(amount int64) RewardPayload {
	return RewardPayload{Version: RewardPayloadVersion, Kind: RewardCoins, Coins: &CoinsReward{Amount: amount}}
}

func UnlockPayload(feature string) RewardPayload {
	return RewardPayload{Version: RewardPayloadVersion, Kind: RewardUnlock, Unlock: &UnlockReward{Feature: feature}}
}

func (p RewardPayload) Validate() error {
	if p.Version != RewardPayloadVersion {
		return fmt.Errorf("version %d: %w", p.Version, ErrInvalidPayload)
	}
	bodies := 0
	if p.Badge != nil {
		bodies++
	}
	if p.Coins != nil {
		bodies++
	}
	if p.Unlock != nil {
		bodies++
	}

	switch p.Kind {
	case RewardNone:
		if bodies != 0 {
			return fmt.Errorf("kind none with body: %w", ErrInvalidPayload)
		}
		return nil
	case RewardBadge:
		if p.Badge == nil || bodies != 1 || p.Badge.Name == "" {
			return fmt.Errorf("badge name is required: %w", ErrInvalidPayload)
		}
	case RewardCoins:
		if p.Coins == nil || bodies != 1 || p.Coins.Amount <= 0 {
			return fmt.Errorf("coins amount must be positive: %w", ErrInvalidPayload)
		}
	case RewardUnlock:
		if p.Unlock == nil || bodies != 1 {
			return fmt.Errorf("unlock feature is required: %w", ErrInvalidPayload)
		}
		switch p.Unlock.Feature {
		case FeatureVoiceCall, FeatureVideoCall, FeaturePrivatePhoto, FeatureGiftWall:
		default:
			return fmt.Errorf("unknown feature %q: %w", p.Unlock.Feature, ErrInvalidPayload)
		}
	default:
		return fmt.Errorf("kind %q: %w", p.Kind, ErrInvalidPayload)
	}
	return nil
}

// Encode - непрозрачная строка для хранения
func (p RewardPayload) Encode() (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func DecodeRewardPayload(blob string) (RewardPayload, error) {
	if blob == "" {
		return NoReward(), nil
	}
	var p RewardPayload
	if err := json.Unmarshal([]byte(blob), &p); err != nil {
		return RewardPayload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return RewardPayload{}, err
	}
	return p, nil
}
