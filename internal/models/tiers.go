package affinity

// Таблицы по умолчанию - используются, если в Mongo нет сохраненной таблицы

func DefaultIntimacyTiers() []TierDefinition {
	return []TierDefinition{
		{Tier: 1, MinScore: 0, RewardType: RewardNone, RewardPayload: NoReward()},
		{Tier: 2, MinScore: 100, RewardType: RewardUnlock, RewardPayload: UnlockPayload(FeatureVoiceCall)},
		{Tier: 3, MinScore: 500, RewardType: RewardUnlock, RewardPayload: UnlockPayload(FeatureVideoCall)},
		{Tier: 4, MinScore: 2000, RewardType: RewardUnlock, RewardPayload: UnlockPayload(FeaturePrivatePhoto)},
		{Tier: 5, MinScore: 8000, RewardType: RewardBadge, RewardPayload: BadgePayload("soulmate")},
		{Tier: 6, MinScore: 30000, RewardType: RewardCoins, RewardPayload: CoinsPayload(500)},
	}
}

// Пороги по купленной валюте
func DefaultWealthTiers() []TierDefinition {
	return []TierDefinition{
		{Tier: 1, MinScore: 0, RewardType: RewardNone, RewardPayload: NoReward()},
		{Tier: 2, MinScore: 100, RewardType: RewardBadge, RewardPayload: BadgePayload("bronze")},
		{Tier: 3, MinScore: 1000, RewardType: RewardBadge, RewardPayload: BadgePayload("silver")},
		{Tier: 4, MinScore: 5000, RewardType: RewardBadge, RewardPayload: BadgePayload("gold")},
		{Tier: 5, MinScore: 20000, RewardType: RewardUnlock, RewardPayload: UnlockPayload(FeatureGiftWall)},
		{Tier: 6, MinScore: 100000, RewardType: RewardBadge, RewardPayload: BadgePayload("diamond")},
	}
}
