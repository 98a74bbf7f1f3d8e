package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewRulesConfig,
	NewValidatorUseCase,
	NewRulesEngineUseCase,
	NewAggregateUseCase,
	NewBatchEligibilityUseCase,
	NewTierRunUseCase, // 组合 UseCase
)
