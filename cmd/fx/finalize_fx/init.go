package finalize_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
	"wayfare/internal/repositories"
	"wayfare/internal/services"
	mem "wayfare/pkg/memcache"
	"wayfare/pkg/utils"
)

var Module = fx.Provide(
	provideRequestRepo, provideRequestService, provideFinalizeService)

func provideRequestRepo(db *gorm.DB) repositories.ServiceRequestRepository {
	return repositories.NewServiceRequestRepository(db)
}

func provideRequestService(requestRepo repositories.ServiceRequestRepository) services.RequestServiceInterface {
	return services.NewRequestService(requestRepo)
}

func provideFinalizeService(
	planRepo repositories.PlanRepository,
	requestRepo repositories.ServiceRequestRepository,
	analysis utils.AnalysisClientInterface,
	embedder utils.EmbeddingClientInterface,
	locks mem.FinalizeLockStore,
) services.FinalizeServiceInterface {
	return services.NewFinalizeService(planRepo, requestRepo, analysis, embedder, locks)
}
