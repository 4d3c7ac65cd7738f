package plan_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
	"wayfare/internal/repositories"
	"wayfare/internal/services"
	mem "wayfare/pkg/memcache"
)

var Module = fx.Provide(
	providePlanRepo, provideGeocoder, providePlanService)

func providePlanRepo(db *gorm.DB) repositories.PlanRepository {
	return repositories.NewPlanRepository(db)
}

func provideGeocoder() services.GeocodingServiceInterface {
	return services.NewMapboxGeocodingClient(services.NewInMemoryGeocodeCache())
}

func providePlanService(
	planRepo repositories.PlanRepository,
	geocoder services.GeocodingServiceInterface,
	locks mem.FinalizeLockStore,
) services.PlanServiceInterface {
	return services.NewPlanService(planRepo, geocoder, locks)
}
