package memcache_fx

import (
	"go.uber.org/fx"
	mem "wayfare/pkg/memcache"
)

var Module = fx.Provide(provideFinalizeLocks)

func provideFinalizeLocks() mem.FinalizeLockStore {
	return mem.NewFinalizeLocks()
}
