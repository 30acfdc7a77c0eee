package router

import (
	userapp "github.com/oksasatya/user-accounts-service/internal/application"
	"github.com/oksasatya/user-accounts-service/internal/container"
	pginfra "github.com/oksasatya/user-accounts-service/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/user-accounts-service/internal/interface/http"
	"github.com/oksasatya/user-accounts-service/internal/router/modules"
)

type UsersModuleDeps struct {
	Service   *userapp.UsersService
	Addresses *userapp.AddressesService
	Handler   *handlers.UsersHandler
}

func buildUsersDeps() UsersModuleDeps {
	users := pginfra.NewUsersRepository(container.GetPGPool())
	addrs := pginfra.NewAddressRepository(container.GetPGPool())

	cfg := container.GetConfig()
	service := userapp.NewUsersService(
		users,
		addrs,
		container.GetRedis(),
		container.GetLogger(),
		container.GetRabbitPub(),
		container.GetES(),
		cfg.ESUsersIndex,
		container.GetGCS(),
		cfg.GCSBucket,
	)
	addresses := userapp.NewAddressesService(service)

	handler := handlers.NewUsersHandler(service, addresses, container.GetLogger())

	return UsersModuleDeps{
		Service:   service,
		Addresses: addresses,
		Handler:   handler,
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	deps := buildUsersDeps()
	r.Add(modules.NewUsersModule(deps.Handler, container.GetVerifier()))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
