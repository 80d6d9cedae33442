// Package bootstrap runs a service's lifecycle: start components, run
// configure callbacks and hooks, check readiness, wait for a signal and
// shut down in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(redisComponent)
//	app.RegisterComponent(serverComponent)
//	app.OnReady(func(ctx context.Context) error { ... })
//	err = app.Run(ctx)
package bootstrap
