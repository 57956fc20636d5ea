package client

import "context"

type ctxKey struct{}

// NewContext кладет приложение в контекст команды
func NewContext(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, ctxKey{}, app)
}

// FromContext достает приложение из контекста команды
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(ctxKey{}).(*App)
	return app
}
