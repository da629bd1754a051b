package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/features/auth"
	"serotonyl.ru/cod-inventory/internal/features/catalog"
	"serotonyl.ru/cod-inventory/internal/features/inventory"
	"serotonyl.ru/cod-inventory/internal/features/players"
	"serotonyl.ru/cod-inventory/internal/features/stats"
)

// HealthService - счётчики для GET /.
type HealthService interface {
	Health(ctx context.Context) (*stats.Health, error)
}

// CatalogService - каталог оружия.
type CatalogService interface {
	List(ctx context.Context) ([]*catalog.Weapon, error)
	Create(ctx context.Context, w *catalog.Weapon) error
}

// PlayerService - регистрация, вход, профиль.
type PlayerService interface {
	Register(ctx context.Context, in players.RegisterInput) (*players.Player, *auth.TokenPair, error)
	Login(ctx context.Context, username, password string) (*players.Player, *auth.TokenPair, error)
	Profile(ctx context.Context, playerID int64) (*players.Player, error)
}

// InventoryService - покупка, удаление и просмотр инвентаря.
type InventoryService interface {
	Purchase(ctx context.Context, playerID, weaponID int64, quantity int) (*inventory.PurchaseResult, error)
	Remove(ctx context.Context, playerID, weaponID int64) (string, error)
	List(ctx context.Context, playerID int64) ([]*inventory.Entry, error)
}

// AuthService - проверка и обновление токенов.
type AuthService interface {
	Authenticate(accessToken string) (int64, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Deps - сервисы, которые обслуживает API.
type Deps struct {
	Health    HealthService
	Catalog   CatalogService
	Players   PlayerService
	Inventory InventoryService
	Auth      AuthService
}

// Server - HTTP-сервер API.
type Server struct {
	app  *fiber.App
	deps Deps
}

// New создаёт сервер и регистрирует маршруты.
func New(deps Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "cod-inventory",
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	s := &Server{app: app, deps: deps}

	app.Use(recover.New())
	app.Use(requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/", s.handleHealth)
	s.app.Post("/register/", s.handleRegister)
	s.app.Post("/login/", s.handleLogin)
	s.app.Post("/token/refresh/", s.handleRefresh)

	authed := authRequired(s.deps.Auth)
	s.app.Get("/weapons/", authed, s.handleListWeapons)
	s.app.Post("/weapons/", authed, s.handleCreateWeapon)
	s.app.Get("/profile/", authed, s.handleProfile)
	s.app.Get("/inventory/", authed, s.handleInventory)
	s.app.Post("/inventory/add/", authed, s.handlePurchase)
	s.app.Delete("/inventory/remove/:weapon_id/", authed, s.handleRemove)
}

// App отдаёт fiber.App (для тестов через app.Test).
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen блокируется, пока сервер не будет остановлен.
func (s *Server) Listen(addr string) error {
	log.WithField("addr", addr).Info("HTTP API запущен")
	return s.app.Listen(addr)
}

// Shutdown корректно останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
