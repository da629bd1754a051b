package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"serotonyl.ru/cod-inventory/internal/common"
	"serotonyl.ru/cod-inventory/internal/features/auth"
	"serotonyl.ru/cod-inventory/internal/features/catalog"
	"serotonyl.ru/cod-inventory/internal/features/inventory"
	"serotonyl.ru/cod-inventory/internal/features/players"
)

// authResponse - ответ регистрации и входа.
type authResponse struct {
	Message string          `json:"message"`
	Player  *players.Player `json:"player"`
	Tokens  *auth.TokenPair `json:"tokens"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type purchaseRequest struct {
	WeaponID *int64 `json:"weapon_id"`
	Quantity *int   `json:"quantity"`
}

type purchaseResponse struct {
	Message        string          `json:"message"`
	Weapon         *catalog.Weapon `json:"weapon"`
	Quantity       int             `json:"quantity"`
	RemainingCoins decimal.Decimal `json:"remaining_coins"`
}

type inventoryResponse struct {
	Player       string             `json:"player"`
	TotalWeapons int                `json:"total_weapons"`
	Inventory    []*inventory.Entry `json:"inventory"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return common.Invalid("некорректное тело запроса")
	}
	return nil
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	health, err := s.deps.Health.Health(c.UserContext())
	if err != nil {
		return c.Status(http.StatusServiceUnavailable).JSON(health)
	}
	return c.JSON(health)
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var in players.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return sendServiceError(c, err)
	}

	player, tokens, err := s.deps.Players.Register(c.UserContext(), in)
	if err != nil {
		return sendServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(authResponse{
		Message: "Игрок зарегистрирован",
		Player:  player,
		Tokens:  tokens,
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return sendServiceError(c, err)
	}

	player, tokens, err := s.deps.Players.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return sendServiceError(c, err)
	}
	return c.JSON(authResponse{
		Message: "Вход выполнен",
		Player:  player,
		Tokens:  tokens,
	})
}

func (s *Server) handleRefresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := parseBody(c, &req); err != nil {
		return sendServiceError(c, err)
	}
	if strings.TrimSpace(req.Refresh) == "" {
		return sendServiceError(c, common.Invalid("refresh обязателен"))
	}

	access, err := s.deps.Auth.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return sendServiceError(c, err)
	}
	return c.JSON(fiber.Map{"access": access})
}

func (s *Server) handleListWeapons(c *fiber.Ctx) error {
	weapons, err := s.deps.Catalog.List(c.UserContext())
	if err != nil {
		return sendServiceError(c, err)
	}
	return c.JSON(weapons)
}

func (s *Server) handleCreateWeapon(c *fiber.Ctx) error {
	player, err := s.deps.Players.Profile(c.UserContext(), currentPlayerID(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	if !player.IsStaff {
		return sendServiceError(c, fmt.Errorf("добавлять оружие может только персонал: %w", common.ErrForbidden))
	}

	var w catalog.Weapon
	if err := parseBody(c, &w); err != nil {
		return sendServiceError(c, err)
	}
	w.ID = 0

	if err := s.deps.Catalog.Create(c.UserContext(), &w); err != nil {
		return sendServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(&w)
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	player, err := s.deps.Players.Profile(c.UserContext(), currentPlayerID(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return c.JSON(player)
}

func (s *Server) handleInventory(c *fiber.Ctx) error {
	ctx := c.UserContext()
	playerID := currentPlayerID(c)

	player, err := s.deps.Players.Profile(ctx, playerID)
	if err != nil {
		return sendServiceError(c, err)
	}
	entries, err := s.deps.Inventory.List(ctx, playerID)
	if err != nil {
		return sendServiceError(c, err)
	}
	if entries == nil {
		entries = []*inventory.Entry{}
	}

	return c.JSON(inventoryResponse{
		Player:       player.Username,
		TotalWeapons: len(entries),
		Inventory:    entries,
	})
}

func (s *Server) handlePurchase(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := parseBody(c, &req); err != nil {
		return sendServiceError(c, err)
	}
	if req.WeaponID == nil {
		return sendServiceError(c, common.Invalid("weapon_id обязателен"))
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	res, err := s.deps.Inventory.Purchase(c.UserContext(), currentPlayerID(c), *req.WeaponID, quantity)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(purchaseResponse{
		Message:        fmt.Sprintf("Добавлено в инвентарь: %s × %d", res.Weapon.Name, res.Quantity),
		Weapon:         res.Weapon,
		Quantity:       res.TotalQuantity,
		RemainingCoins: res.RemainingCoins,
	})
}

func (s *Server) handleRemove(c *fiber.Ctx) error {
	weaponID, err := strconv.ParseInt(c.Params("weapon_id"), 10, 64)
	if err != nil || weaponID <= 0 {
		return sendServiceError(c, common.Invalid("некорректный weapon_id"))
	}

	name, err := s.deps.Inventory.Remove(c.UserContext(), currentPlayerID(c), weaponID)
	if err != nil {
		return sendServiceError(c, err)
	}
	return c.JSON(messageResponse{Message: fmt.Sprintf("%s удалено из инвентаря", name)})
}
