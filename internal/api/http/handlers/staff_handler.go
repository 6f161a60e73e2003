package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/guildkit/ticketd/internal/api/dto"
	"github.com/guildkit/ticketd/internal/auth"
	"github.com/guildkit/ticketd/internal/repository"
	"github.com/guildkit/ticketd/pkg/util"
)

// StaffHandler authenticates staff operators for the HTTP API.
type StaffHandler struct {
	principals repository.StaffPrincipalRepository
	tokens     *auth.TokenManager
	hasher     *auth.Hasher
}

// NewStaffHandler constructs handler.
func NewStaffHandler(principals repository.StaffPrincipalRepository, tokens *auth.TokenManager, hasher *auth.Hasher) *StaffHandler {
	return &StaffHandler{principals: principals, tokens: tokens, hasher: hasher}
}

// Login POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return util.NewValidationError("username and password required", nil)
	}

	principal, err := h.principals.GetByUsername(c.UserContext(), req.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewUnauthorized("invalid credentials")
		}
		return err
	}
	if !principal.IsActive || !h.hasher.Compare(principal.PasswordHash, req.Password) {
		return util.NewUnauthorized("invalid credentials")
	}

	token, err := h.tokens.Issue(principal)
	if err != nil {
		return util.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.StaffLoginResponse{
		AccessToken: token,
		Role:        principal.Role,
		GuildID:     principal.GuildID,
	}})
}
