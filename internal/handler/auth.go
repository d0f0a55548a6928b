package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// CustomerStore is the subset of repository.CustomerRepo used by auth.
type CustomerStore interface {
	Create(ctx context.Context, c model.Customer) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.Customer, error)
	GetByID(ctx context.Context, tx *sql.Tx, id uint64) (model.Customer, error)
}

// AuthSettings configures token issuing and the tier of new accounts.
type AuthSettings struct {
	JWTSecret    string
	AccessTTLMin int
	BcryptCost   int
	YouthAge     int
	YouthTier    string
	BaseTier     string
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	cfg       AuthSettings
	customers CustomerStore
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewAuthHandler(cfg AuthSettings, customers CustomerStore, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{cfg: cfg, customers: customers, log: log, now: func() time.Time { return time.Now().UTC() }}
}

type registerReq struct {
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userView struct {
	ID                   uint64          `json:"id"`
	Name                 string          `json:"name"`
	Email                string          `json:"email"`
	Role                 string          `json:"role"`
	DateOfBirth          *time.Time      `json:"date_of_birth,omitempty"`
	AccumulatedPoints    int64           `json:"accumulated_points"`
	TotalSpent           decimal.Decimal `json:"total_spent"`
	MembershipTier       string          `json:"membership_tier"`
	MembershipValidUntil *time.Time      `json:"membership_valid_until,omitempty"`
}

type authResp struct {
	User   userView  `json:"user"`
	Access tokenPart `json:"access"`
}

func toUserView(c model.Customer) (userView, error) {
	var v userView
	err := copier.Copy(&v, &c)
	return v, err
}

// tierFor picks the starting tier from the customer's age.
func (h *AuthHandler) tierFor(dob *time.Time, now time.Time) string {
	if dob == nil {
		return h.cfg.BaseTier
	}
	if dob.AddDate(h.cfg.YouthAge, 0, 0).After(now) {
		return h.cfg.YouthTier
	}
	return h.cfg.BaseTier
}

func (h *AuthHandler) issue(c echo.Context, status int, cust model.Customer) error {
	access, err := utils.NewAccessToken(h.cfg.JWTSecret, cust.ID, cust.Role, h.cfg.AccessTTLMin)
	if err != nil {
		return writeError(c, h.log, err)
	}
	view, err := toUserView(cust)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(status, authResp{User: view, Access: tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Register creates a CUSTOMER account and returns an access token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	now := h.now()
	cust := model.Customer{
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Role:       model.RoleCustomer,
		TotalSpent: decimal.Zero,
		CreatedAt:  now,
	}
	if req.DateOfBirth != "" {
		dob, _ := time.Parse(time.DateOnly, req.DateOfBirth)
		cust.DateOfBirth = &dob
	}
	cust.MembershipTier = h.tierFor(cust.DateOfBirth, now)
	validUntil := time.Date(now.Year(), time.December, 31, 23, 59, 59, 0, now.Location())
	cust.MembershipValidUntil = &validUntil

	hash, err := utils.HashPassword(req.Password, h.cfg.BcryptCost)
	if err != nil {
		return writeError(c, h.log, err)
	}
	cust.PasswordHash = hash

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.customers.Create(ctx, cust)
	if errors.Is(err, repository.ErrEmailExists) {
		return c.JSON(http.StatusConflict, errorBody{Error: "email already exists", Code: "EMAIL_EXISTS"})
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	cust.ID = id
	return h.issue(c, http.StatusCreated, cust)
}

// Login verifies credentials and returns a new access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cust, err := h.customers.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "invalid credentials", Code: "UNAUTHORIZED"})
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !utils.VerifyPassword(cust.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "invalid credentials", Code: "UNAUTHORIZED"})
	}
	return h.issue(c, http.StatusOK, cust)
}

// Me returns the authenticated customer's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	cust, err := h.customers.GetByID(c.Request().Context(), nil, id)
	if errors.Is(err, repository.ErrNotFound) {
		return writeError(c, h.log, &service.NotFoundError{Resource: "customer"})
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	view, err := toUserView(cust)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view)
}
