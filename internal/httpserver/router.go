package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"bestwishes/internal/auth"
	"bestwishes/internal/domain"
	"bestwishes/internal/metrics"
	paymentsvc "bestwishes/internal/service/payment"
	purchasesvc "bestwishes/internal/service/purchase"
)

type purchaseService interface {
	Create(ctx context.Context, userID string, in purchasesvc.CreateInput) (*domain.CollaborativePurchase, error)
	Get(ctx context.Context, id string) (*domain.CollaborativePurchase, error)
	ListForUser(ctx context.Context, userID, email string) ([]domain.CollaborativePurchase, error)
	Cancel(ctx context.Context, purchaseID, userID string) (*domain.CollaborativePurchase, error)
	GetByPaymentLink(ctx context.Context, link string) (*domain.CollaborativePurchase, *domain.Participant, time.Duration, error)
	RecordPayment(ctx context.Context, link, paymentIntentID string) (*domain.CollaborativePurchase, error)
	Decline(ctx context.Context, link string) (*domain.CollaborativePurchase, error)
}

type paymentService interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*paymentsvc.Intent, error)
}

type userFinder interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type tokenManager interface {
	Generate(user domain.User) (string, error)
	Validate(token string) (*auth.Claims, error)
}

// Deps carries everything the router needs.
type Deps struct {
	Purchases      purchaseService
	Payments       paymentService
	Users          userFinder
	Tokens         tokenManager
	DB             *pgxpool.Pool
	Logger         *slog.Logger
	AllowedOrigins []string
}

// NewRouter wires routes for the API.
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), metrics.Middleware())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = deps.AllowedOrigins
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.DB))
	router.GET("/metrics", metrics.Handler())

	h := &handlers{deps: deps}

	router.POST("/auth/login", h.login)

	// Payment-link routes are public: invitees are identified by the link
	// alone and never hold an account.
	router.GET("/collaborative-purchases/payment/:paymentLink", h.paymentSession)
	router.POST("/collaborative-purchases/payment/:paymentLink", h.reportPayment)
	router.POST("/collaborative-purchases/decline/:paymentLink", h.declinePurchase)
	router.POST("/payments/create-intent", h.createIntent)

	authed := router.Group("/", requireAuth(deps.Tokens))
	authed.POST("/collaborative-purchases", h.createPurchase)
	authed.GET("/collaborative-purchases", h.listPurchases)
	authed.GET("/collaborative-purchases/:id", h.getPurchase)
	authed.POST("/collaborative-purchases/:id/cancel", h.cancelPurchase)

	return router
}

type handlers struct {
	deps Deps
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func readyHandler(db *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not reachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
