package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soltanba/shoplane-backend/api/controllers"
	webhookcontrollers "github.com/soltanba/shoplane-backend/api/controllers/webhooks"
	"github.com/soltanba/shoplane-backend/api/middleware"
	authsvc "github.com/soltanba/shoplane-backend/internal/auth"
	cartsvc "github.com/soltanba/shoplane-backend/internal/cart"
	checkoutsvc "github.com/soltanba/shoplane-backend/internal/checkout"
	imagesvc "github.com/soltanba/shoplane-backend/internal/images"
	ordersvc "github.com/soltanba/shoplane-backend/internal/orders"
	paymentsvc "github.com/soltanba/shoplane-backend/internal/payments"
	productsvc "github.com/soltanba/shoplane-backend/internal/products"
	userssvc "github.com/soltanba/shoplane-backend/internal/users"
	stripewebhook "github.com/soltanba/shoplane-backend/internal/webhooks/stripe"
	"github.com/soltanba/shoplane-backend/pkg/config"
	"github.com/soltanba/shoplane-backend/pkg/logger"
	"github.com/soltanba/shoplane-backend/pkg/metrics"
	"github.com/soltanba/shoplane-backend/pkg/stripe"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.HTTPMetrics

	DBPinger    controllers.Pinger
	RedisPinger controllers.Pinger

	AuthService     authsvc.Service
	UserService     userssvc.Service
	ProductService  productsvc.Service
	ImageService    imagesvc.Service
	CartService     cartsvc.Service
	CheckoutService checkoutsvc.Service
	OrderService    ordersvc.Service
	PaymentService  paymentsvc.Service

	StripeClient  *stripe.Client
	WebhookSvc    *stripewebhook.Service
	WebhookGuard  *stripewebhook.IdempotencyGuard
	MetricsHandle http.Handler
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.Metrics(p.Metrics),
		middleware.CORS(p.Config.App.CORSOrigins),
	)

	metricsHandler := p.MetricsHandle
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.DBPinger, p.RedisPinger))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.WebhookSvc, p.StripeClient, p.WebhookGuard, p.Logger))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(p.AuthService, p.Logger))
		r.Post("/login", controllers.AuthLogin(p.AuthService, p.Logger))
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.Auth(p.Config.JWT, p.Logger))
		r.Get("/me", controllers.GetProfile(p.UserService, p.Logger))
		r.Put("/me", controllers.UpdateProfile(p.UserService, p.Logger))
		r.Delete("/me", controllers.DeleteAccount(p.UserService, p.Logger))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(p.ProductService, p.Logger))
		r.Get("/categories", controllers.ListProductCategories(p.ProductService, p.Logger))
		r.Get("/{productId}", controllers.GetProduct(p.ProductService, p.Logger))
		r.Get("/{productId}/images/{imageId}", controllers.DownloadProductImage(p.ImageService, p.Logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(p.Config.JWT, p.Logger))
			r.Post("/", controllers.CreateProduct(p.ProductService, p.Logger))
			r.Put("/{productId}", controllers.UpdateProduct(p.ProductService, p.Logger))
			r.Delete("/{productId}", controllers.DeleteProduct(p.ProductService, p.Logger))
			r.Post("/{productId}/images", controllers.UploadProductImage(p.ImageService, p.Config.Media.MaxImageBytes, p.Logger))
			r.Delete("/{productId}/images/{imageId}", controllers.DeleteProductImage(p.ImageService, p.Logger))
		})
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.Auth(p.Config.JWT, p.Logger))
		r.Get("/", controllers.GetCart(p.CartService, p.Logger))
		r.Get("/total", controllers.GetCartTotal(p.CartService, p.Logger))
		r.Post("/items", controllers.AddCartItem(p.CartService, p.Logger))
		r.Put("/items/{productId}", controllers.UpdateCartItem(p.CartService, p.Logger))
		r.Delete("/items/{productId}", controllers.RemoveCartItem(p.CartService, p.Logger))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(middleware.Auth(p.Config.JWT, p.Logger))
		r.Post("/checkout", controllers.Checkout(p.CheckoutService, p.Logger))
		r.Get("/", controllers.ListOrders(p.OrderService, p.Logger))
		r.Get("/{orderId}", controllers.GetOrder(p.OrderService, p.Logger))
		r.Post("/{orderId}/cancel", controllers.CancelOrder(p.CheckoutService, p.Logger))
	})

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(middleware.Auth(p.Config.JWT, p.Logger))
		r.Post("/checkout-session/{orderId}", controllers.CreateCheckoutSession(p.PaymentService, p.Logger))
	})

	return r
}
