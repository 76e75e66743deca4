package wire

import (
	"net/http"

	"waste-marketplace/internal/adaptor"
	"waste-marketplace/internal/data/entity"
	"waste-marketplace/internal/data/repository"
	"waste-marketplace/internal/notification"
	"waste-marketplace/internal/usecase"
	"waste-marketplace/pkg/middleware"
	"waste-marketplace/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type App struct {
	Router *chi.Mux
}

// providerRoles may act as the provider side of a listing or booking. Whether
// the caller is the bound provider is decided per record by the usecase.
var providerRoles = []entity.UserRole{entity.RoleProvider, entity.RoleExpert, entity.RoleAdmin}

// deps is what every route group needs besides its own handler.
type deps struct {
	repo        *repository.Repository
	idempotency middleware.IdempotencyStore
	log         *zap.Logger
}

func Wiring(repo *repository.Repository, sink notification.Sink, idempotency middleware.IdempotencyStore, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, sink, config, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, deps{repo: repo, idempotency: idempotency, log: logger}, config)

	return &App{
		Router: router,
	}
}

func setupRouter(handler *adaptor.Handler, d deps, config *utils.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger(d.log))
	r.Use(middleware.Recover(d.log))
	r.Use(middleware.CORS(config.App.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthSession(d.repo.Session, d.log))

		wireListing(r, handler.Listing, d)
		wireBooking(r, handler.Booking, d)
		wireNotification(r, handler.Notification)
		wireUser(r, handler.User)
	})

	return r
}
