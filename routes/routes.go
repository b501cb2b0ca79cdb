package routes

import (
	"github.com/arenaforge/esports-platform/handlers"
	"github.com/arenaforge/esports-platform/middleware"
	"github.com/arenaforge/esports-platform/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handlers groups everything SetupRoutes wires into the router.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Wallet      *handlers.WalletHandler
	Team        *handlers.TeamHandler
	Tournament  *handlers.TournamentHandler
	Match       *handlers.MatchHandler
	Escrow      *handlers.EscrowHandler
	Leaderboard *handlers.LeaderboardHandler
	Compliance  *handlers.ComplianceHandler
	WebSocket   *handlers.WebSocketHandler
}

func SetupRoutes(h Handlers, jwtSecret []byte) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	operators := middleware.Authorize(models.RoleAdmin, models.RoleOrganizer)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Post("/auth/register", h.Auth.RegisterHandler)
	router.Post("/auth/login", h.Auth.LoginHandler)

	// Payment gateway callback; verified at the edge, not by user JWT.
	router.Post("/wallet/deposits", h.Wallet.DepositHandler)

	router.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/auth/me", h.Auth.MeHandler)

		r.Get("/wallet", h.Wallet.BalanceHandler)
		r.Get("/wallet/transactions", h.Wallet.TransactionsHandler)
		r.Post("/wallet/withdrawals", h.Wallet.WithdrawHandler)

		r.Post("/teams", h.Team.CreateHandler)
		r.Post("/teams/{teamID}/members", h.Team.AddMemberHandler)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.ListHandler)
		r.Get("/{tournamentID}", h.Tournament.GetByIDHandler)
		r.Get("/{tournamentID}/participants", h.Tournament.ListParticipantsHandler)
		r.Get("/{tournamentID}/matches", h.Match.ListHandler)
		r.Get("/{tournamentID}/leaderboard", h.Leaderboard.GetHandler)
		r.Get("/{tournamentID}/leaderboard/{teamID}", h.Leaderboard.TeamStandingHandler)
		r.Get("/{tournamentID}/pool", h.Escrow.GetPoolHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{tournamentID}/registrations", h.Tournament.RegisterParticipantHandler)

			r.Group(func(r chi.Router) {
				r.Use(operators)

				r.Post("/", h.Tournament.CreateHandler)
				r.Put("/{tournamentID}", h.Tournament.UpdateHandler)
				r.Delete("/{tournamentID}", h.Tournament.DeleteHandler)
				r.Post("/{tournamentID}/transition", h.Tournament.TransitionHandler)
				r.Post("/{tournamentID}/matches", h.Match.CreateHandler)
				r.Get("/{tournamentID}/audit", h.Compliance.TournamentAuditHandler)

				// Manual settlement triggers for when the queue path failed.
				r.Post("/{tournamentID}/pool/lock", h.Escrow.LockHandler)
				r.Post("/{tournamentID}/pool/distribute", h.Escrow.DistributeHandler)
				r.Post("/{tournamentID}/pool/refund", h.Escrow.RefundHandler)
			})
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.GetByIDHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(operators)

			r.Post("/{matchID}/results", h.Match.SubmitResultsHandler)
			r.Post("/{matchID}/lock", h.Match.LockHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/{matchID}/override", h.Match.OverrideHandler)
		})
	})

	router.Get("/teams/{teamID}", h.Team.GetByIDHandler)

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(adminOnly)

		r.Post("/transactions/{transactionID}/approve", h.Wallet.ApproveTransactionHandler)
		r.Post("/transactions/{transactionID}/reject", h.Wallet.RejectTransactionHandler)
		r.Get("/reports/tds", h.Compliance.TDSReportHandler)
		r.Get("/audit", h.Compliance.AuditLogHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.LeaderboardStreamHandler)

	return router
}
