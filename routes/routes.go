package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fitclash/tournament-core/handlers"
	"github.com/fitclash/tournament-core/middleware"
	"github.com/fitclash/tournament-core/models"
)

// SetupRoutes wires the full HTTP surface. Reads are public; anything that
// mutates runs behind Authenticate, and lifecycle or payout operations are
// limited to admins and instructors.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	allowedOrigins []string,
	tournamentHandler *handlers.TournamentHandler,
	enrollmentHandler *handlers.EnrollmentHandler,
	sessionHandler *handlers.SessionHandler,
	bracketHandler *handlers.BracketHandler,
	rankingHandler *handlers.RankingHandler,
	rewardHandler *handlers.RewardHandler,
	userHandler *handlers.UserHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	staffOnly := middleware.Authorize(string(models.RoleAdmin), string(models.RoleInstructor))
	adminOnly := middleware.Authorize(string(models.RoleAdmin))

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetOverviewHandler)
		r.Get("/{tournamentID}/sessions", sessionHandler.ListByTournamentHandler)
		r.Get("/{tournamentID}/ranking", rankingHandler.GetHandler)
		r.Get("/{tournamentID}/rewards", rewardHandler.ListHandler)
		r.Get("/{tournamentID}/history", tournamentHandler.HistoryHandler)
		r.Get("/{tournamentID}/enrollments", enrollmentHandler.ListHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{tournamentID}/enrollments", enrollmentHandler.EnrollHandler)
			r.Post("/{tournamentID}/enrollments/{userID}/check-in", enrollmentHandler.CheckInHandler)

			r.Group(func(r chi.Router) {
				r.Use(staffOnly)
				r.Post("/", tournamentHandler.CreateHandler)
				r.Post("/{tournamentID}/status", tournamentHandler.TransitionHandler)
				r.Post("/{tournamentID}/instructor", tournamentHandler.AssignInstructorHandler)
				r.Post("/{tournamentID}/groups/finalize", bracketHandler.FinalizeGroupsHandler)
				r.Post("/{tournamentID}/rounds/advance", bracketHandler.AdvanceRoundHandler)
				r.Post("/{tournamentID}/ranking/recompute", rankingHandler.RecomputeHandler)
			})

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Delete("/{tournamentID}", tournamentHandler.DeleteHandler)
				r.Post("/{tournamentID}/rewards/distribute", rewardHandler.DistributeHandler)
				r.Post("/{tournamentID}/report", rewardHandler.ArchiveReportHandler)
			})
		})
	})

	router.Route("/sessions", func(r chi.Router) {
		r.Get("/{sessionID}", sessionHandler.GetHandler)
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{sessionID}/result", sessionHandler.SubmitResultHandler)
		})
	})

	router.Route("/users", func(r chi.Router) {
		r.Get("/{userID}/skills", userHandler.SkillsHandler)
		r.Get("/{userID}/wallet", userHandler.WalletHandler)
		r.Get("/{userID}/rewards", userHandler.RewardsHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
