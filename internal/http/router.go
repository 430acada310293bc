package http

import (
	"net/http"

	"github.com/geocoder89/coter/internal/auth"
	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/http/handlers"
	"github.com/geocoder89/coter/internal/http/middlewares"
	"github.com/geocoder89/coter/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// AccountsStore is the credential store as the router needs it.
type AccountsStore interface {
	handlers.AccountStore
	handlers.PatientDirectory
}

type Tokens interface {
	Issue(subjectID, role string) (string, *auth.Claims, error)
	Verify(token string) (*auth.Claims, error)
}

// Deps is everything the API needs, constructed by cmd/api (or a test).
type Deps struct {
	Accounts AccountsStore
	Assigner handlers.Assigner
	Goals    handlers.GoalStore
	Tasks    handlers.TaskStore
	CheckIns handlers.CheckInStore
	Messages handlers.MessageStore

	Hasher     handlers.PasswordHasher
	Tokens     Tokens
	InviteCode string

	AuthLimiter  middlewares.Limiter
	CORSOrigins  []string
	MaxBodyBytes int64

	Prom        *observability.Prom
	Metrics     http.Handler
	Ready       map[string]handlers.Pinger
	ServiceName string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	// middleware
	r.Use(middlewares.RequestID())
	r.Use(middlewares.Recovery())
	if d.ServiceName != "" {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	r.Use(middlewares.RequestLogger())
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondNotFound(ctx, "Route not found")
	})
	r.NoMethod(func(ctx *gin.Context) {
		handlers.RespondError(ctx, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	})

	// health
	h := handlers.NewHealthHandler(d.Ready)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	// handlers
	authHandler := handlers.NewAuthHandler(d.Accounts, d.Hasher, d.Tokens, d.InviteCode, d.Prom)
	therapistHandler := handlers.NewTherapistHandler(d.Accounts, d.Assigner)
	goalsHandler := handlers.NewGoalsHandler(d.Goals, d.Accounts)
	tasksHandler := handlers.NewTasksHandler(d.Tasks, d.Accounts)
	checkInsHandler := handlers.NewCheckInsHandler(d.CheckIns, d.Accounts)
	messagesHandler := handlers.NewMessagesHandler(d.Messages, d.Accounts)

	authMW := middlewares.NewAuthMiddleware(d.Tokens, d.Accounts)
	protect := authMW.Protect()
	therapistOnly := middlewares.RequireRole(account.RoleTherapist)
	patientOnly := middlewares.RequireRole(account.RolePatient)

	api := r.Group("/api")
	api.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes))
	api.Use(middlewares.RequireJSON())

	// auth
	authGroup := api.Group("/auth")
	{
		if d.AuthLimiter != nil {
			limit := middlewares.RateLimit(d.AuthLimiter, middlewares.KeyByIP, func(route string) {
				if d.Prom != nil {
					d.Prom.RateLimited.WithLabelValues(route).Inc()
				}
			})
			authGroup.POST("/register", limit, authHandler.Register)
			authGroup.POST("/login", limit, authHandler.Login)
		} else {
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
		authGroup.GET("/me", protect, authHandler.Me)
	}

	// therapist
	therapist := api.Group("/therapist", protect, therapistOnly)
	{
		therapist.GET("/patients", therapistHandler.ListPatients)
		therapist.PATCH("/assign", therapistHandler.Assign)
		therapist.GET("/patients/:patientId", therapistHandler.GetPatient)
		therapist.DELETE("/patients/:patientId", therapistHandler.Unassign)
		therapist.GET("/patients/:patientId/checkins", checkInsHandler.ListForPatient)
	}

	goals := api.Group("/goals", protect, therapistOnly)
	{
		goals.GET("/:patientId", goalsHandler.ListForPatient)
		goals.POST("", goalsHandler.Create)
		goals.PUT("/:goalId", goalsHandler.Update)
		goals.DELETE("/:goalId", goalsHandler.Delete)
	}

	tasks := api.Group("/tasks", protect, therapistOnly)
	{
		tasks.GET("/:patientId", tasksHandler.ListForPatient)
		tasks.POST("", tasksHandler.Create)
		tasks.PUT("/:taskId", tasksHandler.Update)
		tasks.DELETE("/:taskId", tasksHandler.Delete)
	}

	messages := api.Group("/messages", protect, therapistOnly)
	{
		messages.GET("/:patientId", messagesHandler.TherapistList)
		messages.POST("", messagesHandler.TherapistSend)
	}

	// patient
	patient := api.Group("/patient", protect, patientOnly)
	{
		patient.GET("/me", handlers.PatientProfile)
		patient.GET("/goals", goalsHandler.ListMine)
		patient.PATCH("/goals/:goalId", goalsHandler.UpdateMyStatus)
		patient.POST("/checkin", checkInsHandler.Create)
		patient.GET("/checkins", checkInsHandler.ListMine)
		patient.GET("/tasks", tasksHandler.ListMine)
		patient.PATCH("/tasks/:taskId", tasksHandler.UpdateMyStatus)
		patient.GET("/messages", messagesHandler.PatientList)
		patient.POST("/messages", messagesHandler.PatientSend)
	}

	return r
}
