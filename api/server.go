// Package api exposes the service over REST and WebSocket: authentication,
// farm and recommendation reads, chat history, weather proxies, file
// storage, and the /ws action dispatch that drives the AI workflows.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agromitra/agromitra/agronomy"
	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/auth"
	"github.com/agromitra/agromitra/blob"
	"github.com/agromitra/agromitra/chat"
	"github.com/agromitra/agromitra/config"
	"github.com/agromitra/agromitra/hub"
	"github.com/agromitra/agromitra/pesticide"
	"github.com/agromitra/agromitra/storage"
	"github.com/agromitra/agromitra/weather"
)

const claimsKey = "auth.claims"

// Server wires the domain services to their HTTP and WebSocket surface.
type Server struct {
	cfg         *config.Config
	store       *storage.Store
	blobs       *blob.Store
	weather     *weather.Client
	auth        *auth.Service
	hub         *hub.Hub
	recommender *agronomy.Recommender
	selector    *agronomy.Selector
	pesticides  *pesticide.Recommender
	agent       *chat.Agent
	logger      *slog.Logger
}

// Deps carries the constructed services the server depends on.
type Deps struct {
	Config      *config.Config
	Store       *storage.Store
	Blobs       *blob.Store
	Weather     *weather.Client
	Auth        *auth.Service
	Hub         *hub.Hub
	Recommender *agronomy.Recommender
	Selector    *agronomy.Selector
	Pesticides  *pesticide.Recommender
	Agent       *chat.Agent
	Logger      *slog.Logger
}

// NewServer creates the server.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:         deps.Config,
		store:       deps.Store,
		blobs:       deps.Blobs,
		weather:     deps.Weather,
		auth:        deps.Auth,
		hub:         deps.Hub,
		recommender: deps.Recommender,
		selector:    deps.Selector,
		pesticides:  deps.Pesticides,
		agent:       deps.Agent,
		logger:      logger,
	}
}

// Router builds the echo instance with all routes registered.
func (s *Server) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/ws", s.handleWebSocket)

	ag := e.Group("/auth")
	ag.POST("/send-otp", s.handleSendOTP)
	ag.POST("/verify-otp", s.handleVerifyOTP)
	ag.GET("/user", s.handleCurrentUser, s.requireAuth)
	ag.DELETE("/delete", s.handleDeleteAccount, s.requireAuth)

	api := e.Group("", s.requireAuth)

	fp := api.Group("/farm-profiles")
	fp.POST("", s.handleSaveFarmProfile)
	fp.GET("", s.handleListFarmProfiles)
	fp.GET("/:farm_id", s.handleGetFarmProfile)
	fp.DELETE("/:farm_id", s.handleDeleteFarmProfile)

	cr := api.Group("/crop-recommendations")
	cr.GET("/farm/:farm_id", s.handleGetRecommendationByFarm)
	cr.GET("/:recommendation_id", s.handleGetRecommendation)
	cr.GET("/:recommendation_id/components", s.handleListRecommendationComponents)

	cc := api.Group("/cultivating-crops")
	cc.GET("/farm/:farm_id", s.handleListCultivatingCrops)
	cc.GET("/intercropping/:details_id", s.handleGetIntercroppingDetails)
	cc.GET("/:crop_id", s.handleGetCultivatingCrop)
	cc.DELETE("/:crop_id", s.handleDeleteCultivatingCrop)

	api.GET("/cultivation-calendar/crop/:crop_id", s.handleGetCalendar)
	api.DELETE("/cultivation-calendar/crop/:crop_id", s.handleDeleteCalendar)
	api.GET("/investment-breakdown/crop/:crop_id", s.handleGetInvestment)
	api.DELETE("/investment-breakdown/crop/:crop_id", s.handleDeleteInvestment)
	api.GET("/soil-health-recommendations/crop/:crop_id", s.handleGetSoilHealth)
	api.DELETE("/soil-health-recommendations/crop/:crop_id", s.handleDeleteSoilHealth)

	pr := api.Group("/pesticide-recommendations")
	pr.GET("/crop/:crop_id", s.handleListPesticideRecommendations)
	pr.GET("/:recommendation_id", s.handleGetPesticideRecommendation)
	pr.DELETE("/:recommendation_id", s.handleDeletePesticideRecommendation)
	pr.PATCH("/:recommendation_id/stage", s.handleUpdatePesticideStage)

	ch := api.Group("/chats")
	ch.POST("", s.handleCreateChat)
	ch.GET("", s.handleListChats)
	ch.GET("/:chat_id", s.handleGetChat)
	ch.GET("/:chat_id/messages", s.handleListChatMessages)
	ch.DELETE("/:chat_id", s.handleDeleteChat)

	we := api.Group("/weather")
	we.GET("/current", s.handleCurrentWeather)
	we.GET("/forecast", s.handleWeatherForecast)
	we.GET("/air-pollution", s.handleAirPollution)
	we.GET("/reverse-geocoding", s.handleReverseGeocoding)
	we.GET("/map-urls", s.handleWeatherMapURLs)

	fi := api.Group("/files")
	fi.POST("", s.handleUploadFile)
	fi.DELETE("", s.handleDeleteFile)
	fi.POST("/text-to-speech", s.handleTextToSpeech)
	fi.GET("/*", s.handleDownloadFile)

	wf := api.Group("/workflows")
	wf.GET("/:workflow_id", s.handleGetWorkflowRun)
	wf.GET("/:workflow_id/events", s.handleListWorkflowEvents)

	ad := api.Group("/admin", s.requireAdmin)
	ad.POST("/crop-images", s.handleSeedCropImages)
	ad.GET("/crop-images", s.handleGetCropImage)

	return e
}

// handleError renders every error as {"detail": message}, the shape the
// mobile client parses. Internal details never leave the process.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = c.JSON(he.Code, map[string]any{"detail": he.Message})
		return
	}

	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		s.logger.Error("Request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err)
	}
	_ = c.JSON(apperr.HTTPStatus(appErr.Kind), map[string]any{"detail": appErr.Message})
}

// requireAuth extracts and verifies the bearer token, stashing the claims
// in the request context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if token == "" {
			return apperr.Unauthorized("Could not validate credentials")
		}
		claims, err := s.auth.VerifyToken(token)
		if err != nil {
			return err
		}
		c.Set(claimsKey, claims)
		return next(c)
	}
}

// requireAdmin gates a route group to admin users.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := auth.RequireAdmin(claimsFrom(c)); err != nil {
			return err
		}
		return next(c)
	}
}

func claimsFrom(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsKey).(*auth.Claims)
	return claims
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
