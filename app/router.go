// Package app wires every endpoint to its handler
package app

import (
	"bitwise74/capture-api/app/analysis"
	"bitwise74/capture-api/app/page"
	"bitwise74/capture-api/app/root"
	"bitwise74/capture-api/app/user"
	"bitwise74/capture-api/internal"
	"bitwise74/capture-api/pkg/middleware"
	"bitwise74/capture-api/web"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Limit for JSON bodies, uploads have their own limit
const jsonBodyLimit = 1 << 20

func NewRouter(d *internal.Deps, origins []string) (*gin.Engine, error) {
	router := gin.New()

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates, %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	gate := middleware.GateConfig{
		Tokens:      d.Tokens,
		CookieName:  middleware.SessionCookie,
		LoginPath:   "/login",
		Secure:      d.SecureCookies,
		PublicPaths: []string{"/logout", "/whoami", "/seed", "/heartbeat"},
		APIPaths:    []string{"/analyze", "/analyses"},
	}

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == http.MethodHead
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
		middleware.NewSessionGate(gate),
	)

	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = 8 << 20

	jsonLimit := middleware.BodySizeLimiter(jsonBodyLimit)

	// HEAD /heartbeat		-> Used to check if the server is alive
	router.HEAD("/heartbeat", root.Heartbeat)

	// GET /			-> Capture page
	router.GET("/", page.Index)

	// GET /login			-> Login page
	router.GET("/login", page.Login)

	// POST /login			-> Logs in a user and sets the session cookie
	router.POST("/login", jsonLimit, func(c *gin.Context) { user.UserLogin(c, d) })

	// POST /logout		-> Clears the session cookie
	router.POST("/logout", func(c *gin.Context) { user.UserLogout(c, d) })

	// GET /whoami			-> Returns the current user or null
	router.GET("/whoami", func(c *gin.Context) { user.UserWhoami(c, d) })

	if d.EnableSeed {
		// GET /seed		-> Creates the demo user, development only
		router.GET("/seed", func(c *gin.Context) { user.UserSeed(c, d) })
	}

	// POST /analyze		-> Uploads a photo with a rating and comment and returns the analysis
	// The limit leaves room for the other form fields and multipart framing
	router.POST("/analyze", middleware.BodySizeLimiter(d.MaxUploadSize+jsonBodyLimit), func(c *gin.Context) { analysis.AnalysisCreate(c, d) })

	// GET /analyses		-> Returns the latest analyses of the user
	router.GET("/analyses", func(c *gin.Context) { analysis.AnalysisList(c, d) })

	// GET /uploads/:key		-> Serves an uploaded image to its owner
	router.GET("/uploads/:key", func(c *gin.Context) { analysis.ImageServe(c, d) })

	return router, nil
}
